package slots

import (
	"testing"
	"time"

	"apptbot/internal/catalog"
)

func testPolicy() Policy {
	return Policy{
		BusinessStartHour: 9,
		BusinessEndHour:   17,
		WorkingWeekdays: map[time.Weekday]bool{
			time.Monday: true, time.Tuesday: true, time.Wednesday: true,
			time.Thursday: true, time.Friday: true,
		},
		SlotIntervalMinutes: 30,
		BufferMinutes:       15,
		MinNoticeHours:      12,
		MaxAdvanceDays:      30,
		Location:            time.UTC,
	}
}

// 2026-03-02 is a Monday.
var monday = time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

func TestGenerateGrid(t *testing.T) {
	svc := catalog.Service{ID: "consult-30", Name: "Consultation", DurationMinutes: 30}

	got := Generate(monday, svc, testPolicy())

	// 9:00 through 16:30 on a 30-minute grid.
	if len(got) != 16 {
		t.Fatalf("got %d slots, want 16", len(got))
	}
	first := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	if !got[0].Start.Equal(first) {
		t.Errorf("first slot starts %v, want %v", got[0].Start, first)
	}
	last := got[len(got)-1]
	if !last.Start.Equal(time.Date(2026, 3, 2, 16, 30, 0, 0, time.UTC)) {
		t.Errorf("last slot starts %v, want 16:30", last.Start)
	}
	if !last.End.Equal(time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)) {
		t.Errorf("last slot ends %v, want 17:00", last.End)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Start.Sub(got[i-1].Start) != 30*time.Minute {
			t.Fatalf("uneven grid between slot %d and %d", i-1, i)
		}
	}
}

func TestGenerateNoSpillPastClosing(t *testing.T) {
	svc := catalog.Service{ID: "checkup-60", Name: "Full check-up", DurationMinutes: 60}

	got := Generate(monday, svc, testPolicy())

	// The 16:30 start would end at 17:30, so the grid stops at 16:00.
	if len(got) != 15 {
		t.Fatalf("got %d slots, want 15", len(got))
	}
	closing := time.Date(2026, 3, 2, 17, 0, 0, 0, time.UTC)
	for _, s := range got {
		if s.End.After(closing) {
			t.Errorf("slot %v-%v spills past closing", s.Start, s.End)
		}
	}
}

func TestGenerateNonWorkingDay(t *testing.T) {
	svc := catalog.Service{ID: "consult-30", DurationMinutes: 30}
	saturday := time.Date(2026, 3, 7, 0, 0, 0, 0, time.UTC)

	if got := Generate(saturday, svc, testPolicy()); got != nil {
		t.Errorf("got %d slots on a Saturday, want none", len(got))
	}
}

func TestGenerateDurationLongerThanDay(t *testing.T) {
	svc := catalog.Service{ID: "marathon", DurationMinutes: 10 * 60}

	if got := Generate(monday, svc, testPolicy()); len(got) != 0 {
		t.Errorf("got %d slots for a 10h service in an 8h day, want none", len(got))
	}
}
