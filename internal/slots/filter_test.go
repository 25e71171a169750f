package slots

import (
	"testing"
	"time"

	"apptbot/internal/calendar"
	"apptbot/internal/catalog"
)

func at(h, m int) time.Time {
	return time.Date(2026, 3, 2, h, m, 0, 0, time.UTC)
}

func TestFilterAvailableBufferedOverlap(t *testing.T) {
	pol := testPolicy()
	svc := catalog.Service{ID: "consult-30", DurationMinutes: 30}
	candidates := Generate(monday, svc, pol)

	// One existing commitment 11:00-12:00; 15-minute buffer pads it to
	// 10:45-12:15, knocking out the 10:30, 11:00, 11:30 and 12:00 starts.
	busy := []calendar.BusyInterval{{Start: at(11, 0), End: at(12, 0)}}
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	got := FilterAvailable(candidates, busy, now, pol)

	blocked := map[string]bool{"10:30": true, "11:00": true, "11:30": true, "12:00": true}
	for _, s := range got {
		if blocked[s.Start.Format("15:04")] {
			t.Errorf("slot %s should be blocked by the buffered commitment", s.Start.Format("15:04"))
		}
	}
	if len(got) != len(candidates)-4 {
		t.Errorf("got %d available, want %d", len(got), len(candidates)-4)
	}
}

func TestFilterAvailableMinNotice(t *testing.T) {
	pol := testPolicy() // 12h notice
	svc := catalog.Service{ID: "consult-30", DurationMinutes: 30}
	candidates := Generate(monday, svc, pol)

	// At 23:00 the night before, slots before 11:00 next day violate notice.
	now := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	got := FilterAvailable(candidates, nil, now, pol)

	if len(got) == 0 {
		t.Fatal("expected some slots to survive the notice filter")
	}
	earliest := got[0].Start
	if earliest.Before(now.Add(12 * time.Hour)) {
		t.Errorf("earliest slot %v violates the 12h notice", earliest)
	}
	if !earliest.Equal(at(11, 0)) {
		t.Errorf("earliest slot %v, want 11:00", earliest)
	}
}

func TestFilterAvailableBookingWindow(t *testing.T) {
	pol := testPolicy() // 30 days
	svc := catalog.Service{ID: "consult-30", DurationMinutes: 30}

	// A working day beyond the window yields nothing.
	farDate := monday.AddDate(0, 0, 35)
	for !pol.IsWorkingDay(farDate) {
		farDate = farDate.AddDate(0, 0, 1)
	}
	candidates := Generate(farDate, svc, pol)
	now := monday

	if got := FilterAvailable(candidates, nil, now, pol); len(got) != 0 {
		t.Errorf("got %d slots %d days out, want none", len(got), 35)
	}
}

func TestFilterAvailableOrderPreserved(t *testing.T) {
	pol := testPolicy()
	svc := catalog.Service{ID: "consult-30", DurationMinutes: 30}
	candidates := Generate(monday, svc, pol)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	got := FilterAvailable(candidates, nil, now, pol)
	for i := 1; i < len(got); i++ {
		if !got[i].Start.After(got[i-1].Start) {
			t.Fatalf("slots out of order at index %d", i)
		}
	}
}

func TestIsFree(t *testing.T) {
	busy := []calendar.BusyInterval{{Start: at(11, 0), End: at(12, 0)}}

	tests := []struct {
		name       string
		start, end time.Time
		buffer     time.Duration
		want       bool
	}{
		{"clear of commitment", at(9, 0), at(9, 30), 0, true},
		{"direct overlap", at(11, 30), at(12, 0), 0, false},
		{"touching end, no buffer", at(12, 0), at(12, 30), 0, true},
		{"touching end, buffered", at(12, 0), at(12, 30), 15 * time.Minute, false},
		{"clear of buffer", at(12, 15), at(12, 45), 15 * time.Minute, true},
		{"ending inside buffer", at(10, 30), at(11, 0), 15 * time.Minute, false},
		{"ending at buffer edge", at(10, 15), at(10, 45), 15 * time.Minute, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsFree(tt.start, tt.end, busy, tt.buffer); got != tt.want {
				t.Errorf("IsFree() = %v, want %v", got, tt.want)
			}
		})
	}
}
