package timeutil

import (
	"testing"
	"time"
)

func TestOverlaps(t *testing.T) {
	base := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	at := func(min int) time.Time { return base.Add(time.Duration(min) * time.Minute) }

	tests := []struct {
		name                       string
		start1, end1, start2, end2 time.Time
		want                       bool
	}{
		{"disjoint before", at(0), at(30), at(30), at(60), false},
		{"disjoint after", at(60), at(90), at(0), at(60), false},
		{"identical", at(0), at(30), at(0), at(30), true},
		{"partial overlap", at(0), at(40), at(30), at(60), true},
		{"contained", at(10), at(20), at(0), at(60), true},
		{"touching endpoints are free", at(0), at(30), at(30), at(45), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Overlaps(tt.start1, tt.end1, tt.start2, tt.end2); got != tt.want {
				t.Errorf("Overlaps() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	if err != nil {
		t.Fatal(err)
	}

	got, err := ParseDate("2026-03-02", loc)
	if err != nil {
		t.Fatalf("ParseDate() error = %v", err)
	}
	want := time.Date(2026, 3, 2, 0, 0, 0, 0, loc)
	if !got.Equal(want) {
		t.Errorf("ParseDate() = %v, want %v", got, want)
	}

	for _, bad := range []string{"", "02.03.2026", "2026-3-2", "2026-02-30", "tomorrow"} {
		if _, err := ParseDate(bad, loc); err == nil {
			t.Errorf("ParseDate(%q) expected error", bad)
		}
	}
}

func TestWithinWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	window := 30 * 24 * time.Hour

	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"now itself", now, true},
		{"inside", now.AddDate(0, 0, 10), true},
		{"window edge inclusive", now.Add(window), true},
		{"past", now.Add(-time.Minute), false},
		{"beyond window", now.Add(window + time.Minute), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WithinWindow(tt.t, now, window); got != tt.want {
				t.Errorf("WithinWindow(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func TestDayBounds(t *testing.T) {
	loc, _ := time.LoadLocation("Europe/Berlin")
	ts := time.Date(2026, 3, 2, 15, 42, 7, 0, loc)

	start := StartOfDay(ts)
	if start.Hour() != 0 || start.Minute() != 0 || !SameDate(start, ts) {
		t.Errorf("StartOfDay() = %v", start)
	}
	end := EndOfDay(ts)
	if !end.Equal(start.Add(24 * time.Hour)) {
		t.Errorf("EndOfDay() = %v, want %v", end, start.Add(24*time.Hour))
	}
}
