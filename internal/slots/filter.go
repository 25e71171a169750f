package slots

import (
	"time"

	"apptbot/internal/calendar"
	"apptbot/internal/timeutil"
)

// FilterAvailable removes candidates that violate the minimum-notice rule,
// fall outside the booking window, or overlap a buffered busy interval.
// Candidate ordering is preserved.
func FilterAvailable(candidates []Slot, busy []calendar.BusyInterval, now time.Time, pol Policy) []Slot {
	out := make([]Slot, 0, len(candidates))
	for _, slot := range candidates {
		if slot.Start.Before(now.Add(pol.MinNotice())) {
			continue
		}
		if !timeutil.WithinWindow(slot.Start, now, pol.MaxAdvance()) {
			continue
		}
		if !IsFree(slot.Start, slot.End, busy, pol.Buffer()) {
			continue
		}
		out = append(out, slot)
	}
	return out
}

// IsFree reports whether [start,end) avoids every busy interval once each is
// padded by buffer on both ends. Every availability decision in the system
// funnels through this overlap rule.
func IsFree(start, end time.Time, busy []calendar.BusyInterval, buffer time.Duration) bool {
	for _, b := range busy {
		padded := b.Padded(buffer)
		if timeutil.Overlaps(start, end, padded.Start, padded.End) {
			return false
		}
	}
	return true
}
