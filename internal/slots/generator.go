// Package slots computes the candidate grid of bookable time slots and
// filters it against existing commitments. This package is the single place
// where "available" is defined.
package slots

import (
	"time"

	"apptbot/internal/catalog"
	"apptbot/internal/timeutil"
)

// Slot is a candidate bookable interval of exactly one service's duration.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Generate produces the full candidate grid for a date and service, stepping
// through business hours at the policy's slot interval. Slots that would end
// after closing are excluded. Returns nil for non-working weekdays.
// Pure function of its inputs.
func Generate(date time.Time, svc catalog.Service, pol Policy) []Slot {
	if !pol.IsWorkingDay(date) {
		return nil
	}

	open := timeutil.AtTime(date, pol.BusinessStartHour, 0)
	close := timeutil.AtTime(date, pol.BusinessEndHour, 0)
	step := pol.SlotInterval()
	duration := svc.Duration()

	var out []Slot
	for cursor := open; !cursor.Add(duration).After(close); cursor = cursor.Add(step) {
		out = append(out, Slot{Start: cursor, End: cursor.Add(duration)})
	}
	return out
}
