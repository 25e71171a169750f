package slots

import (
	"time"
)

// Policy bundles the business-hour and booking-window rules. It is built once
// from configuration and treated as immutable.
type Policy struct {
	BusinessStartHour   int
	BusinessEndHour     int
	WorkingWeekdays     map[time.Weekday]bool
	SlotIntervalMinutes int
	BufferMinutes       int
	MinNoticeHours      int
	MaxAdvanceDays      int
	Location            *time.Location
}

// SlotInterval returns the grid step.
func (p Policy) SlotInterval() time.Duration {
	if p.SlotIntervalMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(p.SlotIntervalMinutes) * time.Minute
}

// Buffer returns the padding applied around busy intervals.
func (p Policy) Buffer() time.Duration {
	if p.BufferMinutes < 0 {
		return 0
	}
	return time.Duration(p.BufferMinutes) * time.Minute
}

// MinNotice returns the shortest allowed lead time before a slot starts.
func (p Policy) MinNotice() time.Duration {
	if p.MinNoticeHours < 0 {
		return 0
	}
	return time.Duration(p.MinNoticeHours) * time.Hour
}

// MaxAdvance returns the far edge of the booking window.
func (p Policy) MaxAdvance() time.Duration {
	if p.MaxAdvanceDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(p.MaxAdvanceDays) * 24 * time.Hour
}

// IsWorkingDay reports whether the policy allows bookings on date's weekday.
func (p Policy) IsWorkingDay(date time.Time) bool {
	if len(p.WorkingWeekdays) == 0 {
		return false
	}
	return p.WorkingWeekdays[date.Weekday()]
}

// Timezone returns the business timezone, defaulting to the process local one.
func (p Policy) Timezone() *time.Location {
	if p.Location == nil {
		return time.Local
	}
	return p.Location
}
