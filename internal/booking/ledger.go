package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"apptbot/internal/calendar"
	"apptbot/internal/timeutil"
)

// Metadata tags used to persist reservation fields on calendar commitments.
const (
	TagAppointmentID  = "appointment_id"
	TagServiceID      = "service_id"
	TagCustomerName   = "customer_name"
	TagCustomerEmail  = "customer_email"
	TagCustomerPhone  = "customer_phone"
	TagNotes          = "notes"
	TagStatus         = "status"
	TagCreatedAt      = "created_at"
	TagRescheduledAt  = "rescheduled_at"
	TagSource         = "source"
	TagChatID         = "customer_chat_id"
	TagReminderSentAt = "reminder_sent_at"
)

// SourceValue marks commitments created by this service, so reports can tell
// them apart from foreign calendar entries.
const SourceValue = "apptbot"

// The store retains forward-looking commitments; a fixed horizon bounds every
// tag scan.
const searchHorizon = 365 * 24 * time.Hour

// Ledger adapts the calendar store into reservation-shaped operations. Each
// operation is re-entrant with respect to the appointment id.
type Ledger struct {
	store calendar.Store
	now   func() time.Time
}

// NewLedger wraps a calendar store.
func NewLedger(store calendar.Store) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

// BusyIntervals returns the commitments intersecting [from, to).
func (l *Ledger) BusyIntervals(ctx context.Context, from, to time.Time) ([]calendar.BusyInterval, error) {
	busy, err := l.store.ListBusyIntervals(ctx, from, to)
	if err != nil {
		return nil, storeErr("ledger.busy_intervals", err)
	}
	return busy, nil
}

// Create stores a reservation, re-checking the live store for overlapping
// commitments immediately before the write. This closes (most of) the race
// window between the availability read and the commit.
func (l *Ledger) Create(ctx context.Context, res Reservation) (Reservation, error) {
	const op = "ledger.create"

	busy, err := l.store.ListBusyIntervals(ctx, res.Start, res.End)
	if err != nil {
		return Reservation{}, storeErr(op, err)
	}
	for _, b := range busy {
		if timeutil.Overlaps(res.Start, res.End, b.Start, b.End) {
			return Reservation{}, conflictf(op, "slot %s is no longer free", res.Start.Format(time.RFC3339))
		}
	}

	res.Status = StatusConfirmed
	title := fmt.Sprintf("Appointment: %s (%s)", res.CustomerName, res.ServiceID)
	if _, err := l.store.CreateCommitment(ctx, title, res.Start, res.End, metadataFrom(res)); err != nil {
		if errors.Is(err, calendar.ErrConflict) {
			return Reservation{}, conflictf(op, "slot %s is no longer free", res.Start.Format(time.RFC3339))
		}
		return Reservation{}, storeErr(op, err)
	}
	return res, nil
}

// FindByID retrieves a reservation by its appointment id, scanning the
// bounded future horizon.
func (l *Ledger) FindByID(ctx context.Context, appointmentID string) (Reservation, error) {
	const op = "ledger.find"

	c, err := l.findCommitment(ctx, op, appointmentID)
	if err != nil {
		return Reservation{}, err
	}
	return reservationFrom(c), nil
}

// Cancel removes the commitment behind an appointment id. Cancelling an
// already-cancelled id reports not-found rather than success, so operator
// mistakes surface.
func (l *Ledger) Cancel(ctx context.Context, appointmentID string) (time.Time, error) {
	const op = "ledger.cancel"

	c, err := l.findCommitment(ctx, op, appointmentID)
	if err != nil {
		return time.Time{}, err
	}
	if err := l.store.DeleteCommitment(ctx, c.StoredID); err != nil {
		if errors.Is(err, calendar.ErrNotFound) {
			return time.Time{}, notFoundf(op, "appointment %s not found", appointmentID)
		}
		return time.Time{}, storeErr(op, err)
	}
	return l.now(), nil
}

// Reschedule moves a reservation to a new interval, re-validating against all
// other commitments. Exactly one busy interval equal to the commitment's
// current one is excluded from the conflict check; a second commitment on the
// same interval still counts.
func (l *Ledger) Reschedule(ctx context.Context, appointmentID string, newStart, newEnd time.Time) (Reservation, error) {
	const op = "ledger.reschedule"

	c, err := l.findCommitment(ctx, op, appointmentID)
	if err != nil {
		return Reservation{}, err
	}

	busy, err := l.store.ListBusyIntervals(ctx, newStart, newEnd)
	if err != nil {
		return Reservation{}, storeErr(op, err)
	}
	excludedSelf := false
	for _, b := range busy {
		if !excludedSelf && b.Start.Equal(c.Start) && b.End.Equal(c.End) {
			excludedSelf = true
			continue // the reservation being moved
		}
		if timeutil.Overlaps(newStart, newEnd, b.Start, b.End) {
			return Reservation{}, conflictf(op, "slot %s is no longer free", newStart.Format(time.RFC3339))
		}
	}

	if err := l.store.UpdateCommitmentTime(ctx, c.StoredID, newStart, newEnd); err != nil {
		if errors.Is(err, calendar.ErrNotFound) {
			return Reservation{}, notFoundf(op, "appointment %s not found", appointmentID)
		}
		return Reservation{}, storeErr(op, err)
	}

	movedAt := l.now()
	meta := map[string]string{
		TagStatus:        string(StatusRescheduled),
		TagRescheduledAt: movedAt.Format(time.RFC3339),
	}
	if err := l.store.SetCommitmentMetadata(ctx, c.StoredID, meta); err != nil {
		return Reservation{}, storeErr(op, err)
	}

	res := reservationFrom(c)
	res.Start = newStart
	res.End = newEnd
	res.Status = StatusRescheduled
	res.RescheduledAt = &movedAt
	return res, nil
}

// ListReservations returns every reservation this service created within
// [from, to), ordered by start time.
func (l *Ledger) ListReservations(ctx context.Context, from, to time.Time) ([]Reservation, error) {
	const op = "ledger.list"

	found, err := l.store.FindCommitmentsByTag(ctx, TagSource, SourceValue, from, to)
	if err != nil {
		return nil, storeErr(op, err)
	}
	out := make([]Reservation, 0, len(found))
	for _, c := range found {
		out = append(out, reservationFrom(c))
	}
	return out, nil
}

// MarkReminderSent records on the commitment that a reminder went out, so a
// restarted process does not notify twice.
func (l *Ledger) MarkReminderSent(ctx context.Context, appointmentID string) error {
	const op = "ledger.mark_reminder_sent"

	c, err := l.findCommitment(ctx, op, appointmentID)
	if err != nil {
		return err
	}
	meta := map[string]string{TagReminderSentAt: l.now().Format(time.RFC3339)}
	if err := l.store.SetCommitmentMetadata(ctx, c.StoredID, meta); err != nil {
		return storeErr(op, err)
	}
	return nil
}

func (l *Ledger) findCommitment(ctx context.Context, op, appointmentID string) (calendar.Commitment, error) {
	now := l.now()
	found, err := l.store.FindCommitmentsByTag(ctx, TagAppointmentID, appointmentID, timeutil.StartOfDay(now), now.Add(searchHorizon))
	if err != nil {
		return calendar.Commitment{}, storeErr(op, err)
	}
	if len(found) == 0 {
		return calendar.Commitment{}, notFoundf(op, "appointment %s not found", appointmentID)
	}
	return found[0], nil
}

func metadataFrom(res Reservation) map[string]string {
	meta := map[string]string{
		TagSource:        SourceValue,
		TagAppointmentID: res.AppointmentID,
		TagServiceID:     res.ServiceID,
		TagCustomerName:  res.CustomerName,
		TagCustomerEmail: res.CustomerEmail,
		TagStatus:        string(res.Status),
		TagCreatedAt:     res.CreatedAt.Format(time.RFC3339),
	}
	if res.CustomerPhone != "" {
		meta[TagCustomerPhone] = res.CustomerPhone
	}
	if res.Notes != "" {
		meta[TagNotes] = res.Notes
	}
	if res.ChatID != 0 {
		meta[TagChatID] = strconv.FormatInt(res.ChatID, 10)
	}
	return meta
}

func reservationFrom(c calendar.Commitment) Reservation {
	res := Reservation{
		AppointmentID: c.Metadata[TagAppointmentID],
		CustomerName:  c.Metadata[TagCustomerName],
		CustomerEmail: c.Metadata[TagCustomerEmail],
		CustomerPhone: c.Metadata[TagCustomerPhone],
		ServiceID:     c.Metadata[TagServiceID],
		Notes:         c.Metadata[TagNotes],
		Start:         c.Start,
		End:           c.End,
		Status:        Status(c.Metadata[TagStatus]),
	}
	if res.Status == "" {
		res.Status = StatusConfirmed
	}
	if raw := c.Metadata[TagCreatedAt]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			res.CreatedAt = t
		}
	}
	if raw := c.Metadata[TagRescheduledAt]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			res.RescheduledAt = &t
		}
	}
	if raw := c.Metadata[TagChatID]; raw != "" {
		if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
			res.ChatID = id
		}
	}
	if raw := c.Metadata[TagReminderSentAt]; raw != "" {
		if t, err := time.Parse(time.RFC3339, raw); err == nil {
			res.ReminderSentAt = &t
		}
	}
	return res
}
