package booking

import (
	"context"
	"regexp"
	"time"

	"github.com/rs/zerolog"

	"apptbot/internal/calendar"
	"apptbot/internal/catalog"
	"apptbot/internal/events"
	"apptbot/internal/metrics"
	"apptbot/internal/slots"
	"apptbot/internal/timeutil"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// LedgerAPI is the ledger surface the orchestrator depends on.
type LedgerAPI interface {
	BusyIntervals(ctx context.Context, from, to time.Time) ([]calendar.BusyInterval, error)
	Create(ctx context.Context, res Reservation) (Reservation, error)
	FindByID(ctx context.Context, appointmentID string) (Reservation, error)
	Cancel(ctx context.Context, appointmentID string) (time.Time, error)
	Reschedule(ctx context.Context, appointmentID string, newStart, newEnd time.Time) (Reservation, error)
}

// Orchestrator composes the catalog, slot engine and ledger into the four
// user-facing operations. It keeps no state across calls beyond the ledger.
type Orchestrator struct {
	ledger  LedgerAPI
	catalog *catalog.Catalog
	policy  slots.Policy
	bus     *events.Bus
	logger  *zerolog.Logger
	nowFn   func() time.Time
	ids     idGenerator
}

// NewOrchestrator wires the orchestrator. The bus may be nil when no
// subscriber is interested in booking events.
func NewOrchestrator(ledger LedgerAPI, cat *catalog.Catalog, pol slots.Policy, bus *events.Bus, logger *zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		ledger:  ledger,
		catalog: cat,
		policy:  pol,
		bus:     bus,
		logger:  logger,
		nowFn:   time.Now,
	}
}

// GetSlots returns the ordered available slots for a date and service.
// A non-working weekday yields an empty result, not an error.
func (o *Orchestrator) GetSlots(ctx context.Context, dateStr, serviceID string) ([]slots.Slot, error) {
	const op = "get_slots"

	if serviceID == "" {
		return nil, validationf(op, []string{"service_id"}, "service_id is required")
	}
	svc, ok := o.catalog.Get(serviceID)
	if !ok {
		return nil, notFoundf(op, "unknown service %q", serviceID)
	}
	if dateStr == "" {
		return nil, validationf(op, []string{"date"}, "date is required")
	}
	date, err := timeutil.ParseDate(dateStr, o.policy.Timezone())
	if err != nil {
		return nil, invalidDatef(op, "invalid date %q; expected YYYY-MM-DD", dateStr)
	}

	if !o.policy.IsWorkingDay(date) {
		return []slots.Slot{}, nil
	}

	candidates := slots.Generate(date, svc, o.policy)
	busy, err := o.ledger.BusyIntervals(ctx, timeutil.StartOfDay(date), timeutil.EndOfDay(date))
	if err != nil {
		o.logger.Error().Err(err).Str("op", op).Str("date", dateStr).Msg("busy intervals fetch failed")
		return nil, err
	}

	available := slots.FilterAvailable(candidates, busy, o.nowFn(), o.policy)
	o.logger.Debug().Str("op", op).Str("date", dateStr).Str("service_id", serviceID).
		Int("candidates", len(candidates)).Int("available", len(available)).Msg("slots computed")
	return available, nil
}

// Book validates the request, re-checks availability against the live ledger
// and commits the reservation. Fails fast with no partial creation.
func (o *Orchestrator) Book(ctx context.Context, req BookRequest) (Reservation, error) {
	const op = "book"

	var missing []string
	if req.CustomerName == "" {
		missing = append(missing, "customer_name")
	}
	if req.CustomerEmail == "" {
		missing = append(missing, "customer_email")
	}
	if req.ServiceID == "" {
		missing = append(missing, "service_id")
	}
	if req.Start.IsZero() {
		missing = append(missing, "start_time")
	}
	if len(missing) > 0 {
		return Reservation{}, validationf(op, missing, "missing required fields")
	}
	if !emailPattern.MatchString(req.CustomerEmail) {
		return Reservation{}, validationf(op, []string{"customer_email"}, "malformed email address")
	}

	svc, ok := o.catalog.Get(req.ServiceID)
	if !ok {
		return Reservation{}, notFoundf(op, "unknown service %q", req.ServiceID)
	}

	expectedEnd := req.Start.Add(svc.Duration())
	if req.End.IsZero() {
		req.End = expectedEnd
	} else if !req.End.Equal(expectedEnd) {
		return Reservation{}, validationf(op, []string{"end_time"}, "end_time must be start_time plus the service duration (%d min)", svc.DurationMinutes)
	}

	now := o.nowFn()
	if req.Start.Before(now.Add(o.policy.MinNotice())) {
		return Reservation{}, validationf(op, []string{"start_time"}, "start_time violates the minimum notice of %dh", o.policy.MinNoticeHours)
	}
	if !timeutil.WithinWindow(req.Start, now, o.policy.MaxAdvance()) {
		return Reservation{}, validationf(op, []string{"start_time"}, "start_time is outside the %d-day booking window", o.policy.MaxAdvanceDays)
	}

	// Belt and suspenders against stale client-side slot lists.
	buffer := o.policy.Buffer()
	busy, err := o.ledger.BusyIntervals(ctx, req.Start.Add(-buffer), req.End.Add(buffer))
	if err != nil {
		o.logger.Error().Err(err).Str("op", op).Msg("availability re-check failed")
		return Reservation{}, err
	}
	if !slots.IsFree(req.Start, req.End, busy, buffer) {
		metrics.IncBookingConflict()
		return Reservation{}, conflictf(op, "slot %s is no longer available", req.Start.Format(time.RFC3339))
	}

	res := Reservation{
		AppointmentID: o.ids.next(now),
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		CustomerPhone: req.CustomerPhone,
		ServiceID:     req.ServiceID,
		Start:         req.Start,
		End:           req.End,
		Notes:         req.Notes,
		ChatID:        req.ChatID,
		Status:        StatusConfirmed,
		CreatedAt:     now,
	}

	stored, err := o.ledger.Create(ctx, res)
	if err != nil {
		if IsKind(err, KindConflict) {
			metrics.IncBookingConflict()
		}
		o.logger.Warn().Err(err).Str("op", op).Str("appointment_id", res.AppointmentID).Msg("commit rejected")
		return Reservation{}, err
	}

	metrics.IncBookingCreated(stored.ServiceID)
	o.publish(events.TypeBookingCreated, stored)
	o.logger.Info().Str("op", op).Str("appointment_id", stored.AppointmentID).
		Str("service_id", stored.ServiceID).Time("start", stored.Start).Msg("reservation created")
	return stored, nil
}

// Cancel removes a reservation by appointment id.
func (o *Orchestrator) Cancel(ctx context.Context, appointmentID string) (CancelResult, error) {
	const op = "cancel"

	if !ValidAppointmentID(appointmentID) {
		return CancelResult{}, validationf(op, []string{"appointment_id"}, "malformed appointment id %q", appointmentID)
	}

	res, err := o.ledger.FindByID(ctx, appointmentID)
	if err != nil {
		return CancelResult{}, err
	}

	cancelledAt, err := o.ledger.Cancel(ctx, appointmentID)
	if err != nil {
		return CancelResult{}, err
	}

	metrics.IncBookingCancelled()
	res.Status = StatusCancelled
	o.publish(events.TypeBookingCancelled, res)
	o.logger.Info().Str("op", op).Str("appointment_id", appointmentID).Msg("reservation cancelled")
	return CancelResult{AppointmentID: appointmentID, CancelledAt: cancelledAt}, nil
}

// Reschedule moves a reservation to a new interval. The reservation's own
// commitment is excluded from the conflict check.
func (o *Orchestrator) Reschedule(ctx context.Context, appointmentID string, newStart, newEnd time.Time) (Reservation, error) {
	const op = "reschedule"

	if !ValidAppointmentID(appointmentID) {
		return Reservation{}, validationf(op, []string{"appointment_id"}, "malformed appointment id %q", appointmentID)
	}
	now := o.nowFn()
	if !timeutil.IsFuture(newStart, now) {
		return Reservation{}, validationf(op, []string{"new_start"}, "new start time must be in the future")
	}
	if !newEnd.After(newStart) {
		return Reservation{}, validationf(op, []string{"new_end"}, "new end time must be after the start")
	}

	res, err := o.ledger.Reschedule(ctx, appointmentID, newStart, newEnd)
	if err != nil {
		if IsKind(err, KindConflict) {
			metrics.IncBookingConflict()
		}
		o.logger.Warn().Err(err).Str("op", op).Str("appointment_id", appointmentID).Msg("reschedule rejected")
		return Reservation{}, err
	}

	metrics.IncBookingRescheduled()
	o.publish(events.TypeBookingRescheduled, res)
	o.logger.Info().Str("op", op).Str("appointment_id", appointmentID).Time("start", res.Start).Msg("reservation rescheduled")
	return res, nil
}

// Find returns the reservation behind an appointment id.
func (o *Orchestrator) Find(ctx context.Context, appointmentID string) (Reservation, error) {
	const op = "find"

	if !ValidAppointmentID(appointmentID) {
		return Reservation{}, validationf(op, []string{"appointment_id"}, "malformed appointment id %q", appointmentID)
	}
	return o.ledger.FindByID(ctx, appointmentID)
}

// Policy exposes the immutable booking policy the orchestrator runs under.
func (o *Orchestrator) Policy() slots.Policy { return o.policy }

// Catalog exposes the service catalog.
func (o *Orchestrator) Catalog() *catalog.Catalog { return o.catalog }

func (o *Orchestrator) publish(eventType string, res Reservation) {
	if o.bus == nil {
		return
	}
	o.bus.Publish(events.Event{Type: eventType, Payload: res, CreatedAt: o.nowFn()})
}
