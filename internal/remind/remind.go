// Package remind sends pre-appointment reminders to the customers who booked
// through the messenger. A reminder is recorded on the reservation itself, so
// a restart never notifies the same booking twice.
package remind

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"apptbot/internal/booking"
	"apptbot/internal/catalog"
	"apptbot/internal/metrics"
)

// ReservationSource is the ledger surface the reminder loop reads and marks.
type ReservationSource interface {
	ListReservations(ctx context.Context, from, to time.Time) ([]booking.Reservation, error)
	MarkReminderSent(ctx context.Context, appointmentID string) error
}

// Sender delivers one rendered reminder to a chat.
type Sender interface {
	Send(chatID int64, text string) error
}

// Config tunes the reminder loop.
type Config struct {
	HoursBefore   int
	CheckInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.HoursBefore <= 0 {
		c.HoursBefore = 24
	}
	if c.CheckInterval <= 0 {
		c.CheckInterval = 30 * time.Minute
	}
	return c
}

// Service periodically scans upcoming reservations and reminds customers.
type Service struct {
	cfg     Config
	source  ReservationSource
	sender  Sender
	catalog *catalog.Catalog
	limiter *rate.Limiter
	logger  *zerolog.Logger
	nowFn   func() time.Time

	mu      sync.Mutex
	running bool
}

// NewService builds the reminder service.
func NewService(cfg Config, source ReservationSource, sender Sender, cat *catalog.Catalog, logger *zerolog.Logger) *Service {
	return &Service{
		cfg:     cfg.withDefaults(),
		source:  source,
		sender:  sender,
		catalog: cat,
		limiter: rate.NewLimiter(rate.Limit(1), 5),
		logger:  logger,
		nowFn:   time.Now,
	}
}

// Start runs the check loop until ctx is cancelled. A second Start is a no-op.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.logger.Info().
		Int("hours_before", s.cfg.HoursBefore).
		Dur("check_interval", s.cfg.CheckInterval).
		Msg("reminder service started")

	go func() {
		s.CheckNow(ctx)

		ticker := time.NewTicker(s.cfg.CheckInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				s.logger.Info().Msg("reminder service stopped")
				return
			case <-ticker.C:
				s.CheckNow(ctx)
			}
		}
	}()
}

// CheckNow runs one reminder sweep immediately.
func (s *Service) CheckNow(ctx context.Context) {
	now := s.nowFn()
	lookAhead := time.Duration(s.cfg.HoursBefore+1) * time.Hour

	reservations, err := s.source.ListReservations(ctx, now, now.Add(lookAhead))
	if err != nil {
		s.logger.Error().Err(err).Msg("reminder sweep: listing reservations failed")
		return
	}

	for _, res := range reservations {
		if !s.due(res, now) {
			continue
		}
		if err := s.limiter.Wait(ctx); err != nil {
			return
		}
		s.remind(ctx, res)
	}
}

// due reports whether a reservation needs a reminder right now.
func (s *Service) due(res booking.Reservation, now time.Time) bool {
	if res.ChatID == 0 || res.ReminderSentAt != nil {
		return false
	}
	if res.Status == booking.StatusCancelled {
		return false
	}
	if !res.Start.After(now) {
		return false
	}
	remindAt := res.Start.Add(-time.Duration(s.cfg.HoursBefore) * time.Hour)
	return !now.Before(remindAt)
}

func (s *Service) remind(ctx context.Context, res booking.Reservation) {
	if err := s.sender.Send(res.ChatID, s.render(res)); err != nil {
		metrics.IncReminderSent("failed")
		s.logger.Error().Err(err).
			Str("appointment_id", res.AppointmentID).
			Int64("chat_id", res.ChatID).
			Msg("reminder send failed")
		return
	}

	// The send succeeded; a marking failure only risks one duplicate on the
	// next sweep.
	if err := s.source.MarkReminderSent(ctx, res.AppointmentID); err != nil {
		s.logger.Error().Err(err).
			Str("appointment_id", res.AppointmentID).
			Msg("reminder sent but could not be marked")
	}

	metrics.IncReminderSent("sent")
	s.logger.Info().
		Str("appointment_id", res.AppointmentID).
		Time("start", res.Start).
		Msg("reminder sent")
}

func (s *Service) render(res booking.Reservation) string {
	serviceName := res.ServiceID
	if svc, ok := s.catalog.Get(res.ServiceID); ok {
		serviceName = svc.Name
	}
	return "⏰ Reminder: " + serviceName + " on " +
		res.Start.Format("Mon, 02 Jan 15:04") + " — " + res.End.Format("15:04") +
		".\nAppointment id: " + res.AppointmentID
}
