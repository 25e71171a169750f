// Package notify delivers booking confirmations to the manager chats.
// Delivery is best-effort and decoupled from the commit path via the event
// bus; a failed send never fails a booking.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"apptbot/internal/booking"
	"apptbot/internal/catalog"
	"apptbot/internal/events"
)

// Sender delivers one rendered message to a chat.
type Sender interface {
	Send(chatID int64, text string) error
}

// Service renders booking events and fans them out, paced by a token bucket
// so bursts of bookings do not trip messenger flood limits.
type Service struct {
	sender   Sender
	catalog  *catalog.Catalog
	managers []int64
	limiter  *rate.Limiter
	logger   *zerolog.Logger
}

// NewService builds a notification service. ratePerSecond and burst bound the
// outbound send rate.
func NewService(sender Sender, cat *catalog.Catalog, managers []int64, ratePerSecond float64, burst int, logger *zerolog.Logger) *Service {
	if ratePerSecond <= 0 {
		ratePerSecond = 20
	}
	if burst <= 0 {
		burst = 30
	}
	return &Service{
		sender:   sender,
		catalog:  cat,
		managers: managers,
		limiter:  rate.NewLimiter(rate.Limit(ratePerSecond), burst),
		logger:   logger,
	}
}

// SubscribeTo registers the service on the booking event types.
func (s *Service) SubscribeTo(bus *events.Bus) {
	bus.Subscribe(events.TypeBookingCreated, s.handle("booked"))
	bus.Subscribe(events.TypeBookingCancelled, s.handle("cancelled"))
	bus.Subscribe(events.TypeBookingRescheduled, s.handle("rescheduled"))
}

func (s *Service) handle(action string) events.Handler {
	return func(ev events.Event) {
		res, ok := ev.Payload.(booking.Reservation)
		if !ok {
			return
		}
		// Delivery runs off the publishing goroutine so a booking commit
		// never waits on rate-limited sends.
		go s.deliver(action, res)
	}
}

func (s *Service) deliver(action string, res booking.Reservation) {
	text := s.render(action, res)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	for _, chatID := range s.managers {
		if err := s.limiter.Wait(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("notification pacing interrupted")
			return
		}
		if err := s.sender.Send(chatID, text); err != nil {
			s.logger.Error().Err(err).Int64("chat_id", chatID).
				Str("appointment_id", res.AppointmentID).Msg("notification send failed")
		}
	}
}

func (s *Service) render(action string, res booking.Reservation) string {
	serviceName := res.ServiceID
	if svc, ok := s.catalog.Get(res.ServiceID); ok {
		serviceName = svc.Name
	}
	return fmt.Sprintf("Appointment %s: %s\n%s — %s\n%s (%s)\nid: %s",
		action,
		serviceName,
		res.Start.Format("02.01.2006 15:04"),
		res.End.Format("15:04"),
		res.CustomerName,
		res.CustomerEmail,
		res.AppointmentID,
	)
}
