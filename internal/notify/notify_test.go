package notify

import (
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apptbot/internal/booking"
	"apptbot/internal/catalog"
	"apptbot/internal/events"
)

// gatedSender blocks every send until released.
type gatedSender struct {
	release chan struct{}

	mu   sync.Mutex
	sent []int64
}

func newGatedSender() *gatedSender {
	return &gatedSender{release: make(chan struct{})}
}

func (g *gatedSender) Send(chatID int64, _ string) error {
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sent = append(g.sent, chatID)
	return nil
}

func (g *gatedSender) sentCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sent)
}

func newNotifyService(t *testing.T, sender Sender, managers []int64) *Service {
	t.Helper()
	cat, err := catalog.New([]catalog.Service{
		{ID: "consult-30", Name: "Consultation", DurationMinutes: 30},
	})
	require.NoError(t, err)
	logger := zerolog.Nop()
	return NewService(sender, cat, managers, 100, 100, &logger)
}

func TestPublishDoesNotBlockOnDelivery(t *testing.T) {
	sender := newGatedSender()
	svc := newNotifyService(t, sender, []int64{1, 2, 3})

	bus := events.NewBus()
	svc.SubscribeTo(bus)

	start := time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)
	res := booking.Reservation{
		AppointmentID: "apt-1234567890123-abcd1234",
		CustomerName:  "Ada Lovelace",
		ServiceID:     "consult-30",
		Start:         start,
		End:           start.Add(30 * time.Minute),
	}

	done := make(chan struct{})
	go func() {
		bus.Publish(events.Event{Type: events.TypeBookingCreated, Payload: res})
		close(done)
	}()

	// Publish returns while every send is still gated.
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on notification delivery")
	}
	assert.Equal(t, 0, sender.sentCount())

	close(sender.release)
	assert.Eventually(t, func() bool { return sender.sentCount() == 3 },
		time.Second, 10*time.Millisecond, "all managers should be notified")
}

func TestNonReservationPayloadIsIgnored(t *testing.T) {
	sender := newGatedSender()
	close(sender.release)
	svc := newNotifyService(t, sender, []int64{1})

	bus := events.NewBus()
	svc.SubscribeTo(bus)

	bus.Publish(events.Event{Type: events.TypeBookingCreated, Payload: "junk"})

	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, sender.sentCount())
}
