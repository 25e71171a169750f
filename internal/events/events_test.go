package events

import (
	"testing"
)

func TestPublishReachesSubscribers(t *testing.T) {
	bus := NewBus()

	var created, cancelled int
	bus.Subscribe(TypeBookingCreated, func(Event) { created++ })
	bus.Subscribe(TypeBookingCreated, func(Event) { created++ })
	bus.Subscribe(TypeBookingCancelled, func(Event) { cancelled++ })

	bus.Publish(Event{Type: TypeBookingCreated, Payload: "x"})

	if created != 2 {
		t.Errorf("created handlers fired %d times, want 2", created)
	}
	if cancelled != 0 {
		t.Errorf("cancelled handler fired %d times, want 0", cancelled)
	}
}

func TestPublishWithoutSubscribersIsNoop(t *testing.T) {
	bus := NewBus()
	bus.Publish(Event{Type: TypeBookingRescheduled})
}

func TestPublishStampsCreatedAt(t *testing.T) {
	bus := NewBus()

	var got Event
	bus.Subscribe(TypeBookingCreated, func(ev Event) { got = ev })
	bus.Publish(Event{Type: TypeBookingCreated})

	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped on publish")
	}
}
