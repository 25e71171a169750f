// Package metrics registers the Prometheus instrumentation for the booking
// service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apptbot",
			Name:      "booking_created_total",
			Help:      "Count of reservations created by service.",
		},
		[]string{"service"},
	)

	bookingCancelled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apptbot",
			Name:      "booking_cancelled_total",
			Help:      "Count of reservations cancelled.",
		},
	)

	bookingRescheduled = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apptbot",
			Name:      "booking_rescheduled_total",
			Help:      "Count of reservations rescheduled.",
		},
	)

	bookingConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "apptbot",
			Name:      "booking_conflict_total",
			Help:      "Count of commits rejected because the slot was taken.",
		},
	)

	remindersSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apptbot",
			Name:      "reminders_sent_total",
			Help:      "Count of pre-appointment reminders by outcome.",
		},
		[]string{"outcome"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "apptbot",
			Name:      "http_requests_total",
			Help:      "Count of HTTP API requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingCreated, bookingCancelled, bookingRescheduled, bookingConflicts, remindersSent, httpRequests)
	})
}

func IncBookingCreated(serviceID string) {
	bookingCreated.WithLabelValues(serviceID).Inc()
}

func IncBookingCancelled() {
	bookingCancelled.Inc()
}

func IncBookingRescheduled() {
	bookingRescheduled.Inc()
}

func IncBookingConflict() {
	bookingConflicts.Inc()
}

func IncReminderSent(outcome string) {
	remindersSent.WithLabelValues(outcome).Inc()
}

func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}
