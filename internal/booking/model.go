// Package booking implements the reservation core: the ledger adapter over
// the calendar store and the orchestrator behind the four user-facing
// operations.
package booking

import "time"

// Status is the lifecycle state of a reservation.
type Status string

const (
	StatusConfirmed   Status = "CONFIRMED"
	StatusCancelled   Status = "CANCELLED"
	StatusRescheduled Status = "RESCHEDULED"
)

// Reservation is the persisted booking entity. It is owned by the calendar
// store; the core reads and writes it only through the Ledger.
type Reservation struct {
	AppointmentID string     `json:"appointment_id"`
	CustomerName  string     `json:"customer_name"`
	CustomerEmail string     `json:"customer_email"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	ServiceID     string     `json:"service_id"`
	Start         time.Time  `json:"start"`
	End           time.Time  `json:"end"`
	Notes         string     `json:"notes,omitempty"`
	Status        Status     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	RescheduledAt *time.Time `json:"rescheduled_at,omitempty"`

	// ChatID is the Telegram chat the booking came from, zero for other
	// channels. ReminderSentAt is set once a pre-appointment reminder
	// went out.
	ChatID         int64      `json:"chat_id,omitempty"`
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`
}

// CancelResult confirms a successful cancellation.
type CancelResult struct {
	AppointmentID string    `json:"appointment_id"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

// BookRequest carries the input of the Book operation.
type BookRequest struct {
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone,omitempty"`
	ServiceID     string    `json:"service_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Notes         string    `json:"notes,omitempty"`
	ChatID        int64     `json:"chat_id,omitempty"`
}
