// Package calendar defines the boundary to the calendar-of-record and its
// implementations. All durable booking state lives behind the Store interface.
package calendar

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned when a commitment id does not exist in the store.
	ErrNotFound = errors.New("calendar: commitment not found")
	// ErrConflict is returned by stores that reject overlapping commitments
	// atomically at write time.
	ErrConflict = errors.New("calendar: commitment overlaps an existing one")
)

// BusyInterval is an existing commitment's time range, bot-created or not.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Padded returns the interval widened by buffer on both ends.
func (b BusyInterval) Padded(buffer time.Duration) BusyInterval {
	return BusyInterval{Start: b.Start.Add(-buffer), End: b.End.Add(buffer)}
}

// Commitment is a stored calendar entry together with its tag metadata.
type Commitment struct {
	StoredID string
	Title    string
	Start    time.Time
	End      time.Time
	Metadata map[string]string
}

// Store is the calendar-of-record capability the booking core depends on.
// Metadata must round-trip arbitrary string-keyed tags exactly.
type Store interface {
	// ListBusyIntervals returns the time ranges of every commitment that
	// intersects [dayStart, dayEnd).
	ListBusyIntervals(ctx context.Context, dayStart, dayEnd time.Time) ([]BusyInterval, error)

	// CreateCommitment stores a new entry and returns its store-assigned id.
	// Implementations that can enforce it atomically return ErrConflict when
	// the interval overlaps an existing commitment.
	CreateCommitment(ctx context.Context, title string, start, end time.Time, metadata map[string]string) (string, error)

	// FindCommitmentsByTag returns commitments within [searchStart, searchEnd)
	// whose metadata carries tagKey=tagValue.
	FindCommitmentsByTag(ctx context.Context, tagKey, tagValue string, searchStart, searchEnd time.Time) ([]Commitment, error)

	// DeleteCommitment removes an entry. Returns ErrNotFound if it is gone.
	DeleteCommitment(ctx context.Context, storedID string) error

	// UpdateCommitmentTime moves an entry to a new interval.
	UpdateCommitmentTime(ctx context.Context, storedID string, start, end time.Time) error

	// SetCommitmentMetadata merges the given tags into an entry's metadata.
	SetCommitmentMetadata(ctx context.Context, storedID string, metadata map[string]string) error
}
