package booking

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Appointment ids combine a monotonically observed millisecond timestamp with
// a random component. Uniqueness is practical, not cryptographic; lookups are
// always by exact match.
var appointmentIDPattern = regexp.MustCompile(`^apt-\d{13}-[0-9a-f]{8}$`)

// ValidAppointmentID reports whether id matches the appointment id format.
func ValidAppointmentID(id string) bool {
	return appointmentIDPattern.MatchString(id)
}

type idGenerator struct {
	mu   sync.Mutex
	last int64
}

func (g *idGenerator) next(now time.Time) string {
	g.mu.Lock()
	ms := now.UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms
	g.mu.Unlock()

	return fmt.Sprintf("apt-%013d-%s", ms, uuid.NewString()[:8])
}
