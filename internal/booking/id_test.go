package booking

import (
	"testing"
	"time"
)

func TestValidAppointmentID(t *testing.T) {
	gen := idGenerator{}
	id := gen.next(time.Now())
	if !ValidAppointmentID(id) {
		t.Errorf("generated id %q does not match the format", id)
	}

	for _, bad := range []string{
		"",
		"apt-123-abcd1234",
		"apt-1234567890123-ABCD1234",
		"apt-1234567890123-abcd123",
		"booking-1234567890123-abcd1234",
		"apt-1234567890123-abcd1234 ",
	} {
		if ValidAppointmentID(bad) {
			t.Errorf("ValidAppointmentID(%q) = true, want false", bad)
		}
	}
}

func TestIDGeneratorMonotonic(t *testing.T) {
	gen := idGenerator{}
	now := time.Now()

	seen := make(map[string]bool)
	var prev string
	for i := 0; i < 100; i++ {
		// Same clock reading every time; the generator must still move
		// forward.
		id := gen.next(now)
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
		if prev != "" && id[:17] <= prev[:17] {
			t.Fatalf("timestamp component not increasing: %q after %q", id, prev)
		}
		prev = id
	}
}
