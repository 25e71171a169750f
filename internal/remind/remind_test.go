package remind

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apptbot/internal/booking"
	"apptbot/internal/catalog"
)

type fakeSource struct {
	reservations []booking.Reservation
	marked       []string
	err          error
}

func (f *fakeSource) ListReservations(_ context.Context, _, _ time.Time) ([]booking.Reservation, error) {
	return f.reservations, f.err
}

func (f *fakeSource) MarkReminderSent(_ context.Context, appointmentID string) error {
	f.marked = append(f.marked, appointmentID)
	return nil
}

type fakeSender struct {
	sent []int64
	err  error
}

func (f *fakeSender) Send(chatID int64, _ string) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, chatID)
	return nil
}

var remindNow = time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, source *fakeSource, sender *fakeSender) *Service {
	t.Helper()
	cat, err := catalog.New([]catalog.Service{
		{ID: "consult-30", Name: "Consultation", DurationMinutes: 30},
	})
	require.NoError(t, err)

	logger := zerolog.Nop()
	s := NewService(Config{HoursBefore: 24}, source, sender, cat, &logger)
	s.nowFn = func() time.Time { return remindNow }
	return s
}

func reservation(id string, start time.Time, chatID int64) booking.Reservation {
	return booking.Reservation{
		AppointmentID: id,
		ServiceID:     "consult-30",
		Start:         start,
		End:           start.Add(30 * time.Minute),
		Status:        booking.StatusConfirmed,
		ChatID:        chatID,
	}
}

func TestCheckNowSendsDueReminders(t *testing.T) {
	sentAt := remindNow.Add(-time.Hour)
	source := &fakeSource{reservations: []booking.Reservation{
		// 20h out with a chat: due.
		reservation("apt-1234567890123-aaaaaaaa", remindNow.Add(20*time.Hour), 100),
		// 30h out: not due yet.
		reservation("apt-1234567890123-bbbbbbbb", remindNow.Add(30*time.Hour), 101),
		// Booked outside the messenger, no chat to remind.
		reservation("apt-1234567890123-cccccccc", remindNow.Add(20*time.Hour), 0),
		// Already reminded.
		func() booking.Reservation {
			r := reservation("apt-1234567890123-dddddddd", remindNow.Add(20*time.Hour), 103)
			r.ReminderSentAt = &sentAt
			return r
		}(),
	}}
	sender := &fakeSender{}
	s := newTestService(t, source, sender)

	s.CheckNow(context.Background())

	assert.Equal(t, []int64{100}, sender.sent)
	assert.Equal(t, []string{"apt-1234567890123-aaaaaaaa"}, source.marked)
}

func TestCheckNowSkipsPastStarts(t *testing.T) {
	source := &fakeSource{reservations: []booking.Reservation{
		reservation("apt-1234567890123-aaaaaaaa", remindNow.Add(-time.Hour), 100),
	}}
	sender := &fakeSender{}
	s := newTestService(t, source, sender)

	s.CheckNow(context.Background())

	assert.Empty(t, sender.sent)
}

func TestCheckNowDoesNotMarkFailedSends(t *testing.T) {
	source := &fakeSource{reservations: []booking.Reservation{
		reservation("apt-1234567890123-aaaaaaaa", remindNow.Add(20*time.Hour), 100),
	}}
	sender := &fakeSender{err: assert.AnError}
	s := newTestService(t, source, sender)

	s.CheckNow(context.Background())

	assert.Empty(t, source.marked, "failed send must stay unmarked for the next sweep")
}

func TestDueRespectsHoursBefore(t *testing.T) {
	s := newTestService(t, &fakeSource{}, &fakeSender{})

	tests := []struct {
		name  string
		start time.Time
		want  bool
	}{
		{"exactly at the threshold", remindNow.Add(24 * time.Hour), true},
		{"just inside", remindNow.Add(23 * time.Hour), true},
		{"just outside", remindNow.Add(24*time.Hour + time.Minute), false},
		{"already started", remindNow, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := reservation("apt-1234567890123-aaaaaaaa", tt.start, 100)
			assert.Equal(t, tt.want, s.due(res, remindNow))
		})
	}
}
