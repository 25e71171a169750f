package bot

import (
	"context"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"apptbot/internal/booking"
	"apptbot/internal/calendar"
	"apptbot/internal/catalog"
	"apptbot/internal/slots"
)

// fakeTelegram records every outbound message.
type fakeTelegram struct {
	sent []tgbotapi.Chattable
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, nil
}

func (f *fakeTelegram) Request(tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

func (f *fakeTelegram) lastText(t *testing.T) string {
	t.Helper()
	require.NotEmpty(t, f.sent)
	msg, ok := f.sent[len(f.sent)-1].(tgbotapi.MessageConfig)
	require.True(t, ok, "last send was %T, want MessageConfig", f.sent[len(f.sent)-1])
	return msg.Text
}

// stubLedger answers the orchestrator without a real calendar.
type stubLedger struct {
	created *booking.Reservation
}

func (s *stubLedger) BusyIntervals(context.Context, time.Time, time.Time) ([]calendar.BusyInterval, error) {
	return nil, nil
}

func (s *stubLedger) Create(_ context.Context, res booking.Reservation) (booking.Reservation, error) {
	s.created = &res
	return res, nil
}

func (s *stubLedger) FindByID(context.Context, string) (booking.Reservation, error) {
	if s.created == nil {
		return booking.Reservation{}, &booking.Error{Kind: booking.KindNotFound, Msg: "not found"}
	}
	return *s.created, nil
}

func (s *stubLedger) Cancel(context.Context, string) (time.Time, error) {
	return time.Now(), nil
}

func (s *stubLedger) Reschedule(_ context.Context, _ string, newStart, newEnd time.Time) (booking.Reservation, error) {
	res := *s.created
	res.Start, res.End = newStart, newEnd
	res.Status = booking.StatusRescheduled
	return res, nil
}

func (s *stubLedger) ListReservations(context.Context, time.Time, time.Time) ([]booking.Reservation, error) {
	if s.created == nil {
		return nil, nil
	}
	return []booking.Reservation{*s.created}, nil
}

func newDialogueBot(t *testing.T) (*Bot, *fakeTelegram, *stubLedger) {
	t.Helper()
	cat, err := catalog.New([]catalog.Service{
		{ID: "consult-30", Name: "Consultation", DurationMinutes: 30},
	})
	require.NoError(t, err)

	pol := slots.Policy{
		BusinessStartHour: 9,
		BusinessEndHour:   17,
		WorkingWeekdays: map[time.Weekday]bool{
			time.Monday: true, time.Tuesday: true, time.Wednesday: true,
			time.Thursday: true, time.Friday: true,
		},
		SlotIntervalMinutes: 30,
		MinNoticeHours:      1,
		MaxAdvanceDays:      30,
		Location:            time.UTC,
	}

	logger := zerolog.Nop()
	ledger := &stubLedger{}
	svc := booking.NewOrchestrator(ledger, cat, pol, nil, &logger)

	tg := &fakeTelegram{}
	b := NewWithTelegramClient(tg, svc, nil, ledger, []int64{777}, &logger)
	return b, tg, ledger
}

func message(chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{Message: &tgbotapi.Message{
		Chat: &tgbotapi.Chat{ID: chatID},
		Text: text,
	}}
}

func callback(chatID int64, data string) tgbotapi.Update {
	return tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		Data:    data,
		Message: &tgbotapi.Message{Chat: &tgbotapi.Chat{ID: chatID}, MessageID: 5},
	}}
}

func nextWorkingDay(pol slots.Policy) time.Time {
	d := time.Now().UTC().AddDate(0, 0, 1)
	for !pol.IsWorkingDay(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

func TestBookingDialogueEndToEnd(t *testing.T) {
	b, tg, ledger := newDialogueBot(t)
	ctx := context.Background()
	const chat = int64(10)

	b.handleUpdate(ctx, message(chat, "📅 Book appointment"))
	assert.Contains(t, tg.lastText(t), "service")

	b.handleUpdate(ctx, callback(chat, "svc:consult-30"))
	assert.Contains(t, tg.lastText(t), "date")

	day := nextWorkingDay(b.svc.Policy())
	b.handleUpdate(ctx, callback(chat, "date:"+day.Format("2006-01-02")))
	assert.Contains(t, tg.lastText(t), "Free slots")

	slotStart := time.Date(day.Year(), day.Month(), day.Day(), 14, 0, 0, 0, time.UTC)
	b.handleUpdate(ctx, callback(chat, "slot:"+slotStart.Format(time.RFC3339)))
	assert.Contains(t, tg.lastText(t), "name")

	b.handleUpdate(ctx, message(chat, "Ada Lovelace"))
	assert.Contains(t, tg.lastText(t), "email")

	b.handleUpdate(ctx, message(chat, "ada@example.com"))
	assert.Contains(t, tg.lastText(t), "Confirm")

	b.handleUpdate(ctx, callback(chat, "confirm:yes"))
	assert.Contains(t, tg.lastText(t), "Booked")

	require.NotNil(t, ledger.created)
	assert.Equal(t, "Ada Lovelace", ledger.created.CustomerName)
	assert.Equal(t, chat, ledger.created.ChatID)
	assert.True(t, booking.ValidAppointmentID(ledger.created.AppointmentID))
}

func TestDiscardedDraftBooksNothing(t *testing.T) {
	b, tg, ledger := newDialogueBot(t)
	ctx := context.Background()
	const chat = int64(11)

	day := nextWorkingDay(b.svc.Policy())
	slotStart := time.Date(day.Year(), day.Month(), day.Day(), 14, 0, 0, 0, time.UTC)

	b.handleUpdate(ctx, message(chat, "📅 Book appointment"))
	b.handleUpdate(ctx, callback(chat, "svc:consult-30"))
	b.handleUpdate(ctx, callback(chat, "slot:"+slotStart.Format(time.RFC3339)))
	b.handleUpdate(ctx, message(chat, "Ada Lovelace"))
	b.handleUpdate(ctx, message(chat, "ada@example.com"))
	b.handleUpdate(ctx, callback(chat, "confirm:no"))

	assert.Contains(t, tg.lastText(t), "Discarded")
	assert.Nil(t, ledger.created)
}

func TestCallbackWithoutMessageIsIgnored(t *testing.T) {
	b, tg, _ := newDialogueBot(t)

	// Callbacks for messages too old to edit arrive without a Message.
	b.handleUpdate(context.Background(), tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{ID: "cb", Data: "svc:consult-30"},
	})

	assert.Empty(t, tg.sent)
}

func TestLookupUnknownAppointment(t *testing.T) {
	b, tg, _ := newDialogueBot(t)
	ctx := context.Background()
	const chat = int64(12)

	b.handleUpdate(ctx, message(chat, "🔎 My appointment"))
	b.handleUpdate(ctx, message(chat, "apt-1234567890123-abcd1234"))

	assert.Contains(t, tg.lastText(t), "couldn't find")
}

func TestReportCommandRequiresManager(t *testing.T) {
	b, tg, _ := newDialogueBot(t)
	ctx := context.Background()

	update := message(42, "/report")
	update.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 7}}
	b.handleUpdate(ctx, update)

	assert.Contains(t, tg.lastText(t), "managers")
}

func TestUpcomingCommandForManager(t *testing.T) {
	b, tg, ledger := newDialogueBot(t)
	ctx := context.Background()

	start := time.Now().UTC().Add(24 * time.Hour)
	ledger.created = &booking.Reservation{
		AppointmentID: "apt-1234567890123-abcd1234",
		CustomerName:  "Ada Lovelace",
		ServiceID:     "consult-30",
		Start:         start,
		End:           start.Add(30 * time.Minute),
		Status:        booking.StatusConfirmed,
	}

	update := message(777, "/upcoming")
	update.Message.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: 9}}
	b.handleUpdate(ctx, update)

	text := tg.lastText(t)
	assert.True(t, strings.Contains(text, "Ada Lovelace"), "upcoming view missing reservation: %s", text)
}
