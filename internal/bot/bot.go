// Package bot is the Telegram dialogue glue over the booking orchestrator.
// It collects input step by step and forwards every decision to the core;
// no availability or conflict logic lives here.
package bot

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"apptbot/internal/booking"
	"apptbot/internal/export"
	"apptbot/internal/timeutil"
)

const datePickerDays = 8

// reservationLister provides the reservations for the manager views.
type reservationLister interface {
	ListReservations(ctx context.Context, from, to time.Time) ([]booking.Reservation, error)
}

// Bot drives the booking dialogue.
type Bot struct {
	svc      *booking.Orchestrator
	reporter *export.Reporter
	lister   reservationLister
	managers map[int64]struct{}
	tg       telegramClient
	state    *stateStore
	logger   *zerolog.Logger
}

// New connects to Telegram and builds the bot.
func New(token string, svc *booking.Orchestrator, reporter *export.Reporter, lister *booking.Ledger, managers []int64, debug bool, logger *zerolog.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	api.Debug = debug
	return newBot(&realTelegramClient{api: api}, svc, reporter, lister, managers, logger), nil
}

// NewWithTelegramClient allows injecting a mocked Telegram client for tests.
func NewWithTelegramClient(tg telegramClient, svc *booking.Orchestrator, reporter *export.Reporter, lister reservationLister, managers []int64, logger *zerolog.Logger) *Bot {
	return newBot(tg, svc, reporter, lister, managers, logger)
}

func newBot(tg telegramClient, svc *booking.Orchestrator, reporter *export.Reporter, lister reservationLister, managers []int64, logger *zerolog.Logger) *Bot {
	mgrs := make(map[int64]struct{}, len(managers))
	for _, id := range managers {
		mgrs[id] = struct{}{}
	}
	return &Bot{
		svc:      svc,
		reporter: reporter,
		lister:   lister,
		managers: mgrs,
		tg:       tg,
		state:    newStateStore(30 * time.Minute),
		logger:   logger,
	}
}

// Sender adapts the bot for the notification service.
func (b *Bot) Send(chatID int64, text string) error {
	_, err := b.tg.Send(tgbotapi.NewMessage(chatID, text))
	return err
}

// Start polls updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) {
	updateCfg := tgbotapi.NewUpdate(0)
	updateCfg.Timeout = 30
	updates := b.tg.GetUpdatesChan(updateCfg)

	cleanupTicker := time.NewTicker(10 * time.Minute)
	defer cleanupTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cleanupTicker.C:
			if removed := b.state.cleanup(); removed > 0 {
				b.logger.Debug().Int("removed", removed).Msg("expired sessions cleaned up")
			}
		case update, ok := <-updates:
			if !ok {
				return
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID

	if msg.IsCommand() {
		switch msg.Command() {
		case "start":
			b.state.reset(chatID)
			b.reply(chatID, "Welcome! I can book, look up, move and cancel appointments.", mainMenu)
		case "report":
			b.handleReport(ctx, chatID)
		case "upcoming":
			if _, ok := b.managers[chatID]; !ok {
				b.reply(chatID, "This command is for managers.", mainMenu)
				return
			}
			b.renderUpcomingPage(ctx, chatID, 0, 0)
		default:
			b.reply(chatID, "Unknown command. Use the menu below.", mainMenu)
		}
		return
	}

	switch msg.Text {
	case "📅 Book appointment":
		b.state.set(chatID, StateIdle, func(d *Draft) { *d = Draft{} })
		b.reply(chatID, "Which service would you like?", servicesKeyboard(b.svc.Catalog().List()))
		return
	case "🔎 My appointment":
		b.state.set(chatID, StateAskLookupID, nil)
		b.reply(chatID, "Send me your appointment id (looks like apt-...).", nil)
		return
	case "❌ Cancel appointment":
		b.state.set(chatID, StateAskCancelID, nil)
		b.reply(chatID, "Send me the appointment id to cancel.", nil)
		return
	case "ℹ️ Help":
		b.reply(chatID, "Pick \"Book appointment\" and follow the steps. Keep the appointment id from the confirmation — you need it to move or cancel the booking.", mainMenu)
		return
	}

	session := b.state.get(chatID)
	switch session.State {
	case StateAskName:
		name := strings.TrimSpace(msg.Text)
		if name == "" {
			b.reply(chatID, "Please send your full name.", nil)
			return
		}
		b.state.set(chatID, StateAskEmail, func(d *Draft) { d.CustomerName = name })
		b.reply(chatID, "And your email address?", nil)

	case StateAskEmail:
		email := strings.TrimSpace(msg.Text)
		b.state.set(chatID, StateConfirm, func(d *Draft) { d.CustomerEmail = email })
		draft := b.state.get(chatID).Draft
		b.reply(chatID, b.renderDraft(draft), confirmKeyboard)

	case StateAskLookupID:
		b.state.reset(chatID)
		b.lookupAppointment(ctx, chatID, strings.TrimSpace(msg.Text))

	case StateAskCancelID:
		b.state.reset(chatID)
		b.cancelAppointment(ctx, chatID, strings.TrimSpace(msg.Text))

	default:
		b.reply(chatID, "Use the menu below to get started.", mainMenu)
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	defer func() { _, _ = b.tg.Request(tgbotapi.NewCallback(cb.ID, "")) }()

	// Telegram omits Message on callbacks for messages too old to edit.
	if cb.Message == nil {
		return
	}

	chatID := cb.Message.Chat.ID
	parts := strings.SplitN(cb.Data, ":", 2)
	if len(parts) != 2 {
		return
	}
	action, value := parts[0], parts[1]

	switch action {
	case "svc":
		b.state.set(chatID, StateAskDate, func(d *Draft) { d.ServiceID = value })
		b.reply(chatID, "Pick a date:", datesKeyboard(time.Now(), b.svc.Policy(), datePickerDays, "date"))

	case "date":
		b.offerSlots(ctx, chatID, value, StateAskSlot, "slot")

	case "slot":
		start, err := time.Parse(time.RFC3339, value)
		if err != nil {
			b.reply(chatID, "That slot looks broken, pick another one.", nil)
			return
		}
		b.state.set(chatID, StateAskName, func(d *Draft) { d.SlotStart = start })
		b.reply(chatID, "What is your full name?", nil)

	case "confirm":
		b.finishBooking(ctx, chatID, value == "yes")

	case "resched":
		b.state.set(chatID, StateReschedDate, func(d *Draft) { *d = Draft{AppointmentID: value} })
		b.reply(chatID, "Pick a new date:", datesKeyboard(time.Now(), b.svc.Policy(), datePickerDays, "rdate"))

	case "rdate":
		b.offerReschedSlots(ctx, chatID, value)

	case "rslot":
		b.finishReschedule(ctx, chatID, value)

	case "drop":
		b.cancelAppointment(ctx, chatID, value)

	case "page":
		if _, ok := b.managers[chatID]; !ok {
			return
		}
		page, err := strconv.Atoi(value)
		if err != nil {
			return
		}
		b.renderUpcomingPage(ctx, chatID, cb.Message.MessageID, page)

	case "back":
		b.state.reset(chatID)
		b.reply(chatID, "Back to the menu.", mainMenu)
	}
}

func (b *Bot) offerSlots(ctx context.Context, chatID int64, date string, next State, prefix string) {
	session := b.state.get(chatID)
	serviceID := session.Draft.ServiceID
	if serviceID == "" {
		b.reply(chatID, "Let's start over — pick a service first.", servicesKeyboard(b.svc.Catalog().List()))
		return
	}

	available, err := b.svc.GetSlots(ctx, date, serviceID)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if len(available) == 0 {
		b.reply(chatID, "No free slots on that day, try another date.", datesKeyboard(time.Now(), b.svc.Policy(), datePickerDays, "date"))
		return
	}

	b.state.set(chatID, next, func(d *Draft) { d.Date = date })
	b.reply(chatID, fmt.Sprintf("Free slots on %s:", date), slotsKeyboard(available, prefix))
}

func (b *Bot) offerReschedSlots(ctx context.Context, chatID int64, date string) {
	session := b.state.get(chatID)
	appointmentID := session.Draft.AppointmentID
	if appointmentID == "" {
		b.reply(chatID, "I lost track of which appointment to move. Look it up again.", mainMenu)
		return
	}

	res, err := b.svc.Find(ctx, appointmentID)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	available, err := b.svc.GetSlots(ctx, date, res.ServiceID)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if len(available) == 0 {
		b.reply(chatID, "No free slots on that day, try another date.", datesKeyboard(time.Now(), b.svc.Policy(), datePickerDays, "rdate"))
		return
	}

	b.state.set(chatID, StateReschedSlot, func(d *Draft) { d.Date = date })
	b.reply(chatID, fmt.Sprintf("Free slots on %s:", date), slotsKeyboard(available, "rslot"))
}

func (b *Bot) finishBooking(ctx context.Context, chatID int64, confirmed bool) {
	session := b.state.get(chatID)
	draft := session.Draft
	b.state.reset(chatID)

	if !confirmed {
		b.reply(chatID, "Discarded. Nothing was booked.", mainMenu)
		return
	}

	res, err := b.svc.Book(ctx, booking.BookRequest{
		CustomerName:  draft.CustomerName,
		CustomerEmail: draft.CustomerEmail,
		ServiceID:     draft.ServiceID,
		Start:         draft.SlotStart,
		ChatID:        chatID,
	})
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	b.reply(chatID, fmt.Sprintf(
		"✅ Booked!\n%s\n%s — %s\n\nYour appointment id:\n%s\n\nKeep it to move or cancel the booking.",
		b.serviceName(res.ServiceID),
		res.Start.Format("Mon, 02 Jan 15:04"),
		res.End.Format("15:04"),
		res.AppointmentID,
	), mainMenu)
}

func (b *Bot) finishReschedule(ctx context.Context, chatID int64, value string) {
	session := b.state.get(chatID)
	appointmentID := session.Draft.AppointmentID
	b.state.reset(chatID)

	newStart, err := time.Parse(time.RFC3339, value)
	if err != nil {
		b.reply(chatID, "That slot looks broken, start over.", mainMenu)
		return
	}

	current, err := b.svc.Find(ctx, appointmentID)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	newEnd := newStart.Add(current.End.Sub(current.Start))

	res, err := b.svc.Reschedule(ctx, appointmentID, newStart, newEnd)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	b.reply(chatID, fmt.Sprintf(
		"🔁 Moved to %s — %s.\nAppointment id stays the same:\n%s",
		res.Start.Format("Mon, 02 Jan 15:04"),
		res.End.Format("15:04"),
		res.AppointmentID,
	), mainMenu)
}

func (b *Bot) lookupAppointment(ctx context.Context, chatID int64, id string) {
	res, err := b.svc.Find(ctx, id)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	text := fmt.Sprintf(
		"📋 %s\n%s — %s\n%s (%s)\nStatus: %s",
		b.serviceName(res.ServiceID),
		res.Start.Format("Mon, 02 Jan 15:04"),
		res.End.Format("15:04"),
		res.CustomerName,
		res.CustomerEmail,
		res.Status,
	)
	b.reply(chatID, text, appointmentKeyboard(res.AppointmentID))
}

func (b *Bot) cancelAppointment(ctx context.Context, chatID int64, id string) {
	result, err := b.svc.Cancel(ctx, id)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	b.reply(chatID, fmt.Sprintf("❌ Appointment %s cancelled at %s.",
		result.AppointmentID, result.CancelledAt.Format("15:04")), mainMenu)
}

func (b *Bot) handleReport(ctx context.Context, chatID int64) {
	if _, ok := b.managers[chatID]; !ok {
		b.reply(chatID, "This command is for managers.", mainMenu)
		return
	}
	if b.reporter == nil {
		b.reply(chatID, "Reports are not configured.", mainMenu)
		return
	}

	now := time.Now()
	from := timeutil.StartOfDay(now)
	to := from.AddDate(0, 0, 7)

	var buf bytes.Buffer
	count, err := b.reporter.WriteReport(ctx, from, to, &buf)
	if err != nil {
		b.replyError(chatID, err)
		return
	}

	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{
		Name:  fmt.Sprintf("bookings_%s.xlsx", from.Format("20060102")),
		Bytes: buf.Bytes(),
	})
	doc.Caption = fmt.Sprintf("%d reservations, %s — %s", count,
		from.Format("02.01"), to.AddDate(0, 0, -1).Format("02.01"))
	if _, err := b.tg.Send(doc); err != nil {
		b.logger.Error().Err(err).Msg("report send failed")
	}
}

func (b *Bot) renderDraft(d Draft) string {
	return fmt.Sprintf(
		"📋 Please check:\n\nService: %s\nWhen: %s\nName: %s\nEmail: %s\n\nConfirm?",
		b.serviceName(d.ServiceID),
		d.SlotStart.Format("Mon, 02 Jan 15:04"),
		d.CustomerName,
		d.CustomerEmail,
	)
}

func (b *Bot) serviceName(id string) string {
	if svc, ok := b.svc.Catalog().Get(id); ok {
		return svc.Name
	}
	return id
}

func (b *Bot) reply(chatID int64, text string, keyboard any) {
	msg := tgbotapi.NewMessage(chatID, text)
	if keyboard != nil {
		msg.ReplyMarkup = keyboard
	}
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("send failed")
	}
}

func (b *Bot) replyError(chatID int64, err error) {
	var text string
	switch booking.KindOf(err) {
	case booking.KindValidation:
		text = "That input doesn't look right: " + err.Error()
	case booking.KindInvalidDate:
		text = "I couldn't read that date. Use YYYY-MM-DD."
	case booking.KindNotFound:
		text = "I couldn't find that appointment. Check the id."
	case booking.KindConflict:
		text = "Sorry, that slot was just taken. Pick another one."
	case booking.KindStoreUnavailable:
		text = "The calendar is unreachable right now, please try again in a minute."
	default:
		text = "Something went wrong, please try again."
	}
	b.reply(chatID, text, mainMenu)
}
