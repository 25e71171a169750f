package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"apptbot/internal/timeutil"
)

const (
	upcomingPageSize = 8
	upcomingDays     = 7
)

// renderUpcomingPage shows managers one page of the next week's reservations.
// messageID zero sends a new message, otherwise the existing one is edited in
// place.
func (b *Bot) renderUpcomingPage(ctx context.Context, chatID int64, messageID, page int) {
	from := timeutil.StartOfDay(time.Now())
	to := from.AddDate(0, 0, upcomingDays)

	reservations, err := b.lister.ListReservations(ctx, from, to)
	if err != nil {
		b.replyError(chatID, err)
		return
	}
	if len(reservations) == 0 {
		b.reply(chatID, "No reservations in the next week.", mainMenu)
		return
	}

	totalPages := (len(reservations) + upcomingPageSize - 1) / upcomingPageSize
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	startIdx := page * upcomingPageSize
	endIdx := startIdx + upcomingPageSize
	if endIdx > len(reservations) {
		endIdx = len(reservations)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "Upcoming reservations (page %d of %d)\n\n", page+1, totalPages)
	for i, res := range reservations[startIdx:endIdx] {
		fmt.Fprintf(&text, "%d. %s  %s\n   %s · %s\n   %s\n\n",
			startIdx+i+1,
			res.Start.Format("Mon 02.01 15:04"),
			b.serviceName(res.ServiceID),
			res.CustomerName,
			string(res.Status),
			res.AppointmentID,
		)
	}

	var nav []tgbotapi.InlineKeyboardButton
	if page > 0 {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("⬅️ Prev", fmt.Sprintf("page:%d", page-1)))
	}
	if endIdx < len(reservations) {
		nav = append(nav, tgbotapi.NewInlineKeyboardButtonData("Next ➡️", fmt.Sprintf("page:%d", page+1)))
	}

	var keyboard [][]tgbotapi.InlineKeyboardButton
	if len(nav) > 0 {
		keyboard = append(keyboard, nav)
	}
	keyboard = append(keyboard, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "back:menu"),
	})
	markup := tgbotapi.NewInlineKeyboardMarkup(keyboard...)

	if messageID != 0 {
		edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text.String(), markup)
		if _, err := b.tg.Send(edit); err != nil {
			b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("page edit failed")
		}
		return
	}

	msg := tgbotapi.NewMessage(chatID, text.String())
	msg.ReplyMarkup = markup
	if _, err := b.tg.Send(msg); err != nil {
		b.logger.Error().Err(err).Int64("chat_id", chatID).Msg("page send failed")
	}
}
