package bot

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"apptbot/internal/catalog"
	"apptbot/internal/slots"
)

var mainMenu = tgbotapi.NewReplyKeyboard(
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton("📅 Book appointment"),
		tgbotapi.NewKeyboardButton("🔎 My appointment"),
	),
	tgbotapi.NewKeyboardButtonRow(
		tgbotapi.NewKeyboardButton("❌ Cancel appointment"),
		tgbotapi.NewKeyboardButton("ℹ️ Help"),
	),
)

// servicesKeyboard lists the catalog as inline buttons.
func servicesKeyboard(services []catalog.Service) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(services))
	for _, svc := range services {
		label := fmt.Sprintf("%s (%d min)", svc.Name, svc.DurationMinutes)
		rows = append(rows, []tgbotapi.InlineKeyboardButton{
			tgbotapi.NewInlineKeyboardButtonData(label, "svc:"+svc.ID),
		})
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// datesKeyboard offers the next bookable working days.
func datesKeyboard(now time.Time, pol slots.Policy, days int, callbackPrefix string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, days)
	var row []tgbotapi.InlineKeyboardButton
	shown := 0
	for d := 1; shown < days && d <= days*2+7; d++ {
		date := now.AddDate(0, 0, d)
		if !pol.IsWorkingDay(date) {
			continue
		}
		shown++
		dateStr := date.Format("2006-01-02")
		label := date.Format("Mon 02 Jan")
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callbackPrefix+":"+dateStr))
		if len(row) == 2 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "back:menu"),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// slotsKeyboard renders available slots in rows of three.
func slotsKeyboard(available []slots.Slot, callbackPrefix string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0)
	var row []tgbotapi.InlineKeyboardButton
	for _, slot := range available {
		label := slot.Start.Format("15:04")
		data := fmt.Sprintf("%s:%s", callbackPrefix, slot.Start.Format(time.RFC3339))
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, data))
		if len(row) == 3 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, []tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "back:menu"),
	})
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: rows}
}

var confirmKeyboard = tgbotapi.NewInlineKeyboardMarkup(
	tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("✅ Confirm", "confirm:yes"),
		tgbotapi.NewInlineKeyboardButtonData("❌ Discard", "confirm:no"),
	),
)

// appointmentKeyboard offers actions on a found reservation.
func appointmentKeyboard(appointmentID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔁 Reschedule", "resched:"+appointmentID),
			tgbotapi.NewInlineKeyboardButtonData("❌ Cancel it", "drop:"+appointmentID),
		),
	)
}
