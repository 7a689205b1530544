package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/almazpyjs/calendar-bot/internal/domain"
)

// UI texts in English
const (
	startText = "👋 I am a calendar bot.\n\n" +
		"Create events with /new and I will remind you before they start.\n" +
		"/events — upcoming, /history — past, /next — the nearest one,\n" +
		"/settings — timezone and default reminder."
	askTitleText    = "What is the event called?"
	askDateText     = "Pick a date:"
	askCustomDate   = "Enter the date as DD.MM.YYYY:"
	askTimeText     = "Pick a time:"
	askCustomTime   = "Enter the time as HH:MM:"
	askDurationText = "How long will it last?"
	askCustomDur    = "Enter the duration, e.g. 90 or 1h30m:"
	askReminderText = "When should I remind you?"
	canceledText    = "Okay, canceled."
	storageErrText  = "Something went wrong. Please try again later."
	pastTimeText    = "That time is already in the past. Pick a later one."
)

// FormatReminder renders the one-shot reminder message in the owner's zone.
func FormatReminder(ev domain.Event, tz string) string {
	return fmt.Sprintf("⏰ Reminder!\n%s\nStarts: %s", ev.Title, domain.LocalizeTime(ev.StartTime, tz))
}

// formatEvent renders the event detail view.
func formatEvent(ev domain.Event, tz string) string {
	reminder := "none"
	if ev.RemindBefore > 0 {
		reminder = fmt.Sprintf("%d min before", ev.RemindBefore)
	}
	status := "🟢 Reminder scheduled"
	if ev.Reminded {
		status = "✅ Reminder sent"
	}
	return fmt.Sprintf("📌 %s\n🗓 %s — %s\n⏱ %s\n🔔 Reminder: %s\n%s",
		ev.Title,
		domain.LocalizeTime(ev.StartTime, tz),
		domain.LocalizeClock(ev.EndTime(), tz),
		domain.FormatMinutes(ev.DurationMinutes),
		reminder,
		status,
	)
}

// formatOverview renders a numbered, one-line-per-event listing.
func formatOverview(events []domain.Event, tz, emptyText string) string {
	if len(events) == 0 {
		return emptyText
	}
	lines := make([]string, 0, len(events))
	for i, ev := range events {
		lines = append(lines, fmt.Sprintf("%d. %s — %s", i+1, domain.LocalizeTime(ev.StartTime, tz), ev.Title))
	}
	return strings.Join(lines, "\n")
}

func mainMenuKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/new"),
			tgbotapi.NewKeyboardButton("/events"),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("/next"),
			tgbotapi.NewKeyboardButton("/settings"),
		),
	)
}

// Inline keyboards

func dateKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Today", "date:today"),
			tgbotapi.NewInlineKeyboardButtonData("Tomorrow", "date:tomorrow"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Other date…", "date:custom"),
		),
	)
}

func timeKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("08:00", "time:08:00"),
			tgbotapi.NewInlineKeyboardButtonData("10:00", "time:10:00"),
			tgbotapi.NewInlineKeyboardButtonData("13:00", "time:13:00"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("15:00", "time:15:00"),
			tgbotapi.NewInlineKeyboardButtonData("18:00", "time:18:00"),
			tgbotapi.NewInlineKeyboardButtonData("21:00", "time:21:00"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("✍️ Other time…", "time:custom"),
		),
	)
}

func durationKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("30 min", "duration:30"),
			tgbotapi.NewInlineKeyboardButtonData("1 hour", "duration:60"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("2 hours", "duration:120"),
			tgbotapi.NewInlineKeyboardButtonData("✍️ Custom…", "duration:custom"),
		),
	)
}

func reminderKeyboard(defaultMinutes int) tgbotapi.InlineKeyboardMarkup {
	options := []int{0, 5, 10, 15, 30, 60, 120}
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for _, m := range options {
		label := fmt.Sprintf("%d min before", m)
		if m == 0 {
			label = "No reminder"
		}
		if m == defaultMinutes {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "reminder:"+strconv.Itoa(m)))
		if len(row) == 2 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Use my default", "reminder:default"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func settingsKeyboard(currentDefault int) tgbotapi.InlineKeyboardMarkup {
	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("UTC", "tz:UTC"),
			tgbotapi.NewInlineKeyboardButtonData("Europe/Moscow", "tz:Europe/Moscow"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Asia/Almaty", "tz:Asia/Almaty"),
			tgbotapi.NewInlineKeyboardButtonData("✍️ Other zone…", "tz:custom"),
		),
	}
	var row []tgbotapi.InlineKeyboardButton
	for _, m := range []int{5, 10, 15, 30, 60, 120} {
		label := fmt.Sprintf("%d min", m)
		if m == currentDefault {
			label = "✅ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, "settings_reminder:"+strconv.Itoa(m)))
		if len(row) == 3 {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(row...))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Disable default reminder", "settings_reminder:0"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func eventsKeyboard(events []domain.Event, view string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, ev := range events {
		title := ev.Title
		if len(title) > 32 {
			title = title[:32]
		}
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(title, fmt.Sprintf("event:%d:view", ev.ID)),
		))
	}
	other := "events:history"
	otherLabel := "Past events"
	if view == viewHistory {
		other = "events:active"
		otherLabel = "Upcoming events"
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData(otherLabel, other),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func eventActionsKeyboard(eventID int64) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🗑 Delete", fmt.Sprintf("event:%d:delete", eventID)),
			tgbotapi.NewInlineKeyboardButtonData("⬅️ Back", "events:active"),
		),
	)
}
