package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/almazpyjs/calendar-bot/internal/domain"
)

// userTimezone returns the user's zone, falling back to the configured
// default until a user row exists.
func (r *Router) userTimezone(ctx context.Context, chatID int64) string {
	u, err := r.repo.GetUser(ctx, chatID)
	if err != nil {
		return r.defaultTZ
	}
	return u.Timezone
}

func (r *Router) userDefaultReminder(ctx context.Context, chatID int64) int {
	u, err := r.repo.GetUser(ctx, chatID)
	if err != nil {
		return 15
	}
	return u.ReminderDefault
}

// --- Core commands ---

func (r *Router) handleStart(ctx context.Context, chatID int64) {
	if _, err := r.repo.EnsureUser(ctx, chatID); err != nil {
		r.log.Error("ensure user failed", zap.Error(err))
		r.sendText(chatID, storageErrText)
		return
	}
	msg := tgbotapi.NewMessage(chatID, startText)
	msg.ReplyMarkup = mainMenuKeyboard()
	_, _ = r.bot.Send(msg)
}

func (r *Router) handleNew(ctx context.Context, chatID int64) {
	if _, err := r.repo.EnsureUser(ctx, chatID); err != nil {
		r.log.Error("ensure user failed", zap.Error(err))
		r.sendText(chatID, storageErrText)
		return
	}
	r.setDraft(chatID, &draft{})
	r.setPending(chatID, pendingTitle)
	r.sendText(chatID, askTitleText)
}

func (r *Router) handleEvents(ctx context.Context, chatID int64, view string) {
	reminded := view == viewHistory
	events, err := r.repo.ListEvents(ctx, chatID, &reminded)
	if err != nil {
		r.log.Error("list events failed", zap.Error(err))
		r.sendText(chatID, storageErrText)
		return
	}
	tz := r.userTimezone(ctx, chatID)

	header, empty := "Upcoming events:", "No upcoming events yet."
	if view == viewHistory {
		header, empty = "Past events:", "No past events yet."
	}
	msg := tgbotapi.NewMessage(chatID, header+"\n"+formatOverview(events, tz, empty))
	msg.ReplyMarkup = eventsKeyboard(events, view)
	_, _ = r.bot.Send(msg)
}

func (r *Router) handleNext(ctx context.Context, chatID int64) {
	ev, err := r.repo.NextEvent(ctx, chatID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.sendText(chatID, "No upcoming events.")
			return
		}
		r.log.Error("next event failed", zap.Error(err))
		r.sendText(chatID, storageErrText)
		return
	}
	tz := r.userTimezone(ctx, chatID)
	msg := tgbotapi.NewMessage(chatID, "Next up:\n"+formatEvent(*ev, tz))
	msg.ReplyMarkup = eventActionsKeyboard(ev.ID)
	_, _ = r.bot.Send(msg)
}

func (r *Router) handleSettings(ctx context.Context, chatID int64) {
	if _, err := r.repo.EnsureUser(ctx, chatID); err != nil {
		r.log.Error("ensure user failed", zap.Error(err))
		r.sendText(chatID, storageErrText)
		return
	}
	u, err := r.repo.GetUser(ctx, chatID)
	if err != nil {
		r.log.Error("get user failed", zap.Error(err))
		r.sendText(chatID, storageErrText)
		return
	}
	body := fmt.Sprintf("Timezone: %s\nDefault reminder: %d min\n\nWhat do you want to change?",
		u.Timezone, u.ReminderDefault)
	msg := tgbotapi.NewMessage(chatID, body)
	msg.ReplyMarkup = settingsKeyboard(u.ReminderDefault)
	_, _ = r.bot.Send(msg)
}

func (r *Router) handleCancel(chatID int64) {
	r.clearPending(chatID)
	r.clearDraft(chatID)
	r.sendText(chatID, canceledText)
}

// --- Free-form dispatcher (wizard text steps and "Custom" inputs) ---

func (r *Router) handleFreeForm(ctx context.Context, chatID int64, text string) {
	switch r.getPending(chatID) {
	case pendingTitle:
		if text == "" {
			r.sendText(chatID, askTitleText)
			return
		}
		d := r.getDraft(chatID)
		if d == nil {
			r.clearPending(chatID)
			return
		}
		d.Title = text
		r.setPending(chatID, pendingDate)
		msg := tgbotapi.NewMessage(chatID, askDateText)
		msg.ReplyMarkup = dateKeyboard()
		_, _ = r.bot.Send(msg)

	case pendingDate:
		date, err := domain.ParseDate(text)
		if err != nil {
			r.sendText(chatID, "Could not read that date. "+askCustomDate)
			return
		}
		r.acceptDate(ctx, chatID, date)

	case pendingTime:
		clockM, err := domain.ParseClock(text)
		if err != nil {
			r.sendText(chatID, "Could not read that time. "+askCustomTime)
			return
		}
		r.acceptClock(ctx, chatID, clockM)

	case pendingDuration:
		mins, err := domain.ParseDurationMinutes(text)
		if err != nil {
			r.sendText(chatID, "Could not read that duration. "+askCustomDur)
			return
		}
		r.acceptDuration(ctx, chatID, mins)

	case pendingTZ:
		r.clearPending(chatID)
		tz, err := domain.ValidateTZ(text)
		if err != nil {
			r.sendText(chatID, "Invalid timezone. Example: Europe/Moscow")
			return
		}
		r.updateTimezone(ctx, chatID, tz)

	default:
		// No pending flow: ignore free-form message
	}
}

// --- Event creation wizard ---

func (r *Router) handleDateCallback(ctx context.Context, chatID int64, data, cbID string) {
	_ = r.answerCallback(cbID, "")
	if r.getDraft(chatID) == nil {
		return
	}
	tz := r.userTimezone(ctx, chatID)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	localNow := time.Now().In(loc)

	switch strings.TrimPrefix(data, "date:") {
	case "today":
		r.acceptDate(ctx, chatID, localNow)
	case "tomorrow":
		r.acceptDate(ctx, chatID, localNow.AddDate(0, 0, 1))
	case "custom":
		r.setPending(chatID, pendingDate)
		r.sendText(chatID, askCustomDate)
	}
}

// acceptDate validates the chosen date and advances the wizard to the time
// step. Only the year/month/day of date matter.
func (r *Router) acceptDate(ctx context.Context, chatID int64, date time.Time) {
	d := r.getDraft(chatID)
	if d == nil {
		r.clearPending(chatID)
		return
	}
	tz := r.userTimezone(ctx, chatID)
	loc, err := time.LoadLocation(tz)
	if err != nil {
		loc = time.UTC
	}
	localToday := time.Now().In(loc)
	if beforeDay(date, localToday) {
		r.sendText(chatID, "That date is already in the past. Pick another one.")
		return
	}
	d.Date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	r.setPending(chatID, pendingTime)
	msg := tgbotapi.NewMessage(chatID, askTimeText)
	msg.ReplyMarkup = timeKeyboard()
	_, _ = r.bot.Send(msg)
}

func beforeDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	if ay != by {
		return ay < by
	}
	if am != bm {
		return am < bm
	}
	return ad < bd
}

func (r *Router) handleTimeCallback(ctx context.Context, chatID int64, data, cbID string) {
	_ = r.answerCallback(cbID, "")
	if r.getDraft(chatID) == nil {
		return
	}
	val := strings.TrimPrefix(data, "time:")
	if val == "custom" {
		r.setPending(chatID, pendingTime)
		r.sendText(chatID, askCustomTime)
		return
	}
	clockM, err := domain.ParseClock(val)
	if err != nil {
		return
	}
	r.acceptClock(ctx, chatID, clockM)
}

// acceptClock validates the chosen start time against "now" in the user's
// zone and advances the wizard to the duration step.
func (r *Router) acceptClock(ctx context.Context, chatID int64, clockM int) {
	d := r.getDraft(chatID)
	if d == nil {
		r.clearPending(chatID)
		return
	}
	tz := r.userTimezone(ctx, chatID)

	start, err := domain.LocalInstant(d.Date, clockM, tz)
	if err != nil {
		r.log.Warn("bad zone for stored user", zap.String("tz", tz), zap.Error(err))
		r.sendText(chatID, storageErrText)
		return
	}
	if !start.After(time.Now()) {
		r.sendText(chatID, pastTimeText)
		return
	}
	d.ClockM = clockM
	r.setPending(chatID, pendingDuration)
	msg := tgbotapi.NewMessage(chatID, askDurationText)
	msg.ReplyMarkup = durationKeyboard()
	_, _ = r.bot.Send(msg)
}

func (r *Router) handleDurationCallback(ctx context.Context, chatID int64, data, cbID string) {
	_ = r.answerCallback(cbID, "")
	if r.getDraft(chatID) == nil {
		return
	}
	val := strings.TrimPrefix(data, "duration:")
	if val == "custom" {
		r.setPending(chatID, pendingDuration)
		r.sendText(chatID, askCustomDur)
		return
	}
	mins, err := strconv.Atoi(val)
	if err != nil || mins <= 0 {
		return
	}
	r.acceptDuration(ctx, chatID, mins)
}

func (r *Router) acceptDuration(ctx context.Context, chatID int64, mins int) {
	d := r.getDraft(chatID)
	if d == nil {
		r.clearPending(chatID)
		return
	}
	d.Dur = mins
	r.clearPending(chatID)
	def := r.userDefaultReminder(ctx, chatID)
	msg := tgbotapi.NewMessage(chatID, askReminderText)
	msg.ReplyMarkup = reminderKeyboard(def)
	_, _ = r.bot.Send(msg)
}

func (r *Router) handleReminderCallback(ctx context.Context, chatID int64, data, cbID string) {
	d := r.getDraft(chatID)
	if d == nil || d.Dur == 0 {
		_ = r.answerCallback(cbID, "")
		return
	}
	val := strings.TrimPrefix(data, "reminder:")
	var remindBefore int
	if val == "default" {
		remindBefore = r.userDefaultReminder(ctx, chatID)
	} else {
		m, err := strconv.Atoi(val)
		if err != nil || m < 0 {
			_ = r.answerCallback(cbID, "")
			return
		}
		remindBefore = m
	}
	r.finishCreate(ctx, chatID, remindBefore, cbID)
}

func (r *Router) finishCreate(ctx context.Context, chatID int64, remindBefore int, cbID string) {
	d := r.getDraft(chatID)
	if d == nil {
		_ = r.answerCallback(cbID, "")
		return
	}
	tz := r.userTimezone(ctx, chatID)
	start, err := domain.LocalInstant(d.Date, d.ClockM, tz)
	if err != nil {
		r.log.Warn("bad zone for stored user", zap.String("tz", tz), zap.Error(err))
		_ = r.answerCallback(cbID, "")
		r.sendText(chatID, storageErrText)
		return
	}

	if _, err := r.repo.AddEvent(ctx, chatID, d.Title, start, d.Dur, remindBefore); err != nil {
		r.log.Error("add event failed", zap.Error(err))
		_ = r.answerCallback(cbID, "")
		r.sendText(chatID, storageErrText)
		return
	}
	r.clearDraft(chatID)
	r.clearPending(chatID)

	reminder := "none"
	if remindBefore > 0 {
		reminder = fmt.Sprintf("%d min before", remindBefore)
	}
	summary := fmt.Sprintf("Event saved!\n%s\nDate: %s\nDuration: %s\nReminder: %s",
		d.Title,
		domain.LocalizeTime(start, tz),
		domain.FormatMinutes(d.Dur),
		reminder,
	)
	_ = r.answerCallback(cbID, "Saved")
	msg := tgbotapi.NewMessage(chatID, summary)
	msg.ReplyMarkup = mainMenuKeyboard()
	_, _ = r.bot.Send(msg)
}

// --- Event detail / deletion ---

func (r *Router) handleEventCallback(ctx context.Context, chatID int64, data, cbID string) {
	parts := strings.Split(data, ":")
	if len(parts) != 3 {
		_ = r.answerCallback(cbID, "")
		return
	}
	eventID, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		_ = r.answerCallback(cbID, "")
		return
	}

	switch parts[2] {
	case "view":
		_ = r.answerCallback(cbID, "")
		ev, err := r.repo.GetEvent(ctx, chatID, eventID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				r.sendText(chatID, "That event no longer exists.")
				return
			}
			r.log.Error("get event failed", zap.Error(err))
			r.sendText(chatID, storageErrText)
			return
		}
		tz := r.userTimezone(ctx, chatID)
		msg := tgbotapi.NewMessage(chatID, formatEvent(*ev, tz))
		msg.ReplyMarkup = eventActionsKeyboard(ev.ID)
		_, _ = r.bot.Send(msg)

	case "delete":
		if err := r.repo.DeleteEvent(ctx, chatID, eventID); err != nil {
			r.log.Error("delete event failed", zap.Error(err))
			_ = r.answerCallback(cbID, "")
			r.sendText(chatID, storageErrText)
			return
		}
		_ = r.answerCallback(cbID, "Deleted")
		r.handleEvents(ctx, chatID, viewActive)

	default:
		_ = r.answerCallback(cbID, "")
	}
}

// --- Settings ---

func (r *Router) handleTZCallback(ctx context.Context, chatID int64, data, cbID string) {
	_ = r.answerCallback(cbID, "")
	val := strings.TrimPrefix(data, "tz:")
	if val == "custom" {
		r.setPending(chatID, pendingTZ)
		r.sendText(chatID, "Enter a timezone (e.g. Europe/Moscow):")
		return
	}
	tz, err := domain.ValidateTZ(val)
	if err != nil {
		r.sendText(chatID, "Invalid timezone. Example: Europe/Moscow")
		return
	}
	r.updateTimezone(ctx, chatID, tz)
}

func (r *Router) updateTimezone(ctx context.Context, chatID int64, tz string) {
	if _, err := r.repo.EnsureUser(ctx, chatID); err != nil {
		r.log.Error("ensure user failed", zap.Error(err))
		r.sendText(chatID, storageErrText)
		return
	}
	if err := r.repo.UpdateUser(ctx, chatID, domain.UserPatch{Timezone: &tz}); err != nil {
		r.log.Error("update timezone failed", zap.Error(err))
		r.sendText(chatID, storageErrText)
		return
	}
	r.sendText(chatID, "Timezone updated: "+tz)
}

func (r *Router) handleDefaultReminderCallback(ctx context.Context, chatID int64, data, cbID string) {
	mins, err := strconv.Atoi(strings.TrimPrefix(data, "settings_reminder:"))
	if err != nil || mins < 0 {
		_ = r.answerCallback(cbID, "")
		return
	}
	if _, err := r.repo.EnsureUser(ctx, chatID); err != nil {
		r.log.Error("ensure user failed", zap.Error(err))
		_ = r.answerCallback(cbID, "")
		return
	}
	if err := r.repo.UpdateUser(ctx, chatID, domain.UserPatch{ReminderDefault: &mins}); err != nil {
		r.log.Error("update reminder default failed", zap.Error(err))
		_ = r.answerCallback(cbID, "")
		r.sendText(chatID, storageErrText)
		return
	}
	_ = r.answerCallback(cbID, "Saved")
	if mins == 0 {
		r.sendText(chatID, "Default reminder disabled.")
		return
	}
	r.sendText(chatID, fmt.Sprintf("Default reminder: %d min before the event.", mins))
}
