package telegram

import (
	"strings"
	"testing"
	"time"

	"github.com/almazpyjs/calendar-bot/internal/domain"
)

func sampleEvent() domain.Event {
	return domain.Event{
		ID:              1,
		TelegramID:      10,
		Title:           "Dentist",
		StartTime:       time.Date(2024, time.January, 10, 6, 0, 0, 0, time.UTC),
		DurationMinutes: 45,
		RemindBefore:    15,
	}
}

func TestFormatReminder_UsesOwnerZone(t *testing.T) {
	got := FormatReminder(sampleEvent(), "Europe/Moscow")
	if !strings.Contains(got, "Dentist") {
		t.Fatalf("missing title: %q", got)
	}
	if !strings.Contains(got, "10.01.2024 09:00") {
		t.Fatalf("expected Moscow local time, got %q", got)
	}
}

func TestFormatEvent(t *testing.T) {
	ev := sampleEvent()
	got := formatEvent(ev, "UTC")
	if !strings.Contains(got, "10.01.2024 06:00") {
		t.Fatalf("missing start: %q", got)
	}
	if !strings.Contains(got, "06:45") {
		t.Fatalf("missing end clock: %q", got)
	}
	if !strings.Contains(got, "15 min before") {
		t.Fatalf("missing reminder line: %q", got)
	}

	ev.RemindBefore = 0
	if got := formatEvent(ev, "UTC"); !strings.Contains(got, "Reminder: none") {
		t.Fatalf("zero offset must read as none: %q", got)
	}
}

func TestFormatOverview(t *testing.T) {
	if got := formatOverview(nil, "UTC", "empty"); got != "empty" {
		t.Fatalf("got %q", got)
	}

	events := []domain.Event{sampleEvent(), {
		Title:     "Standup",
		StartTime: time.Date(2024, time.January, 11, 8, 0, 0, 0, time.UTC),
	}}
	got := formatOverview(events, "UTC", "empty")
	lines := strings.Split(got, "\n")
	if len(lines) != 2 {
		t.Fatalf("want 2 lines, got %q", got)
	}
	if !strings.HasPrefix(lines[0], "1. ") || !strings.HasPrefix(lines[1], "2. ") {
		t.Fatalf("lines must be numbered: %q", got)
	}
}

func TestReminderKeyboard_MarksDefault(t *testing.T) {
	kb := reminderKeyboard(15)
	var marked string
	for _, row := range kb.InlineKeyboard {
		for _, btn := range row {
			if strings.Contains(btn.Text, "✅") {
				marked = *btn.CallbackData
			}
		}
	}
	if marked != "reminder:15" {
		t.Fatalf("default option must carry the check mark, got %q", marked)
	}
}
