package domain

import "time"

// Event is a single timed calendar entry with a one-shot reminder.
//
// StartTime and RemindAt are always UTC; converting to the owner's zone is a
// presentation concern. RemindAt is precomputed at insert time
// (start − RemindBefore minutes) so the due query stays a plain comparison.
// Once Reminded flips to true it never reverts.
type Event struct {
	ID              int64
	UserID          int64
	TelegramID      int64 // owner's chat id, joined in by the store for dispatch
	Title           string
	StartTime       time.Time // UTC
	DurationMinutes int
	RemindBefore    int       // minutes before start; 0 shows as "no reminder"
	RemindAt        time.Time // UTC
	Reminded        bool
	CreatedAt       time.Time // UTC
}

// EndTime returns the event end, derived from start and duration.
func (e Event) EndTime() time.Time {
	return e.StartTime.Add(time.Duration(e.DurationMinutes) * time.Minute)
}

// Stats is a small operational snapshot of the store.
type Stats struct {
	Users            int64 `json:"users"`
	Events           int64 `json:"events"`
	PendingReminders int64 `json:"pending_reminders"`
}
