package domain

import "time"

// User holds per-chat calendar settings. The Telegram chat id is the external
// identity; ID is our own surrogate key and the one events reference.
type User struct {
	ID              int64
	TelegramID      int64
	Timezone        string    // IANA zone name, e.g. "Europe/Moscow"
	ReminderDefault int       // default reminder offset in minutes
	CreatedAt       time.Time // UTC
}

// UserPatch is a partial update of user settings. Nil fields are left
// untouched; a patch with no fields set is a no-op.
type UserPatch struct {
	Timezone        *string
	ReminderDefault *int
}

// Empty reports whether the patch changes nothing.
func (p UserPatch) Empty() bool {
	return p.Timezone == nil && p.ReminderDefault == nil
}
