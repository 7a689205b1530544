package store

import (
	"context"
	"time"

	"github.com/almazpyjs/calendar-bot/internal/domain"
)

// Repo defines storage operations for users and their events.
//
// The store is the only shared mutable state in the process: the Telegram
// handlers and the reminder dispatcher both go through it concurrently, and
// implementations must serialize access so no caller ever observes a
// partially-written row.
type Repo interface {
	// EnsureUser creates the user row for telegramID if it does not exist
	// and returns the internal id. Safe to call concurrently for the same
	// telegramID; all callers converge on one row.
	EnsureUser(ctx context.Context, telegramID int64) (int64, error)

	// GetUser returns the user's settings or domain.ErrNotFound.
	GetUser(ctx context.Context, telegramID int64) (*domain.User, error)

	// UpdateUser applies a partial settings update. An empty patch performs
	// no write at all.
	UpdateUser(ctx context.Context, telegramID int64, patch domain.UserPatch) error

	// AddEvent normalizes startTime to UTC, computes the reminder instant,
	// ensures the user exists and inserts the event, all in one transaction.
	// Returns domain.ErrInvalidArgument for a zero start time, an empty
	// title or negative minute counts.
	AddEvent(ctx context.Context, telegramID int64, title string, startTime time.Time, durationMinutes, remindBefore int) (int64, error)

	// ListEvents returns the user's events ordered by start time ascending.
	// A non-nil reminded filter restricts to sent/unsent reminders.
	ListEvents(ctx context.Context, telegramID int64, reminded *bool) ([]domain.Event, error)

	// NextEvent returns the earliest not-yet-reminded event starting at or
	// after now, or domain.ErrNotFound.
	NextEvent(ctx context.Context, telegramID int64) (*domain.Event, error)

	// GetEvent returns the event only if it belongs to telegramID,
	// domain.ErrNotFound otherwise.
	GetEvent(ctx context.Context, telegramID int64, eventID int64) (*domain.Event, error)

	// DeleteEvent removes the event if it belongs to telegramID. Deleting a
	// nonexistent or non-owned event is a silent no-op.
	DeleteEvent(ctx context.Context, telegramID int64, eventID int64) error

	// DueReminders returns all events across all users with an unsent
	// reminder whose remind_at is at or before now, ordered by start time.
	// Returns domain.ErrInvalidArgument for a zero now.
	DueReminders(ctx context.Context, now time.Time) ([]domain.Event, error)

	// MarkReminded flags the given events as sent. Empty input is a no-op;
	// ids deleted since the due query are skipped harmlessly; re-marking is
	// idempotent.
	MarkReminded(ctx context.Context, eventIDs []int64) error

	// Stats returns row counts for the ops endpoint.
	Stats(ctx context.Context) (domain.Stats, error)

	Close() error
}
