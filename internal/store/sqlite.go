package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	// Registers the "sqlite" driver (pure Go).
	_ "modernc.org/sqlite"

	"github.com/almazpyjs/calendar-bot/internal/domain"
)

// SQLiteRepo implements Repo using an embedded SQLite database.
//
// A single mutex serializes every logical operation. Combined with one open
// connection this guarantees the dispatcher's due query never interleaves with
// an in-flight insert or delete from a handler. Multi-statement operations
// (ensure user + insert event) additionally run inside a transaction.
type SQLiteRepo struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenSQLite opens (or creates) the SQLite database at the given path,
// applies recommended PRAGMAs, runs SQL migrations, and returns a repository.
func OpenSQLite(ctx context.Context, path string) (*SQLiteRepo, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite is a single-writer engine; one connection is all we want.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}
	if err := RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}

	return &SQLiteRepo{db: db}, nil
}

// applyPragmas configures the SQLite connection for durability and concurrency.
func applyPragmas(ctx context.Context, db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying database resources.
func (r *SQLiteRepo) Close() error {
	return r.db.Close()
}

// Timestamps are stored as second-granular RFC 3339 UTC text. Fixed width in
// UTC, so the TEXT comparisons in the due and next-event queries match time
// order.
func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// execQuerier is satisfied by both *sql.DB and *sql.Tx so ensureUser can run
// standalone or inside the AddEvent transaction.
type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// EnsureUser creates the user row if absent and returns the internal id.
// INSERT OR IGNORE on the telegram_id UNIQUE constraint makes concurrent
// calls converge on one row without a check-then-insert race.
func (r *SQLiteRepo) EnsureUser(ctx context.Context, telegramID int64) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return ensureUser(ctx, r.db, telegramID)
}

func ensureUser(ctx context.Context, q execQuerier, telegramID int64) (int64, error) {
	_, err := q.ExecContext(ctx, `
		INSERT OR IGNORE INTO users (telegram_id, created_at)
		VALUES (?, ?)`,
		telegramID, formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("ensure user %d: %w", telegramID, err)
	}

	var id int64
	if err := q.QueryRowContext(ctx,
		`SELECT id FROM users WHERE telegram_id = ?`, telegramID,
	).Scan(&id); err != nil {
		return 0, fmt.Errorf("ensure user %d: %w", telegramID, err)
	}
	return id, nil
}

// GetUser returns a user's settings by telegram id.
func (r *SQLiteRepo) GetUser(ctx context.Context, telegramID int64) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRowContext(ctx, `
		SELECT id, telegram_id, timezone, reminder_default, created_at
		FROM users
		WHERE telegram_id = ?`,
		telegramID,
	)

	var (
		u       domain.User
		created string
	)
	if err := row.Scan(&u.ID, &u.TelegramID, &u.Timezone, &u.ReminderDefault, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user %d: %w", telegramID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get user %d: %w", telegramID, err)
	}
	t, err := parseTime(created)
	if err != nil {
		return nil, fmt.Errorf("get user %d: created_at: %w", telegramID, err)
	}
	u.CreatedAt = t
	return &u, nil
}

// UpdateUser applies a partial settings update using one of three fixed,
// parameterized statements. No query text is ever assembled from field names.
func (r *SQLiteRepo) UpdateUser(ctx context.Context, telegramID int64, patch domain.UserPatch) error {
	if patch.Empty() {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var err error
	switch {
	case patch.Timezone != nil && patch.ReminderDefault != nil:
		_, err = r.db.ExecContext(ctx, `
			UPDATE users SET timezone = ?, reminder_default = ?
			WHERE telegram_id = ?`,
			*patch.Timezone, *patch.ReminderDefault, telegramID)
	case patch.Timezone != nil:
		_, err = r.db.ExecContext(ctx, `
			UPDATE users SET timezone = ?
			WHERE telegram_id = ?`,
			*patch.Timezone, telegramID)
	default:
		_, err = r.db.ExecContext(ctx, `
			UPDATE users SET reminder_default = ?
			WHERE telegram_id = ?`,
			*patch.ReminderDefault, telegramID)
	}
	if err != nil {
		return fmt.Errorf("update user %d: %w", telegramID, err)
	}
	return nil
}

// AddEvent stores a new event for the user, creating the user row if needed.
// startTime must be a real absolute instant; it is normalized to UTC and the
// reminder instant is precomputed so dispatching stays a single comparison.
func (r *SQLiteRepo) AddEvent(ctx context.Context, telegramID int64, title string, startTime time.Time, durationMinutes, remindBefore int) (int64, error) {
	switch {
	case startTime.IsZero():
		return 0, fmt.Errorf("%w: start time must be an absolute instant", domain.ErrInvalidArgument)
	case strings.TrimSpace(title) == "":
		return 0, fmt.Errorf("%w: title must not be empty", domain.ErrInvalidArgument)
	case durationMinutes < 0:
		return 0, fmt.Errorf("%w: duration must not be negative", domain.ErrInvalidArgument)
	case remindBefore < 0:
		return 0, fmt.Errorf("%w: reminder offset must not be negative", domain.ErrInvalidArgument)
	}

	start := startTime.UTC().Truncate(time.Second)
	remindAt := start.Add(-time.Duration(remindBefore) * time.Minute)

	r.mu.Lock()
	defer r.mu.Unlock()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("add event: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	userID, err := ensureUser(ctx, tx, telegramID)
	if err != nil {
		return 0, err
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO events (user_id, title, start_time, duration_minutes, remind_before, remind_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		userID, title, formatTime(start), durationMinutes, remindBefore,
		formatTime(remindAt), formatTime(time.Now()),
	)
	if err != nil {
		return 0, fmt.Errorf("add event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("add event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("add event: %w", err)
	}
	return id, nil
}

const eventColumns = `
	e.id, e.user_id, u.telegram_id, e.title, e.start_time,
	e.duration_minutes, e.remind_before, e.remind_at, e.reminded, e.created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var (
		ev                     domain.Event
		start, remind, created string
		reminded               int
	)
	if err := row.Scan(
		&ev.ID, &ev.UserID, &ev.TelegramID, &ev.Title, &start,
		&ev.DurationMinutes, &ev.RemindBefore, &remind, &reminded, &created,
	); err != nil {
		return domain.Event{}, err
	}
	ev.Reminded = reminded != 0

	var err error
	if ev.StartTime, err = parseTime(start); err != nil {
		return domain.Event{}, fmt.Errorf("event %d: start_time: %w", ev.ID, err)
	}
	if ev.RemindAt, err = parseTime(remind); err != nil {
		return domain.Event{}, fmt.Errorf("event %d: remind_at: %w", ev.ID, err)
	}
	if ev.CreatedAt, err = parseTime(created); err != nil {
		return domain.Event{}, fmt.Errorf("event %d: created_at: %w", ev.ID, err)
	}
	return ev, nil
}

// ListEvents returns the user's events ordered by start time ascending,
// optionally filtered by reminder state.
func (r *SQLiteRepo) ListEvents(ctx context.Context, telegramID int64, reminded *bool) ([]domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var (
		rows *sql.Rows
		err  error
	)
	if reminded == nil {
		rows, err = r.db.QueryContext(ctx, `
			SELECT `+eventColumns+`
			FROM events e
			JOIN users u ON u.id = e.user_id
			WHERE u.telegram_id = ?
			ORDER BY e.start_time ASC`,
			telegramID,
		)
	} else {
		flag := 0
		if *reminded {
			flag = 1
		}
		rows, err = r.db.QueryContext(ctx, `
			SELECT `+eventColumns+`
			FROM events e
			JOIN users u ON u.id = e.user_id
			WHERE u.telegram_id = ? AND e.reminded = ?
			ORDER BY e.start_time ASC`,
			telegramID, flag,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list events for %d: %w", telegramID, err)
	}
	defer rows.Close()

	var res []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("list events for %d: %w", telegramID, err)
		}
		res = append(res, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events for %d: %w", telegramID, err)
	}
	return res, nil
}

// NextEvent returns the earliest not-yet-reminded event starting at or after
// the current time.
func (r *SQLiteRepo) NextEvent(ctx context.Context, telegramID int64) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events e
		JOIN users u ON u.id = e.user_id
		WHERE u.telegram_id = ? AND e.reminded = 0 AND e.start_time >= ?
		ORDER BY e.start_time ASC
		LIMIT 1`,
		telegramID, formatTime(time.Now()),
	)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("next event for %d: %w", telegramID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("next event for %d: %w", telegramID, err)
	}
	return &ev, nil
}

// GetEvent returns the event only if it belongs to the given user.
func (r *SQLiteRepo) GetEvent(ctx context.Context, telegramID int64, eventID int64) (*domain.Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	row := r.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events e
		JOIN users u ON u.id = e.user_id
		WHERE u.telegram_id = ? AND e.id = ?`,
		telegramID, eventID,
	)
	ev, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %d for %d: %w", eventID, telegramID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("event %d for %d: %w", eventID, telegramID, err)
	}
	return &ev, nil
}

// DeleteEvent removes the event when it belongs to the user; otherwise the
// DELETE matches zero rows and nothing happens.
func (r *SQLiteRepo) DeleteEvent(ctx context.Context, telegramID int64, eventID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.ExecContext(ctx, `
		DELETE FROM events
		WHERE id = ?
		  AND user_id = (SELECT id FROM users WHERE telegram_id = ?)`,
		eventID, telegramID,
	)
	if err != nil {
		return fmt.Errorf("delete event %d for %d: %w", eventID, telegramID, err)
	}
	return nil
}

// DueReminders returns all events with an unsent reminder due at or before
// now, across all users, ordered by start time.
func (r *SQLiteRepo) DueReminders(ctx context.Context, now time.Time) ([]domain.Event, error) {
	if now.IsZero() {
		return nil, fmt.Errorf("%w: now must be an absolute instant", domain.ErrInvalidArgument)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+eventColumns+`
		FROM events e
		JOIN users u ON u.id = e.user_id
		WHERE e.reminded = 0 AND e.remind_at <= ?
		ORDER BY e.start_time ASC`,
		formatTime(now),
	)
	if err != nil {
		return nil, fmt.Errorf("due reminders: %w", err)
	}
	defer rows.Close()

	var res []domain.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("due reminders: %w", err)
		}
		res = append(res, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("due reminders: %w", err)
	}
	return res, nil
}

// MarkReminded flags the given events as sent. The conditional UPDATE simply
// affects zero rows for ids deleted since the due query, which is the desired
// no-op.
func (r *SQLiteRepo) MarkReminded(ctx context.Context, eventIDs []int64) error {
	if len(eventIDs) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(eventIDs)), ", ")
	args := make([]any, len(eventIDs))
	for i, id := range eventIDs {
		args[i] = id
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE events SET reminded = 1 WHERE id IN (`+placeholders+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return nil
}

// Stats returns row counts for the ops endpoint.
func (r *SQLiteRepo) Stats(ctx context.Context) (domain.Stats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var s domain.Stats
	row := r.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users),
			(SELECT COUNT(*) FROM events),
			(SELECT COUNT(*) FROM events WHERE reminded = 0)`,
	)
	if err := row.Scan(&s.Users, &s.Events, &s.PendingReminders); err != nil {
		return domain.Stats{}, fmt.Errorf("stats: %w", err)
	}
	return s, nil
}

// compile-time check that *SQLiteRepo implements Repo
var _ Repo = (*SQLiteRepo)(nil)
