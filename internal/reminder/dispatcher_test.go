package reminder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/almazpyjs/calendar-bot/internal/domain"
	"github.com/almazpyjs/calendar-bot/internal/store"
)

func newTestRepo(t *testing.T) store.Repo {
	t.Helper()
	repo, err := store.OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// collector records delivered events and optionally fails some of them.
type collector struct {
	delivered []domain.Event
	failFor   map[int64]error
}

func (c *collector) send(_ context.Context, ev domain.Event) error {
	if err, ok := c.failFor[ev.ID]; ok {
		return err
	}
	c.delivered = append(c.delivered, ev)
	return nil
}

func TestDispatchDue_DeliversAndMarksBatch(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	dueA, err := repo.AddEvent(ctx, 1, "A", now.Add(5*time.Minute), 30, 15)
	require.NoError(t, err)
	dueB, err := repo.AddEvent(ctx, 2, "B", now.Add(10*time.Minute), 30, 15)
	require.NoError(t, err)
	_, err = repo.AddEvent(ctx, 1, "Future", now.Add(2*time.Hour), 30, 15)
	require.NoError(t, err)

	c := &collector{}
	d := New(repo, zap.NewNop(), c.send, time.Minute)
	d.now = func() time.Time { return now }

	require.NoError(t, d.DispatchDue(ctx))
	require.Len(t, c.delivered, 2)
	require.Equal(t, dueA, c.delivered[0].ID)
	require.Equal(t, dueB, c.delivered[1].ID)

	// The batch is marked, so the next sweep at the same instant is empty.
	require.NoError(t, d.DispatchDue(ctx))
	require.Len(t, c.delivered, 2)

	evA, err := repo.GetEvent(ctx, 1, dueA)
	require.NoError(t, err)
	require.True(t, evA.Reminded)
}

func TestDispatchDue_FailedDeliveryStillMarks(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	badID, err := repo.AddEvent(ctx, 1, "Bad", now.Add(5*time.Minute), 30, 15)
	require.NoError(t, err)
	goodID, err := repo.AddEvent(ctx, 2, "Good", now.Add(10*time.Minute), 30, 15)
	require.NoError(t, err)

	c := &collector{failFor: map[int64]error{badID: errors.New("network down")}}
	d := New(repo, zap.NewNop(), c.send, time.Minute)
	d.now = func() time.Time { return now }

	require.NoError(t, d.DispatchDue(ctx))

	// The failure did not block the rest of the batch.
	require.Len(t, c.delivered, 1)
	require.Equal(t, goodID, c.delivered[0].ID)

	// The failed event is dropped, not retried.
	require.NoError(t, d.DispatchDue(ctx))
	require.Len(t, c.delivered, 1)

	bad, err := repo.GetEvent(ctx, 1, badID)
	require.NoError(t, err)
	require.True(t, bad.Reminded)
}

func TestDispatchDue_ZeroOffsetFiresAtStart(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	start := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	id, err := repo.AddEvent(ctx, 1, "NoReminderLabel", start, 60, 0)
	require.NoError(t, err)

	c := &collector{}
	d := New(repo, zap.NewNop(), c.send, time.Minute)

	// One second before the start nothing is due.
	d.now = func() time.Time { return start.Add(-time.Second) }
	require.NoError(t, d.DispatchDue(ctx))
	require.Empty(t, c.delivered)

	// At the start instant the event fires.
	d.now = func() time.Time { return start }
	require.NoError(t, d.DispatchDue(ctx))
	require.Len(t, c.delivered, 1)
	require.Equal(t, id, c.delivered[0].ID)
}

func TestStartStop(t *testing.T) {
	repo := newTestRepo(t)
	c := &collector{}
	d := New(repo, zap.NewNop(), c.send, time.Hour)

	ctx := context.Background()
	d.Start(ctx)
	d.Start(ctx) // second Start is a no-op

	// Stop interrupts the long inter-sweep wait and returns promptly.
	doneCh := make(chan struct{})
	go func() {
		d.Stop()
		close(doneCh)
	}()
	select {
	case <-doneCh:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}

	// Stopping again is harmless.
	d.Stop()
}

// End-to-end: two users in different zones create events, the sweep delivers
// exactly the due ones and later sweeps stay quiet.
func TestSweepScenario(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	msk, err := time.LoadLocation("Europe/Moscow")
	require.NoError(t, err)

	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)

	// 15:10 MSK == 12:10 UTC, reminder 15 min -> due 11:55 UTC.
	dueID, err := repo.AddEvent(ctx, 10, "Call",
		time.Date(2024, time.June, 1, 15, 10, 0, 0, msk), 30, 15)
	require.NoError(t, err)
	// 13:30 UTC with 30 min reminder -> due 13:00 UTC, not yet.
	laterID, err := repo.AddEvent(ctx, 20, "Review",
		time.Date(2024, time.June, 1, 13, 30, 0, 0, time.UTC), 45, 30)
	require.NoError(t, err)

	c := &collector{}
	d := New(repo, zap.NewNop(), c.send, time.Minute)
	d.now = func() time.Time { return now }

	require.NoError(t, d.DispatchDue(ctx))
	require.Len(t, c.delivered, 1)
	require.Equal(t, dueID, c.delivered[0].ID)

	// An hour later the second reminder has become due.
	d.now = func() time.Time { return now.Add(time.Hour) }
	require.NoError(t, d.DispatchDue(ctx))
	require.Len(t, c.delivered, 2)
	require.Equal(t, laterID, c.delivered[1].ID)

	// Everything delivered; the store reports no pending reminders.
	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 0, stats.PendingReminders)
}
