// Package reminder runs the background loop that finds due reminders and
// hands them to the notification sender.
package reminder

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/xid"
	"go.uber.org/zap"

	"github.com/almazpyjs/calendar-bot/internal/domain"
	"github.com/almazpyjs/calendar-bot/internal/store"
)

// SendFunc delivers one reminder. Expected delivery problems (recipient
// unreachable, chat blocked) should be swallowed by the implementation; any
// returned error is logged and the event is still marked reminded.
type SendFunc func(ctx context.Context, ev domain.Event) error

// Dispatcher periodically sweeps the store for due reminders, delivers them
// and marks the batch as sent. Each event is delivered at most once: marking
// happens after the delivery attempt regardless of its outcome, so a failed
// delivery is dropped rather than retried on the next sweep.
type Dispatcher struct {
	repo     store.Repo
	log      *zap.Logger
	send     SendFunc
	interval time.Duration
	now      func() time.Time

	mu   sync.Mutex
	stop chan struct{}
	done chan struct{}
}

// New creates a Dispatcher. It does nothing until Start is called, so tests
// can drive sweeps directly through DispatchDue.
func New(repo store.Repo, log *zap.Logger, send SendFunc, interval time.Duration) *Dispatcher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Dispatcher{
		repo:     repo,
		log:      log,
		send:     send,
		interval: interval,
		now:      time.Now,
	}
}

// Start launches the sweep loop. Calling Start while the loop is already
// running is a no-op. The given context bounds store and sender I/O; process
// shutdown should cancel it after Stop returns.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return
	}
	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.run(ctx, d.stop, d.done)
}

// Stop interrupts the inter-sweep wait and blocks until the loop goroutine
// exits. An in-flight sweep is allowed to finish; nothing is left detached.
// Stopping a dispatcher that is not running is a no-op.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop, d.done = nil, nil
	d.mu.Unlock()
	if stop == nil {
		return
	}
	close(stop)
	<-done
}

func (d *Dispatcher) run(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		if err := d.DispatchDue(ctx); err != nil {
			d.log.Error("reminder sweep failed", zap.Error(err))
		}
		// The delay counts from the end of the sweep, so a slow sweep can
		// never stack concurrent sweeps.
		select {
		case <-stop:
			d.log.Info("reminder dispatcher stopping")
			return
		case <-ctx.Done():
			d.log.Info("reminder dispatcher stopping", zap.Error(ctx.Err()))
			return
		case <-time.After(d.interval):
		}
	}
}

// DispatchDue performs one sweep: fetch due reminders, deliver each in store
// order, then mark the whole batch as reminded in one call.
func (d *Dispatcher) DispatchDue(ctx context.Context) error {
	now := d.now().UTC()

	events, err := d.repo.DueReminders(ctx, now)
	if err != nil {
		return fmt.Errorf("fetch due reminders: %w", err)
	}
	if len(events) == 0 {
		return nil
	}

	log := d.log.With(zap.String("sweep", xid.New().String()))
	log.Info("dispatching due reminders", zap.Int("count", len(events)))

	ids := make([]int64, 0, len(events))
	for _, ev := range events {
		if err := d.send(ctx, ev); err != nil {
			// The sender cannot distinguish "user blocked the bot" from a
			// transient failure, so a failed delivery still counts as
			// attempted and the event is marked below.
			log.Error("reminder delivery failed",
				zap.Int64("event_id", ev.ID),
				zap.Int64("chat_id", ev.TelegramID),
				zap.Error(err),
			)
		}
		ids = append(ids, ev.ID)
	}

	if err := d.repo.MarkReminded(ctx, ids); err != nil {
		return fmt.Errorf("mark reminded: %w", err)
	}
	return nil
}
