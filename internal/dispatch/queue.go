package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gptb70564-code/cw-bot/internal/dispatch/domain"
)

// Queue is an unbounded FIFO of (user, posting) work items. Enqueue is safe
// under concurrent producers and returns immediately; items are drained by a
// single Dispatcher loop.
type Queue struct {
	mu     sync.Mutex
	items  []domain.WorkItem
	notify chan struct{}
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
	}
}

// Enqueue appends a work item and wakes the dispatcher if it is idle.
func (q *Queue) Enqueue(userID, postingID int64) {
	q.mu.Lock()
	q.items = append(q.items, domain.WorkItem{
		UserID:     userID,
		PostingID:  postingID,
		EnqueuedAt: time.Now(),
	})
	q.mu.Unlock()

	select {
	case q.notify <- struct{}{}:
	default:
	}
}

// pop removes and returns the front item, if any.
func (q *Queue) pop() (domain.WorkItem, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return domain.WorkItem{}, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Len returns the number of items waiting in the queue.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Runner orchestrates a single (user, posting) pair.
type Runner interface {
	Run(ctx context.Context, userID, postingID int64) domain.Outcome
}

// Dispatcher drains the queue with one strictly sequential loop: at most one
// orchestration is in flight at any instant, and successive orchestration
// starts for the same user are never closer together than MinInterval.
type Dispatcher struct {
	logger       *slog.Logger
	queue        *Queue
	runner       Runner
	minInterval  time.Duration
	pollInterval time.Duration

	// lastBidAt is reached only from the Run goroutine.
	lastBidAt map[int64]time.Time

	now func() time.Time
}

// DispatcherConfig holds dispatcher construction parameters.
type DispatcherConfig struct {
	Logger       *slog.Logger
	Queue        *Queue
	Runner       Runner
	MinInterval  time.Duration // per-user spacing between orchestration starts
	PollInterval time.Duration // idle wake-up fallback
}

// NewDispatcher creates a dispatcher around queue and runner.
func NewDispatcher(cfg *DispatcherConfig) *Dispatcher {
	minInterval := cfg.MinInterval
	if minInterval <= 0 {
		minInterval = time.Minute
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = time.Second
	}

	return &Dispatcher{
		logger:       cfg.Logger,
		queue:        cfg.Queue,
		runner:       cfg.Runner,
		minInterval:  minInterval,
		pollInterval: pollInterval,
		lastBidAt:    make(map[int64]time.Time),
		now:          time.Now,
	}
}

// Run drains the queue until ctx is canceled. One failed item never stops
// the loop; the outcome is logged and the next item is popped.
func (d *Dispatcher) Run(ctx context.Context) error {
	d.logger.Info("Dispatcher started",
		slog.Duration("min_interval", d.minInterval),
	)

	for {
		item, ok := d.queue.pop()
		if !ok {
			if err := d.idle(ctx); err != nil {
				d.logger.Info("Dispatcher stopped")
				return nil
			}
			continue
		}

		if err := d.waitTurn(ctx, item.UserID); err != nil {
			d.logger.Info("Dispatcher stopped while waiting out bid interval",
				slog.Int64("user_id", item.UserID),
				slog.Int64("posting_id", item.PostingID),
			)
			return nil
		}

		// Reserve the slot before orchestration starts so a failed attempt
		// still consumes this user's interval.
		d.lastBidAt[item.UserID] = d.now()

		outcome := d.runner.Run(ctx, item.UserID, item.PostingID)
		d.logOutcome(item, outcome)
	}
}

// idle blocks until a new item is enqueued, the poll interval elapses, or
// ctx is canceled.
func (d *Dispatcher) idle(ctx context.Context) error {
	timer := time.NewTimer(d.pollInterval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-d.queue.notify:
		return nil
	case <-timer.C:
		return nil
	}
}

// waitTurn sleeps out the remaining portion of userID's minimum interval,
// measured from the previous reservation time.
func (d *Dispatcher) waitTurn(ctx context.Context, userID int64) error {
	last, ok := d.lastBidAt[userID]
	if !ok {
		return nil
	}

	remaining := d.minInterval - d.now().Sub(last)
	if remaining <= 0 {
		return nil
	}

	d.logger.Debug("Waiting out bid interval",
		slog.Int64("user_id", userID),
		slog.Duration("remaining", remaining),
	)

	timer := time.NewTimer(remaining)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (d *Dispatcher) logOutcome(item domain.WorkItem, outcome domain.Outcome) {
	attrs := []any{
		slog.Int64("user_id", item.UserID),
		slog.Int64("posting_id", item.PostingID),
		slog.String("outcome", string(outcome.Code)),
		slog.Duration("queued_for", d.now().Sub(item.EnqueuedAt)),
	}
	if outcome.Reason != "" {
		attrs = append(attrs, slog.String("reason", outcome.Reason))
	}

	switch outcome.Code {
	case domain.OutcomeSubmitted:
		d.logger.Info("Bid submitted", attrs...)
	case domain.OutcomeAlreadyBid:
		d.logger.Info("Bid skipped, user already bid", attrs...)
	default:
		d.logger.Warn("Bid not placed", attrs...)
	}
}
