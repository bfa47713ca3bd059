// Package worker relays committed outbox entries to the audit topic.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"nameledger/pkg/platform/audit/store/postgres"
)

// Outbox is the subset of the audit outbox store the relay needs.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]postgres.Entry, error)
	MarkPublished(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Sink publishes a single outbox payload.
type Sink interface {
	Publish(ctx context.Context, key, value []byte, headers map[string]string) error
}

// TxRunner runs fn in a transaction so fetch, publish and mark share locks.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

// Worker polls the outbox and forwards entries to the sink.
type Worker struct {
	outbox    Outbox
	sink      Sink
	runInTx   TxRunner
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	clock     func() time.Time
}

// Option configures the Worker.
type Option func(*Worker)

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) { w.logger = logger }
}

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(w *Worker) { w.clock = clock }
}

func NewWorker(outbox Outbox, sink Sink, runInTx TxRunner, opts ...Option) *Worker {
	w := &Worker{
		outbox:    outbox,
		sink:      sink,
		runInTx:   runInTx,
		logger:    slog.Default(),
		interval:  time.Second,
		batchSize: 100,
		clock:     time.Now,
	}
	if w.runInTx == nil {
		w.runInTx = func(ctx context.Context, fn func(ctx context.Context) error) error { return fn(ctx) }
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run relays until ctx is cancelled. Relay errors are logged and retried on
// the next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := w.RelayOnce(ctx); err != nil {
				w.logger.WarnContext(ctx, "outbox relay failed", "error", err)
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries were marked.
// Entries published before a failure stay marked; the failed entry and
// everything after it are retried.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	var (
		relayed    int
		publishErr error
	)
	err := w.runInTx(ctx, func(ctx context.Context) error {
		entries, err := w.outbox.FetchPending(ctx, w.batchSize)
		if err != nil {
			return err
		}
		published := make([]uuid.UUID, 0, len(entries))
		for _, e := range entries {
			headers := map[string]string{"event_type": e.EventType}
			if err := w.sink.Publish(ctx, []byte(e.NameHash), e.Payload, headers); err != nil {
				publishErr = err
				break
			}
			published = append(published, e.ID)
		}
		if err := w.outbox.MarkPublished(ctx, published, w.clock()); err != nil {
			return err
		}
		relayed = len(published)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if relayed > 0 {
		w.logger.DebugContext(ctx, "outbox entries relayed", "count", relayed)
	}
	return relayed, publishErr
}
