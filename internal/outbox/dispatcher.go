package outbox

import (
	"context"
	"log/slog"
	"time"
)

const (
	defaultInterval  = 5 * time.Second
	defaultGrace     = 30 * time.Second
	defaultBatchSize = 50
)

// Dispatcher periodically republishes pending outbox rows. It closes the
// window where an order was committed but its event never reached the
// inventory owner.
type Dispatcher struct {
	store     EventStore
	publisher Publisher
	logger    *slog.Logger
	interval  time.Duration
	grace     time.Duration
	batchSize int
}

type DispatcherOption func(*Dispatcher)

func WithInterval(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.interval = d
	}
}

func WithGrace(d time.Duration) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.grace = d
	}
}

func WithBatchSize(n int) DispatcherOption {
	return func(disp *Dispatcher) {
		disp.batchSize = n
	}
}

func NewDispatcher(store EventStore, publisher Publisher, logger *slog.Logger, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		store:     store,
		publisher: publisher,
		logger:    logger,
		interval:  defaultInterval,
		grace:     defaultGrace,
		batchSize: defaultBatchSize,
	}

	for _, opt := range opts {
		opt(d)
	}

	return d
}

// Run polls until the context is cancelled.
func (d *Dispatcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil {
				d.logger.Error("dispatch cycle failed", "error", err)
			}
		}
	}
}

// DispatchPending publishes one batch of pending events and returns how many
// went out. A failed publish is recorded and skipped; the next cycle retries.
func (d *Dispatcher) DispatchPending(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-d.grace)

	events, err := d.store.PendingBefore(ctx, cutoff, d.batchSize)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, ev := range events {
		if err := d.publisher.Publish(ctx, ev.Key, ev.Payload); err != nil {
			d.logger.Error("failed to republish event",
				"event_id", ev.ID, "kind", ev.Kind, "attempts", ev.Attempts, "error", err)
			if err := d.store.RecordAttempt(ctx, ev.ID); err != nil {
				d.logger.Error("failed to record publish attempt", "event_id", ev.ID, "error", err)
			}
			continue
		}

		if err := d.store.MarkPublished(ctx, ev.ID); err != nil {
			d.logger.Error("failed to mark event published", "event_id", ev.ID, "error", err)
			continue
		}
		published++
	}

	if published > 0 {
		d.logger.Info("dispatched pending events", "count", published)
	}

	return published, nil
}
