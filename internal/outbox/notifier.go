package outbox

import (
	"context"
	"log/slog"
	"time"
)

// Publisher is the messaging side of delivery, satisfied by
// messaging.Producer.
type Publisher interface {
	Publish(ctx context.Context, key string, payload []byte) error
}

// EventStore is the persistence side of delivery, satisfied by Store.
type EventStore interface {
	PendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]Event, error)
	MarkPublished(ctx context.Context, id string) error
	RecordAttempt(ctx context.Context, id string) error
}

// Notifier makes the single best-effort delivery attempt right after commit.
// Failures are logged and swallowed: placement and cancellation succeed even
// when the messaging layer is degraded, and the row stays pending for the
// dispatcher to retry.
type Notifier struct {
	store     EventStore
	publisher Publisher
	logger    *slog.Logger
}

func NewNotifier(store EventStore, publisher Publisher, logger *slog.Logger) *Notifier {
	return &Notifier{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

func (n *Notifier) Deliver(ctx context.Context, ev *Event) {
	if err := n.publisher.Publish(ctx, ev.Key, ev.Payload); err != nil {
		n.logger.Error("event publish failed, left pending for dispatcher",
			"event_id", ev.ID, "kind", ev.Kind, "error", err)
		if err := n.store.RecordAttempt(ctx, ev.ID); err != nil {
			n.logger.Error("failed to record publish attempt", "event_id", ev.ID, "error", err)
		}
		return
	}

	if err := n.store.MarkPublished(ctx, ev.ID); err != nil {
		// The event went out; worst case the dispatcher republishes it.
		n.logger.Error("failed to mark event published", "event_id", ev.ID, "error", err)
	}
}
