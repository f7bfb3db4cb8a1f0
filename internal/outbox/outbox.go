// Package outbox implements a transactional outbox: domain events are
// appended to a postgres table in the same transaction as the state change
// they describe, then delivered to Kafka by the notifier (one immediate
// attempt) and the dispatcher (background retry for anything left pending).
package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPublished Status = "published"
)

type Event struct {
	ID          string
	Kind        string
	Key         string
	Payload     []byte
	Status      Status
	Attempts    int
	CreatedAt   time.Time
	PublishedAt *time.Time
}

// NewEvent marshals the payload and assigns an id. The event is not durable
// until appended inside a transaction.
func NewEvent(kind, key string, payload any) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", kind, err)
	}

	return &Event{
		ID:        uuid.New().String(),
		Kind:      kind,
		Key:       key,
		Payload:   data,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// AppendTx writes the event inside the caller's transaction. This is what
// makes the order write and the event record atomic.
func AppendTx(ctx context.Context, tx *sql.Tx, ev *Event) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO outbox_events (id, kind, message_key, payload, status, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, ev.ID, ev.Kind, ev.Key, ev.Payload, ev.Status, ev.Attempts, ev.CreatedAt)
	return err
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// PendingBefore returns pending events created before the cutoff, oldest
// first. The cutoff gives the notifier's immediate attempt time to win
// before the dispatcher picks the row up.
func (s *Store) PendingBefore(ctx context.Context, cutoff time.Time, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, kind, message_key, payload, status, attempts, created_at
		FROM outbox_events
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3
	`, StatusPending, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var events []Event
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Kind, &ev.Key, &ev.Payload, &ev.Status, &ev.Attempts, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}

func (s *Store) MarkPublished(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbox_events SET status = $1, published_at = NOW()
		WHERE id = $2
	`, StatusPublished, id)
	return err
}

func (s *Store) RecordAttempt(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE outbox_events SET attempts = attempts + 1
		WHERE id = $1
	`, id)
	return err
}
