package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OutboxMessage is a message waiting for an external sender (email relay,
// push gateway, chat webhook).
type OutboxMessage struct {
	ID        string
	Channel   string
	Recipient string
	Payload   json.RawMessage
	CreatedAt time.Time
}

// Enqueue appends a message to the outbox. An empty ID gets a fresh UUIDv7.
func (s *Store) Enqueue(ctx context.Context, msg OutboxMessage) error {
	if msg.Channel == "" {
		return fmt.Errorf("enqueue: empty channel")
	}
	if msg.ID == "" {
		msg.ID = uuid.Must(uuid.NewV7()).String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO outbox (id, channel, recipient, payload, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, msg.ID, msg.Channel, msg.Recipient, string(msg.Payload), msg.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", msg.Channel, err)
	}
	return nil
}

// Outbox returns the queued messages of a channel in insertion order.
func (s *Store) Outbox(ctx context.Context, channel string) ([]OutboxMessage, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, channel, recipient, payload, created_at FROM outbox
		WHERE channel = ?
		ORDER BY seq ASC
	`, channel)
	if err != nil {
		return nil, fmt.Errorf("query outbox: %w", err)
	}
	defer rows.Close()

	out := []OutboxMessage{}
	for rows.Next() {
		var (
			m       OutboxMessage
			payload string
			created int64
		)
		if err := rows.Scan(&m.ID, &m.Channel, &m.Recipient, &payload, &created); err != nil {
			return nil, fmt.Errorf("scan outbox: %w", err)
		}
		m.Payload = json.RawMessage(payload)
		m.CreatedAt = time.UnixMilli(created)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox: %w", err)
	}
	return out, nil
}
