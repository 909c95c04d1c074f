package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/roach88/groupmeal/internal/domain"
)

// AppendNotification writes one in-app notification record.
// Records are append-only; an empty ID gets a fresh UUIDv7.
func (s *Store) AppendNotification(ctx context.Context, n domain.Notification) error {
	if n.ID == "" {
		n.ID = uuid.Must(uuid.NewV7()).String()
	}
	doc, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, user_id, notification_type, order_id, is_new, created_at, doc)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, n.ID, n.UserID, n.NotificationType, n.OrderID, n.IsNew, n.CreatedAt.UnixMilli(), string(doc))
	if err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

// Notifications returns the notifications of a user, oldest first.
func (s *Store) Notifications(ctx context.Context, userID string) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM notifications
		WHERE user_id = ?
		ORDER BY created_at ASC, id COLLATE BINARY ASC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	out := []domain.Notification{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		var n domain.Notification
		if err := json.Unmarshal([]byte(doc), &n); err != nil {
			return nil, fmt.Errorf("decode notification: %w", err)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

// ReplaceBookings swaps the whole booking ledger of a plan for records in a
// single transaction.
func (s *Store) ReplaceBookings(ctx context.Context, planID string, records []domain.BookingRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace bookings: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	if _, err := tx.ExecContext(ctx, `DELETE FROM bookings WHERE plan_id = ?`, planID); err != nil {
		return fmt.Errorf("replace bookings: delete: %w", err)
	}
	for _, r := range records {
		doc, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("replace bookings: marshal %s: %w", r.Date, err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO bookings (plan_id, date_key, transaction_id, is_last_tx_of_plan, doc)
			VALUES (?, ?, ?, ?, ?)
		`, planID, r.Date, r.TransactionID, r.IsLastTxOfPlan, string(doc)); err != nil {
			return fmt.Errorf("replace bookings: insert %s: %w", r.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("replace bookings: commit: %w", err)
	}
	return nil
}

// Bookings returns the booking ledger of a plan in chronological order.
func (s *Store) Bookings(ctx context.Context, planID string) ([]domain.BookingRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doc FROM bookings
		WHERE plan_id = ?
		ORDER BY CAST(date_key AS INTEGER) ASC
	`, planID)
	if err != nil {
		return nil, fmt.Errorf("query bookings: %w", err)
	}
	defer rows.Close()

	out := []domain.BookingRecord{}
	for rows.Next() {
		var doc string
		if err := rows.Scan(&doc); err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		var r domain.BookingRecord
		if err := json.Unmarshal([]byte(doc), &r); err != nil {
			return nil, fmt.Errorf("decode booking: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate bookings: %w", err)
	}
	return out, nil
}
