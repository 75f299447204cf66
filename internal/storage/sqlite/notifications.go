package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/si14444/roomie-backend/internal/notify"
)

// Ensure SQLiteStore implements notify.Creator
var _ notify.Creator = (*SQLiteStore)(nil)

// CreateNotification persists one notification-creation request. Display
// filtering by member preference happens in the delivery layer, not here.
func (s *SQLiteStore) CreateNotification(ctx context.Context, n notify.Notification) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO notifications (id, type, title, message, related_id, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		uuid.New().String(), string(n.Type), n.Title, n.Message, n.RelatedID, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns the notifications recorded for one related
// entity, oldest first.
func (s *SQLiteStore) ListNotifications(ctx context.Context, relatedID string) ([]notify.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT type, title, message, related_id FROM notifications WHERE related_id = ? ORDER BY created_at, id",
		relatedID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var out []notify.Notification
	for rows.Next() {
		var n notify.Notification
		var typ string
		if err := rows.Scan(&typ, &n.Title, &n.Message, &n.RelatedID); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		n.Type = notify.Type(typ)
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notifications: %w", err)
	}
	return out, nil
}
