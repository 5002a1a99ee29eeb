package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/virtulab/virtulab-api/internal/models"
)

// NotificationRepository persists delivered notifications.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Insert stores one notification.
func (r *NotificationRepository) Insert(ctx context.Context, n *models.Notification) error {
	const query = `INSERT INTO notifications (id, user_id, type, title, message, data, link, read, created_at)
        VALUES (:id, :user_id, :type, :title, :message, :data, :link, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// ListByUser returns a user's notifications, newest first, with total count.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, page, pageSize int) ([]models.Notification, int, error) {
	where := " WHERE user_id = $1"
	if unreadOnly {
		where += " AND NOT read"
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM notifications"+where, userID); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	query := `SELECT id, user_id, type, title, message, data, link, read, created_at FROM notifications` +
		where + fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d OFFSET %d", pageSize, (page-1)*pageSize)
	notifications := []models.Notification{}
	if err := r.db.SelectContext(ctx, &notifications, query, userID); err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, total, nil
}

// MarkRead marks one of the user's notifications as read. A mismatched id or
// owner is a silent no-op.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, userID string) error {
	const query = `UPDATE notifications SET read = TRUE WHERE id = $1 AND user_id = $2`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return nil
}
