package repository

import (
	"context"
	"database/sql"
	"time"
)

// Notification is a row the queue consumer writes when a request lifecycle
// event arrives. The dashboard reads the newest few per user.
type Notification struct {
	ID         uint64
	UserID     uint64
	Title      string
	Message    string
	Type       string
	EntityType string
	EntityID   uint64
	IsRead     bool
	CreatedAt  time.Time
}

// NotificationRepo persists notifications. Writes come from the background
// consumer, never from the request path.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// Insert stores one notification row.
func (r *NotificationRepo) Insert(ctx context.Context, n *Notification) error {
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO notifications (user_id, title, message, type, entity_type, entity_id)
		 VALUES (?,?,?,?,?,?)`,
		n.UserID, n.Title, n.Message, n.Type, n.EntityType, n.EntityID)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

// Latest returns the newest n notifications for a user.
func (r *NotificationRepo) Latest(ctx context.Context, userID uint64, n int) ([]*Notification, error) {
	const q = `SELECT id, user_id, title, message, type, entity_type, entity_id, is_read, created_at
		FROM notifications WHERE user_id = ? ORDER BY id DESC LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, q, userID, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*Notification
	for rows.Next() {
		m := new(Notification)
		if err := rows.Scan(&m.ID, &m.UserID, &m.Title, &m.Message, &m.Type,
			&m.EntityType, &m.EntityID, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkRead flags a notification as read for its owner.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE notifications SET is_read=1 WHERE id=? AND user_id=?", id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
