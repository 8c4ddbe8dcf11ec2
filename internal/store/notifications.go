package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/adiwira/gudang/internal/model"
)

// execer is the write half shared by *sql.DB and *sql.Tx, so a posting
// can create its low-stock alert inside its own transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// CreateNotification creates a notification row.
func CreateNotification(ctx context.Context, db execer, title, message string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO notifications (title, message) VALUES (?, ?)`,
		title, message,
	)
	if err != nil {
		return fmt.Errorf("creating notification: %w", err)
	}
	return nil
}

// ListNotifications returns notifications, newest first. If unreadOnly
// is set, read ones are skipped.
func ListNotifications(ctx context.Context, db *sql.DB, unreadOnly bool) ([]model.Notification, error) {
	query := `SELECT id, title, message, read, created_at FROM notifications`
	if unreadOnly {
		query += ` WHERE read = 0`
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.Title, &n.Message, &n.Read, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning notification: %w", err)
		}
		notifications = append(notifications, n)
	}
	return notifications, rows.Err()
}

// MarkNotificationRead marks a single notification as read.
func MarkNotificationRead(ctx context.Context, db *sql.DB, id int64) error {
	_, err := db.ExecContext(ctx,
		`UPDATE notifications SET read = 1 WHERE id = ?`, id,
	)
	if err != nil {
		return fmt.Errorf("marking notification read: %w", err)
	}
	return nil
}

// MarkAllNotificationsRead marks every notification as read.
func MarkAllNotificationsRead(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE read = 0`)
	if err != nil {
		return fmt.Errorf("marking notifications read: %w", err)
	}
	return nil
}
