package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
)

type notificationDispatchRepo struct {
	db *sql.DB
}

func newNotificationDispatchRepo(db *sql.DB) *notificationDispatchRepo {
	return &notificationDispatchRepo{db: db}
}

const notificationDispatchColumns = `
	id, alert_record_id, attempts, next_attempt_at, last_error, delivered, created_at
`

func (r *notificationDispatchRepo) Insert(ctx context.Context, d *repository.NotificationDispatch) (*repository.NotificationDispatch, error) {
	d.CreatedAt = time.Now().Unix()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO notification_dispatches (alert_record_id, attempts, next_attempt_at, last_error, delivered, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, d.AlertRecordID, d.Attempts, d.NextAttemptAt, d.LastError, boolToInt(d.Delivered), d.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	d.ID = id
	return d, nil
}

func (r *notificationDispatchRepo) DuePending(ctx context.Context, nowUnix int64, limit int) ([]*repository.NotificationDispatch, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+notificationDispatchColumns+` FROM notification_dispatches
		WHERE delivered = 0 AND next_attempt_at <= ? ORDER BY next_attempt_at ASC LIMIT ?
	`, nowUnix, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dispatches []*repository.NotificationDispatch
	for rows.Next() {
		var d repository.NotificationDispatch
		var delivered int
		if err := rows.Scan(&d.ID, &d.AlertRecordID, &d.Attempts, &d.NextAttemptAt, &d.LastError, &delivered, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Delivered = delivered != 0
		dispatches = append(dispatches, &d)
	}
	return dispatches, rows.Err()
}

func (r *notificationDispatchRepo) MarkDelivered(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE notification_dispatches SET delivered = 1 WHERE id = ?`, id)
	return err
}

func (r *notificationDispatchRepo) MarkFailed(ctx context.Context, id int64, nextAttemptAt int64, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE notification_dispatches SET attempts = attempts + 1, next_attempt_at = ?, last_error = ? WHERE id = ?
	`, nextAttemptAt, lastError, id)
	return err
}
