package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
)

type alertRecordRepo struct {
	db *sql.DB
}

func newAlertRecordRepo(db *sql.DB) *alertRecordRepo {
	return &alertRecordRepo{db: db}
}

const alertRecordColumns = `
	id, host_id, alert_type, metric_type, status, value, threshold, message,
	recipients_json, sent_at, resolved_at, delivered, error, created_at
`

func (r *alertRecordRepo) Insert(ctx context.Context, rec *repository.AlertRecord) (*repository.AlertRecord, error) {
	rec.CreatedAt = time.Now().Unix()
	if rec.SentAt == 0 {
		rec.SentAt = rec.CreatedAt
	}

	recipientsJSON, err := json.Marshal(rec.Recipients)
	if err != nil {
		return nil, fmt.Errorf("encode recipients: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO alert_records (
			host_id, alert_type, metric_type, status, value, threshold, message,
			recipients_json, sent_at, resolved_at, delivered, error, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.HostID, rec.AlertType, rec.MetricType, rec.Status, rec.Value, rec.Threshold, rec.Message,
		string(recipientsJSON), rec.SentAt, optionalInt64(rec.ResolvedAt), boolToInt(rec.Delivered), rec.Error, rec.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	rec.ID = id
	return rec, nil
}

func (r *alertRecordRepo) LastForChannel(ctx context.Context, hostID int64, alertType, metricType string) (*repository.AlertRecord, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+alertRecordColumns+` FROM alert_records
		WHERE host_id = ? AND alert_type = ? AND metric_type = ?
		ORDER BY created_at DESC LIMIT 1
	`, hostID, alertType, metricType)
	return scanAlertRecord(row)
}

func (r *alertRecordRepo) MarkResolved(ctx context.Context, id int64, resolvedAt int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE alert_records SET status = 'resolved', resolved_at = ? WHERE id = ?
	`, resolvedAt, id)
	return err
}

func (r *alertRecordRepo) RecentForHost(ctx context.Context, hostID int64, limit int) ([]*repository.AlertRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+alertRecordColumns+` FROM alert_records WHERE host_id = ? ORDER BY created_at DESC LIMIT ?
	`, hostID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*repository.AlertRecord
	for rows.Next() {
		rec, err := scanAlertRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanAlertRecord(row rowScanner) (*repository.AlertRecord, error) {
	var rec repository.AlertRecord
	var delivered int
	var resolvedAt sql.NullInt64
	var recipientsJSON string
	err := row.Scan(
		&rec.ID, &rec.HostID, &rec.AlertType, &rec.MetricType, &rec.Status, &rec.Value, &rec.Threshold, &rec.Message,
		&recipientsJSON, &rec.SentAt, &resolvedAt, &delivered, &rec.Error, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec.Delivered = delivered != 0
	rec.ResolvedAt = nullableIntPtr(resolvedAt)
	if recipientsJSON != "" {
		if err := json.Unmarshal([]byte(recipientsJSON), &rec.Recipients); err != nil {
			return nil, fmt.Errorf("decode recipients: %w", err)
		}
	}
	return &rec, nil
}
