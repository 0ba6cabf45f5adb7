package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
)

type auditEventRepo struct {
	db *sql.DB
}

func newAuditEventRepo(db *sql.DB) *auditEventRepo {
	return &auditEventRepo{db: db}
}

const auditEventColumns = `id, actor, host_id, action, before_json, after_json, created_at`

func (r *auditEventRepo) Insert(ctx context.Context, e *repository.AuditEvent) (*repository.AuditEvent, error) {
	e.CreatedAt = time.Now().Unix()

	beforeJSON, err := encodeJSON(e.Before)
	if err != nil {
		return nil, fmt.Errorf("encode before state: %w", err)
	}
	afterJSON, err := encodeJSON(e.After)
	if err != nil {
		return nil, fmt.Errorf("encode after state: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_events (actor, host_id, action, before_json, after_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, e.Actor, optionalInt64(e.HostID), e.Action, beforeJSON, afterJSON, e.CreatedAt)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	e.ID = id
	return e, nil
}

func (r *auditEventRepo) RecentForHost(ctx context.Context, hostID int64, limit int) ([]*repository.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+auditEventColumns+` FROM audit_events WHERE host_id = ? ORDER BY created_at DESC LIMIT ?
	`, hostID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEvents(rows)
}

func (r *auditEventRepo) Recent(ctx context.Context, limit int) ([]*repository.AuditEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+auditEventColumns+` FROM audit_events ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAuditEvents(rows)
}

func scanAuditEvents(rows *sql.Rows) ([]*repository.AuditEvent, error) {
	var events []*repository.AuditEvent
	for rows.Next() {
		var e repository.AuditEvent
		var hostID sql.NullInt64
		var beforeJSON, afterJSON string
		if err := rows.Scan(&e.ID, &e.Actor, &hostID, &e.Action, &beforeJSON, &afterJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.HostID = nullableIntPtr(hostID)
		if beforeJSON != "" {
			if err := json.Unmarshal([]byte(beforeJSON), &e.Before); err != nil {
				return nil, fmt.Errorf("decode before state: %w", err)
			}
		}
		if afterJSON != "" {
			if err := json.Unmarshal([]byte(afterJSON), &e.After); err != nil {
				return nil, fmt.Errorf("decode after state: %w", err)
			}
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}
