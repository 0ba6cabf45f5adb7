package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
)

type heartbeatRepo struct {
	db *sql.DB
}

func newHeartbeatRepo(db *sql.DB) *heartbeatRepo {
	return &heartbeatRepo{db: db}
}

func (r *heartbeatRepo) Upsert(ctx context.Context, hb *repository.Heartbeat) error {
	now := time.Now().Unix()
	if hb.CreatedAt == 0 {
		hb.CreatedAt = now
	}
	hb.UpdatedAt = now
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO heartbeats (host_id, last_heartbeat_at, source, agent_version, consecutive_misses, offline, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(host_id) DO UPDATE SET
			last_heartbeat_at = excluded.last_heartbeat_at,
			source = excluded.source,
			agent_version = excluded.agent_version,
			consecutive_misses = 0,
			offline = 0,
			updated_at = excluded.updated_at
	`, hb.HostID, hb.LastHeartbeatAt, hb.Source, hb.AgentVersion, hb.ConsecutiveMisses, boolToInt(hb.Offline), hb.CreatedAt, hb.UpdatedAt)
	return err
}

func (r *heartbeatRepo) FindByHostID(ctx context.Context, hostID int64) (*repository.Heartbeat, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT host_id, last_heartbeat_at, source, agent_version, consecutive_misses, offline, created_at, updated_at
		FROM heartbeats WHERE host_id = ?
	`, hostID)
	var hb repository.Heartbeat
	var offline int
	err := row.Scan(&hb.HostID, &hb.LastHeartbeatAt, &hb.Source, &hb.AgentVersion, &hb.ConsecutiveMisses, &offline, &hb.CreatedAt, &hb.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	hb.Offline = offline != 0
	return &hb, nil
}

func (r *heartbeatRepo) IncrementMisses(ctx context.Context, hostID int64) (int, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE heartbeats SET consecutive_misses = consecutive_misses + 1, updated_at = ? WHERE host_id = ?
	`, time.Now().Unix(), hostID)
	if err != nil {
		return 0, err
	}
	var misses int
	err = r.db.QueryRowContext(ctx, `SELECT consecutive_misses FROM heartbeats WHERE host_id = ?`, hostID).Scan(&misses)
	if err == sql.ErrNoRows {
		return 0, repository.ErrNotFound
	}
	return misses, err
}

func (r *heartbeatRepo) SetOffline(ctx context.Context, hostID int64, offline bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE heartbeats SET offline = ?, updated_at = ? WHERE host_id = ?
	`, boolToInt(offline), time.Now().Unix(), hostID)
	return err
}

func (r *heartbeatRepo) AppHeartbeat(ctx context.Context) (*repository.AppHeartbeat, error) {
	var ah repository.AppHeartbeat
	err := r.db.QueryRowContext(ctx, `SELECT last_seen_at FROM app_heartbeats WHERE id = 1`).Scan(&ah.LastSeenAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &ah, nil
}

func (r *heartbeatRepo) TouchAppHeartbeat(ctx context.Context, seenAtUnix int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO app_heartbeats (id, last_seen_at) VALUES (1, ?)
		ON CONFLICT(id) DO UPDATE SET last_seen_at = excluded.last_seen_at
	`, seenAtUnix)
	return err
}
