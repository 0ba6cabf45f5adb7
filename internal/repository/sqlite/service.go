package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
)

type serviceRepo struct {
	db *sql.DB
}

func newServiceRepo(db *sql.DB) *serviceRepo {
	return &serviceRepo{db: db}
}

const serviceColumns = `
	id, host_id, name, service_type, monitored, last_status, consecutive_failures, last_checked_at, created_at, updated_at
`

func (r *serviceRepo) Upsert(ctx context.Context, svc *repository.Service) (*repository.Service, error) {
	now := time.Now().Unix()
	if svc.CreatedAt == 0 {
		svc.CreatedAt = now
	}
	svc.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO services (host_id, name, service_type, monitored, last_status, consecutive_failures, last_checked_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(host_id, name) DO UPDATE SET
			service_type = excluded.service_type,
			monitored = excluded.monitored,
			updated_at = excluded.updated_at
	`, svc.HostID, svc.Name, svc.ServiceType, boolToInt(svc.Monitored), svc.LastStatus,
		svc.ConsecutiveFailures, optionalInt64(svc.LastCheckedAt), svc.CreatedAt, svc.UpdatedAt)
	if err != nil {
		return nil, err
	}

	row := r.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE host_id = ? AND name = ?`, svc.HostID, svc.Name)
	return scanService(row)
}

func (r *serviceRepo) ListForHost(ctx context.Context, hostID int64) ([]*repository.Service, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE host_id = ? ORDER BY name ASC`, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanServices(rows)
}

func (r *serviceRepo) MonitoredForHost(ctx context.Context, hostID int64) ([]*repository.Service, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE host_id = ? AND monitored = 1 ORDER BY name ASC`, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanServices(rows)
}

func (r *serviceRepo) UpdateStatus(ctx context.Context, id int64, status string, checkedAt int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE services SET last_status = ?, last_checked_at = ?, updated_at = ? WHERE id = ?
	`, status, checkedAt, time.Now().Unix(), id)
	return err
}

func (r *serviceRepo) IncrementFailures(ctx context.Context, id int64) (int, error) {
	_, err := r.db.ExecContext(ctx, `
		UPDATE services SET consecutive_failures = consecutive_failures + 1, updated_at = ? WHERE id = ?
	`, time.Now().Unix(), id)
	if err != nil {
		return 0, err
	}
	var failures int
	err = r.db.QueryRowContext(ctx, `SELECT consecutive_failures FROM services WHERE id = ?`, id).Scan(&failures)
	return failures, err
}

func (r *serviceRepo) ResetFailures(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE services SET consecutive_failures = 0, updated_at = ? WHERE id = ?
	`, time.Now().Unix(), id)
	return err
}

func scanService(row rowScanner) (*repository.Service, error) {
	var svc repository.Service
	var monitored int
	var lastCheckedAt sql.NullInt64
	err := row.Scan(&svc.ID, &svc.HostID, &svc.Name, &svc.ServiceType, &monitored, &svc.LastStatus,
		&svc.ConsecutiveFailures, &lastCheckedAt, &svc.CreatedAt, &svc.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	svc.Monitored = monitored != 0
	svc.LastCheckedAt = nullableIntPtr(lastCheckedAt)
	return &svc, nil
}

func scanServices(rows *sql.Rows) ([]*repository.Service, error) {
	var services []*repository.Service
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, svc)
	}
	return services, rows.Err()
}
