package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
)

type hostRepo struct {
	db *sql.DB
}

func newHostRepo(db *sql.DB) *hostRepo {
	return &hostRepo{db: db}
}

func (r *hostRepo) Create(ctx context.Context, host *repository.Host) (*repository.Host, error) {
	now := time.Now().Unix()
	host.CreatedAt = now
	host.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO hosts (name, ip_address, port, username, key_deployed, key_deployed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, host.Name, host.IPAddress, host.Port, host.Username,
		boolToInt(host.KeyDeployed), optionalInt64(host.KeyDeployedAt), host.CreatedAt, host.UpdatedAt)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	host.ID = id
	return host, nil
}

func (r *hostRepo) FindByID(ctx context.Context, id int64) (*repository.Host, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, ip_address, port, username, key_deployed, key_deployed_at, created_at, updated_at
		FROM hosts WHERE id = ?
	`, id)
	return scanHost(row)
}

func (r *hostRepo) FindByName(ctx context.Context, name string) (*repository.Host, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, name, ip_address, port, username, key_deployed, key_deployed_at, created_at, updated_at
		FROM hosts WHERE name = ?
	`, name)
	return scanHost(row)
}

func (r *hostRepo) List(ctx context.Context) ([]*repository.Host, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, ip_address, port, username, key_deployed, key_deployed_at, created_at, updated_at
		FROM hosts ORDER BY name ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hosts []*repository.Host
	for rows.Next() {
		var h repository.Host
		var keyDeployed int
		var keyDeployedAt sql.NullInt64
		if err := rows.Scan(&h.ID, &h.Name, &h.IPAddress, &h.Port, &h.Username,
			&keyDeployed, &keyDeployedAt, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		h.KeyDeployed = keyDeployed != 0
		h.KeyDeployedAt = nullableIntPtr(keyDeployedAt)
		hosts = append(hosts, &h)
	}
	return hosts, rows.Err()
}

func (r *hostRepo) Update(ctx context.Context, host *repository.Host) error {
	host.UpdatedAt = time.Now().Unix()
	_, err := r.db.ExecContext(ctx, `
		UPDATE hosts SET name = ?, ip_address = ?, port = ?, username = ?, updated_at = ?
		WHERE id = ?
	`, host.Name, host.IPAddress, host.Port, host.Username, host.UpdatedAt, host.ID)
	return err
}

func (r *hostRepo) MarkKeyDeployed(ctx context.Context, id int64, deployedAt int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE hosts SET key_deployed = 1, key_deployed_at = ?, updated_at = ? WHERE id = ?
	`, deployedAt, time.Now().Unix(), id)
	return err
}

func (r *hostRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM hosts WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHost(row rowScanner) (*repository.Host, error) {
	var h repository.Host
	var keyDeployed int
	var keyDeployedAt sql.NullInt64
	err := row.Scan(&h.ID, &h.Name, &h.IPAddress, &h.Port, &h.Username,
		&keyDeployed, &keyDeployedAt, &h.CreatedAt, &h.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	h.KeyDeployed = keyDeployed != 0
	h.KeyDeployedAt = nullableIntPtr(keyDeployedAt)
	return &h, nil
}
