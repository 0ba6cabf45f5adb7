package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
)

type sampleRepo struct {
	db *sql.DB
}

func newSampleRepo(db *sql.DB) *sampleRepo {
	return &sampleRepo{db: db}
}

const sampleColumns = `
	id, host_id, collected_at, cpu_percent, mem_percent, swap_percent,
	disk_json, network_io_json, top_processes_json,
	disk_io_read_bps, disk_io_write_bps, net_io_recv_bps, net_io_sent_bps,
	load1, load5, load15, network_connections, uptime_seconds, created_at
`

func (r *sampleRepo) Insert(ctx context.Context, s *repository.Sample) (*repository.Sample, error) {
	s.CreatedAt = time.Now().Unix()

	diskJSON, err := encodeJSON(s.DiskUsage)
	if err != nil {
		return nil, fmt.Errorf("encode disk usage: %w", err)
	}
	netJSON, err := encodeJSON(s.NetworkIO)
	if err != nil {
		return nil, fmt.Errorf("encode network io: %w", err)
	}
	procsJSON, err := encodeJSON(s.TopProcesses)
	if err != nil {
		return nil, fmt.Errorf("encode top processes: %w", err)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO samples (
			host_id, collected_at, cpu_percent, mem_percent, swap_percent,
			disk_json, network_io_json, top_processes_json,
			disk_io_read_bps, disk_io_write_bps, net_io_recv_bps, net_io_sent_bps,
			load1, load5, load15, network_connections, uptime_seconds, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		s.HostID, s.CollectedAt, s.CPUPercent, s.MemoryPercent, nullableFloat(s.SwapPercent),
		diskJSON, netJSON, procsJSON,
		s.DiskIOReadBytesPerSec, s.DiskIOWriteBytesPerSec, s.NetIORecvBytesPerSec, s.NetIOSentBytesPerSec,
		s.Load1, s.Load5, s.Load15, s.NetworkConnections, s.UptimeSeconds, s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	s.ID = id
	return s, nil
}

func (r *sampleRepo) Latest(ctx context.Context, hostID int64) (*repository.Sample, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+sampleColumns+` FROM samples WHERE host_id = ? ORDER BY collected_at DESC LIMIT 1
	`, hostID)
	return scanSample(row)
}

func (r *sampleRepo) Recent(ctx context.Context, hostID int64, limit int) ([]*repository.Sample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sampleColumns+` FROM samples WHERE host_id = ? ORDER BY collected_at DESC LIMIT ?
	`, hostID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

func (r *sampleRepo) Since(ctx context.Context, hostID int64, sinceUnix int64) ([]*repository.Sample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sampleColumns+` FROM samples WHERE host_id = ? AND collected_at >= ? ORDER BY collected_at ASC
	`, hostID, sinceUnix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

func (r *sampleRepo) Window(ctx context.Context, hostID int64, fromUnix, toUnix int64) ([]*repository.Sample, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+sampleColumns+` FROM samples WHERE host_id = ? AND collected_at BETWEEN ? AND ? ORDER BY collected_at ASC
	`, hostID, fromUnix, toUnix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSamples(rows)
}

func (r *sampleRepo) DeleteOlderThan(ctx context.Context, hostID int64, cutoffUnix int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM samples WHERE host_id = ? AND collected_at < ?
	`, hostID, cutoffUnix)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func scanSample(row rowScanner) (*repository.Sample, error) {
	var s repository.Sample
	var swap sql.NullFloat64
	var diskJSON, netJSON, procsJSON string
	err := row.Scan(
		&s.ID, &s.HostID, &s.CollectedAt, &s.CPUPercent, &s.MemoryPercent, &swap,
		&diskJSON, &netJSON, &procsJSON,
		&s.DiskIOReadBytesPerSec, &s.DiskIOWriteBytesPerSec, &s.NetIORecvBytesPerSec, &s.NetIOSentBytesPerSec,
		&s.Load1, &s.Load5, &s.Load15, &s.NetworkConnections, &s.UptimeSeconds, &s.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.SwapPercent = nullableFloatPtr(swap)
	if diskJSON != "" {
		if err := json.Unmarshal([]byte(diskJSON), &s.DiskUsage); err != nil {
			return nil, fmt.Errorf("decode disk usage: %w", err)
		}
	}
	if netJSON != "" {
		if err := json.Unmarshal([]byte(netJSON), &s.NetworkIO); err != nil {
			return nil, fmt.Errorf("decode network io: %w", err)
		}
	}
	if procsJSON != "" {
		if err := json.Unmarshal([]byte(procsJSON), &s.TopProcesses); err != nil {
			return nil, fmt.Errorf("decode top processes: %w", err)
		}
	}
	return &s, nil
}

func scanSamples(rows *sql.Rows) ([]*repository.Sample, error) {
	var samples []*repository.Sample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, rows.Err()
}
