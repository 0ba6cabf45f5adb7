package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
)

type monitoringConfigRepo struct {
	db *sql.DB
}

func newMonitoringConfigRepo(db *sql.DB) *monitoringConfigRepo {
	return &monitoringConfigRepo{db: db}
}

const monitoringConfigColumns = `
	host_id, enabled, suspended, alerts_suppressed,
	collection_interval_seconds, anomaly_detection_interval_seconds, adaptive_collection_enabled,
	cpu_threshold, memory_threshold, disk_threshold, disk_io_threshold_mbs, network_io_threshold_mbs,
	detection_window, retention_days,
	monitored_disks_json, monitored_services_json, service_definitions_json,
	created_at, updated_at
`

func (r *monitoringConfigRepo) FindByHostID(ctx context.Context, hostID int64) (*repository.MonitoringConfig, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+monitoringConfigColumns+` FROM monitoring_configs WHERE host_id = ?`, hostID)
	return scanMonitoringConfig(row)
}

func (r *monitoringConfigRepo) Upsert(ctx context.Context, cfg *repository.MonitoringConfig) error {
	now := time.Now().Unix()
	if cfg.CreatedAt == 0 {
		cfg.CreatedAt = now
	}
	cfg.UpdatedAt = now

	disksJSON, err := json.Marshal(cfg.MonitoredDisks)
	if err != nil {
		return fmt.Errorf("encode monitored disks: %w", err)
	}
	servicesJSON, err := json.Marshal(cfg.MonitoredServices)
	if err != nil {
		return fmt.Errorf("encode monitored services: %w", err)
	}
	defsJSON, err := json.Marshal(cfg.ServiceDefinitions)
	if err != nil {
		return fmt.Errorf("encode service definitions: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO monitoring_configs (
			host_id, enabled, suspended, alerts_suppressed,
			collection_interval_seconds, anomaly_detection_interval_seconds, adaptive_collection_enabled,
			cpu_threshold, memory_threshold, disk_threshold, disk_io_threshold_mbs, network_io_threshold_mbs,
			detection_window, retention_days,
			monitored_disks_json, monitored_services_json, service_definitions_json,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(host_id) DO UPDATE SET
			enabled = excluded.enabled,
			suspended = excluded.suspended,
			alerts_suppressed = excluded.alerts_suppressed,
			collection_interval_seconds = excluded.collection_interval_seconds,
			anomaly_detection_interval_seconds = excluded.anomaly_detection_interval_seconds,
			adaptive_collection_enabled = excluded.adaptive_collection_enabled,
			cpu_threshold = excluded.cpu_threshold,
			memory_threshold = excluded.memory_threshold,
			disk_threshold = excluded.disk_threshold,
			disk_io_threshold_mbs = excluded.disk_io_threshold_mbs,
			network_io_threshold_mbs = excluded.network_io_threshold_mbs,
			detection_window = excluded.detection_window,
			retention_days = excluded.retention_days,
			monitored_disks_json = excluded.monitored_disks_json,
			monitored_services_json = excluded.monitored_services_json,
			service_definitions_json = excluded.service_definitions_json,
			updated_at = excluded.updated_at
	`,
		cfg.HostID, boolToInt(cfg.Enabled), boolToInt(cfg.Suspended), boolToInt(cfg.AlertsSuppressed),
		cfg.CollectionIntervalSeconds, cfg.AnomalyDetectionIntervalSeconds, boolToInt(cfg.AdaptiveCollectionEnabled),
		cfg.CPUThreshold, cfg.MemoryThreshold, cfg.DiskThreshold, cfg.DiskIOThresholdMBs, cfg.NetworkIOThresholdMBs,
		cfg.DetectionWindow, cfg.RetentionDays,
		string(disksJSON), string(servicesJSON), string(defsJSON),
		cfg.CreatedAt, cfg.UpdatedAt,
	)
	return err
}

func (r *monitoringConfigRepo) SetSuspended(ctx context.Context, hostID int64, suspended bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE monitoring_configs SET suspended = ?, updated_at = ? WHERE host_id = ?
	`, boolToInt(suspended), time.Now().Unix(), hostID)
	return err
}

func (r *monitoringConfigRepo) SetAlertsSuppressed(ctx context.Context, hostID int64, suppressed bool) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE monitoring_configs SET alerts_suppressed = ?, updated_at = ? WHERE host_id = ?
	`, boolToInt(suppressed), time.Now().Unix(), hostID)
	return err
}

func (r *monitoringConfigRepo) UpdateThresholds(ctx context.Context, cfg *repository.MonitoringConfig) error {
	disksJSON, err := json.Marshal(cfg.MonitoredDisks)
	if err != nil {
		return fmt.Errorf("encode monitored disks: %w", err)
	}
	_, err = r.db.ExecContext(ctx, `
		UPDATE monitoring_configs SET
			cpu_threshold = ?, memory_threshold = ?, disk_threshold = ?,
			disk_io_threshold_mbs = ?, network_io_threshold_mbs = ?,
			monitored_disks_json = ?, updated_at = ?
		WHERE host_id = ?
	`, cfg.CPUThreshold, cfg.MemoryThreshold, cfg.DiskThreshold,
		cfg.DiskIOThresholdMBs, cfg.NetworkIOThresholdMBs,
		string(disksJSON), time.Now().Unix(), cfg.HostID)
	return err
}

func (r *monitoringConfigRepo) ListEnabled(ctx context.Context) ([]*repository.MonitoringConfig, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+monitoringConfigColumns+` FROM monitoring_configs WHERE enabled = 1 AND suspended = 0`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []*repository.MonitoringConfig
	for rows.Next() {
		cfg, err := scanMonitoringConfigRows(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

func scanMonitoringConfig(row rowScanner) (*repository.MonitoringConfig, error) {
	var cfg repository.MonitoringConfig
	var enabled, suspended, suppressed, adaptive int
	var disksJSON, servicesJSON, defsJSON string
	err := row.Scan(
		&cfg.HostID, &enabled, &suspended, &suppressed,
		&cfg.CollectionIntervalSeconds, &cfg.AnomalyDetectionIntervalSeconds, &adaptive,
		&cfg.CPUThreshold, &cfg.MemoryThreshold, &cfg.DiskThreshold, &cfg.DiskIOThresholdMBs, &cfg.NetworkIOThresholdMBs,
		&cfg.DetectionWindow, &cfg.RetentionDays,
		&disksJSON, &servicesJSON, &defsJSON,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	cfg.Enabled = enabled != 0
	cfg.Suspended = suspended != 0
	cfg.AlertsSuppressed = suppressed != 0
	cfg.AdaptiveCollectionEnabled = adaptive != 0
	if err := json.Unmarshal([]byte(disksJSON), &cfg.MonitoredDisks); err != nil {
		return nil, fmt.Errorf("decode monitored disks: %w", err)
	}
	if err := json.Unmarshal([]byte(servicesJSON), &cfg.MonitoredServices); err != nil {
		return nil, fmt.Errorf("decode monitored services: %w", err)
	}
	if err := json.Unmarshal([]byte(defsJSON), &cfg.ServiceDefinitions); err != nil {
		return nil, fmt.Errorf("decode service definitions: %w", err)
	}
	return &cfg, nil
}

func scanMonitoringConfigRows(rows *sql.Rows) (*repository.MonitoringConfig, error) {
	return scanMonitoringConfig(rows)
}
