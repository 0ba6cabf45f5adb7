package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
)

type anomalyRepo struct {
	db *sql.DB
}

func newAnomalyRepo(db *sql.DB) *anomalyRepo {
	return &anomalyRepo{db: db}
}

const anomalyColumns = `
	id, host_id, sample_id, metric_type, metric_name, metric_value, severity,
	anomaly_score, acknowledged, resolved, resolved_at, explanation, llm_generated,
	correlation_json, created_at
`

func (r *anomalyRepo) Insert(ctx context.Context, a *repository.Anomaly) (*repository.Anomaly, error) {
	a.CreatedAt = time.Now().Unix()

	var explanation string
	if a.Explanation != nil {
		explanation = *a.Explanation
	}
	var correlationJSON string
	if a.Correlation != nil {
		b, err := json.Marshal(a.Correlation)
		if err != nil {
			return nil, fmt.Errorf("encode correlation: %w", err)
		}
		correlationJSON = string(b)
	}

	result, err := r.db.ExecContext(ctx, `
		INSERT INTO anomalies (
			host_id, sample_id, metric_type, metric_name, metric_value, severity,
			anomaly_score, acknowledged, resolved, resolved_at, explanation, llm_generated,
			correlation_json, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		a.HostID, nullableInt(a.SampleID), a.MetricType, a.MetricName, a.MetricValue, a.Severity,
		a.AnomalyScore, boolToInt(a.Acknowledged), boolToInt(a.Resolved), optionalInt64(a.ResolvedAt),
		explanation, boolToInt(a.LLMGenerated), correlationJSON, a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}
	a.ID = id
	return a, nil
}

func (r *anomalyRepo) FindByID(ctx context.Context, id int64) (*repository.Anomaly, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+anomalyColumns+` FROM anomalies WHERE id = ?`, id)
	return scanAnomaly(row)
}

func (r *anomalyRepo) Resolve(ctx context.Context, id int64, resolvedAt int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE anomalies SET resolved = 1, resolved_at = ? WHERE id = ?
	`, resolvedAt, id)
	return err
}

func (r *anomalyRepo) BulkResolve(ctx context.Context, ids []int64, resolvedAt int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, resolvedAt)
	for i, id := range ids {
		placeholders[i] = "?"
		args = append(args, id)
	}
	query := fmt.Sprintf(`UPDATE anomalies SET resolved = 1, resolved_at = ? WHERE id IN (%s)`,
		strings.Join(placeholders, ","))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(affected), nil
}

func (r *anomalyRepo) UnresolvedForHost(ctx context.Context, hostID int64) ([]*repository.Anomaly, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+anomalyColumns+` FROM anomalies WHERE host_id = ? AND resolved = 0 ORDER BY created_at DESC
	`, hostID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnomalies(rows)
}

func (r *anomalyRepo) UnresolvedCount(ctx context.Context, hostID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM anomalies WHERE host_id = ? AND resolved = 0
	`, hostID).Scan(&count)
	return count, err
}

func (r *anomalyRepo) RecentForHost(ctx context.Context, hostID int64, limit int) ([]*repository.Anomaly, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+anomalyColumns+` FROM anomalies WHERE host_id = ? ORDER BY created_at DESC LIMIT ?
	`, hostID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanAnomalies(rows)
}

func (r *anomalyRepo) OpenForMetric(ctx context.Context, hostID int64, metricType, metricName string) (*repository.Anomaly, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+anomalyColumns+` FROM anomalies
		WHERE host_id = ? AND metric_type = ? AND metric_name = ? AND resolved = 0
		ORDER BY created_at DESC LIMIT 1
	`, hostID, metricType, metricName)
	return scanAnomaly(row)
}

func scanAnomaly(row rowScanner) (*repository.Anomaly, error) {
	var a repository.Anomaly
	var acknowledged, resolved, llmGenerated int
	var resolvedAt sql.NullInt64
	var sampleID sql.NullInt64
	var explanation, correlationJSON string
	err := row.Scan(
		&a.ID, &a.HostID, &sampleID, &a.MetricType, &a.MetricName, &a.MetricValue, &a.Severity,
		&a.AnomalyScore, &acknowledged, &resolved, &resolvedAt, &explanation, &llmGenerated,
		&correlationJSON, &a.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	a.SampleID = nullableIntPtr(sampleID)
	a.Acknowledged = acknowledged != 0
	a.Resolved = resolved != 0
	a.ResolvedAt = nullableIntPtr(resolvedAt)
	a.LLMGenerated = llmGenerated != 0
	if explanation != "" {
		a.Explanation = &explanation
	}
	if correlationJSON != "" {
		var corr repository.CorrelationContext
		if err := json.Unmarshal([]byte(correlationJSON), &corr); err != nil {
			return nil, fmt.Errorf("decode correlation: %w", err)
		}
		a.Correlation = &corr
	}
	return &a, nil
}

func scanAnomalies(rows *sql.Rows) ([]*repository.Anomaly, error) {
	var anomalies []*repository.Anomaly
	for rows.Next() {
		a, err := scanAnomaly(rows)
		if err != nil {
			return nil, err
		}
		anomalies = append(anomalies, a)
	}
	return anomalies, rows.Err()
}
