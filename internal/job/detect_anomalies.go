package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/creamcroissant/monitord/internal/detector"
	"github.com/creamcroissant/monitord/internal/repository"
)

// dedupeWindow is how long an already-open anomaly on a given
// (host, metric_type, metric_name) suppresses a fresh insert for the same
// channel, so a metric oscillating around its threshold doesn't flood the
// anomalies table with one row per tick.
const dedupeWindow = 10 * time.Minute

// DetectAnomaliesJob runs the statistical detectors against each enabled
// host's recent sample window and inserts any newly-detected candidates.
type DetectAnomaliesJob struct {
	store  repository.Store
	opts   detector.Options
	locks  *HostLocks
	logger *slog.Logger
}

// NewDetectAnomaliesJob builds a DetectAnomaliesJob.
func NewDetectAnomaliesJob(store repository.Store, opts detector.Options, locks *HostLocks, logger *slog.Logger) *DetectAnomaliesJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &DetectAnomaliesJob{store: store, opts: opts, locks: locks, logger: logger}
}

func (j *DetectAnomaliesJob) Name() string { return "detect_anomalies" }

func (j *DetectAnomaliesJob) Timeout() time.Duration { return 20 * time.Second }

func (j *DetectAnomaliesJob) Run(ctx context.Context) error {
	configs, err := j.store.MonitoringConfigs().ListEnabled(ctx)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		if cfg.Suspended {
			continue
		}
		host, err := j.store.Hosts().FindByID(ctx, cfg.HostID)
		if err != nil {
			j.logger.ErrorContext(ctx, "detect: host lookup failed", "host_id", cfg.HostID, "error", err)
			continue
		}
		lockKey := "detect:" + host.Name
		if !j.locks.TryAcquire(lockKey) {
			continue
		}
		j.detectHost(ctx, host, cfg)
		j.locks.Release(lockKey)
	}
	return nil
}

func (j *DetectAnomaliesJob) detectHost(ctx context.Context, host *repository.Host, cfg *repository.MonitoringConfig) {
	window := cfg.DetectionWindow
	if window <= 0 {
		window = j.opts.WindowSize
	}
	samples, err := j.store.Samples().Recent(ctx, host.ID, window)
	if err != nil {
		j.logger.ErrorContext(ctx, "detect: sample fetch failed", "host", host.Name, "error", err)
		return
	}
	if len(samples) == 0 {
		return
	}
	// Recent returns newest-first; the detectors expect oldest-first.
	for i, j2, n := 0, len(samples)-1, len(samples); i < n/2; i, j2 = i+1, j2-1 {
		samples[i], samples[j2] = samples[j2], samples[i]
	}
	latest := samples[len(samples)-1]

	candidates := detector.Evaluate(cfg, samples, j.opts)
	for _, c := range candidates {
		if j.alreadyOpen(ctx, host, c) {
			continue
		}
		anomaly := &repository.Anomaly{
			HostID:       host.ID,
			SampleID:     &latest.ID,
			MetricType:   c.MetricType,
			MetricName:   c.MetricName,
			MetricValue:  c.MetricValue,
			Severity:     c.Severity,
			AnomalyScore: c.AnomalyScore,
			Correlation:  c.Correlation,
		}
		if _, err := j.store.Anomalies().Insert(ctx, anomaly); err != nil {
			j.logger.ErrorContext(ctx, "anomaly insert failed", "host", host.Name, "metric", c.MetricName, "error", err)
		}
	}
}

// alreadyOpen reports whether an unresolved anomaly already exists for this
// exact channel within the dedupe window, so a metric that stays above
// threshold across several ticks produces one row, not one per tick.
func (j *DetectAnomaliesJob) alreadyOpen(ctx context.Context, host *repository.Host, c detector.Candidate) bool {
	existing, err := j.store.Anomalies().OpenForMetric(ctx, host.ID, c.MetricType, c.MetricName)
	if err != nil {
		return false
	}
	return time.Now().Unix()-existing.CreatedAt < int64(dedupeWindow.Seconds())
}
