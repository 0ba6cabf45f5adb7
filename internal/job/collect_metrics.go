package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/creamcroissant/monitord/internal/alert"
	"github.com/creamcroissant/monitord/internal/cache"
	"github.com/creamcroissant/monitord/internal/collector"
	"github.com/creamcroissant/monitord/internal/repository"
)

const latestSampleTTL = 5 * time.Minute

// CollectMetricsJob is the scheduler tick that, for every enabled and
// non-suspended host, runs one collection pass, persists the sample,
// refreshes the host's latest_sample cache entry, and
// hands the sample to the alert engine for threshold evaluation.
type CollectMetricsJob struct {
	store   repository.Store
	cache   cache.Store
	collect *collector.Collector
	alerts  *alert.Engine
	locks   *HostLocks
	logger  *slog.Logger
}

// NewCollectMetricsJob builds a CollectMetricsJob.
func NewCollectMetricsJob(store repository.Store, cacheStore cache.Store, c *collector.Collector, alerts *alert.Engine, locks *HostLocks, logger *slog.Logger) *CollectMetricsJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &CollectMetricsJob{store: store, cache: cacheStore.Namespace("latest_sample"), collect: c, alerts: alerts, locks: locks, logger: logger}
}

func (j *CollectMetricsJob) Name() string { return "collect_metrics" }

func (j *CollectMetricsJob) Timeout() time.Duration { return 25 * time.Second }

// Run fans out one collection attempt per monitored host. A host whose
// previous tick is still in flight is skipped for this tick rather than
// queued, per the scheduler's backpressure policy.
func (j *CollectMetricsJob) Run(ctx context.Context) error {
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
			j.logger.ErrorContext(ctx, "collect: host lookup failed", "host_id", cfg.HostID, "error", err)
			continue
		}
		if !j.locks.TryAcquire(host.Name) {
			continue
		}
		j.collectHost(ctx, host, cfg)
		j.locks.Release(host.Name)
	}
	return nil
}

func (j *CollectMetricsJob) collectHost(ctx context.Context, host *repository.Host, cfg *repository.MonitoringConfig) {
	if j.skipForAdaptiveInterval(ctx, host, cfg) {
		return
	}

	sample, err := j.collect.CollectOnce(ctx, host)
	if err != nil {
		j.logger.WarnContext(ctx, "collect failed", "host", host.Name, "error", err)
		return
	}

	stored, err := j.store.Samples().Insert(ctx, sample)
	if err != nil {
		j.logger.ErrorContext(ctx, "sample insert failed", "host", host.Name, "error", err)
		return
	}

	if err := j.cache.SetJSON(ctx, host.Name, stored, latestSampleTTL); err != nil {
		j.logger.WarnContext(ctx, "latest sample cache write failed", "host", host.Name, "error", err)
	}

	if j.alerts != nil {
		if err := j.alerts.EvaluateAndSend(ctx, host, stored); err != nil {
			j.logger.ErrorContext(ctx, "alert evaluation failed", "host", host.Name, "error", err)
		}
	}
}

// skipForAdaptiveInterval picks the target collection cadence (the
// shorter anomaly-detection interval when AdaptiveCollectionEnabled and an
// anomaly is unresolved within the last hour, otherwise the configured
// collection interval) and skips this tick when the last sample is
// younger than that target, independent of whether adaptive collection is
// on — a host is never sampled more often than its own configured
// interval just because the scheduler ticks more frequently.
func (j *CollectMetricsJob) skipForAdaptiveInterval(ctx context.Context, host *repository.Host, cfg *repository.MonitoringConfig) bool {
	target := cfg.CollectionIntervalSeconds
	if target <= 0 {
		return false
	}
	if cfg.AdaptiveCollectionEnabled && cfg.AnomalyDetectionIntervalSeconds > 0 && j.hasRecentUnresolvedAnomaly(ctx, host.ID) {
		target = cfg.AnomalyDetectionIntervalSeconds
	}

	latest, err := j.store.Samples().Latest(ctx, host.ID)
	if err != nil {
		return false
	}
	elapsed := time.Now().Unix() - latest.CollectedAt
	return elapsed < int64(target)
}

// hasRecentUnresolvedAnomaly reports whether host has any unresolved
// Anomaly raised within the last hour.
func (j *CollectMetricsJob) hasRecentUnresolvedAnomaly(ctx context.Context, hostID int64) bool {
	anomalies, err := j.store.Anomalies().UnresolvedForHost(ctx, hostID)
	if err != nil {
		return false
	}
	cutoff := time.Now().Add(-time.Hour).Unix()
	for _, a := range anomalies {
		if a.CreatedAt >= cutoff {
			return true
		}
	}
	return false
}
