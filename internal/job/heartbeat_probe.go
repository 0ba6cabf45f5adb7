package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/creamcroissant/monitord/internal/heartbeat"
	"github.com/creamcroissant/monitord/internal/repository"
)

// HeartbeatProbeJob runs the pull-path SSH liveness probe against every
// enabled host on a fixed cadence, independent of metric collection so a
// host that is reachable but failing to report samples still shows online.
type HeartbeatProbeJob struct {
	store   repository.Store
	tracker *heartbeat.Tracker
	locks   *HostLocks
	logger  *slog.Logger
}

// NewHeartbeatProbeJob builds a HeartbeatProbeJob.
func NewHeartbeatProbeJob(store repository.Store, tracker *heartbeat.Tracker, locks *HostLocks, logger *slog.Logger) *HeartbeatProbeJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeartbeatProbeJob{store: store, tracker: tracker, locks: locks, logger: logger}
}

func (j *HeartbeatProbeJob) Name() string { return "heartbeat_probe" }

func (j *HeartbeatProbeJob) Timeout() time.Duration { return 15 * time.Second }

func (j *HeartbeatProbeJob) Run(ctx context.Context) error {
	hosts, err := j.store.Hosts().List(ctx)
	if err != nil {
		return err
	}

	for _, host := range hosts {
		cfg, err := j.store.MonitoringConfigs().FindByHostID(ctx, host.ID)
		if err != nil {
			j.logger.ErrorContext(ctx, "heartbeat: config lookup failed", "host", host.Name, "error", err)
			continue
		}
		if !cfg.Enabled {
			continue
		}
		lockKey := "heartbeat:" + host.Name
		if !j.locks.TryAcquire(lockKey) {
			continue
		}
		if err := j.tracker.ProbeOnce(ctx, host); err != nil {
			j.logger.WarnContext(ctx, "heartbeat probe failed", "host", host.Name, "error", err)
		}
		j.locks.Release(lockKey)
	}
	return nil
}
