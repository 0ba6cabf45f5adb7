package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/creamcroissant/monitord/internal/alert"
	"github.com/creamcroissant/monitord/internal/collector"
	"github.com/creamcroissant/monitord/internal/repository"
)

// ServiceCheckJob runs a systemd status query for every monitored service
// on every enabled, non-suspended host and feeds the result through the
// alert engine's two-consecutive-failures-or-failed-fast-path rule.
type ServiceCheckJob struct {
	store   repository.Store
	collect *collector.Collector
	alerts  *alert.Engine
	locks   *HostLocks
	logger  *slog.Logger
}

// NewServiceCheckJob builds a ServiceCheckJob.
func NewServiceCheckJob(store repository.Store, c *collector.Collector, alerts *alert.Engine, locks *HostLocks, logger *slog.Logger) *ServiceCheckJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &ServiceCheckJob{store: store, collect: c, alerts: alerts, locks: locks, logger: logger}
}

func (j *ServiceCheckJob) Name() string { return "service_check" }

func (j *ServiceCheckJob) Timeout() time.Duration { return 30 * time.Second }

func (j *ServiceCheckJob) Run(ctx context.Context) error {
	configs, err := j.store.MonitoringConfigs().ListEnabled(ctx)
	if err != nil {
		return err
	}

	for _, cfg := range configs {
		if cfg.Suspended || len(cfg.ServiceDefinitions) == 0 {
			continue
		}
		host, err := j.store.Hosts().FindByID(ctx, cfg.HostID)
		if err != nil {
			j.logger.ErrorContext(ctx, "service check: host lookup failed", "host_id", cfg.HostID, "error", err)
			continue
		}
		lockKey := "service:" + host.Name
		if !j.locks.TryAcquire(lockKey) {
			continue
		}
		j.checkHost(ctx, host, cfg)
		j.locks.Release(lockKey)
	}
	return nil
}

func (j *ServiceCheckJob) checkHost(ctx context.Context, host *repository.Host, cfg *repository.MonitoringConfig) {
	for _, def := range cfg.ServiceDefinitions {
		status, err := j.collect.CheckService(ctx, host, def)
		if err != nil {
			j.logger.WarnContext(ctx, "service check failed", "host", host.Name, "service", def.Name, "error", err)
			continue
		}

		svc, err := j.store.Services().Upsert(ctx, &repository.Service{
			HostID:      host.ID,
			Name:        def.Name,
			ServiceType: def.ServiceType,
			Monitored:   true,
		})
		if err != nil {
			j.logger.ErrorContext(ctx, "service upsert failed", "host", host.Name, "service", def.Name, "error", err)
			continue
		}

		if j.alerts == nil {
			continue
		}
		systemdFailed := status == repository.ServiceStatusFailed
		if err := j.alerts.EvaluateService(ctx, host, svc, status, systemdFailed); err != nil {
			j.logger.ErrorContext(ctx, "service alert evaluation failed", "host", host.Name, "service", def.Name, "error", err)
		}
	}
}
