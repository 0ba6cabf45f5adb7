package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creamcroissant/monitord/internal/alert"
	"github.com/creamcroissant/monitord/internal/async"
	"github.com/creamcroissant/monitord/internal/cache"
	"github.com/creamcroissant/monitord/internal/collector"
	"github.com/creamcroissant/monitord/internal/config"
	"github.com/creamcroissant/monitord/internal/detector"
	"github.com/creamcroissant/monitord/internal/heartbeat"
	"github.com/creamcroissant/monitord/internal/job"
	"github.com/creamcroissant/monitord/internal/notifier"
	"github.com/creamcroissant/monitord/internal/repository"
	"github.com/creamcroissant/monitord/internal/repository/sqlite"
	"github.com/creamcroissant/monitord/internal/security"
	"github.com/creamcroissant/monitord/internal/sshexec"
	"github.com/creamcroissant/monitord/internal/status"
	"github.com/creamcroissant/monitord/internal/support/logging"
)

// Infrastructure bundles every domain component the CLI's serve/collect/
// detect/etc. subcommands need, wired once at process startup.
type Infrastructure struct {
	Cache       cache.Store
	Store       repository.Store
	SSH         *sshexec.Executor
	Collector   *collector.Collector
	Alerts      *alert.Engine
	Heartbeats  *heartbeat.Tracker
	Status      *status.Service
	Scheduler   *job.Scheduler
	HostLocks   *job.HostLocks
	RateLimiter *security.RateLimiter
	Audit       security.Recorder

	detectorOpts detector.Options

	collectJob      *job.CollectMetricsJob
	detectJob       *job.DetectAnomaliesJob
	heartbeatJob    *job.HeartbeatProbeJob
	appHeartbeatJob *job.AppHeartbeatJob
	serviceScanJob  *job.ServiceCheckJob
	sendJob         *job.SendNotificationsJob
}

// RunCollect executes one collection pass across every enabled host,
// the body of the "collect" CLI subcommand and the collect_spec cron job.
func (i *Infrastructure) RunCollect(ctx context.Context) error { return i.collectJob.Run(ctx) }

// RunDetect executes one anomaly-detection pass across every enabled host.
func (i *Infrastructure) RunDetect(ctx context.Context) error { return i.detectJob.Run(ctx) }

// RunHeartbeatCheck probes every enabled host once over SSH.
func (i *Infrastructure) RunHeartbeatCheck(ctx context.Context) error { return i.heartbeatJob.Run(ctx) }

// RunAppHeartbeat stamps the monitoring process's own liveness once.
func (i *Infrastructure) RunAppHeartbeat(ctx context.Context) error { return i.appHeartbeatJob.Run(ctx) }

// RunServiceScan checks every monitored service on every enabled host once.
func (i *Infrastructure) RunServiceScan(ctx context.Context) error { return i.serviceScanJob.Run(ctx) }

// RunSendNotifications drains one batch of due notification retries.
func (i *Infrastructure) RunSendNotifications(ctx context.Context) error { return i.sendJob.Run(ctx) }

// BuildInfrastructure wires the full dependency graph described by the
// monitoring domain: store, cache, SSH executor, collector, detector
// options, alert engine (queue-backed delivery), heartbeat tracker, status
// service, and the cron scheduler with every job registered. db is expected
// to already be migrated (see migrations.Up).
func BuildInfrastructure(cfg *config.Config, db *sql.DB, logger *slog.Logger) (*Infrastructure, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cacheStore := cache.NewStore(cache.Options{
		Prefix:          "monitord",
		DefaultTTL:      5 * time.Minute,
		CleanupInterval: time.Minute,
	})

	store := sqlite.NewStore(db)

	sshExecutor, err := sshexec.New(cfg.SSH)
	if err != nil {
		return nil, fmt.Errorf("ssh executor: %w", err)
	}

	rateLimiter, err := security.NewRateLimiter(cacheStore)
	if err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	audit := security.NewMultiRecorder(
		security.NewLoggerRecorder(logging.Component(logger, "audit")),
		newStoreAuditRecorder(store, logging.Component(logger, "audit")),
	)

	queue := async.NewNotificationQueue()
	queuedNotifier := async.NewQueueNotifier(queue)
	mailer := buildMailer(cfg.SMTP, logger)

	recipients := splitRecipients(cfg.SMTP.Recipient)

	collect := collector.New(sshExecutor)
	alerts := alert.New(store, cacheStore, queuedNotifier, recipients, logging.Component(logger, "alert"))
	hbTracker := heartbeat.New(store, cacheStore, sshExecutor, alerts, logging.Component(logger, "heartbeat"))
	statusSvc := status.New(store, cacheStore, logging.Component(logger, "status"))

	detectorOpts := detector.Options{
		WindowSize:            cfg.Detector.WindowSize,
		ThresholdFactor:       cfg.Detector.ThresholdFactor,
		PersistenceFactor:     float64(cfg.Detector.PersistenceSamples),
		LevelShiftZScore:      cfg.Detector.LevelShiftZScore,
		VolatilityShiftFactor: cfg.Detector.VolatilityShiftFactor,
		CorrelationThreshold:  cfg.Detector.CorrelationThreshold,
	}

	hostLocks := job.NewHostLocks()
	scheduler := job.NewScheduler(logging.Component(logger, "scheduler"))

	infra := &Infrastructure{
		Cache:        cacheStore,
		Store:        store,
		SSH:          sshExecutor,
		Collector:    collect,
		Alerts:       alerts,
		Heartbeats:   hbTracker,
		Status:       statusSvc,
		Scheduler:    scheduler,
		HostLocks:    hostLocks,
		RateLimiter:  rateLimiter,
		Audit:        audit,
		detectorOpts: detectorOpts,
	}

	if err := infra.registerJobs(cfg, queue, mailer, logger); err != nil {
		return nil, fmt.Errorf("register jobs: %w", err)
	}
	return infra, nil
}

func (i *Infrastructure) registerJobs(cfg *config.Config, queue *async.NotificationQueue, mailer notifier.Service, logger *slog.Logger) error {
	i.collectJob = job.NewCollectMetricsJob(i.Store, i.Cache, i.Collector, i.Alerts, i.HostLocks, logging.Component(logger, "collect_job"))
	i.detectJob = job.NewDetectAnomaliesJob(i.Store, i.detectorOpts, i.HostLocks, logging.Component(logger, "detect_job"))
	i.heartbeatJob = job.NewHeartbeatProbeJob(i.Store, i.Heartbeats, i.HostLocks, logging.Component(logger, "heartbeat_job"))
	i.appHeartbeatJob = job.NewAppHeartbeatJob(i.Heartbeats, logging.Component(logger, "app_heartbeat_job"))
	i.serviceScanJob = job.NewServiceCheckJob(i.Store, i.Collector, i.Alerts, i.HostLocks, logging.Component(logger, "service_scan_job"))
	i.sendJob = job.NewSendNotificationsJob(queue, mailer, logging.Component(logger, "send_notifications_job"))

	registrations := []struct {
		spec string
		run  job.Runnable
	}{
		{cfg.Scheduler.CollectSpec, i.collectJob},
		{cfg.Scheduler.DetectSpec, i.detectJob},
		{cfg.Scheduler.HeartbeatSpec, i.heartbeatJob},
		{cfg.Scheduler.AppHeartbeatSpec, i.appHeartbeatJob},
		{cfg.Scheduler.ServiceScanSpec, i.serviceScanJob},
		{cfg.Scheduler.NotificationSpec, i.sendJob},
	}
	for _, r := range registrations {
		if _, err := i.Scheduler.Register(r.spec, r.run); err != nil {
			return err
		}
	}
	return nil
}

// buildMailer picks a real SMTP mailer when an SMTP host is configured,
// falling back to a logging-only notifier so a fresh deployment without
// mail credentials still runs, it just doesn't deliver alert emails.
func buildMailer(cfg config.SMTPConfig, logger *slog.Logger) notifier.Service {
	if strings.TrimSpace(cfg.Host) == "" {
		return notifier.NewLoggerService(logger)
	}
	return notifier.NewSMTPService(notifier.SMTPConfig{
		Host:     cfg.Host,
		Port:     cfg.Port,
		User:     cfg.User,
		Password: cfg.Password,
		From:     cfg.From,
		FromName: cfg.FromName,
		Mode:     notifier.Mode(cfg.Mode),
	})
}

func splitRecipients(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// storeAuditRecorder persists audit events to the durable store alongside
// the logger-only recorder, implementing security.Recorder.
type storeAuditRecorder struct {
	store  repository.Store
	logger *slog.Logger
}

func newStoreAuditRecorder(store repository.Store, logger *slog.Logger) *storeAuditRecorder {
	return &storeAuditRecorder{store: store, logger: logger}
}

func (r *storeAuditRecorder) Record(ctx context.Context, event security.Event) {
	occurred := event.Occurred
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	var hostID *int64
	if event.HostID != 0 {
		id := event.HostID
		hostID = &id
	}
	_, err := r.store.AuditEvents().Insert(ctx, &repository.AuditEvent{
		Actor:     event.ActorID,
		HostID:    hostID,
		Action:    event.Kind,
		After:     event.Metadata,
		CreatedAt: occurred.Unix(),
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "audit event persist failed", "kind", event.Kind, "error", err)
	}
}
