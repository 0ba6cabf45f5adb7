package alert

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/creamcroissant/monitord/internal/cache"
	"github.com/creamcroissant/monitord/internal/notifier"
	"github.com/creamcroissant/monitord/internal/repository"
)

const (
	alertStateTTL  = 24 * time.Hour
	quietWindowTTL = 60 * time.Second
)

// Engine evaluates operator thresholds against the newest sample for a
// host, the connection state surfaced by the heartbeat tracker, and
// per-service check results, turning hysteresis edges into emails and
// AlertRecord history rows. It never blocks a caller on SMTP: sends go
// through notifier.Service, which in production is a queue-backed
// implementation so a slow or failing mail server cannot stall detection.
type Engine struct {
	store      repository.Store
	cache      cache.Store
	notifier   notifier.Service
	recipients []string
	logger     *slog.Logger
}

// New builds an Engine. recipients is the default alert distribution
// list; per-host overrides are not modeled (the spec's Host entity
// carries no recipient field), matching the original's single
// deployment-wide ALERT_RECIPIENT setting.
func New(store repository.Store, cacheStore cache.Store, notif notifier.Service, recipients []string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:      store,
		cache:      cacheStore.Namespace("alert_state"),
		notifier:   notif,
		recipients: recipients,
		logger:     logger,
	}
}

// EvaluateAndSend runs the per-metric-channel hysteresis check against
// sample and emails/records any triggered or resolved channels. It is the
// single entry point the collector's job calls after every successful
// CollectOnce.
func (e *Engine) EvaluateAndSend(ctx context.Context, host *repository.Host, sample *repository.Sample) error {
	cfg, err := e.store.MonitoringConfigs().FindByHostID(ctx, host.ID)
	if err != nil {
		return newError(KindConfigError, host.Name, err)
	}
	if !cfg.Enabled || cfg.Suspended || cfg.AlertsSuppressed {
		return nil
	}

	prev := e.loadState(ctx, host.Name)
	triggered, resolved, next := evaluateChannels(cfg, sample, prev)

	now := time.Now().Unix()
	if len(triggered) > 0 {
		e.sendAndRecord(ctx, host, triggered, repository.AlertStatusTriggered, now)
	}
	if len(resolved) > 0 {
		e.sendAndRecord(ctx, host, resolved, repository.AlertStatusResolved, now)
	}

	if err := e.cache.SetJSON(ctx, host.Name, next, alertStateTTL); err != nil {
		e.logger.WarnContext(ctx, "alert state cache write failed", "host", host.Name, "error", err)
	}
	return nil
}

func (e *Engine) loadState(ctx context.Context, hostName string) State {
	var s State
	ok, err := e.cache.GetJSON(ctx, hostName, &s)
	if err != nil {
		e.logger.WarnContext(ctx, "alert state cache read failed", "host", hostName, "error", err)
	}
	if !ok || s.Disk == nil {
		s = newState()
	}
	return s
}

func (e *Engine) sendAndRecord(ctx context.Context, host *repository.Host, items []item, status string, now int64) {
	subject := fmt.Sprintf("[monitord] %s: %d alert(s) %s", host.Name, len(items), status)
	var body strings.Builder
	fmt.Fprintf(&body, "Host: %s\nStatus: %s\n\n", host.Name, status)
	for _, it := range items {
		body.WriteString(it.message())
		body.WriteByte('\n')
	}

	e.deliver(ctx, host.Name, subject, body.String())

	for _, it := range items {
		rec := &repository.AlertRecord{
			HostID:     host.ID,
			AlertType:  it.alertType,
			MetricType: it.metricType,
			Status:     status,
			Value:      it.value,
			Threshold:  it.threshold,
			Message:    it.message(),
			Recipients: e.recipients,
			SentAt:     now,
		}
		if status == repository.AlertStatusResolved {
			rec.ResolvedAt = &now
		}
		if _, err := e.store.AlertRecords().Insert(ctx, rec); err != nil {
			e.logger.ErrorContext(ctx, "write alert record failed", "host", host.Name, "alert_type", it.alertType, "error", err)
		}
	}
}

func (e *Engine) deliver(ctx context.Context, host, subject, body string) {
	for _, to := range e.recipients {
		req := notifier.EmailRequest{To: to, Subject: subject, Body: body}
		if err := e.notifier.SendEmail(ctx, req); err != nil {
			e.logger.ErrorContext(ctx, "alert email send failed", "host", host, "to", to, "error", err)
		}
	}
}
