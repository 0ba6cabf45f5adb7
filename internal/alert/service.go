package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
)

const serviceAlertSentTTL = time.Hour

// EvaluateService records a single service check result and applies the
// service alert rule: an alert fires after two consecutive failed checks
// (30s apart at the default cadence, so about 60s of failure), or
// immediately when systemd itself
// reports the unit as "failed" rather than merely stopped/unreachable. An
// alert is sent at most once per failure episode, tracked by the
// service_alert_sent cache flag; recovery sends a single SERVICE resolved
// email and clears it.
func (e *Engine) EvaluateService(ctx context.Context, host *repository.Host, svc *repository.Service, status string, systemdFailed bool) error {
	cfg, err := e.store.MonitoringConfigs().FindByHostID(ctx, host.ID)
	if err != nil {
		return newError(KindConfigError, host.Name, err)
	}
	if !cfg.Enabled || cfg.Suspended || cfg.AlertsSuppressed {
		return nil
	}

	now := time.Now().Unix()
	if err := e.store.Services().UpdateStatus(ctx, svc.ID, status, now); err != nil {
		e.logger.ErrorContext(ctx, "update service status failed", "host", host.Name, "service", svc.Name, "error", err)
	}

	flagKey := fmt.Sprintf("%s/%s", host.Name, svc.Name)
	sentCache := e.cache.Namespace("service_alert_sent")

	if status == repository.ServiceStatusRunning {
		e.store.Services().ResetFailures(ctx, svc.ID)
		if _, sent := sentCache.GetBytes(ctx, flagKey); sent {
			e.sendServiceAlert(ctx, host, svc, "resolved", now)
			sentCache.Delete(ctx, flagKey)
		}
		return nil
	}

	failures, err := e.store.Services().IncrementFailures(ctx, svc.ID)
	if err != nil {
		e.logger.ErrorContext(ctx, "increment service failures failed", "host", host.Name, "service", svc.Name, "error", err)
	}

	if _, alreadySent := sentCache.GetBytes(ctx, flagKey); alreadySent {
		return nil
	}

	if systemdFailed || failures >= 2 {
		e.sendServiceAlert(ctx, host, svc, "triggered", now)
		_ = sentCache.SetBytes(ctx, flagKey, []byte{1}, serviceAlertSentTTL)
	}
	return nil
}

func (e *Engine) sendServiceAlert(ctx context.Context, host *repository.Host, svc *repository.Service, status string, now int64) {
	subject := fmt.Sprintf("[monitord] %s: SERVICE %s %s", host.Name, svc.Name, status)
	body := fmt.Sprintf("Host: %s\nService: %s\nStatus: %s\n", host.Name, svc.Name, status)
	e.deliver(ctx, host.Name, subject, body)

	recordStatus := repository.AlertStatusTriggered
	if status == "resolved" {
		recordStatus = repository.AlertStatusResolved
	}
	rec := &repository.AlertRecord{
		HostID:     host.ID,
		AlertType:  repository.AlertTypeService,
		MetricType: "",
		Status:     recordStatus,
		Message:    fmt.Sprintf("SERVICE %s %s", svc.Name, status),
		Recipients: e.recipients,
		SentAt:     now,
	}
	if status == "resolved" {
		rec.ResolvedAt = &now
	}
	if _, err := e.store.AlertRecords().Insert(ctx, rec); err != nil {
		e.logger.ErrorContext(ctx, "write service alert record failed", "host", host.Name, "service", svc.Name, "error", err)
	}
}
