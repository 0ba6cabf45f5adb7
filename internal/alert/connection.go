package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
)

const connectionStateTTL = time.Hour

// connectionState is the cached "was the last probe reachable" flag used
// to edge-trigger CONNECTION alerts instead of firing on every tick a
// host stays down.
type connectionState struct {
	Reachable bool `json:"reachable"`
}

// EvaluateConnection is called by the heartbeat tracker after every SSH
// probe. It emits a CONNECTION offline alert on the first failure after a
// success, and CONNECTION online on the first success after an outage.
// Suppression rules (suspended/alerts_suppressed) apply exactly as they
// do for metric channels; in addition, while a 60s quiet window opened by
// MarkQuietWindow is active, connection alerts are muted. Nothing in this
// module calls MarkQuietWindow: the suspend and resume endpoints do not
// open a quiet window.
func (e *Engine) EvaluateConnection(ctx context.Context, host *repository.Host, reachable bool) error {
	cfg, err := e.store.MonitoringConfigs().FindByHostID(ctx, host.ID)
	if err != nil {
		return newError(KindConfigError, host.Name, err)
	}
	if !cfg.Enabled || cfg.Suspended || cfg.AlertsSuppressed {
		return nil
	}

	connCache := e.cache.Namespace("connection_state")
	var state connectionState
	ok, _ := connCache.GetJSON(ctx, host.Name, &state)
	wasReachable := !ok || state.Reachable // treat unknown history as reachable, so the very first probe never alerts

	if reachable == wasReachable {
		_ = connCache.SetJSON(ctx, host.Name, connectionState{Reachable: reachable}, connectionStateTTL)
		return nil
	}

	if e.inQuietWindow(ctx, host.Name) {
		_ = connCache.SetJSON(ctx, host.Name, connectionState{Reachable: reachable}, connectionStateTTL)
		return nil
	}

	status := "offline"
	if reachable {
		status = "online"
	}
	now := time.Now().Unix()
	it := item{alertType: repository.AlertTypeConnection, metricType: "", value: boolToFloat(!reachable), threshold: 0}
	subject := fmt.Sprintf("[monitord] %s: CONNECTION %s", host.Name, status)
	body := fmt.Sprintf("Host: %s\nCONNECTION %s\n", host.Name, status)
	e.deliver(ctx, host.Name, subject, body)

	rec := &repository.AlertRecord{
		HostID:     host.ID,
		AlertType:  repository.AlertTypeConnection,
		MetricType: it.metricType,
		Status:     connectionAlertStatus(status),
		Value:      it.value,
		Message:    fmt.Sprintf("CONNECTION %s", status),
		Recipients: e.recipients,
		SentAt:     now,
	}
	if status == "online" {
		rec.ResolvedAt = &now
	}
	if _, err := e.store.AlertRecords().Insert(ctx, rec); err != nil {
		e.logger.ErrorContext(ctx, "write connection alert record failed", "host", host.Name, "error", err)
	}

	_ = connCache.SetJSON(ctx, host.Name, connectionState{Reachable: reachable}, connectionStateTTL)
	return nil
}

// connectionAlertStatus maps the human status word onto the
// triggered/resolved vocabulary AlertRecord.Status uses everywhere else:
// going offline is a trigger, coming back online resolves it.
func connectionAlertStatus(status string) string {
	if status == "online" {
		return repository.AlertStatusResolved
	}
	return repository.AlertStatusTriggered
}

// MarkQuietWindow opens a 60-second window during which connection alerts
// for hostName are muted. It has no caller in this module; the suspend and
// resume handlers do not invoke it.
func (e *Engine) MarkQuietWindow(ctx context.Context, hostName string) {
	_ = e.cache.Namespace("quiet_window").SetBytes(ctx, hostName, []byte{1}, quietWindowTTL)
}

func (e *Engine) inQuietWindow(ctx context.Context, hostName string) bool {
	_, ok := e.cache.Namespace("quiet_window").GetBytes(ctx, hostName)
	return ok
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
