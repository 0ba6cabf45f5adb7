package heartbeat

import (
	"context"
	"time"

	"github.com/creamcroissant/monitord/internal/cache"
	"github.com/creamcroissant/monitord/internal/repository"
)

// Status computes the tri-state health of host per the spec's §4.G
// algorithm: suspended hosts are always offline; the staleness threshold
// for "has this host's heartbeat gone quiet" widens from 60s to 600s
// whenever the monitoring app's own heartbeat is missing or stale,
// because a stale app heartbeat means the apparent host silence might
// just be us, not them.
func Status(ctx context.Context, store repository.Store, cacheStore cache.Store, host *repository.Host) (repository.Status, error) {
	cfg, err := store.MonitoringConfigs().FindByHostID(ctx, host.ID)
	if err != nil {
		return "", err
	}
	if cfg.Suspended {
		return repository.StatusOffline, nil
	}

	now := time.Now().Unix()
	threshold := int64(baseGraceSeconds)
	if appDown(ctx, cacheStore, now) {
		threshold = adaptiveGraceSeconds
	}

	hb, err := store.Heartbeats().FindByHostID(ctx, host.ID)
	if err != nil {
		if err == repository.ErrNotFound {
			return repository.StatusOffline, nil
		}
		return "", err
	}
	if now-hb.LastHeartbeatAt > threshold {
		return repository.StatusOffline, nil
	}

	unresolved, err := store.Anomalies().UnresolvedCount(ctx, host.ID)
	if err != nil {
		return "", err
	}
	if unresolved > 0 {
		return repository.StatusWarning, nil
	}

	open, err := anyChannelOpen(ctx, store, host.ID)
	if err != nil {
		return "", err
	}
	if open {
		return repository.StatusWarning, nil
	}
	return repository.StatusOnline, nil
}

// channelKey names one alert channel's (alert_type, metric_type) pair as
// stored on AlertRecord rows. Each channel's rows form an append-only
// trigger/resolve sequence, never mutated in place, so "is this channel
// currently alerting" means "is its most recent row a trigger".
type channelKey struct{ alertType, metricType string }

var monitoredChannels = []channelKey{
	{repository.AlertTypeCPU, repository.MetricTypeCPU},
	{repository.AlertTypeMemory, repository.MetricTypeMemory},
	{repository.AlertTypeDisk, repository.MetricTypeDisk},
	{repository.AlertTypeDiskIO, repository.MetricTypeDisk},
	{repository.AlertTypeNetworkIO, repository.MetricTypeNetwork},
	{repository.AlertTypeConnection, ""},
	{repository.AlertTypeService, ""},
}

func anyChannelOpen(ctx context.Context, store repository.Store, hostID int64) (bool, error) {
	for _, ch := range monitoredChannels {
		rec, err := store.AlertRecords().LastForChannel(ctx, hostID, ch.alertType, ch.metricType)
		if err != nil {
			if err == repository.ErrNotFound {
				continue
			}
			return false, err
		}
		if rec.Status == repository.AlertStatusTriggered {
			return true, nil
		}
	}
	return false, nil
}

// appDown reports whether the monitoring process's own heartbeat is
// missing or older than the staleness cutoff, at which point the host's
// grace period should widen rather than declare every host offline at once.
func appDown(ctx context.Context, cacheStore cache.Store, now int64) bool {
	raw, ok := cacheStore.Get(ctx, "app_heartbeat")
	if !ok {
		return true
	}
	seenAt, ok := raw.(int64)
	if !ok {
		return true
	}
	return now-seenAt > appStaleSeconds
}
