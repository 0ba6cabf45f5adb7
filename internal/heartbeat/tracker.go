package heartbeat

import (
	"context"
	"log/slog"
	"time"

	"github.com/creamcroissant/monitord/internal/alert"
	"github.com/creamcroissant/monitord/internal/cache"
	"github.com/creamcroissant/monitord/internal/repository"
	"github.com/creamcroissant/monitord/internal/sshexec"
)

const (
	latestSampleTTL  = 5 * time.Minute
	appHeartbeatTTL  = 5 * time.Minute
	baseGraceSeconds = 60
	adaptiveGraceSeconds = 600
	appStaleSeconds      = 300
	probeTimeout         = 5 * time.Second
)

// Tracker owns both halves of the spec's heartbeat component: the pull
// path, a short SSH probe the scheduler runs on a fixed cadence per host,
// and the push path, an idempotent upsert driven by an agent's own HTTP
// call. Both paths write through the same repository.HeartbeatRepository
// so Status() never has to know which one last updated a host.
type Tracker struct {
	store  repository.Store
	cache  cache.Store
	ssh    *sshexec.Executor
	alerts *alert.Engine
	logger *slog.Logger
}

// New builds a Tracker.
func New(store repository.Store, cacheStore cache.Store, ssh *sshexec.Executor, alerts *alert.Engine, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{store: store, cache: cacheStore, ssh: ssh, alerts: alerts, logger: logger}
}

// ProbeOnce opens a short SSH session against host to confirm liveness,
// the scheduler's heartbeat-probe job body. Success upserts the
// heartbeat; failure increments the consecutive-miss counter and may
// surface a CONNECTION alert through the edge-triggered engine hook.
func (t *Tracker) ProbeOnce(ctx context.Context, host *repository.Host) error {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	target := sshexec.Target{Address: host.IPAddress, Port: host.Port, Username: host.Username}
	client, err := t.ssh.Dial(ctx, target)
	reachable := err == nil
	if reachable {
		client.Close()
	}

	if reachable {
		now := time.Now().Unix()
		if upsertErr := t.store.Heartbeats().Upsert(ctx, &repository.Heartbeat{
			HostID:          host.ID,
			LastHeartbeatAt: now,
			Source:          repository.HeartbeatSourcePull,
		}); upsertErr != nil {
			t.logger.ErrorContext(ctx, "heartbeat upsert failed", "host", host.Name, "error", upsertErr)
		}
	} else {
		if _, incErr := t.store.Heartbeats().IncrementMisses(ctx, host.ID); incErr != nil {
			t.logger.WarnContext(ctx, "heartbeat miss increment failed", "host", host.Name, "error", incErr)
		}
	}

	if t.alerts != nil {
		if alertErr := t.alerts.EvaluateConnection(ctx, host, reachable); alertErr != nil {
			t.logger.ErrorContext(ctx, "connection alert evaluation failed", "host", host.Name, "error", alertErr)
		}
	}
	return nil
}

// RecordPush handles the agent push path: POST /api/heartbeat/{host}.
// Idempotent by design — repeating the same timestamp just rewrites the
// same row, matching the repository's Upsert contract.
func (t *Tracker) RecordPush(ctx context.Context, host *repository.Host, agentVersion string) error {
	return t.store.Heartbeats().Upsert(ctx, &repository.Heartbeat{
		HostID:          host.ID,
		LastHeartbeatAt: time.Now().Unix(),
		Source:          repository.HeartbeatSourcePush,
		AgentVersion:    agentVersion,
	})
}

// TouchAppHeartbeat is the scheduler's app-heartbeat job body: it stamps
// the monitoring process's own liveness into the cache and the durable
// store every tick, the signal Status() uses to widen its grace period
// when the app itself — not the remote host — was the thing that was down.
func (t *Tracker) TouchAppHeartbeat(ctx context.Context) error {
	now := time.Now().Unix()
	if err := t.store.Heartbeats().TouchAppHeartbeat(ctx, now); err != nil {
		return err
	}
	if err := t.cache.Set(ctx, "app_heartbeat", now, appHeartbeatTTL); err != nil {
		t.logger.WarnContext(ctx, "app heartbeat cache write failed", "error", err)
	}
	return nil
}
