package job

import (
	"context"
	"log/slog"
	"time"

	"github.com/creamcroissant/monitord/internal/heartbeat"
)

// AppHeartbeatJob stamps the monitoring process's own liveness on a fixed
// cadence. Status() widens every host's grace period whenever this
// heartbeat goes stale, since a stale app heartbeat means apparent host
// silence may just be us, not them.
type AppHeartbeatJob struct {
	tracker *heartbeat.Tracker
	logger  *slog.Logger
}

// NewAppHeartbeatJob builds an AppHeartbeatJob.
func NewAppHeartbeatJob(tracker *heartbeat.Tracker, logger *slog.Logger) *AppHeartbeatJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &AppHeartbeatJob{tracker: tracker, logger: logger}
}

func (j *AppHeartbeatJob) Name() string { return "app_heartbeat" }

func (j *AppHeartbeatJob) Timeout() time.Duration { return 5 * time.Second }

func (j *AppHeartbeatJob) Run(ctx context.Context) error {
	return j.tracker.TouchAppHeartbeat(ctx)
}
