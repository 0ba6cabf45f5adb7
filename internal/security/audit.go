package security

import (
	"context"
	"io"
	"log/slog"
	"time"
)

// Event represents an operator action worth auditing: threshold changes,
// suspend/resume toggles, and anomaly resolutions.
type Event struct {
	Kind      string
	ActorID   string
	HostID    int64
	Metadata  map[string]any
	Occurred  time.Time
}

// Recorder persists audit events for later review.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// LoggerRecorder writes audit events to a slog.Logger. Used as a fallback
// when no durable audit store is wired, and alongside the durable store so
// operators can tail events live.
type LoggerRecorder struct {
	logger *slog.Logger
}

// NewLoggerRecorder returns a recorder writing to logger (discarding if nil).
func NewLoggerRecorder(logger *slog.Logger) *LoggerRecorder {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &LoggerRecorder{logger: logger}
}

// Record implements Recorder.
func (r *LoggerRecorder) Record(ctx context.Context, event Event) {
	if r == nil || r.logger == nil {
		return
	}
	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}
	r.logger.InfoContext(ctx, "audit event",
		"kind", event.Kind,
		"actor_id", event.ActorID,
		"host_id", event.HostID,
		"metadata", event.Metadata,
		"occurred", event.Occurred.Format(time.RFC3339Nano),
	)
}
