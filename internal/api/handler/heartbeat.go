package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/creamcroissant/monitord/internal/heartbeat"
	"github.com/creamcroissant/monitord/internal/repository"
	"github.com/creamcroissant/monitord/internal/security"
)

// heartbeatPushWindow and heartbeatPushLimit bound the agent push
// endpoint to once per 30 seconds per host, the spec's default; a push
// outside the window is dropped rather than rejected with an error, since
// a chatty agent retrying on a timer is not an operator mistake.
const (
	heartbeatPushWindow = 30 * time.Second
	heartbeatPushLimit  = 1
)

// HeartbeatHandler serves the agent's push-path liveness endpoint.
type HeartbeatHandler struct {
	store   repository.Store
	tracker *heartbeat.Tracker
	limiter *security.RateLimiter
	logger  *slog.Logger
}

// NewHeartbeatHandler builds a HeartbeatHandler.
func NewHeartbeatHandler(store repository.Store, tracker *heartbeat.Tracker, limiter *security.RateLimiter, logger *slog.Logger) *HeartbeatHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HeartbeatHandler{store: store, tracker: tracker, limiter: limiter, logger: logger}
}

type heartbeatPushRequest struct {
	AgentVersion string `json:"agent_version,omitempty"`
}

// Push handles POST /api/heartbeat/{id}.
func (h *HeartbeatHandler) Push(w http.ResponseWriter, r *http.Request) {
	host, ok := resolveHost(w, r, h.store)
	if !ok {
		return
	}

	var req heartbeatPushRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	ctx := r.Context()
	if h.limiter != nil {
		key := "heartbeat_push:" + host.Name
		result, err := h.limiter.Allow(ctx, key, heartbeatPushLimit, heartbeatPushWindow)
		if err != nil {
			h.logger.WarnContext(ctx, "heartbeat rate limiter error, allowing push", "host", host.Name, "error", err)
		} else if !result.Allowed {
			respondJSON(w, http.StatusOK, map[string]any{"accepted": false, "reason": "rate_limited"})
			return
		}
	}

	if err := h.tracker.RecordPush(ctx, host, req.AgentVersion); err != nil {
		respondFromErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"accepted": true})
}
