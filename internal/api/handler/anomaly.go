package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
	"github.com/creamcroissant/monitord/internal/security"
	"github.com/creamcroissant/monitord/internal/status"
)

// AnomalyHandler serves the anomaly-status summary and the operator
// resolve/bulk-resolve mutations.
type AnomalyHandler struct {
	store  repository.Store
	status *status.Service
	audit  security.Recorder
	logger *slog.Logger
}

// NewAnomalyHandler builds an AnomalyHandler.
func NewAnomalyHandler(store repository.Store, statusSvc *status.Service, audit security.Recorder, logger *slog.Logger) *AnomalyHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &AnomalyHandler{store: store, status: statusSvc, audit: audit, logger: logger}
}

// Status handles GET /api/server/{id}/anomaly-status.
func (h *AnomalyHandler) Status(w http.ResponseWriter, r *http.Request) {
	host, ok := resolveHost(w, r, h.store)
	if !ok {
		return
	}
	summary, err := h.status.Summary(r.Context(), host)
	if err != nil {
		respondFromErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, summary)
}

// Resolve handles POST /api/anomaly/{id}/resolve.
func (h *AnomalyHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	id, ok := resolveAnomalyID(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	anomaly, err := h.store.Anomalies().FindByID(ctx, id)
	if err != nil {
		if err == repository.ErrNotFound {
			respondNotFound(w, "anomaly")
			return
		}
		respondFromErr(w, err)
		return
	}

	now := time.Now().Unix()
	if err := h.store.Anomalies().Resolve(ctx, id, now); err != nil {
		respondFromErr(w, err)
		return
	}

	h.recordAudit(ctx, "anomaly.resolve", anomaly.HostID, map[string]any{"anomaly_id": id})
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "resolved": true, "resolved_at": now})
}

// bulkResolveRequest is the POST /api/anomalies/bulk-resolve body.
type bulkResolveRequest struct {
	IDs []int64 `json:"ids"`
}

// BulkResolve handles POST /api/anomalies/bulk-resolve.
func (h *AnomalyHandler) BulkResolve(w http.ResponseWriter, r *http.Request) {
	var req bulkResolveRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.IDs) == 0 {
		respondError(w, http.StatusBadRequest, "ids must not be empty")
		return
	}

	ctx := r.Context()
	now := time.Now().Unix()
	count, err := h.store.Anomalies().BulkResolve(ctx, req.IDs, now)
	if err != nil {
		respondFromErr(w, err)
		return
	}

	h.recordAudit(ctx, "anomaly.bulk_resolve", 0, map[string]any{"ids": req.IDs, "resolved": count})
	respondJSON(w, http.StatusOK, map[string]any{"resolved": count, "resolved_at": now})
}

func (h *AnomalyHandler) recordAudit(ctx context.Context, kind string, hostID int64, metadata map[string]any) {
	if h.audit == nil {
		return
	}
	h.audit.Record(ctx, security.Event{
		Kind: kind, ActorID: actorFromContext(ctx), HostID: hostID,
		Metadata: metadata, Occurred: time.Now().UTC(),
	})
}
