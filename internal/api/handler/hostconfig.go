package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
	"github.com/creamcroissant/monitord/internal/security"
)

// HostConfigHandler serves the per-host tuning mutations: thresholds,
// monitored disks, suspend/resume, and alert suppression.
type HostConfigHandler struct {
	store  repository.Store
	audit  security.Recorder
	logger *slog.Logger
}

// NewHostConfigHandler builds a HostConfigHandler.
func NewHostConfigHandler(store repository.Store, audit security.Recorder, logger *slog.Logger) *HostConfigHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HostConfigHandler{store: store, audit: audit, logger: logger}
}

// thresholdsRequest is the POST /api/server/{id}/thresholds body. Zero is
// a valid value for every field (a 0% threshold is unusual but not
// invalid), so the handler always overwrites the full set rather than
// merging field-by-field.
type thresholdsRequest struct {
	CPUThreshold          float64 `json:"cpu_threshold"`
	MemoryThreshold       float64 `json:"memory_threshold"`
	DiskThreshold         float64 `json:"disk_threshold"`
	DiskIOThresholdMBs    float64 `json:"disk_io_threshold_mbs"`
	NetworkIOThresholdMBs float64 `json:"network_io_threshold_mbs"`
}

// Thresholds handles POST /api/server/{id}/thresholds.
func (h *HostConfigHandler) Thresholds(w http.ResponseWriter, r *http.Request) {
	host, ok := resolveHost(w, r, h.store)
	if !ok {
		return
	}
	var req thresholdsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	cfg, err := h.store.MonitoringConfigs().FindByHostID(ctx, host.ID)
	if err != nil {
		respondFromErr(w, err)
		return
	}

	before := map[string]any{
		"cpu_threshold": cfg.CPUThreshold, "memory_threshold": cfg.MemoryThreshold,
		"disk_threshold": cfg.DiskThreshold, "disk_io_threshold_mbs": cfg.DiskIOThresholdMBs,
		"network_io_threshold_mbs": cfg.NetworkIOThresholdMBs,
	}

	cfg.CPUThreshold = req.CPUThreshold
	cfg.MemoryThreshold = req.MemoryThreshold
	cfg.DiskThreshold = req.DiskThreshold
	cfg.DiskIOThresholdMBs = req.DiskIOThresholdMBs
	cfg.NetworkIOThresholdMBs = req.NetworkIOThresholdMBs

	if err := h.store.MonitoringConfigs().UpdateThresholds(ctx, cfg); err != nil {
		respondFromErr(w, err)
		return
	}

	h.recordAudit(ctx, "config.thresholds", host.ID, before, map[string]any{
		"cpu_threshold": req.CPUThreshold, "memory_threshold": req.MemoryThreshold,
		"disk_threshold": req.DiskThreshold, "disk_io_threshold_mbs": req.DiskIOThresholdMBs,
		"network_io_threshold_mbs": req.NetworkIOThresholdMBs,
	})
	respondJSON(w, http.StatusOK, cfg)
}

// monitoredDisksRequest is the POST /api/server/{id}/monitored-disks body.
type monitoredDisksRequest struct {
	Mounts []string `json:"mounts"`
}

// MonitoredDisks handles POST /api/server/{id}/monitored-disks.
func (h *HostConfigHandler) MonitoredDisks(w http.ResponseWriter, r *http.Request) {
	host, ok := resolveHost(w, r, h.store)
	if !ok {
		return
	}
	var req monitoredDisksRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	cfg, err := h.store.MonitoringConfigs().FindByHostID(ctx, host.ID)
	if err != nil {
		respondFromErr(w, err)
		return
	}

	before := append([]string(nil), cfg.MonitoredDisks...)
	cfg.MonitoredDisks = req.Mounts
	if err := h.store.MonitoringConfigs().Upsert(ctx, cfg); err != nil {
		respondFromErr(w, err)
		return
	}

	h.recordAudit(ctx, "config.monitored_disks", host.ID,
		map[string]any{"mounts": before}, map[string]any{"mounts": req.Mounts})
	respondJSON(w, http.StatusOK, cfg)
}

// Suspend handles POST /api/server/{id}/monitoring/suspend.
func (h *HostConfigHandler) Suspend(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, true)
}

// Resume handles POST /api/server/{id}/monitoring/resume.
func (h *HostConfigHandler) Resume(w http.ResponseWriter, r *http.Request) {
	h.setSuspended(w, r, false)
}

func (h *HostConfigHandler) setSuspended(w http.ResponseWriter, r *http.Request, suspended bool) {
	host, ok := resolveHost(w, r, h.store)
	if !ok {
		return
	}
	ctx := r.Context()
	if err := h.store.MonitoringConfigs().SetSuspended(ctx, host.ID, suspended); err != nil {
		respondFromErr(w, err)
		return
	}
	kind := "config.suspend"
	if !suspended {
		kind = "config.resume"
	}
	h.recordAudit(ctx, kind, host.ID, nil, map[string]any{"suspended": suspended})
	respondJSON(w, http.StatusOK, map[string]any{"host_id": host.ID, "suspended": suspended})
}

// SuppressAlerts handles POST /api/server/{id}/alerts/suppress.
func (h *HostConfigHandler) SuppressAlerts(w http.ResponseWriter, r *http.Request) {
	h.setAlertsSuppressed(w, r, true)
}

// ResumeAlerts handles POST /api/server/{id}/alerts/resume.
func (h *HostConfigHandler) ResumeAlerts(w http.ResponseWriter, r *http.Request) {
	h.setAlertsSuppressed(w, r, false)
}

func (h *HostConfigHandler) setAlertsSuppressed(w http.ResponseWriter, r *http.Request, suppressed bool) {
	host, ok := resolveHost(w, r, h.store)
	if !ok {
		return
	}
	ctx := r.Context()
	if err := h.store.MonitoringConfigs().SetAlertsSuppressed(ctx, host.ID, suppressed); err != nil {
		respondFromErr(w, err)
		return
	}
	kind := "config.alerts_suppress"
	if !suppressed {
		kind = "config.alerts_resume"
	}
	h.recordAudit(ctx, kind, host.ID, nil, map[string]any{"alerts_suppressed": suppressed})
	respondJSON(w, http.StatusOK, map[string]any{"host_id": host.ID, "alerts_suppressed": suppressed})
}

func (h *HostConfigHandler) recordAudit(ctx context.Context, kind string, hostID int64, before, after map[string]any) {
	if h.audit == nil {
		return
	}
	h.audit.Record(ctx, security.Event{
		Kind: kind, ActorID: actorFromContext(ctx), HostID: hostID,
		Metadata: map[string]any{"before": before, "after": after}, Occurred: time.Now().UTC(),
	})
}
