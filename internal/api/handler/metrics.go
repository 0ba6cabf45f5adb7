package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/creamcroissant/monitord/internal/cache"
	"github.com/creamcroissant/monitord/internal/repository"
)

const liveMetricsTTL = 10 * time.Second

// MetricsHandler serves the live, ranged, and per-io-channel sample
// endpoints. All reads go through Store directly except live-metrics,
// which is cache-through since it's polled far more often than the
// underlying samples change.
type MetricsHandler struct {
	store  repository.Store
	cache  cache.Store
	logger *slog.Logger
}

// NewMetricsHandler builds a MetricsHandler.
func NewMetricsHandler(store repository.Store, cacheStore cache.Store, logger *slog.Logger) *MetricsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricsHandler{store: store, cache: cacheStore.Namespace("live_metrics"), logger: logger}
}

// liveMetricEntry is one host's newest sample as served by LiveMetrics.
type liveMetricEntry struct {
	HostID int64              `json:"host_id"`
	Host   string             `json:"host"`
	Status repository.Status  `json:"status,omitempty"`
	Sample *repository.Sample `json:"sample"`
}

// LiveMetrics handles GET /api/live-metrics: the newest sample for every
// host, read through a short-lived cache since dashboards poll this
// endpoint on the order of seconds.
func (h *MetricsHandler) LiveMetrics(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var cached []liveMetricEntry
	if ok, _ := h.cache.GetJSON(ctx, "all", &cached); ok {
		respondJSON(w, http.StatusOK, cached)
		return
	}

	hosts, err := h.store.Hosts().List(ctx)
	if err != nil {
		respondFromErr(w, err)
		return
	}

	entries := make([]liveMetricEntry, 0, len(hosts))
	for _, host := range hosts {
		sample, err := h.store.Samples().Latest(ctx, host.ID)
		if err != nil && err != repository.ErrNotFound {
			h.logger.ErrorContext(ctx, "latest sample lookup failed", "host", host.Name, "error", err)
			continue
		}
		entries = append(entries, liveMetricEntry{HostID: host.ID, Host: host.Name, Sample: sample})
	}

	if err := h.cache.SetJSON(ctx, "all", entries, liveMetricsTTL); err != nil {
		h.logger.WarnContext(ctx, "live metrics cache write failed", "error", err)
	}
	respondJSON(w, http.StatusOK, entries)
}

// ServerMetrics handles GET /api/server/{id}/metrics?range=1h|24h|7d|30d|90d:
// the host's sample history within the window, downsampled with spike
// preservation so a long window never balloons the response body.
func (h *MetricsHandler) ServerMetrics(w http.ResponseWriter, r *http.Request) {
	host, ok := resolveHost(w, r, h.store)
	if !ok {
		return
	}
	window, err := parseMetricsRange(r.URL.Query().Get("range"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	samples, err := h.windowSamples(r.Context(), host.ID, window)
	if err != nil {
		respondFromErr(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"host_id": host.ID,
		"samples": downsampleWithSpikes(samples),
	})
}

// DiskIO handles GET /api/server/{id}/disk-io?range=…, returning the raw
// (non-downsampled) read/write throughput series for the window.
func (h *MetricsHandler) DiskIO(w http.ResponseWriter, r *http.Request) {
	host, ok := resolveHost(w, r, h.store)
	if !ok {
		return
	}
	window, err := parseMetricsRange(r.URL.Query().Get("range"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	samples, err := h.windowSamples(r.Context(), host.ID, window)
	if err != nil {
		respondFromErr(w, err)
		return
	}

	type point struct {
		Timestamp int64   `json:"timestamp"`
		ReadBps   float64 `json:"read_bytes_per_sec"`
		WriteBps  float64 `json:"write_bytes_per_sec"`
	}
	points := make([]point, 0, len(samples))
	for _, s := range samples {
		points = append(points, point{Timestamp: s.CollectedAt, ReadBps: s.DiskIOReadBytesPerSec, WriteBps: s.DiskIOWriteBytesPerSec})
	}
	respondJSON(w, http.StatusOK, map[string]any{"host_id": host.ID, "points": points})
}

// NetworkIO handles GET /api/server/{id}/network-io?range=….
func (h *MetricsHandler) NetworkIO(w http.ResponseWriter, r *http.Request) {
	host, ok := resolveHost(w, r, h.store)
	if !ok {
		return
	}
	window, err := parseMetricsRange(r.URL.Query().Get("range"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	samples, err := h.windowSamples(r.Context(), host.ID, window)
	if err != nil {
		respondFromErr(w, err)
		return
	}

	type point struct {
		Timestamp int64   `json:"timestamp"`
		RecvBps   float64 `json:"recv_bytes_per_sec"`
		SentBps   float64 `json:"sent_bytes_per_sec"`
	}
	points := make([]point, 0, len(samples))
	for _, s := range samples {
		points = append(points, point{Timestamp: s.CollectedAt, RecvBps: s.NetIORecvBytesPerSec, SentBps: s.NetIOSentBytesPerSec})
	}
	respondJSON(w, http.StatusOK, map[string]any{"host_id": host.ID, "points": points})
}

func (h *MetricsHandler) windowSamples(ctx context.Context, hostID int64, window time.Duration) ([]*repository.Sample, error) {
	now := time.Now().Unix()
	from := time.Now().Add(-window).Unix()
	return h.store.Samples().Window(ctx, hostID, from, now)
}
