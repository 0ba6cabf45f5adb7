package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
)

// historyAnomalyLookback bounds how many of the host's most recent
// anomalies are considered for the overlay before filtering by window;
// generous enough to cover a 90-day-busy host without an unbounded scan.
const historyAnomalyLookback = 1000

// MetricHistoryHandler serves the chart-oriented CPU/memory/disk series
// with an anomaly overlay, distinct from ServerMetrics which serves the
// full multi-metric downsampled sample rows.
type MetricHistoryHandler struct {
	store  repository.Store
	logger *slog.Logger
}

// NewMetricHistoryHandler builds a MetricHistoryHandler.
func NewMetricHistoryHandler(store repository.Store, logger *slog.Logger) *MetricHistoryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MetricHistoryHandler{store: store, logger: logger}
}

type historyPoint struct {
	Timestamp  int64   `json:"timestamp"`
	CPUPercent float64 `json:"cpu_percent"`
	MemPercent float64 `json:"memory_percent"`
	MaxDisk    float64 `json:"max_disk_percent"`
}

type anomalyOverlayPoint struct {
	Timestamp  int64   `json:"timestamp"`
	MetricType string  `json:"metric_type"`
	MetricName string  `json:"metric_name"`
	Value      float64 `json:"value"`
	Severity   string  `json:"severity"`
}

// History handles GET /api/server/{id}/metric-history?range=1h|7d|1m|3m.
func (h *MetricHistoryHandler) History(w http.ResponseWriter, r *http.Request) {
	host, ok := resolveHost(w, r, h.store)
	if !ok {
		return
	}
	window, err := parseHistoryRange(r.URL.Query().Get("range"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	now := time.Now().Unix()
	from := time.Now().Add(-window).Unix()

	samples, err := h.store.Samples().Window(ctx, host.ID, from, now)
	if err != nil {
		respondFromErr(w, err)
		return
	}
	points := make([]historyPoint, 0, len(samples))
	for _, s := range samples {
		points = append(points, historyPoint{
			Timestamp:  s.CollectedAt,
			CPUPercent: s.CPUPercent,
			MemPercent: s.MemoryPercent,
			MaxDisk:    s.MaxDiskPercent(),
		})
	}

	anomalies, err := h.store.Anomalies().RecentForHost(ctx, host.ID, historyAnomalyLookback)
	if err != nil {
		h.logger.ErrorContext(ctx, "anomaly overlay lookup failed", "host", host.Name, "error", err)
		anomalies = nil
	}
	overlay := make([]anomalyOverlayPoint, 0, len(anomalies))
	for _, a := range anomalies {
		if a.CreatedAt < from || a.CreatedAt > now {
			continue
		}
		overlay = append(overlay, anomalyOverlayPoint{
			Timestamp: a.CreatedAt, MetricType: a.MetricType, MetricName: a.MetricName,
			Value: a.MetricValue, Severity: a.Severity,
		})
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"host_id":   host.ID,
		"points":    points,
		"anomalies": overlay,
	})
}
