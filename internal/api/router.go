// Package api wires the monitoring read/write HTTP surface: live and
// ranged metrics, anomaly status and resolution, heartbeat ingestion, and
// the per-host tuning endpoints, behind the same middleware stack
// (request ID, Prometheus metrics, CORS, body limit, rate limit,
// structured logging, recovery) used across the module's HTTP listeners.
package api

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/creamcroissant/monitord/internal/api/handler"
	"github.com/creamcroissant/monitord/internal/api/middleware"
	"github.com/creamcroissant/monitord/internal/cache"
	"github.com/creamcroissant/monitord/internal/config"
	"github.com/creamcroissant/monitord/internal/heartbeat"
	"github.com/creamcroissant/monitord/internal/migrations"
	"github.com/creamcroissant/monitord/internal/repository"
	"github.com/creamcroissant/monitord/internal/security"
	"github.com/creamcroissant/monitord/internal/status"
)

// Services bundles the domain components the read API's handlers call
// into. It is built once at process startup from bootstrap.Infrastructure
// and passed to NewRouter, keeping this package free of any dependency on
// the bootstrap wiring package itself.
type Services struct {
	Store       repository.Store
	Cache       cache.Store
	Status      *status.Service
	Heartbeats  *heartbeat.Tracker
	RateLimiter *security.RateLimiter
	Audit       security.Recorder
	DB          *sql.DB
}

var skipPaths = []string{"/health", "/healthz", "/_internal/ready", "/metrics"}

// NewRouter builds the full chi router for the monitoring API.
func NewRouter(logger *slog.Logger, svc Services, metricsCfg config.MetricsConfig, secCfg config.SecurityConfig) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if svc.Store == nil {
		panic("router requires a Store")
	}

	r := chi.NewRouter()

	mCfg := middleware.DefaultMetricsConfig()
	if metricsCfg.Namespace != "" {
		mCfg.Namespace = metricsCfg.Namespace
	}
	if metricsCfg.Subsystem != "" {
		mCfg.Subsystem = metricsCfg.Subsystem
	}
	if len(metricsCfg.Buckets) > 0 {
		mCfg.Buckets = metricsCfg.Buckets
	}
	var metrics *middleware.Metrics
	if metricsCfg.Enabled {
		metrics = middleware.NewMetrics(mCfg)
	}

	r.Use(chiMiddleware.RequestID, chiMiddleware.RealIP)
	if metricsCfg.Enabled {
		r.Use(metrics.Middleware(mCfg))
	}

	corsCfg := middleware.DefaultCORSConfig()
	if len(secCfg.AllowedOrigins) > 0 {
		corsCfg.AllowedOrigins = secCfg.AllowedOrigins
	}
	bodyLimitCfg := middleware.DefaultBodyLimitConfig()
	if secCfg.BodyLimitBytes > 0 {
		bodyLimitCfg.MaxBytes = secCfg.BodyLimitBytes
	}
	rateLimitCfg := middleware.DefaultRateLimitConfig()
	rateLimitCfg.SkipPaths = skipPaths
	if secCfg.RateLimitPerMinute > 0 {
		rateLimitCfg.Limit = secCfg.RateLimitPerMinute
		rateLimitCfg.Window = time.Minute
	}

	r.Use(
		middleware.CORS(corsCfg),
		middleware.BodyLimit(bodyLimitCfg),
		middleware.RateLimit(rateLimitCfg),
		middleware.StructuredLogger(middleware.LoggingConfig{
			Logger:        logger,
			SlowThreshold: 500 * time.Millisecond,
			SkipPaths:     skipPaths,
		}),
		chiMiddleware.Recoverer,
		chiMiddleware.Compress(5),
	)

	r.Get("/healthz", healthHandler)
	r.Get("/health", healthHandler)
	r.Get("/_internal/ready", func(w http.ResponseWriter, _ *http.Request) {
		payload := map[string]any{"status": "ready"}
		if svc.DB != nil {
			if version, err := migrations.Version(svc.DB); err == nil {
				payload["schema_version"] = version
			}
		}
		respondJSON(w, http.StatusOK, payload)
	})

	if metricsCfg.Enabled {
		if metricsCfg.Token != "" {
			r.With(middleware.MetricsGuard(metricsCfg.Token)).Handle("/metrics", promhttp.Handler())
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}

	registerAPIRoutes(r, logger, svc)

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		logger.Warn("unmapped route hit", "method", req.Method, "path", req.URL.Path)
		http.NotFound(w, req)
	})

	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func registerAPIRoutes(root chi.Router, logger *slog.Logger, svc Services) {
	metricsHandler := handler.NewMetricsHandler(svc.Store, svc.Cache, logger)
	historyHandler := handler.NewMetricHistoryHandler(svc.Store, logger)
	anomalyHandler := handler.NewAnomalyHandler(svc.Store, svc.Status, svc.Audit, logger)
	heartbeatHandler := handler.NewHeartbeatHandler(svc.Store, svc.Heartbeats, svc.RateLimiter, logger)
	hostConfigHandler := handler.NewHostConfigHandler(svc.Store, svc.Audit, logger)

	root.Route("/api", func(api chi.Router) {
		api.Get("/live-metrics", metricsHandler.LiveMetrics)

		api.Route("/server/{id}", func(srv chi.Router) {
			srv.Get("/metrics", metricsHandler.ServerMetrics)
			srv.Get("/metric-history", historyHandler.History)
			srv.Get("/disk-io", metricsHandler.DiskIO)
			srv.Get("/network-io", metricsHandler.NetworkIO)
			srv.Get("/anomaly-status", anomalyHandler.Status)

			srv.Post("/thresholds", hostConfigHandler.Thresholds)
			srv.Post("/monitored-disks", hostConfigHandler.MonitoredDisks)
			srv.Post("/monitoring/suspend", hostConfigHandler.Suspend)
			srv.Post("/monitoring/resume", hostConfigHandler.Resume)
			srv.Post("/alerts/suppress", hostConfigHandler.SuppressAlerts)
			srv.Post("/alerts/resume", hostConfigHandler.ResumeAlerts)
		})

		heartbeatLimitCfg := middleware.DefaultRateLimitConfig()
		heartbeatLimitCfg.KeyFunc = middleware.HeartbeatKeyFunc
		api.With(middleware.RateLimit(heartbeatLimitCfg)).Post("/heartbeat/{id}", heartbeatHandler.Push)

		api.Post("/anomaly/{id}/resolve", anomalyHandler.Resolve)
		api.Post("/anomalies/bulk-resolve", anomalyHandler.BulkResolve)
	})
}
