package bootstrap

import (
	"net/http"
	"time"
)

// NewHTTPServer constructs the API server with timeouts sized for the
// monitoring workload: heartbeat and sample ingestion are small, frequent
// writes, while metric-history and bulk anomaly-resolution reads can scan a
// wide SQLite range and need more headroom than a typical CRUD endpoint.
func NewHTTPServer(cfg *Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20, // 1 MiB
	}
}
