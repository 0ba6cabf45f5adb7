package status

import (
	"context"
	"log/slog"
	"time"

	"github.com/creamcroissant/monitord/internal/cache"
	"github.com/creamcroissant/monitord/internal/repository"
)

const summaryTTL = 5 * time.Minute

// metricTypes is the fixed set of channels the anomaly-status response
// flags, in the order the spec's response shape lists them.
var metricTypes = []string{
	repository.MetricTypeCPU,
	repository.MetricTypeMemory,
	repository.MetricTypeDisk,
	repository.MetricTypeNetwork,
}

// Service computes and caches the per-host anomaly overview served by the
// anomaly-status API endpoint, reconciling the cached snapshot against the
// store's live unresolved count on every call rather than trusting the TTL
// alone — a host that both resolves and re-triggers an anomaly within one
// cache window would otherwise report a stale "active" count.
type Service struct {
	store  repository.Store
	cache  cache.Store
	logger *slog.Logger
}

// New builds a Service.
func New(store repository.Store, cacheStore cache.Store, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, cache: cacheStore.Namespace("anomaly_summary"), logger: logger}
}

// Summary returns host's anomaly overview, recomputing and re-caching it
// when the cached snapshot no longer matches the store's unresolved count.
func (s *Service) Summary(ctx context.Context, host *repository.Host) (*repository.AnomalySummary, error) {
	active, err := s.store.Anomalies().UnresolvedCount(ctx, host.ID)
	if err != nil {
		return nil, newError(KindStoreError, host.Name, err)
	}

	var cached repository.AnomalySummary
	if ok, _ := s.cache.GetJSON(ctx, host.Name, &cached); ok && cached.Active == active {
		return &cached, nil
	}

	summary, err := s.recompute(ctx, host, active)
	if err != nil {
		return nil, err
	}

	if err := s.cache.SetJSON(ctx, host.Name, summary, summaryTTL); err != nil {
		s.logger.WarnContext(ctx, "anomaly summary cache write failed", "host", host.Name, "error", err)
	}
	return summary, nil
}

func (s *Service) recompute(ctx context.Context, host *repository.Host, active int) (*repository.AnomalySummary, error) {
	unresolved, err := s.store.Anomalies().UnresolvedForHost(ctx, host.ID)
	if err != nil {
		return nil, newError(KindStoreError, host.Name, err)
	}

	details := make(map[string]string, len(metricTypes))
	for _, mt := range metricTypes {
		details[mt] = "normal"
	}

	highest := repository.SeverityOK
	for _, a := range unresolved {
		if _, tracked := details[a.MetricType]; tracked {
			details[a.MetricType] = "anomaly"
		}
		if repository.SeverityRank(a.Severity) > repository.SeverityRank(highest) {
			highest = a.Severity
		}
	}

	return &repository.AnomalySummary{
		Active:          active,
		HighestSeverity: highest,
		Timestamp:       time.Now().Unix(),
		Details:         details,
		Trend:           forecastTrend(ctx, s.store, host.ID),
	}, nil
}
