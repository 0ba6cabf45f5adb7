package detector

import (
	"github.com/creamcroissant/monitord/internal/repository"
)

// minWindowSamples is the fewest samples the detector pipeline will run
// against; fewer than this and every detector family is statistically
// meaningless, so Evaluate reports no anomalies at all rather than firing
// on noise.
const minWindowSamples = 10

// Options configures the detection window and per-detector sensitivities,
// sourced from config.DetectorConfig.
type Options struct {
	WindowSize            int
	ThresholdFactor       float64
	PersistenceFactor      float64
	LevelShiftZScore      float64
	VolatilityShiftFactor float64
	CorrelationThreshold  float64
}

// effectiveThreshold scales an operator alert threshold up into a
// detection-grade bound, independent of the Alert Engine's own hysteresis
// threshold, defaulting the factor to 2.0 when unset.
func effectiveThreshold(threshold float64, opts Options) float64 {
	factor := opts.ThresholdFactor
	if factor <= 0 {
		factor = 2.0
	}
	return threshold * factor
}

// defaultResamplePeriodSeconds is the grid period Resample falls back to
// when a host has no configured collection interval.
const defaultResamplePeriodSeconds = 30

// persistenceWindowSize is ADTK's PersistAD reference-window size for a
// pipeline configured with windowSize W: max(5, W/6).
func persistenceWindowSize(w int) int {
	if s := w / 6; s > 5 {
		return s
	}
	return 5
}

// levelShiftWindowSize is ADTK's LevelShiftAD/VolatilityShiftAD adjacent
// window size for a pipeline configured with windowSize W: max(10, W/3).
func levelShiftWindowSize(w int) int {
	if s := w / 3; s > 10 {
		return s
	}
	return 10
}

// tailWindow returns the last n points of series, or series unchanged if
// it is already no longer than n.
func tailWindow(series []float64, n int) []float64 {
	if n <= 0 || len(series) <= n {
		return series
	}
	return series[len(series)-n:]
}

// Candidate is a not-yet-persisted anomaly finding, produced before the
// caller assigns it a SampleID and inserts it.
type Candidate struct {
	MetricType   string
	MetricName   string
	MetricValue  float64
	Severity     string
	AnomalyScore float64
	Correlation  *repository.CorrelationContext
}

// Evaluate runs every detector family against the host's recent sample
// history (oldest first, latest last) and returns one candidate per metric
// that fired, with correlation-based severity elevation applied last.
func Evaluate(cfg *repository.MonitoringConfig, samples []*repository.Sample, opts Options) []Candidate {
	if len(samples) < minWindowSamples {
		return nil
	}
	latest := samples[len(samples)-1]
	period := resamplePeriod(cfg)
	timestamps := extractTimestamps(samples)

	var candidates []Candidate

	cpuSeries := Resample(timestamps, extractCPU(samples), period)
	if c, ok := evaluateSeries(cpuSeries, cfg.CPUThreshold, opts); ok {
		candidates = append(candidates, Candidate{
			MetricType: repository.MetricTypeCPU, MetricName: "cpu_percent",
			MetricValue: latest.CPUPercent, Severity: c.severity, AnomalyScore: c.score,
		})
	}
	memSeries := Resample(timestamps, extractMemory(samples), period)
	if c, ok := evaluateSeries(memSeries, cfg.MemoryThreshold, opts); ok {
		candidates = append(candidates, Candidate{
			MetricType: repository.MetricTypeMemory, MetricName: "memory_percent",
			MetricValue: latest.MemoryPercent, Severity: c.severity, AnomalyScore: c.score,
		})
	}

	for mount, part := range latest.DiskUsage {
		if !cfg.HasMonitoredDisk(mount) {
			continue
		}
		diskDetectThreshold := effectiveThreshold(cfg.DiskThreshold, opts)
		if part.Percent > diskDetectThreshold {
			candidates = append(candidates, Candidate{
				MetricType: repository.MetricTypeDisk, MetricName: "disk_percent_" + mount,
				MetricValue: part.Percent, Severity: Severity(part.Percent, cfg.DiskThreshold), AnomalyScore: 1.0,
			})
		}
	}

	diskIOBytes := effectiveThreshold(cfg.DiskIOThresholdMBs, opts) * 1024 * 1024
	if latest.DiskIOReadBytesPerSec > diskIOBytes || latest.DiskIOWriteBytesPerSec > diskIOBytes {
		peak := maxFloat(latest.DiskIOReadBytesPerSec, latest.DiskIOWriteBytesPerSec)
		candidates = append(candidates, Candidate{
			MetricType: repository.MetricTypeDisk, MetricName: "disk_io_throughput",
			MetricValue: peak / (1024 * 1024), Severity: Severity(peak/(1024*1024), cfg.DiskIOThresholdMBs), AnomalyScore: 1.0,
		})
	}

	netIOBytes := effectiveThreshold(cfg.NetworkIOThresholdMBs, opts) * 1024 * 1024
	if latest.NetIORecvBytesPerSec > netIOBytes || latest.NetIOSentBytesPerSec > netIOBytes {
		peak := maxFloat(latest.NetIORecvBytesPerSec, latest.NetIOSentBytesPerSec)
		candidates = append(candidates, Candidate{
			MetricType: repository.MetricTypeNetwork, MetricName: "network_throughput",
			MetricValue: peak / (1024 * 1024), Severity: Severity(peak/(1024*1024), cfg.NetworkIOThresholdMBs), AnomalyScore: 1.0,
		})
	}

	engine := NewCorrelationEngine(opts.CorrelationThreshold)
	corr := engine.Analyze(samples, period)
	if engine.IsAnomaly(corr) {
		corrCopy := corr
		if len(candidates) == 0 {
			maxMetric, maxScore := "", -1.0
			for metric, score := range corr.PerMetricScore {
				if score > maxScore {
					maxMetric, maxScore = metric, score
				}
			}
			if maxMetric != "" {
				candidates = append(candidates, Candidate{
					MetricType: maxMetric, MetricName: maxMetric + "_correlated",
					MetricValue: valueForMetric(latest, maxMetric),
					Severity:    repository.SeverityHigh, AnomalyScore: corr.Score, Correlation: &corrCopy,
				})
			}
		} else {
			for i := range candidates {
				candidates[i].Severity = ElevateForCorrelation(candidates[i].Severity)
				candidates[i].Correlation = &corrCopy
			}
		}
	}

	return candidates
}

type seriesResult struct {
	severity string
	score    float64
}

func evaluateSeries(series []float64, threshold float64, opts Options) (seriesResult, bool) {
	if len(series) == 0 {
		return seriesResult{}, false
	}
	latest := series[len(series)-1]

	if ThresholdDetector(latest, effectiveThreshold(threshold, opts)) {
		return seriesResult{severity: Severity(latest, threshold), score: 1.0}, true
	}

	persistWindow := tailWindow(series, persistenceWindowSize(opts.WindowSize)+1)
	shiftWindow := tailWindow(series, 2*levelShiftWindowSize(opts.WindowSize))

	if PersistenceDetector(persistWindow, opts.PersistenceFactor) ||
		LevelShiftDetector(shiftWindow, opts.LevelShiftZScore) ||
		VolatilityShiftDetector(shiftWindow, opts.VolatilityShiftFactor) {
		return seriesResult{severity: repository.SeverityMedium, score: 0.6}, true
	}
	return seriesResult{}, false
}

// resamplePeriod returns cfg's collection interval, the grid period the
// spec's resample step runs at, falling back to the scheduler's default
// collection cadence when the host has none configured.
func resamplePeriod(cfg *repository.MonitoringConfig) int64 {
	if cfg.CollectionIntervalSeconds > 0 {
		return int64(cfg.CollectionIntervalSeconds)
	}
	return defaultResamplePeriodSeconds
}

func extractTimestamps(samples []*repository.Sample) []int64 {
	out := make([]int64, len(samples))
	for i, s := range samples {
		out[i] = s.CollectedAt
	}
	return out
}

func extractCPU(samples []*repository.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.CPUPercent
	}
	return out
}

func extractMemory(samples []*repository.Sample) []float64 {
	out := make([]float64, len(samples))
	for i, s := range samples {
		out[i] = s.MemoryPercent
	}
	return out
}

func valueForMetric(sample *repository.Sample, metric string) float64 {
	switch metric {
	case repository.MetricTypeCPU:
		return sample.CPUPercent
	case repository.MetricTypeMemory:
		return sample.MemoryPercent
	case repository.MetricTypeDisk:
		return sample.MaxDiskPercent()
	default:
		return 0
	}
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
