package detector

import (
	"math"

	"github.com/creamcroissant/monitord/internal/repository"
)

// CorrelationWeights assigns each metric's share of the combined score,
// matching correlation_engine.py's hand-tuned weighting.
var CorrelationWeights = map[string]float64{
	repository.MetricTypeCPU:     0.35,
	repository.MetricTypeMemory:  0.30,
	repository.MetricTypeDisk:    0.20,
	repository.MetricTypeNetwork: 0.15,
}

const maxCorrelationWindow = 120

// CorrelationEngine analyzes the recent sample history for a host across
// all four metric families to catch correlated degradations a single
// threshold detector would miss.
type CorrelationEngine struct {
	ThresholdFactor float64
}

// NewCorrelationEngine returns an engine using thresholdFactor, defaulting
// to 2.0 (the original's correlation_threshold_factor default) when zero.
func NewCorrelationEngine(thresholdFactor float64) *CorrelationEngine {
	if thresholdFactor <= 0 {
		thresholdFactor = 2.0
	}
	return &CorrelationEngine{ThresholdFactor: thresholdFactor}
}

// Analyze builds the cpu/memory/disk/network frame from samples (oldest
// first), resamples each series onto a regular grid at periodSeconds the
// same way Evaluate does for the single-metric detectors, computes
// per-metric z-scores, and combines them into a single weighted anomaly
// score.
func (e *CorrelationEngine) Analyze(samples []*repository.Sample, periodSeconds int64) repository.CorrelationContext {
	if len(samples) > maxCorrelationWindow {
		samples = samples[len(samples)-maxCorrelationWindow:]
	}
	if len(samples) < 10 {
		return repository.CorrelationContext{}
	}

	cpu := make([]float64, len(samples))
	mem := make([]float64, len(samples))
	disk := make([]float64, len(samples))
	net := make([]float64, len(samples))

	var prevRecv, prevSent int64
	havePrev := false
	for i, s := range samples {
		cpu[i] = s.CPUPercent
		mem[i] = s.MemoryPercent
		disk[i] = s.MaxDiskPercent()

		var totalRecv, totalSent int64
		for _, io := range s.NetworkIO {
			totalRecv += io.BytesRecv
			totalSent += io.BytesSent
		}
		if havePrev {
			deltaRecv := maxInt64(0, totalRecv-prevRecv)
			deltaSent := maxInt64(0, totalSent-prevSent)
			net[i] = float64(maxInt64(deltaRecv, deltaSent)) / (1024 * 1024)
		}
		prevRecv, prevSent = totalRecv, totalSent
		havePrev = true
	}
	// The first sample has nothing to diff against; give it the second
	// sample's delta so an artificial zero does not read as movement.
	if len(net) > 1 {
		net[0] = net[1]
	}

	timestamps := make([]int64, len(samples))
	for i, s := range samples {
		timestamps[i] = s.CollectedAt
	}

	perMetric := map[string][]float64{
		repository.MetricTypeCPU:     zScores(Resample(timestamps, cpu, periodSeconds)),
		repository.MetricTypeMemory:  zScores(Resample(timestamps, mem, periodSeconds)),
		repository.MetricTypeDisk:    zScores(Resample(timestamps, disk, periodSeconds)),
		repository.MetricTypeNetwork: zScores(Resample(timestamps, net, periodSeconds)),
	}

	latestScores := make(map[string]float64, 4)
	var combined float64
	for metric, scores := range perMetric {
		if len(scores) == 0 {
			continue
		}
		latest := scores[len(scores)-1]
		max := maxAbs(scores)
		normalized := 0.0
		if max > 0 {
			// Absolute value: a metric collapsing (large negative z) is just
			// as much a correlated degradation signal as one spiking, and
			// must not subtract from the combined score.
			normalized = math.Abs(latest) / max
		}
		latestScores[metric] = latest
		combined += normalized * CorrelationWeights[metric]
	}

	return repository.CorrelationContext{
		Score:          combined,
		PerMetricScore: latestScores,
	}
}

// IsAnomaly reports whether ctx's combined score exceeds the engine's
// threshold factor.
func (e *CorrelationEngine) IsAnomaly(ctx repository.CorrelationContext) bool {
	return ctx.Score > e.ThresholdFactor
}

func maxAbs(values []float64) float64 {
	max := 0.0
	for _, v := range values {
		a := v
		if a < 0 {
			a = -a
		}
		if a > max {
			max = a
		}
	}
	return max
}

func maxInt64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
