package handler

import (
	"fmt"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
)

// parseMetricsRange maps the ?range= query param used by the live-metrics
// family of endpoints to a lookback window.
func parseMetricsRange(raw string) (time.Duration, error) {
	switch raw {
	case "", "1h":
		return time.Hour, nil
	case "24h":
		return 24 * time.Hour, nil
	case "7d":
		return 7 * 24 * time.Hour, nil
	case "30d":
		return 30 * 24 * time.Hour, nil
	case "90d":
		return 90 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported range %q", raw)
	}
}

// parseHistoryRange maps the ?range= query param used by metric-history to
// a lookback window; this endpoint supports a different set of buckets
// than the live-metrics family (1m/3m calendar-ish windows instead of
// 30d/90d).
func parseHistoryRange(raw string) (time.Duration, error) {
	switch raw {
	case "", "1h":
		return time.Hour, nil
	case "7d":
		return 7 * 24 * time.Hour, nil
	case "1m":
		return 30 * 24 * time.Hour, nil
	case "3m":
		return 90 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("unsupported range %q", raw)
	}
}

const maxDownsampledPoints = 500

// downsampleWithSpikes reduces samples to roughly maxDownsampledPoints
// points, always keeping the first and last sample plus any sample where
// CPU or memory exceeds 80%, and uniformly thinning the remainder so a
// transient spike in a long window is never averaged away. Spikes are kept
// unconditionally, so a window with many spikes can return more than
// maxDownsampledPoints points.
func downsampleWithSpikes(samples []*repository.Sample) []*repository.Sample {
	n := len(samples)
	if n <= maxDownsampledPoints {
		return samples
	}

	keep := make([]bool, n)
	keep[0] = true
	keep[n-1] = true
	spikes := 0
	for i, s := range samples {
		if s.CPUPercent > 80 || s.MemoryPercent > 80 {
			keep[i] = true
			spikes++
		}
	}

	budget := maxDownsampledPoints - spikes
	if budget < 2 {
		budget = 2
	}
	stride := float64(n) / float64(budget)
	if stride < 1 {
		stride = 1
	}
	for f := 0.0; f < float64(n); f += stride {
		keep[int(f)] = true
	}

	out := make([]*repository.Sample, 0, maxDownsampledPoints)
	for i, k := range keep {
		if k {
			out = append(out, samples[i])
		}
	}
	return out
}
