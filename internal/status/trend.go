package status

import (
	"context"

	"github.com/creamcroissant/monitord/internal/repository"
)

// trendWindow is the number of most recent samples the forecast hint's
// least-squares slope is fit over.
const trendWindow = 10

// trendFlatSlope is the %/sample slope magnitude below which the trend is
// reported as "flat" rather than rising or falling — small enough to ignore
// normal CPU jitter but large enough to catch a sustained climb.
const trendFlatSlope = 0.5

// forecastTrend computes a read-only linear-trend hint over the host's most
// recent CPU samples: a simple least-squares slope classified into
// rising/falling/flat. It never fails the summary — a store error or too few
// samples just omits the hint.
func forecastTrend(ctx context.Context, store repository.Store, hostID int64) string {
	samples, err := store.Samples().Recent(ctx, hostID, trendWindow)
	if err != nil || len(samples) < 3 {
		return ""
	}

	// Recent returns newest-first; fit the slope in chronological order.
	n := len(samples)
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i := 0; i < n; i++ {
		s := samples[n-1-i]
		xs[i] = float64(i)
		ys[i] = s.CPUPercent
	}

	slope := leastSquaresSlope(xs, ys)
	switch {
	case slope > trendFlatSlope:
		return "rising"
	case slope < -trendFlatSlope:
		return "falling"
	default:
		return "flat"
	}
}

// leastSquaresSlope fits y = a + b*x and returns b, the per-step slope.
func leastSquaresSlope(xs, ys []float64) float64 {
	n := float64(len(xs))
	if n == 0 {
		return 0
	}
	var sumX, sumY, sumXY, sumXX float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumXX += xs[i] * xs[i]
	}
	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0
	}
	return (n*sumXY - sumX*sumY) / denom
}
