package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creamcroissant/monitord/internal/repository"
)

const testPeriodSeconds = int64(30)

func flatSamples(n int, cpu, mem, diskPercent float64) []*repository.Sample {
	samples := make([]*repository.Sample, n)
	for i := 0; i < n; i++ {
		samples[i] = &repository.Sample{
			HostID:        1,
			CollectedAt:   int64(i) * testPeriodSeconds,
			CPUPercent:    cpu,
			MemoryPercent: mem,
			DiskUsage: map[string]repository.DiskPartition{
				"/": {Percent: diskPercent},
			},
			NetworkIO: map[string]repository.NetworkInterfaceIO{
				"eth0": {BytesRecv: int64(i) * 1000, BytesSent: int64(i) * 1000},
			},
		}
	}
	return samples
}

func TestNewCorrelationEngine(t *testing.T) {
	assert.Equal(t, 2.0, NewCorrelationEngine(0).ThresholdFactor)
	assert.Equal(t, 2.0, NewCorrelationEngine(-1).ThresholdFactor)
	assert.Equal(t, 0.6, NewCorrelationEngine(0.6).ThresholdFactor)
}

func TestCorrelationEngineAnalyze(t *testing.T) {
	engine := NewCorrelationEngine(0.6)

	t.Run("below minimum window returns zero context", func(t *testing.T) {
		ctx := engine.Analyze(flatSamples(5, 50, 50, 50), testPeriodSeconds)
		assert.Equal(t, 0.0, ctx.Score)
		assert.Nil(t, ctx.PerMetricScore)
	})

	t.Run("flat metrics across the window produce a near-zero score", func(t *testing.T) {
		ctx := engine.Analyze(flatSamples(20, 50, 50, 50), testPeriodSeconds)
		assert.InDelta(t, 0, ctx.Score, 0.0001)
		assert.False(t, engine.IsAnomaly(ctx))
	})

	t.Run("windows beyond the cap only use the most recent samples", func(t *testing.T) {
		samples := flatSamples(maxCorrelationWindow+50, 50, 50, 50)
		ctx := engine.Analyze(samples, testPeriodSeconds)
		assert.InDelta(t, 0, ctx.Score, 0.0001)
	})

	t.Run("a spike across every metric raises the combined score", func(t *testing.T) {
		samples := flatSamples(20, 50, 50, 50)
		last := samples[len(samples)-1]
		last.CPUPercent = 99
		last.MemoryPercent = 99
		last.DiskUsage["/"] = repository.DiskPartition{Percent: 99}
		last.NetworkIO["eth0"] = repository.NetworkInterfaceIO{BytesRecv: 999999999, BytesSent: 999999999}

		ctx := engine.Analyze(samples, testPeriodSeconds)
		require.Contains(t, ctx.PerMetricScore, repository.MetricTypeCPU)
		assert.True(t, ctx.Score > 0)
		assert.True(t, engine.IsAnomaly(ctx))
	})

	t.Run("a metric collapsing downward still contributes a positive score", func(t *testing.T) {
		samples := flatSamples(20, 50, 50, 50)
		last := samples[len(samples)-1]
		last.CPUPercent = 1
		last.MemoryPercent = 99

		ctx := engine.Analyze(samples, testPeriodSeconds)
		require.Contains(t, ctx.PerMetricScore, repository.MetricTypeCPU)
		assert.True(t, ctx.PerMetricScore[repository.MetricTypeCPU] < 0, "cpu z-score should be negative for a downward collapse")
		assert.True(t, ctx.Score > 0, "a downward swing must still add to the combined score, not subtract from it")
	})
}

func TestCorrelationEngineIsAnomaly(t *testing.T) {
	engine := NewCorrelationEngine(0.5)
	assert.False(t, engine.IsAnomaly(repository.CorrelationContext{Score: 0.5}))
	assert.True(t, engine.IsAnomaly(repository.CorrelationContext{Score: 0.51}))
}
