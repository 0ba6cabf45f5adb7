package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, mean(nil))
	assert.Equal(t, 20.0, mean([]float64{10, 20, 30}))
}

func TestStddev(t *testing.T) {
	assert.Equal(t, 0.0, stddev(nil, 0))
	assert.Equal(t, 0.0, stddev([]float64{5, 5, 5}, 5))
	assert.InDelta(t, 1.414, stddev([]float64{1, 2, 3}, 2), 0.01)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{1, 2, 3, 4}))
	// median must not mutate the caller's slice
	input := []float64{3, 1, 2}
	median(input)
	assert.Equal(t, []float64{3, 1, 2}, input)
}

func TestClip(t *testing.T) {
	assert.Equal(t, 5.0, clip(5, -5, 5))
	assert.Equal(t, -5.0, clip(-10, -5, 5))
	assert.Equal(t, 5.0, clip(10, -5, 5))
}

func TestZScores(t *testing.T) {
	t.Run("zero stddev returns all zeros", func(t *testing.T) {
		out := zScores([]float64{5, 5, 5})
		assert.Equal(t, []float64{0, 0, 0}, out)
	})

	t.Run("clips extreme outliers to +-5", func(t *testing.T) {
		// A lone outlier among n values has z = sqrt(n-1), so 29 ones plus
		// 1000 scores about 5.39 before clipping.
		values := make([]float64, 30)
		for i := range values {
			values[i] = 1
		}
		values[len(values)-1] = 1000
		out := zScores(values)
		assert.Equal(t, 5.0, out[len(out)-1])
	})

	t.Run("normal spread produces standard scores", func(t *testing.T) {
		out := zScores([]float64{1, 2, 3})
		assert.InDelta(t, 0, out[1], 0.0001)
		assert.True(t, out[0] < 0)
		assert.True(t, out[2] > 0)
	})
}
