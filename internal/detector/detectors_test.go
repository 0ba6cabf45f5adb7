package detector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThresholdDetector(t *testing.T) {
	assert.True(t, ThresholdDetector(95, 90))
	assert.True(t, ThresholdDetector(90, 90))
	assert.False(t, ThresholdDetector(50, 90))
}

func TestPersistenceDetector(t *testing.T) {
	t.Run("too short returns false", func(t *testing.T) {
		assert.False(t, PersistenceDetector([]float64{1}, 3))
	})

	t.Run("stable history never fires", func(t *testing.T) {
		window := []float64{10, 10, 10, 10, 10, 10, 10, 10, 10, 10}
		assert.False(t, PersistenceDetector(window, 3))
	})

	t.Run("spike beyond factor times MAD fires", func(t *testing.T) {
		window := []float64{10, 12, 9, 11, 10, 13, 9, 12, 10, 80}
		assert.True(t, PersistenceDetector(window, 3))
	})

	t.Run("zero MAD never fires even on a spike", func(t *testing.T) {
		window := []float64{10, 10, 10, 10, 10, 99}
		assert.False(t, PersistenceDetector(window, 3))
	})
}

func TestLevelShiftDetector(t *testing.T) {
	t.Run("fewer than 10 samples never fires", func(t *testing.T) {
		window := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
		assert.False(t, LevelShiftDetector(window, 3))
	})

	t.Run("flat series never fires", func(t *testing.T) {
		window := make([]float64, 20)
		for i := range window {
			window[i] = 50
		}
		assert.False(t, LevelShiftDetector(window, 3))
	})

	t.Run("sustained step change fires", func(t *testing.T) {
		// A clean two-block step splits all variance between the halves,
		// capping |m2-m1|/sd at exactly 2 regardless of the step size, so
		// the threshold here must sit below that ceiling to fire.
		window := make([]float64, 20)
		for i := range window {
			if i < 10 {
				window[i] = 20
			} else {
				window[i] = 80
			}
		}
		assert.True(t, LevelShiftDetector(window, 1.5))
	})

	t.Run("step at exactly the ceiling does not fire", func(t *testing.T) {
		window := make([]float64, 20)
		for i := range window {
			if i < 10 {
				window[i] = 20
			} else {
				window[i] = 80
			}
		}
		assert.False(t, LevelShiftDetector(window, 2))
	})
}

func TestVolatilityShiftDetector(t *testing.T) {
	t.Run("fewer than 10 samples never fires", func(t *testing.T) {
		window := []float64{1, 2, 3, 4, 5, 6, 7, 8, 9}
		assert.False(t, VolatilityShiftDetector(window, 2))
	})

	t.Run("stable variance never fires", func(t *testing.T) {
		window := []float64{10, 12, 10, 12, 10, 12, 10, 12, 10, 12, 10, 12}
		assert.False(t, VolatilityShiftDetector(window, 2))
	})

	t.Run("second half far noisier fires", func(t *testing.T) {
		window := []float64{10, 10, 10, 10, 10, 10, 5, 60, 5, 55, 10, 50}
		assert.True(t, VolatilityShiftDetector(window, 2))
	})

	t.Run("first half zero variance but second half varies fires", func(t *testing.T) {
		window := []float64{10, 10, 10, 10, 10, 10, 5, 60, 5, 60}
		assert.True(t, VolatilityShiftDetector(window, 2))
	})
}

func TestSeverity(t *testing.T) {
	cases := []struct {
		name      string
		value     float64
		threshold float64
		want      string
	}{
		{"zero threshold is always low", 100, 0, "LOW"},
		{"at threshold is low", 90, 90, "LOW"},
		{"just above threshold is low", 95, 90, "LOW"},
		{"moderate excess is medium", 100, 90, "MEDIUM"},
		{"larger excess is high", 120, 90, "HIGH"},
		{"extreme excess is critical", 150, 90, "CRITICAL"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Severity(tc.value, tc.threshold))
		})
	}
}

func TestElevateForCorrelation(t *testing.T) {
	assert.Equal(t, "HIGH", ElevateForCorrelation("LOW"))
	assert.Equal(t, "HIGH", ElevateForCorrelation("MEDIUM"))
	assert.Equal(t, "HIGH", ElevateForCorrelation("HIGH"))
	assert.Equal(t, "CRITICAL", ElevateForCorrelation("CRITICAL"))
}
