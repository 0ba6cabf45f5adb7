package detector

import "math"

// ThresholdDetector fires when the latest value meets or exceeds a fixed
// bound, the Go equivalent of ADTK's ThresholdAD(high=threshold, low=0).
func ThresholdDetector(value, threshold float64) bool {
	return value >= threshold
}

// PersistenceDetector fires when the latest value deviates from the
// window's rolling median by more than factor times the median absolute
// deviation, mirroring ADTK's PersistAD default window comparison.
func PersistenceDetector(window []float64, factor float64) bool {
	if len(window) < 2 {
		return false
	}
	history := window[:len(window)-1]
	latest := window[len(window)-1]
	med := median(history)
	deviations := make([]float64, len(history))
	for i, v := range history {
		deviations[i] = math.Abs(v - med)
	}
	mad := median(deviations)
	if mad == 0 {
		return false
	}
	return math.Abs(latest-med) > factor*mad
}

// LevelShiftDetector fires when the mean of the second half of window
// differs from the mean of the first half by more than zThreshold
// standard deviations, the Go equivalent of ADTK's LevelShiftAD.
func LevelShiftDetector(window []float64, zThreshold float64) bool {
	if len(window) < 10 {
		return false
	}
	mid := len(window) / 2
	first, second := window[:mid], window[mid:]
	m1, m2 := mean(first), mean(second)
	sd := stddev(window, mean(window))
	if sd == 0 {
		return false
	}
	return math.Abs(m2-m1)/sd > zThreshold
}

// VolatilityShiftDetector fires when the standard deviation of the second
// half of window exceeds the first half's by more than factor, the Go
// equivalent of ADTK's VolatilityShiftAD.
func VolatilityShiftDetector(window []float64, factor float64) bool {
	if len(window) < 10 {
		return false
	}
	mid := len(window) / 2
	first, second := window[:mid], window[mid:]
	sd1 := stddev(first, mean(first))
	sd2 := stddev(second, mean(second))
	if sd1 == 0 {
		return sd2 > 0
	}
	return sd2/sd1 > factor
}
