package detector

// Resample regularizes an irregularly-spaced metric series onto a fixed
// grid running from the first to the last observed timestamp, one point
// every periodSeconds. Each grid point takes the most recent observation
// at or before it (forward-fill); any leading grid points before the
// first observation take the first observation's value (back-fill); any
// point still empty after that takes the mean of the filled points. An
// empty input returns nil rather than a grid.
// Mirrors the resample/ffill/bfill step original_source/core/adtk_pipeline.py
// runs before handing a series to ADTK, needed here because backpressure
// drops ticks and adaptive collection shortens/lengthens the interval,
// both of which leave gaps a z-score would otherwise read as real movement.
func Resample(timestamps []int64, values []float64, periodSeconds int64) []float64 {
	n := len(values)
	if n == 0 {
		return nil
	}
	if n == 1 || periodSeconds <= 0 {
		return append([]float64(nil), values...)
	}

	start, end := timestamps[0], timestamps[n-1]
	gridLen := int((end-start)/periodSeconds) + 1
	if gridLen < 1 {
		gridLen = 1
	}

	out := make([]float64, gridLen)
	present := make([]bool, gridLen)

	srcIdx := 0
	for g := 0; g < gridLen; g++ {
		gridT := start + int64(g)*periodSeconds
		for srcIdx+1 < n && timestamps[srcIdx+1] <= gridT {
			srcIdx++
		}
		if timestamps[srcIdx] <= gridT {
			out[g] = values[srcIdx]
			present[g] = true
		}
	}

	forwardFill(out, present)
	backFill(out, present)
	fillRemaining(out, present)
	return out
}

func forwardFill(out []float64, present []bool) {
	var last float64
	have := false
	for i := range out {
		if present[i] {
			last = out[i]
			have = true
			continue
		}
		if have {
			out[i] = last
			present[i] = true
		}
	}
}

func backFill(out []float64, present []bool) {
	var next float64
	have := false
	for i := len(out) - 1; i >= 0; i-- {
		if present[i] {
			next = out[i]
			have = true
			continue
		}
		if have {
			out[i] = next
			present[i] = true
		}
	}
}

func fillRemaining(out []float64, present []bool) {
	var observed []float64
	for i, p := range present {
		if p {
			observed = append(observed, out[i])
		}
	}
	fillValue := mean(observed)
	for i := range out {
		if !present[i] {
			out[i] = fillValue
			present[i] = true
		}
	}
}
