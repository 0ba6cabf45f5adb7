package detector

import "github.com/creamcroissant/monitord/internal/repository"

// Severity computes how far value exceeds threshold and buckets the
// result, exactly as the original's _calculate_severity does.
func Severity(value, threshold float64) string {
	if threshold <= 0 {
		return repository.SeverityLow
	}
	excess := (value - threshold) / threshold
	switch {
	case excess > 0.5:
		return repository.SeverityCritical
	case excess > 0.3:
		return repository.SeverityHigh
	case excess > 0.1:
		return repository.SeverityMedium
	default:
		return repository.SeverityLow
	}
}

// ElevateForCorrelation raises severity to at least HIGH when the
// correlation engine flags an anomaly. Severity may only be raised, never
// lowered.
func ElevateForCorrelation(severity string) string {
	if repository.SeverityRank(severity) < repository.SeverityRank(repository.SeverityHigh) {
		return repository.SeverityHigh
	}
	return severity
}
