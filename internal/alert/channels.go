package alert

import (
	"fmt"

	"github.com/creamcroissant/monitord/internal/repository"
)

// item is one channel's verdict for the current sample: a metric that
// crossed (triggered) or fell back below (resolved) its operator
// threshold.
type item struct {
	alertType  string
	metricType string
	mount      string // set only for AlertTypeDisk
	value      float64
	threshold  float64
}

func (it item) message() string {
	if it.mount != "" {
		return fmt.Sprintf("%s usage on %s is %.1f%% (threshold %.1f%%)", it.alertType, it.mount, it.value, it.threshold)
	}
	return fmt.Sprintf("%s is %.1f (threshold %.1f)", it.alertType, it.value, it.threshold)
}

// evaluateChannels walks every metric channel for sample against cfg's
// thresholds and the previous State, returning newly triggered items,
// newly resolved items, and the State to persist for next time. Disk is
// evaluated once per monitored mountpoint; DiskIO and NetworkIO are
// compared in MB/s, converted from the sample's bytes/sec counters.
func evaluateChannels(cfg *repository.MonitoringConfig, sample *repository.Sample, prev State) (triggered, resolved []item, next State) {
	next = newState()

	cpuAbove := sample.CPUPercent >= cfg.CPUThreshold
	triggered, resolved = stepBool(triggered, resolved, cpuAbove, prev.CPU,
		item{alertType: repository.AlertTypeCPU, metricType: repository.MetricTypeCPU, value: sample.CPUPercent, threshold: cfg.CPUThreshold})
	next.CPU = cpuAbove

	memAbove := sample.MemoryPercent >= cfg.MemoryThreshold
	triggered, resolved = stepBool(triggered, resolved, memAbove, prev.Memory,
		item{alertType: repository.AlertTypeMemory, metricType: repository.MetricTypeMemory, value: sample.MemoryPercent, threshold: cfg.MemoryThreshold})
	next.Memory = memAbove

	for _, mount := range cfg.MonitoredDisks {
		part, ok := sample.DiskUsage[mount]
		if !ok {
			// No reading for this mount in the current sample; carry the
			// previous state forward rather than silently resolving it.
			next.Disk[mount] = prev.diskAbove(mount)
			continue
		}
		above := part.Percent >= cfg.DiskThreshold
		triggered, resolved = stepBool(triggered, resolved, above, prev.diskAbove(mount),
			item{alertType: repository.AlertTypeDisk, metricType: repository.MetricTypeDisk, mount: mount, value: part.Percent, threshold: cfg.DiskThreshold})
		next.Disk[mount] = above
	}

	const bytesPerMB = 1024 * 1024
	diskIOValue := maxFloat(sample.DiskIOReadBytesPerSec, sample.DiskIOWriteBytesPerSec) / bytesPerMB
	diskIOAbove := diskIOValue >= cfg.DiskIOThresholdMBs
	triggered, resolved = stepBool(triggered, resolved, diskIOAbove, prev.DiskIO,
		item{alertType: repository.AlertTypeDiskIO, metricType: repository.MetricTypeDisk, value: diskIOValue, threshold: cfg.DiskIOThresholdMBs})
	next.DiskIO = diskIOAbove

	netIOValue := maxFloat(sample.NetIORecvBytesPerSec, sample.NetIOSentBytesPerSec) / bytesPerMB
	netIOAbove := netIOValue >= cfg.NetworkIOThresholdMBs
	triggered, resolved = stepBool(triggered, resolved, netIOAbove, prev.NetworkIO,
		item{alertType: repository.AlertTypeNetworkIO, metricType: repository.MetricTypeNetwork, value: netIOValue, threshold: cfg.NetworkIOThresholdMBs})
	next.NetworkIO = netIOAbove

	return triggered, resolved, next
}

// stepBool applies the hysteresis rule to one channel: above and not
// previously above means newly triggered; not above but previously above
// means newly resolved; anything else carries forward silently.
func stepBool(triggered, resolved []item, above, wasAbove bool, it item) ([]item, []item) {
	switch {
	case above && !wasAbove:
		triggered = append(triggered, it)
	case !above && wasAbove:
		resolved = append(resolved, it)
	}
	return triggered, resolved
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
