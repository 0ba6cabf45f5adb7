package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/creamcroissant/monitord/internal/repository"
	"github.com/creamcroissant/monitord/internal/sshexec"
	"golang.org/x/crypto/ssh"
)

// rawMetrics is the JSON shape collect.py prints to stdout. Field names
// intentionally mirror the probe script's dict keys.
type rawMetrics struct {
	CPUPercent         float64                           `json:"cpu_percent"`
	MemPercent         float64                           `json:"mem_percent"`
	SwapPercent        *float64                          `json:"swap_percent"`
	Load1              float64                           `json:"load1"`
	Load5              float64                           `json:"load5"`
	Load15             float64                           `json:"load15"`
	UptimeSeconds      int64                              `json:"uptime_seconds"`
	DiskUsage          map[string]repository.DiskPartition `json:"disk_usage"`
	DiskIOReadBps      float64                           `json:"disk_io_read_bps"`
	DiskIOWriteBps     float64                           `json:"disk_io_write_bps"`
	NetworkIO          map[string]repository.NetworkInterfaceIO `json:"network_io"`
	NetIORecvBps       float64                           `json:"net_io_recv_bps"`
	NetIOSentBps       float64                           `json:"net_io_sent_bps"`
	NetworkConnections int                               `json:"network_connections"`
	TopProcesses       []repository.ProcessSample       `json:"top_processes"`
}

// Collector runs the embedded probe script against a host over SSH and
// turns its JSON output into a repository.Sample, the remote analogue of
// the teacher's in-process monitor.Monitor.Collect.
type Collector struct {
	ssh *sshexec.Executor
}

// New constructs a Collector backed by executor.
func New(executor *sshexec.Executor) *Collector {
	return &Collector{ssh: executor}
}

func targetFor(host *repository.Host) sshexec.Target {
	return sshexec.Target{Address: host.IPAddress, Port: host.Port, Username: host.Username}
}

// CollectOnce dials host, runs the probe script, and returns a fully
// populated Sample with CollectedAt set to the moment collection
// completed.
func (c *Collector) CollectOnce(ctx context.Context, host *repository.Host) (*repository.Sample, error) {
	target := targetFor(host)
	client, err := c.ssh.Dial(ctx, target)
	if err != nil {
		return nil, newError(KindSSHError, host.Name, err)
	}
	defer client.Close()

	output, err := c.runProbe(ctx, client, target)
	if err != nil {
		return nil, err
	}

	var raw rawMetrics
	if err := json.Unmarshal([]byte(output), &raw); err != nil {
		return nil, newError(KindParseError, host.Name, fmt.Errorf("decode probe output: %w", err))
	}

	sample := &repository.Sample{
		HostID:                 host.ID,
		CollectedAt:            time.Now().Unix(),
		CPUPercent:             clampPercent(raw.CPUPercent),
		MemoryPercent:          clampPercent(raw.MemPercent),
		SwapPercent:            clampPercentPtr(raw.SwapPercent),
		DiskUsage:              sanitizeDiskUsage(raw.DiskUsage),
		NetworkIO:              raw.NetworkIO,
		TopProcesses:           raw.TopProcesses,
		DiskIOReadBytesPerSec:  raw.DiskIOReadBps,
		DiskIOWriteBytesPerSec: raw.DiskIOWriteBps,
		NetIORecvBytesPerSec:   raw.NetIORecvBps,
		NetIOSentBytesPerSec:   raw.NetIOSentBps,
		Load1:                  raw.Load1,
		Load5:                  raw.Load5,
		Load15:                 raw.Load15,
		NetworkConnections:     raw.NetworkConnections,
		UptimeSeconds:          raw.UptimeSeconds,
	}
	return sample, nil
}

func (c *Collector) runProbe(ctx context.Context, client *ssh.Client, target sshexec.Target) (string, error) {
	output, err := c.ssh.ExecWithStdin(ctx, client, target, "python3 -", collectScript)
	if err != nil {
		if depErr := c.ssh.EnsureProbeDependencies(ctx, client, target); depErr != nil {
			return "", newError(KindRemoteExecError, target.Address, err)
		}
		output, err = c.ssh.ExecWithStdin(ctx, client, target, "python3 -", collectScript)
		if err != nil {
			return "", newError(KindRemoteExecError, target.Address, err)
		}
	}
	return output, nil
}

// ignoredFstypes mirrors the probe script's own denylist; applied again
// here in case a future probe variant stops filtering itself.
var ignoredFstypes = map[string]bool{
	"squashfs": true, "tmpfs": true, "devtmpfs": true, "proc": true,
	"sysfs": true, "cgroup": true, "cgroup2": true, "ramfs": true,
	"overlay": true, "udev": true,
}

func sanitizeDiskUsage(in map[string]repository.DiskPartition) map[string]repository.DiskPartition {
	out := make(map[string]repository.DiskPartition, len(in))
	for mount, part := range in {
		if ignoredFstypes[part.FSType] {
			continue
		}
		part.Percent = clampPercent(part.Percent)
		out[mount] = part
	}
	return out
}

func clampPercent(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func clampPercentPtr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	clamped := clampPercent(*v)
	return &clamped
}
