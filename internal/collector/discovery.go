package collector

import (
	"context"
	"regexp"
	"strings"

	"github.com/creamcroissant/monitord/internal/repository"
)

var serviceUnitPattern = regexp.MustCompile(`\.service\b`)

// DiscoveredService is one systemd unit found running on a host during
// discovery, before it has been upserted into the services table.
type DiscoveredService struct {
	Name   string
	Status string
}

// DiscoverServices lists active systemd services on host, the Go
// equivalent of ServiceScanner.scan_services's systemctl pass (the
// listening-port and top-process sections aren't part of the spec's
// Service entity, so only the unit list is kept).
func (c *Collector) DiscoverServices(ctx context.Context, host *repository.Host) ([]DiscoveredService, error) {
	target := targetFor(host)
	client, err := c.ssh.Dial(ctx, target)
	if err != nil {
		return nil, newError(KindSSHError, host.Name, err)
	}
	defer client.Close()

	output, err := c.ssh.Exec(ctx, client, target,
		"systemctl list-units --type=service --state=running --no-pager --no-legend 2>/dev/null")
	if err != nil {
		return nil, newError(KindRemoteExecError, host.Name, err)
	}
	return parseSystemdServices(output), nil
}

func parseSystemdServices(output string) []DiscoveredService {
	var services []DiscoveredService
	for _, line := range strings.Split(output, "\n") {
		if !serviceUnitPattern.MatchString(line) {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := strings.TrimSuffix(fields[0], ".service")
		status := "unknown"
		if len(fields) > 2 {
			status = fields[2]
		}
		services = append(services, DiscoveredService{Name: name, Status: status})
		if len(services) >= 20 {
			break
		}
	}
	return services
}

// CheckService runs a single systemd status query for one configured
// service, used by the scheduled service-check job instead of the
// discovery pass (which enumerates everything running).
func (c *Collector) CheckService(ctx context.Context, host *repository.Host, def repository.ServiceDefinition) (string, error) {
	target := targetFor(host)
	client, err := c.ssh.Dial(ctx, target)
	if err != nil {
		return "", newError(KindSSHError, host.Name, err)
	}
	defer client.Close()

	command := def.CheckCmd
	if command == "" {
		command = "systemctl is-active " + def.Name
	}
	// systemctl is-active exits nonzero for every non-"active" state, but
	// Exec still returns the command's stdout alongside that error, so the
	// status word itself must be read regardless of err.
	output, _ := c.ssh.Exec(ctx, client, target, command)
	status := strings.TrimSpace(output)
	if status == "" {
		return repository.ServiceStatusUnknown, nil
	}
	switch status {
	case "active":
		return repository.ServiceStatusRunning, nil
	case "failed":
		return repository.ServiceStatusFailed, nil
	case "inactive":
		return repository.ServiceStatusStopped, nil
	default:
		return repository.ServiceStatusRunning, nil
	}
}
