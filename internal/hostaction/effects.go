package hostaction

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/jerkytreats/nwwatchdog/internal/logging"
)

const (
	// DeviceOwner and DeviceMode are applied to modem device nodes before a
	// network restart so ModemManager can open them.
	DeviceOwner = "root:root"
	DeviceMode  = "660"
)

// GlobFunc expands a device pattern.
type GlobFunc func(pattern string) ([]string, error)

// ServiceRestart repairs device node ownership, then restarts systemd units.
type ServiceRestart struct {
	runner      *Runner
	services    []string
	deviceGlobs []string
	glob        GlobFunc
}

// NewServiceRestart creates a restart-services effect.
func NewServiceRestart(runner *Runner, services, deviceGlobs []string) *ServiceRestart {
	return &ServiceRestart{
		runner:      runner,
		services:    services,
		deviceGlobs: deviceGlobs,
		glob:        filepath.Glob,
	}
}

func (s *ServiceRestart) Apply(ctx context.Context) error {
	logging.Warn("Restarting network services %v", s.services)

	if devices := s.devices(); len(devices) > 0 {
		// ownership repair is best effort; the restart is what matters
		s.runner.Run(ctx, append([]string{"chown", DeviceOwner}, devices...)...)
		s.runner.Run(ctx, append([]string{"chmod", DeviceMode}, devices...)...)
	}

	res := s.runner.Run(ctx, append([]string{"systemctl", "restart"}, s.services...)...)
	return res.Error
}

func (s *ServiceRestart) devices() []string {
	seen := make(map[string]bool)
	var out []string
	for _, pattern := range s.deviceGlobs {
		matches, err := s.glob(pattern)
		if err != nil {
			logging.Warn("Bad device pattern %q: %v", pattern, err)
			continue
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	sort.Strings(out)
	return out
}

// Systemctl forces a reboot or poweroff through systemd.
type Systemctl struct {
	runner *Runner
	verb   string
}

// NewReboot creates an effect running `systemctl --force reboot`.
func NewReboot(runner *Runner) *Systemctl {
	return &Systemctl{runner: runner, verb: "reboot"}
}

// NewPoweroff creates an effect running `systemctl --force poweroff`.
func NewPoweroff(runner *Runner) *Systemctl {
	return &Systemctl{runner: runner, verb: "poweroff"}
}

func (s *Systemctl) Apply(ctx context.Context) error {
	logging.Warn("Forcing system %s", s.verb)
	return s.runner.Run(ctx, "systemctl", "--force", s.verb).Error
}

// Command runs an operator supplied argv.
type Command struct {
	runner *Runner
	argv   []string
}

// NewCommand creates a command effect.
func NewCommand(runner *Runner, argv []string) *Command {
	return &Command{runner: runner, argv: append([]string(nil), argv...)}
}

func (c *Command) Apply(ctx context.Context) error {
	if len(c.argv) == 0 {
		return fmt.Errorf("no command configured")
	}
	return c.runner.Run(ctx, c.argv...).Error
}
