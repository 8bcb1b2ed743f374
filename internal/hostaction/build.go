package hostaction

import (
	"fmt"

	"github.com/jerkytreats/nwwatchdog/internal/config"
	"github.com/jerkytreats/nwwatchdog/internal/recovery"
)

// Build turns the configured action sections into recovery actions.
func Build(s *config.Settings, runner *Runner) ([]recovery.Action, error) {
	actions := make([]recovery.Action, 0, len(s.Actions))
	for _, a := range s.Actions {
		effect, err := NewEffect(a, runner)
		if err != nil {
			return nil, err
		}
		actions = append(actions, recovery.Action{
			Name:           a.Name,
			Thresholds:     a.Thresholds(),
			Interval:       a.Interval(),
			MaxInvocations: a.Budget(),
			ResetOnHealthy: a.ResetsOnHealthy(),
			Effect:         effect,
		})
	}
	return actions, nil
}

// NewEffect maps an action kind to its effect.
func NewEffect(a config.ActionSettings, runner *Runner) (recovery.Effect, error) {
	switch a.Kind {
	case config.KindRestartServices:
		return NewServiceRestart(runner, a.Services, a.DeviceGlobs), nil
	case config.KindReboot:
		return NewReboot(runner), nil
	case config.KindPoweroff:
		return NewPoweroff(runner), nil
	case config.KindKernelReboot:
		return NewKernelReboot(), nil
	case config.KindCommand:
		return NewCommand(runner, a.Command), nil
	default:
		return nil, fmt.Errorf("action %q: unknown kind %q", a.Name, a.Kind)
	}
}
