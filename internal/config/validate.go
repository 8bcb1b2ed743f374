package config

import (
	"fmt"
	"time"

	"github.com/jerkytreats/nwwatchdog/pkg/validation"
)

// SafetyFactor is how many worst-case ticks must fit below the lowest threshold.
const SafetyFactor = 2

// Validate checks configuration correctness.
// It performs declarative validation only and never mutates s.
func Validate(s *Settings) error {
	w := s.Watchdog

	if w.CheckSeconds <= 0 {
		return fmt.Errorf("%s must be > 0, got %v", CheckSecondsKey, w.CheckSeconds)
	}
	if w.ActionTimeout <= 0 {
		return fmt.Errorf("%s must be > 0", ActionTimeoutKey)
	}
	if w.ProbeTimeout <= 0 {
		return fmt.Errorf("%s must be > 0", ProbeTimeoutKey)
	}
	if w.StateBackups < 0 {
		return fmt.Errorf("%s must be >= 0", StateBackupsKey)
	}

	if w.WindowMode() {
		if w.HealthyPerc <= 0 || w.HealthyPerc > 1 {
			return fmt.Errorf("%s must be in (0, 1], got %v", HealthyPercKey, w.HealthyPerc)
		}
		if w.RecoveryPerc <= 0 || w.RecoveryPerc > w.HealthyPerc {
			return fmt.Errorf("%s must be in (0, %s], got %v", RecoveryPercKey, HealthyPercKey, w.RecoveryPerc)
		}
		if w.HistoryWindow() < w.CheckInterval() {
			return fmt.Errorf("%s (%v) must cover at least one check interval (%v)",
				HistorySecondsKey, w.HistoryWindow(), w.CheckInterval())
		}
	} else {
		if w.SuccessivePasses < 1 {
			return fmt.Errorf("%s must be >= 1, got %d", SuccessivePassesKey, w.SuccessivePasses)
		}
		if w.SuccessiveSeconds < 0 {
			return fmt.Errorf("%s must be >= 0", SuccessiveSecondsKey)
		}
	}

	if err := validation.ValidateHost(s.Tunnel.Host); err != nil {
		return fmt.Errorf("%s: %w", TunnelHostKey, err)
	}
	if err := validation.ValidatePort(s.Tunnel.Port); err != nil {
		return fmt.Errorf("%s: %w", TunnelPortKey, err)
	}

	return validateActions(s)
}

func validateActions(s *Settings) error {
	if len(s.Actions) == 0 {
		return fmt.Errorf("at least one recovery action must be configured under %q", ActionsKey)
	}

	minThreshold := time.Duration(SafetyFactor) * s.Watchdog.WorstCaseTick()
	names := make(map[string]bool)
	files := make(map[string]string)

	var prevMax time.Duration
	prevName := ""

	for i, a := range s.Actions {
		if a.Name == "" {
			return fmt.Errorf("action #%d: name is required", i+1)
		}
		if names[a.Name] {
			return fmt.Errorf("action %q: duplicate name", a.Name)
		}
		names[a.Name] = true

		path := a.CounterPath(s.Watchdog.StateDir)
		if owner, ok := files[path]; ok {
			return fmt.Errorf("action %q: current_reset_file %s already used by action %q", a.Name, path, owner)
		}
		files[path] = a.Name

		if a.MaxResets == nil {
			return fmt.Errorf("action %q: max_resets is required", a.Name)
		}
		if *a.MaxResets < Unlimited {
			return fmt.Errorf("action %q: max_resets must be >= %d, got %d", a.Name, Unlimited, *a.MaxResets)
		}

		if err := validateKind(a); err != nil {
			return err
		}

		if a.ResetStart != 0 && len(a.Resets) > 0 {
			return fmt.Errorf("action %q: set either reset_start or resets, not both", a.Name)
		}
		if a.ResetInterval < 0 {
			return fmt.Errorf("action %q: reset_interval must be >= 0", a.Name)
		}
		if a.ResetInterval > 0 && len(a.Resets) > 1 {
			return fmt.Errorf("action %q: reset_interval requires a single threshold", a.Name)
		}

		thresholds := a.Thresholds()
		for j, th := range thresholds {
			if th < minThreshold {
				return fmt.Errorf("action %q: threshold %v is below the safety margin %v (%d x worst-case tick)",
					a.Name, th, minThreshold, SafetyFactor)
			}
			if j > 0 && th <= thresholds[j-1] {
				return fmt.Errorf("action %q: thresholds must be strictly increasing", a.Name)
			}
			if prevName != "" && th <= prevMax {
				return fmt.Errorf("action %q: threshold %v must exceed every threshold of less severe action %q (%v)",
					a.Name, th, prevName, prevMax)
			}
		}

		if last := thresholds[len(thresholds)-1]; last > prevMax {
			prevMax = last
		}
		prevName = a.Name
	}

	return nil
}

func validateKind(a ActionSettings) error {
	switch a.Kind {
	case KindRestartServices:
		if len(a.Services) == 0 {
			return fmt.Errorf("action %q: kind %s requires services", a.Name, a.Kind)
		}
	case KindCommand:
		if len(a.Command) == 0 {
			return fmt.Errorf("action %q: kind %s requires command", a.Name, a.Kind)
		}
	case KindReboot, KindPoweroff, KindKernelReboot:
	default:
		return fmt.Errorf("action %q: unknown kind %q", a.Name, a.Kind)
	}
	return nil
}

// ValidateSupervisor checks the heartbeat gap against the supervisor's
// kill timeout. A zero timeout means no supervisor watchdog is configured.
func ValidateSupervisor(s *Settings, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	if gap := s.Watchdog.HeartbeatGap(); gap >= timeout/2 {
		return fmt.Errorf("longest heartbeat gap %v must stay below half the supervisor timeout %v; lower %s or %s",
			gap, timeout, ActionTimeoutKey, CheckSecondsKey)
	}
	return nil
}
