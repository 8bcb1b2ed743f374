package config

import (
	"strings"
)

// Normalize fills derived defaults in place. It runs before Validate.
func Normalize(s *Settings) {
	s.LogFormat = strings.ToLower(strings.TrimSpace(s.LogFormat))

	// percentages may be written as 90 or 0.9
	if s.Watchdog.HealthyPerc > 1 {
		s.Watchdog.HealthyPerc /= 100
	}
	if s.Watchdog.RecoveryPerc > 1 {
		s.Watchdog.RecoveryPerc /= 100
	}

	for i := range s.Actions {
		a := &s.Actions[i]
		a.Name = strings.TrimSpace(a.Name)
		a.Kind = strings.ToLower(strings.TrimSpace(a.Kind))
		if a.CurrentResetFile == "" && a.Name != "" {
			a.CurrentResetFile = a.Name + "-resets"
		}
	}
}
