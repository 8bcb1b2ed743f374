// Package recovery implements the escalation ladder: an ordered, immutable set
// of recovery actions gated by sustained unhealthiness and invocation budgets.
package recovery

import (
	"context"
	"fmt"
	"time"
)

// Unlimited marks an action without an invocation budget.
const Unlimited = -1

// Effect is the side effect an action performs on the host.
type Effect interface {
	Apply(ctx context.Context) error
}

// EffectFunc adapts a function to Effect.
type EffectFunc func(ctx context.Context) error

func (f EffectFunc) Apply(ctx context.Context) error { return f(ctx) }

// Action is one configured recovery step.
type Action struct {
	Name string
	// Thresholds are the unhealthy durations at which the action is due,
	// strictly increasing.
	Thresholds []time.Duration
	// Interval re-arms a single-threshold action every Interval after it fired.
	// Zero means one-shot per outage.
	Interval time.Duration
	// MaxInvocations is the lifetime budget, or Unlimited.
	MaxInvocations int
	// ResetOnHealthy lets a recovering verdict forgive consumed budget.
	ResetOnHealthy bool
	Effect         Effect
}

func (a *Action) validate() error {
	if a.Name == "" {
		return fmt.Errorf("action name is required")
	}
	if len(a.Thresholds) == 0 {
		return fmt.Errorf("action %s: no thresholds", a.Name)
	}
	for i, th := range a.Thresholds {
		if th < 0 {
			return fmt.Errorf("action %s: negative threshold %v", a.Name, th)
		}
		if i > 0 && th <= a.Thresholds[i-1] {
			return fmt.Errorf("action %s: thresholds must be strictly increasing", a.Name)
		}
	}
	if a.Interval < 0 {
		return fmt.Errorf("action %s: negative interval", a.Name)
	}
	if a.Interval > 0 && len(a.Thresholds) > 1 {
		return fmt.Errorf("action %s: interval requires a single threshold", a.Name)
	}
	if a.MaxInvocations < Unlimited {
		return fmt.Errorf("action %s: invalid budget %d", a.Name, a.MaxInvocations)
	}
	if a.Effect == nil {
		return fmt.Errorf("action %s: no effect", a.Name)
	}
	return nil
}
