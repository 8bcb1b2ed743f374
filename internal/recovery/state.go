package recovery

import (
	"strconv"
	"time"
)

// State is the mutable recovery state threaded through the watchdog loop.
type State struct {
	LastHealthy time.Time
	// Remaining is the budget left per action, or Unlimited.
	Remaining map[string]int
	// fired counts firings per rung index in the current outage.
	fired map[int]int
	// lastFired is the outage duration of each rung's latest firing.
	lastFired map[int]time.Duration
}

// NewState returns a state with full budgets.
func NewState(l *Ladder, now time.Time) *State {
	s := &State{
		LastHealthy: now,
		Remaining:   make(map[string]int, len(l.actions)),
		fired:       make(map[int]int),
		lastFired:   make(map[int]time.Duration),
	}
	for _, a := range l.actions {
		s.Remaining[a.Name] = a.MaxInvocations
	}
	return s
}

// LoadState rebuilds the state from persisted counters. Process start is
// always a reload: budgets are max minus persisted, and the outage clock
// starts at now.
func LoadState(store Counters, l *Ladder, now time.Time) *State {
	s := NewState(l, now)
	for _, a := range l.actions {
		if a.MaxInvocations == Unlimited {
			continue
		}
		remaining := a.MaxInvocations - store.Get(a.Name)
		if remaining < 0 {
			remaining = 0
		}
		s.Remaining[a.Name] = remaining
	}
	return s
}

// HasBudget reports whether action may fire again.
func (s *State) HasBudget(action string) bool {
	r, ok := s.Remaining[action]
	return ok && (r == Unlimited || r > 0)
}

// Fired returns how often the rung with index fired in the current outage.
func (s *State) Fired(index int) int {
	return s.fired[index]
}

// RemainingString renders the remaining budget for logs.
func (s *State) RemainingString(action string) string {
	r := s.Remaining[action]
	if r == Unlimited {
		return "unlimited"
	}
	return strconv.Itoa(r)
}

func (s *State) consume(action string) {
	if r := s.Remaining[action]; r > 0 {
		s.Remaining[action] = r - 1
	}
}
