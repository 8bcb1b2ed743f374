package recovery

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jerkytreats/nwwatchdog/internal/logging"
)

// Counters is the persisted side of the budget accounting.
type Counters interface {
	Get(action string) int
	Increment(action string) (int, error)
	Reset(action string) error
}

// Rung is one (threshold, action) pair of the ladder.
type Rung struct {
	Index     int
	Threshold time.Duration
	Action    *Action
	Periodic  bool

	// selectedAt is the outage duration SelectAction chose the rung at.
	selectedAt time.Duration
}

// due reports whether the rung should fire after fired previous firings in
// the current outage, the latest at outage duration last. A periodic rung
// re-arms one interval after it actually fired.
func (r Rung) due(unhealthy time.Duration, fired int, last time.Duration) bool {
	if unhealthy < r.Threshold {
		return false
	}
	if fired == 0 {
		return true
	}
	return r.Periodic && unhealthy >= last+r.Action.Interval
}

func (r Rung) String() string {
	return fmt.Sprintf("%s@%v", r.Action.Name, r.Threshold)
}

// Ladder is the immutable, threshold-sorted list of rungs.
type Ladder struct {
	actions []*Action
	rungs   []Rung
}

// NewLadder expands actions into rungs and sorts them by threshold. Equal
// thresholds keep declaration order.
func NewLadder(actions []Action) (*Ladder, error) {
	if len(actions) == 0 {
		return nil, fmt.Errorf("ladder needs at least one action")
	}

	l := &Ladder{}
	seen := make(map[string]bool, len(actions))
	for i := range actions {
		a := actions[i]
		if err := a.validate(); err != nil {
			return nil, err
		}
		if seen[a.Name] {
			return nil, fmt.Errorf("duplicate action %s", a.Name)
		}
		seen[a.Name] = true

		a.Thresholds = append([]time.Duration(nil), a.Thresholds...)
		ap := &a
		l.actions = append(l.actions, ap)
		for _, th := range ap.Thresholds {
			l.rungs = append(l.rungs, Rung{Threshold: th, Action: ap, Periodic: ap.Interval > 0})
		}
	}

	sort.SliceStable(l.rungs, func(i, j int) bool {
		return l.rungs[i].Threshold < l.rungs[j].Threshold
	})
	for i := range l.rungs {
		l.rungs[i].Index = i
	}
	return l, nil
}

// Rungs returns a copy of the sorted rungs.
func (l *Ladder) Rungs() []Rung {
	return append([]Rung(nil), l.rungs...)
}

// Actions returns the actions in declaration order.
func (l *Ladder) Actions() []*Action {
	return append([]*Action(nil), l.actions...)
}

// Action looks up an action by name.
func (l *Ladder) Action(name string) (*Action, bool) {
	for _, a := range l.actions {
		if a.Name == name {
			return a, true
		}
	}
	return nil, false
}

// SelectAction returns the first due rung whose action still has budget, or
// nil. Exhausted rungs are skipped; a less severe action is never chosen in
// place of an exhausted one unless it is itself due.
func (l *Ladder) SelectAction(unhealthy time.Duration, state *State) *Rung {
	for i := range l.rungs {
		r := l.rungs[i]
		if !r.due(unhealthy, state.fired[r.Index], state.lastFired[r.Index]) {
			continue
		}
		if !state.HasBudget(r.Action.Name) {
			logging.Debug("Rung %s is due but %s is out of budget", r, r.Action.Name)
			continue
		}
		r.selectedAt = unhealthy
		return &r
	}
	return nil
}

// FireResult describes one firing.
type FireResult struct {
	Rung       Rung
	Count      int
	PersistErr error
	Execution  Result
}

// Fire consumes budget, records the firing, persists the counter and only then
// runs the effect. A persistence failure is logged and the firing stands.
func (l *Ladder) Fire(ctx context.Context, rung *Rung, state *State, executor *Executor, store Counters) FireResult {
	name := rung.Action.Name
	state.consume(name)
	state.fired[rung.Index]++
	state.lastFired[rung.Index] = rung.selectedAt

	res := FireResult{Rung: *rung}
	res.Count, res.PersistErr = store.Increment(name)
	if res.PersistErr != nil {
		logging.Error("Failed to persist counter for %s, firing anyway: %v", name, res.PersistErr)
	}

	logging.Info("Firing %s (threshold %v, invocation %d, remaining %s)",
		name, rung.Threshold, res.Count, state.RemainingString(name))

	res.Execution = executor.Execute(ctx, rung.Action)
	return res
}

// Disarm records full health: the outage is over and per-outage firings are cleared.
func (l *Ladder) Disarm(state *State, now time.Time) {
	state.LastHealthy = now
	if len(state.fired) > 0 {
		state.fired = make(map[int]int)
		state.lastFired = make(map[int]time.Duration)
	}
}

// Forgive restores the budget of every reset-on-healthy action whose persisted
// counter is non-zero. It returns the forgiven action names.
func (l *Ladder) Forgive(state *State, store Counters) []string {
	var forgiven []string
	for _, a := range l.actions {
		if !a.ResetOnHealthy {
			continue
		}
		if store.Get(a.Name) == 0 && state.Remaining[a.Name] == a.MaxInvocations {
			continue
		}
		if err := store.Reset(a.Name); err != nil {
			logging.Error("Failed to reset counter for %s: %v", a.Name, err)
		}
		state.Remaining[a.Name] = a.MaxInvocations
		forgiven = append(forgiven, a.Name)
	}
	if len(forgiven) > 0 {
		logging.Info("Connectivity recovering, reset counters for %v", forgiven)
	}
	return forgiven
}
