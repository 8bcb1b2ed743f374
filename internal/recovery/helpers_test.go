package recovery

import (
	"context"
	"errors"
	"sync"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// memCounters is an in-memory Counters.
type memCounters struct {
	mu        sync.Mutex
	counts    map[string]int
	failWrite bool
}

func newMemCounters() *memCounters {
	return &memCounters{counts: make(map[string]int)}
}

func (m *memCounters) Get(action string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[action]
}

func (m *memCounters) Increment(action string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return m.counts[action] + 1, errors.New("disk full")
	}
	m.counts[action]++
	return m.counts[action], nil
}

func (m *memCounters) Reset(action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failWrite {
		return errors.New("disk full")
	}
	m.counts[action] = 0
	return nil
}

// recordingEffect counts applications.
type recordingEffect struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (r *recordingEffect) Apply(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	return r.err
}

func (r *recordingEffect) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

func seconds(vals ...int) []time.Duration {
	out := make([]time.Duration, len(vals))
	for i, v := range vals {
		out[i] = time.Duration(v) * time.Second
	}
	return out
}

// scenarioActions mirrors a typical deployment: three service restarts
// followed by a reboot.
func scenarioActions(restart, reboot Effect) []Action {
	return []Action{
		{Name: "network", Thresholds: seconds(900, 1200, 1500), MaxInvocations: 4, ResetOnHealthy: true, Effect: restart},
		{Name: "reboot", Thresholds: seconds(1800), MaxInvocations: 2, ResetOnHealthy: true, Effect: reboot},
	}
}

type firing struct {
	at     time.Duration
	action string
}

// runOutage drives the ladder through a continuous outage sampled every tick.
func runOutage(l *Ladder, state *State, store Counters, until, tick time.Duration) []firing {
	exec := NewExecutor(time.Second)
	var fired []firing
	for t := time.Duration(0); t <= until; t += tick {
		if r := l.SelectAction(t, state); r != nil {
			l.Fire(context.Background(), r, state, exec, store)
			fired = append(fired, firing{at: t, action: r.Action.Name})
		}
	}
	return fired
}
