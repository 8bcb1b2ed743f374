// Package watchdog runs the tick loop: heartbeat, health verdict, counter
// forgiveness, and escalation through the recovery ladder.
package watchdog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jerkytreats/nwwatchdog/internal/clock"
	"github.com/jerkytreats/nwwatchdog/internal/healthcheck"
	"github.com/jerkytreats/nwwatchdog/internal/logging"
	"github.com/jerkytreats/nwwatchdog/internal/recovery"
	"github.com/jerkytreats/nwwatchdog/internal/supervisor"
)

// Phase is what the loop is doing right now.
type Phase int32

const (
	PhaseWaiting Phase = iota
	PhaseActing
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "WAITING"
	case PhaseActing:
		return "ACTING"
	default:
		return fmt.Sprintf("Phase(%d)", int32(p))
	}
}

// Config wires a Loop.
type Config struct {
	Clock     clock.Clock
	Heartbeat supervisor.Heartbeat
	Strategy  healthcheck.Strategy
	Ladder    *recovery.Ladder
	Executor  *recovery.Executor
	Store     recovery.Counters
	Interval  time.Duration
	// BootSuccess, when set, runs once before the first tick.
	BootSuccess recovery.Effect
}

// Loop is the watchdog engine.
type Loop struct {
	clock       clock.Clock
	heartbeat   supervisor.Heartbeat
	strategy    healthcheck.Strategy
	ladder      *recovery.Ladder
	executor    *recovery.Executor
	store       recovery.Counters
	interval    time.Duration
	bootSuccess recovery.Effect

	state *recovery.State
	phase atomic.Int32
}

// TickResult summarizes one tick.
type TickResult struct {
	Verdict   healthcheck.Verdict
	Unhealthy time.Duration
	Forgiven  []string
	Fired     *recovery.FireResult
}

// New creates a Loop. Recovery state is always reloaded from the counter
// store, with the outage clock starting now.
func New(cfg Config) *Loop {
	hb := cfg.Heartbeat
	if hb == nil {
		hb = supervisor.Multi{}
	}
	return &Loop{
		clock:       cfg.Clock,
		heartbeat:   hb,
		strategy:    cfg.Strategy,
		ladder:      cfg.Ladder,
		executor:    cfg.Executor,
		store:       cfg.Store,
		interval:    cfg.Interval,
		bootSuccess: cfg.BootSuccess,
		state:       recovery.LoadState(cfg.Store, cfg.Ladder, cfg.Clock.Now()),
	}
}

// Phase reports whether an action is currently executing.
func (l *Loop) Phase() Phase {
	return Phase(l.phase.Load())
}

// State exposes the recovery state. It is not safe to use concurrently with Tick.
func (l *Loop) State() *recovery.State {
	return l.state
}

// Tick runs one iteration and fires at most one action.
func (l *Loop) Tick(ctx context.Context) TickResult {
	l.heartbeat.Beat()

	var res TickResult
	res.Verdict = l.strategy.Evaluate(ctx)
	if err := ctx.Err(); err != nil {
		// a probe cut short by shutdown says nothing about the link
		logging.Debug("Tick abandoned: %v", err)
		return res
	}
	now := l.clock.Now()

	if res.Verdict.Recovering {
		res.Forgiven = l.ladder.Forgive(l.state, l.store)
	}
	if res.Verdict.Healthy {
		l.ladder.Disarm(l.state, now)
		logging.Info("Connection ok")
		return res
	}

	res.Unhealthy = now.Sub(l.state.LastHealthy)
	logging.Warn("No connection for %v", res.Unhealthy.Truncate(time.Second))

	rung := l.ladder.SelectAction(res.Unhealthy, l.state)
	if rung == nil {
		return res
	}

	l.phase.Store(int32(PhaseActing))
	defer l.phase.Store(int32(PhaseWaiting))

	l.heartbeat.Beat()
	fired := l.ladder.Fire(ctx, rung, l.state, l.executor, l.store)
	res.Fired = &fired
	return res
}

// Run ticks every interval until ctx is cancelled and returns ctx.Err().
func (l *Loop) Run(ctx context.Context) error {
	if l.bootSuccess != nil {
		logging.Info("Marking boot as successful")
		if err := l.bootSuccess.Apply(ctx); err != nil {
			logging.Warn("Boot success command failed: %v", err)
		}
	}

	logging.Info("Watchdog started, checking every %v", l.interval)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		l.Tick(ctx)
		if err := l.clock.Sleep(ctx, l.interval); err != nil {
			logging.Info("Watchdog stopping: %v", err)
			return err
		}
	}
}
