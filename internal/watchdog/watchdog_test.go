package watchdog

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jerkytreats/nwwatchdog/internal/clock"
	"github.com/jerkytreats/nwwatchdog/internal/healthcheck"
	"github.com/jerkytreats/nwwatchdog/internal/persistence"
	"github.com/jerkytreats/nwwatchdog/internal/recovery"
	"github.com/jerkytreats/nwwatchdog/internal/supervisor"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// clockChecker is healthy whenever up(now) holds.
type clockChecker struct {
	clk clock.Clock
	up  func(now time.Time) bool
}

func (c *clockChecker) Name() string { return "clock" }

func (c *clockChecker) CheckOnce(ctx context.Context) (bool, time.Duration, error) {
	if c.up(c.clk.Now()) {
		return true, 0, nil
	}
	return false, 0, &healthcheck.ProbeError{Checker: c.Name(), Err: context.DeadlineExceeded}
}

type countingEffect struct {
	mu    sync.Mutex
	calls []time.Time
	clk   clock.Clock
	hook  func()
}

func (e *countingEffect) Apply(ctx context.Context) error {
	e.mu.Lock()
	e.calls = append(e.calls, e.clk.Now())
	hook := e.hook
	e.mu.Unlock()
	if hook != nil {
		hook()
	}
	return nil
}

func (e *countingEffect) offsets() []time.Duration {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []time.Duration
	for _, c := range e.calls {
		out = append(out, c.Sub(epoch))
	}
	return out
}

type fixture struct {
	clk     *clock.Fake
	restart *countingEffect
	reboot  *countingEffect
	ladder  *recovery.Ladder
	store   *persistence.CounterStore
	files   []persistence.CounterFile
	beats   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{clk: clock.NewFake(epoch)}
	f.restart = &countingEffect{clk: f.clk}
	f.reboot = &countingEffect{clk: f.clk}
	f.files = []persistence.CounterFile{
		{Action: "network", Path: filepath.Join(dir, "network-resets")},
		{Action: "reboot", Path: filepath.Join(dir, "reboot-resets")},
	}

	ladder, err := recovery.NewLadder([]recovery.Action{
		{Name: "network", Thresholds: secs(900, 1200, 1500), MaxInvocations: 4, ResetOnHealthy: true, Effect: f.restart},
		{Name: "reboot", Thresholds: secs(1800), MaxInvocations: 2, ResetOnHealthy: true, Effect: f.reboot},
	})
	require.NoError(t, err)
	f.ladder = ladder
	f.store = persistence.NewCounterStore(f.files, 0, persistence.WithRetryDelay(time.Millisecond))
	return f
}

func (f *fixture) loop(up func(time.Time) bool) *Loop {
	prober := healthcheck.NewProber(&clockChecker{clk: f.clk, up: up}, f.clk)
	return New(Config{
		Clock:     f.clk,
		Heartbeat: supervisor.BeatFunc(func() { f.beats++ }),
		Strategy:  healthcheck.NewHysteresisStrategy(prober, 3, 5*time.Second),
		Ladder:    f.ladder,
		Executor:  recovery.NewExecutor(time.Minute),
		Store:     f.store,
		Interval:  15 * time.Second,
	})
}

// reopen simulates a process restart after a reboot.
func (f *fixture) reopen() {
	f.store = persistence.NewCounterStore(f.files, 0, persistence.WithRetryDelay(time.Millisecond))
}

func secs(vals ...int) []time.Duration {
	out := make([]time.Duration, len(vals))
	for i, v := range vals {
		out[i] = time.Duration(v) * time.Second
	}
	return out
}

func runFor(t *testing.T, l *Loop, clk *clock.Fake, d time.Duration) {
	t.Helper()
	end := clk.Now().Add(d)
	for !clk.Now().After(end) {
		l.Tick(context.Background())
		require.NoError(t, clk.Sleep(context.Background(), 15*time.Second))
	}
}

func down(time.Time) bool { return false }

func TestCancelledTickDoesNotFire(t *testing.T) {
	f := newFixture(t)
	l := f.loop(down)

	f.clk.Advance(901 * time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := l.Tick(ctx)
	assert.Nil(t, res.Fired)
	assert.Empty(t, f.restart.offsets())
	assert.Equal(t, 0, f.store.Get("network"))
	assert.Equal(t, 4, l.State().Remaining["network"])
	assert.Equal(t, PhaseWaiting, l.Phase())

	res = l.Tick(context.Background())
	require.NotNil(t, res.Fired)
	assert.Equal(t, "network", res.Fired.Rung.Action.Name)
	assert.Equal(t, 1, f.store.Get("network"))
}

func TestContinuousOutageEscalates(t *testing.T) {
	f := newFixture(t)
	l := f.loop(down)

	runFor(t, l, f.clk, time.Hour)

	assert.Equal(t, secs(900, 1200, 1500), f.restart.offsets())
	assert.Equal(t, secs(1800), f.reboot.offsets())
	assert.Equal(t, map[string]int{"network": 3, "reboot": 1}, f.store.Snapshot())
}

func TestRestartAfterRebootKeepsBudgets(t *testing.T) {
	f := newFixture(t)
	runFor(t, f.loop(down), f.clk, 1900*time.Second)
	require.Len(t, f.reboot.offsets(), 1)

	f.reopen()
	boot := f.clk.Now()
	l := f.loop(down)
	assert.Equal(t, boot, l.State().LastHealthy)
	assert.Equal(t, 1, l.State().Remaining["network"])
	assert.Equal(t, 1, l.State().Remaining["reboot"])

	f.restart.calls, f.reboot.calls = nil, nil
	runFor(t, l, f.clk, time.Hour)

	require.Len(t, f.restart.calls, 1)
	assert.Equal(t, 900*time.Second, f.restart.calls[0].Sub(boot))
	require.Len(t, f.reboot.calls, 1)
	assert.Equal(t, 1800*time.Second, f.reboot.calls[0].Sub(boot))
}

func TestRecoveryBeforeAnyThreshold(t *testing.T) {
	f := newFixture(t)
	l := f.loop(func(now time.Time) bool { return !now.Before(epoch.Add(500 * time.Second)) })

	runFor(t, l, f.clk, time.Hour)

	assert.Empty(t, f.restart.offsets())
	assert.Empty(t, f.reboot.offsets())
	assert.True(t, l.State().LastHealthy.After(epoch.Add(500*time.Second)))
}

func TestHealthyTickForgivesCounters(t *testing.T) {
	f := newFixture(t)
	healthyFrom := epoch.Add(1000 * time.Second)
	l := f.loop(func(now time.Time) bool { return !now.Before(healthyFrom) })

	runFor(t, l, f.clk, 980*time.Second)
	require.Len(t, f.restart.offsets(), 1)
	assert.Equal(t, 1, f.store.Get("network"))
	assert.Equal(t, 3, l.State().Remaining["network"])

	f.clk.Advance(healthyFrom.Sub(f.clk.Now()))
	res := l.Tick(context.Background())
	assert.True(t, res.Verdict.Healthy)
	assert.Equal(t, []string{"network"}, res.Forgiven)
	assert.Equal(t, 0, f.store.Get("network"))
	assert.Equal(t, 4, l.State().Remaining["network"])
	assert.Nil(t, res.Fired)
}

func TestTickHeartbeatsAndPhase(t *testing.T) {
	f := newFixture(t)
	l := f.loop(down)

	var phase Phase
	f.restart.hook = func() { phase = l.Phase() }

	l.Tick(context.Background())
	assert.Equal(t, 1, f.beats)

	f.clk.Advance(900 * time.Second)
	res := l.Tick(context.Background())
	require.NotNil(t, res.Fired)
	assert.Equal(t, "network", res.Fired.Rung.Action.Name)
	assert.Equal(t, 900*time.Second, res.Unhealthy)
	assert.Equal(t, 3, f.beats)
	assert.Equal(t, PhaseActing, phase)
	assert.Equal(t, PhaseWaiting, l.Phase())
	assert.Equal(t, "ACTING", PhaseActing.String())
}

func TestWindowStrategyLoop(t *testing.T) {
	f := newFixture(t)
	// flapping link: down one tick out of three, starting down
	tick := 0
	checker := &clockChecker{clk: f.clk, up: func(time.Time) bool {
		tick++
		return tick%3 != 1
	}}
	prober := healthcheck.NewProber(checker, f.clk)
	l := New(Config{
		Clock:    f.clk,
		Strategy: healthcheck.NewWindowStrategy(prober, healthcheck.NewWindow(10*time.Minute, 0.9, 0.5), f.clk),
		Ladder:   f.ladder,
		Executor: recovery.NewExecutor(time.Minute),
		Store:    f.store,
		Interval: 15 * time.Second,
	})

	runFor(t, l, f.clk, time.Hour)

	// 66% passes: recovering but never healthy, so escalation proceeds while
	// forgiveness keeps restoring budgets
	assert.Equal(t, secs(900, 1200, 1500), f.restart.offsets())
	assert.Equal(t, secs(1800), f.reboot.offsets())
	assert.Equal(t, 4, l.State().Remaining["network"])
	assert.Equal(t, 2, l.State().Remaining["reboot"])
}

func TestRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	boot := &countingEffect{clk: f.clk}
	prober := healthcheck.NewProber(&clockChecker{clk: f.clk, up: down}, f.clk)
	beats := 0
	l := New(Config{
		Clock: f.clk,
		Heartbeat: supervisor.BeatFunc(func() {
			beats++
			if beats == 5 {
				cancel()
			}
		}),
		Strategy:    healthcheck.NewHysteresisStrategy(prober, 1, 0),
		Ladder:      f.ladder,
		Executor:    recovery.NewExecutor(time.Minute),
		Store:       f.store,
		Interval:    15 * time.Second,
		BootSuccess: boot,
	})

	err := l.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, boot.calls, 1)
	assert.Equal(t, 5, beats)
	assert.Equal(t, epoch.Add(60*time.Second), f.clk.Now())
}
