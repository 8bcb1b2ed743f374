package healthcheck

import (
	"context"
	"time"

	"github.com/jerkytreats/nwwatchdog/internal/clock"
	"github.com/jerkytreats/nwwatchdog/internal/logging"
)

// Prober wraps a Checker into a fail-safe boolean probe: anything other than
// a clean positive answer is unhealthy.
type Prober struct {
	checker     Checker
	clock       clock.Clock
	beforeCheck func()
}

// ProberOption configures a Prober.
type ProberOption func(*Prober)

// WithBeforeCheck registers fn to run before every single check. The watchdog
// uses it to keep the supervisor heartbeat flowing during hysteresis.
func WithBeforeCheck(fn func()) ProberOption {
	return func(p *Prober) {
		p.beforeCheck = fn
	}
}

// NewProber creates a Prober around checker.
func NewProber(checker Checker, clk clock.Clock, opts ...ProberOption) *Prober {
	p := &Prober{checker: checker, clock: clk}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check runs one connectivity check. It never fails: errors and panics in the
// checker are downgraded to false.
func (p *Prober) Check(ctx context.Context) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			logging.Warn("probe %s panicked: %v", p.checker.Name(), r)
			ok = false
		}
	}()

	if p.beforeCheck != nil {
		p.beforeCheck()
	}

	passed, latency, err := p.checker.CheckOnce(ctx)
	if err != nil {
		logging.Debug("probe %s failed after %v: %v", p.checker.Name(), latency, err)
		return false
	}
	return passed
}

// CheckStable requires passes consecutive positive checks, spaced by spacing,
// before reporting true. The first failing check returns false immediately.
func (p *Prober) CheckStable(ctx context.Context, passes int, spacing time.Duration) bool {
	for i := 0; i < passes; i++ {
		if i > 0 {
			if err := p.clock.Sleep(ctx, spacing); err != nil {
				return false
			}
		}
		if !p.Check(ctx) {
			logging.Debug("stable check failed on pass %d/%d", i+1, passes)
			return false
		}
	}
	return passes > 0
}
