package healthcheck

import (
	"context"
	"time"

	"github.com/jerkytreats/nwwatchdog/internal/clock"
	"github.com/jerkytreats/nwwatchdog/internal/logging"
)

// Verdict is the health decision for one tick.
//
// Healthy disarms the recovery ladder. Recovering is the weaker condition
// under which persisted counters may be forgiven; Healthy implies Recovering.
type Verdict struct {
	Healthy    bool
	Recovering bool
	PassRatio  float64
}

// Strategy produces one Verdict per tick.
type Strategy interface {
	Evaluate(ctx context.Context) Verdict
}

// HysteresisStrategy declares health only after a run of consecutive passes.
type HysteresisStrategy struct {
	prober  *Prober
	passes  int
	spacing time.Duration
}

// NewHysteresisStrategy creates the successive-passes strategy.
func NewHysteresisStrategy(prober *Prober, passes int, spacing time.Duration) *HysteresisStrategy {
	return &HysteresisStrategy{prober: prober, passes: passes, spacing: spacing}
}

func (h *HysteresisStrategy) Evaluate(ctx context.Context) Verdict {
	ok := h.prober.CheckStable(ctx, h.passes, h.spacing)
	v := Verdict{Healthy: ok, Recovering: ok}
	if ok {
		v.PassRatio = 1
	}
	return v
}

// WindowStrategy records one probe per tick into a rolling window and judges
// health from its pass ratio.
type WindowStrategy struct {
	prober *Prober
	window *Window
	clock  clock.Clock
}

// NewWindowStrategy creates the rolling-window strategy.
func NewWindowStrategy(prober *Prober, window *Window, clk clock.Clock) *WindowStrategy {
	return &WindowStrategy{prober: prober, window: window, clock: clk}
}

func (w *WindowStrategy) Evaluate(ctx context.Context) Verdict {
	ok := w.prober.Check(ctx)
	w.window.Record(Sample{At: w.clock.Now(), OK: ok})

	v := Verdict{
		Healthy:    w.window.IsHealthy(),
		Recovering: w.window.IsRecovering(),
		PassRatio:  w.window.PassRatio(),
	}
	logging.Debug("window verdict: ok=%t ratio=%.2f samples=%d healthy=%t recovering=%t",
		ok, v.PassRatio, w.window.Len(), v.Healthy, v.Recovering)
	return v
}
