package healthcheck

import (
	"time"
)

// Sample is one probe outcome.
type Sample struct {
	At time.Time
	OK bool
}

// Window keeps the samples of the last duration and derives health from
// their pass ratio.
type Window struct {
	duration          time.Duration
	healthyThreshold  float64
	recoveryThreshold float64
	samples           []Sample
}

// NewWindow creates a rolling window. Thresholds are fractions in (0, 1].
func NewWindow(duration time.Duration, healthyThreshold, recoveryThreshold float64) *Window {
	return &Window{
		duration:          duration,
		healthyThreshold:  healthyThreshold,
		recoveryThreshold: recoveryThreshold,
	}
}

// Record appends s and evicts every sample older than the window, measured
// from s.At.
func (w *Window) Record(s Sample) {
	w.samples = append(w.samples, s)

	cutoff := 0
	for cutoff < len(w.samples) && s.At.Sub(w.samples[cutoff].At) > w.duration {
		cutoff++
	}
	if cutoff > 0 {
		w.samples = append(w.samples[:0], w.samples[cutoff:]...)
	}
}

// PassRatio is count(ok)/count(total); an empty window has ratio 0.
func (w *Window) PassRatio() float64 {
	if len(w.samples) == 0 {
		return 0
	}
	passed := 0
	for _, s := range w.samples {
		if s.OK {
			passed++
		}
	}
	return float64(passed) / float64(len(w.samples))
}

// IsHealthy reports whether the pass ratio reaches the healthy threshold.
func (w *Window) IsHealthy() bool {
	return len(w.samples) > 0 && w.PassRatio() >= w.healthyThreshold
}

// IsRecovering reports whether the pass ratio reaches the recovery threshold.
func (w *Window) IsRecovering() bool {
	return len(w.samples) > 0 && w.PassRatio() >= w.recoveryThreshold
}

// Len is the number of retained samples.
func (w *Window) Len() int {
	return len(w.samples)
}
