// Package healthcheck turns raw connectivity probes into a health verdict for the watchdog.
package healthcheck

import (
	"context"
	"fmt"
	"time"
)

// Checker is the common interface implemented by all connectivity checkers.
type Checker interface {
	// Name returns the component name.
	Name() string
	// CheckOnce performs a single probe. ok==true means healthy; latency is the
	// time it took; err is populated on failure.
	CheckOnce(ctx context.Context) (ok bool, latency time.Duration, err error)
}

// Result holds the outcome of a health probe.
type Result struct {
	Healthy bool
	Latency time.Duration
	Error   error
}

// ProbeError reports that a connectivity test could not produce a positive answer.
type ProbeError struct {
	Checker string
	Err     error
}

func (e *ProbeError) Error() string {
	return fmt.Sprintf("probe %s failed: %v", e.Checker, e.Err)
}

func (e *ProbeError) Unwrap() error { return e.Err }

// Aggregate runs each checker once and returns per-component results plus an overall flag.
func Aggregate(ctx context.Context, checkers ...Checker) (map[string]Result, bool) {
	results := make(map[string]Result, len(checkers))
	allHealthy := len(checkers) > 0
	for _, chk := range checkers {
		ok, dur, err := chk.CheckOnce(ctx)
		if !ok {
			allHealthy = false
		}
		results[chk.Name()] = Result{Healthy: ok, Latency: dur, Error: err}
	}
	return results, allHealthy
}
