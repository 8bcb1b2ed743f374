package recovery

import (
	"context"
	"fmt"
	"time"

	"github.com/jerkytreats/nwwatchdog/internal/logging"
)

// ActionExecutionError wraps a failed or panicking effect.
type ActionExecutionError struct {
	Action string
	Err    error
}

func (e *ActionExecutionError) Error() string {
	return fmt.Sprintf("action %s failed: %v", e.Action, e.Err)
}

func (e *ActionExecutionError) Unwrap() error { return e.Err }

// Result is the outcome of one effect execution.
type Result struct {
	Action   string
	OK       bool
	Err      error
	Duration time.Duration
}

// Executor runs effects under a timeout and never lets them fail the loop.
type Executor struct {
	timeout time.Duration
}

// NewExecutor creates an Executor. A zero timeout only honours ctx.
func NewExecutor(timeout time.Duration) *Executor {
	return &Executor{timeout: timeout}
}

// Execute applies the action's effect. Errors and panics are logged and
// reported in the Result.
func (e *Executor) Execute(ctx context.Context, action *Action) (res Result) {
	start := time.Now()
	res.Action = action.Name

	defer func() {
		if r := recover(); r != nil {
			res.Err = &ActionExecutionError{Action: action.Name, Err: fmt.Errorf("panic: %v", r)}
		}
		res.Duration = time.Since(start)
		res.OK = res.Err == nil
		if res.OK {
			logging.Info("Action %s completed in %v", action.Name, res.Duration)
		} else {
			logging.Error("Action %s failed after %v: %v", action.Name, res.Duration, res.Err)
		}
	}()

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	if err := action.Effect.Apply(ctx); err != nil {
		res.Err = &ActionExecutionError{Action: action.Name, Err: err}
	}
	return res
}
