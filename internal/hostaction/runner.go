// Package hostaction provides the host-level side effects fired by the
// recovery ladder: service restarts, reboots and operator commands.
package hostaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jerkytreats/nwwatchdog/internal/logging"
	"github.com/jerkytreats/nwwatchdog/internal/system"
)

// RunResult represents the result of one host command.
type RunResult struct {
	Command  []string
	Output   string
	Duration time.Duration
	Error    error
}

// Success reports whether the command exited cleanly.
func (r *RunResult) Success() bool { return r.Error == nil }

// Runner executes host commands and logs their outcome.
type Runner struct {
	exec system.CommandExecutor
}

// NewRunner creates a Runner. A nil executor selects the OS one.
func NewRunner(exec system.CommandExecutor) *Runner {
	if exec == nil {
		exec = system.DefaultExecutor()
	}
	return &Runner{exec: exec}
}

// Run executes argv under ctx.
func (r *Runner) Run(ctx context.Context, argv ...string) *RunResult {
	result := &RunResult{Command: argv}
	if len(argv) == 0 {
		result.Error = fmt.Errorf("empty command")
		return result
	}

	start := time.Now()
	logging.Info("Executing command: %v", argv)

	out, err := r.exec.Execute(ctx, argv[0], argv[1:]...)
	result.Duration = time.Since(start)
	result.Output = strings.TrimSpace(string(out))
	if err != nil {
		result.Error = fmt.Errorf("command %q failed: %w", strings.Join(argv, " "), err)
	}

	r.logRunResult(result)
	return result
}

func (r *Runner) logRunResult(result *RunResult) {
	if result.Success() {
		logging.Info("Command %s succeeded in %v", result.Command[0], result.Duration)
		if result.Output != "" {
			logging.Debug("Command output: %s", result.Output)
		}
		return
	}

	logging.Error("Command %s failed after %v: %v", result.Command[0], result.Duration, result.Error)
	if result.Output != "" {
		logging.Error("Command output: %s", result.Output)
	}
}
