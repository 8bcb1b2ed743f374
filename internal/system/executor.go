// Package system abstracts command execution so host actions and probes can be tested.
package system

import (
	"context"
	"os/exec"
)

// CommandExecutor runs external commands.
type CommandExecutor interface {
	// Execute runs a command and returns its combined output.
	Execute(ctx context.Context, name string, args ...string) ([]byte, error)
}

// osExecutor implements CommandExecutor using os/exec.
type osExecutor struct{}

func (e *osExecutor) Execute(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	return cmd.CombinedOutput()
}

var defaultExecutor CommandExecutor = &osExecutor{}

// DefaultExecutor returns the CommandExecutor backed by the real OS.
func DefaultExecutor() CommandExecutor {
	return defaultExecutor
}
