package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/jerkytreats/nwwatchdog/internal/logging"
)

func main() {
	defer logging.Sync()

	if err := newRootCmd().Execute(); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			os.Exit(ee.code)
		}
		logging.UserError("%v", err)
		os.Exit(1)
	}
}

// exitError ends the process with code without printing anything further.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
