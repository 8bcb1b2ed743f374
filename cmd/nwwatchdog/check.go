package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jerkytreats/nwwatchdog/internal/healthcheck"
	"github.com/jerkytreats/nwwatchdog/internal/system"
)

// newExecutor is replaced in tests.
var newExecutor = system.DefaultExecutor

func newCheckCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Probe the reverse tunnel once and exit non-zero when it is down",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(opts)
			if err != nil {
				return err
			}
			checker := healthcheck.NewTunnelChecker(s.Tunnel.Host, s.Tunnel.Port, s.Watchdog.ProbeTimeout, newExecutor(), nil)
			return runCheck(cmd.Context(), cmd, checker)
		},
	}
}

func runCheck(ctx context.Context, cmd *cobra.Command, checkers ...healthcheck.Checker) error {
	results, healthy := healthcheck.Aggregate(ctx, checkers...)
	out := cmd.OutOrStdout()
	for _, chk := range checkers {
		r := results[chk.Name()]
		if r.Healthy {
			fmt.Fprintf(out, "%s: ok (%v)\n", chk.Name(), r.Latency)
			continue
		}
		fmt.Fprintf(out, "%s: FAIL: %v\n", chk.Name(), r.Error)
	}
	if !healthy {
		return &exitError{code: 1}
	}
	return nil
}
