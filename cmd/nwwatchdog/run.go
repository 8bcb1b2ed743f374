package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jerkytreats/nwwatchdog/internal/clock"
	"github.com/jerkytreats/nwwatchdog/internal/config"
	"github.com/jerkytreats/nwwatchdog/internal/healthcheck"
	"github.com/jerkytreats/nwwatchdog/internal/hostaction"
	"github.com/jerkytreats/nwwatchdog/internal/logging"
	"github.com/jerkytreats/nwwatchdog/internal/recovery"
	"github.com/jerkytreats/nwwatchdog/internal/supervisor"
	"github.com/jerkytreats/nwwatchdog/internal/system"
	"github.com/jerkytreats/nwwatchdog/internal/watchdog"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the watchdog loop (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchdog(cmd, opts)
		},
	}
}

func runWatchdog(cmd *cobra.Command, opts *rootOptions) error {
	s, err := loadSettings(opts)
	if err != nil {
		return err
	}

	systemd := supervisor.NewSystemd()
	timeout, err := systemd.Timeout()
	if err != nil {
		logging.Warn("Failed to read systemd watchdog timeout: %v", err)
	}
	if err := config.ValidateSupervisor(s, timeout); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loop, err := buildLoop(s, clock.Real{}, newExecutor(), systemd)
	if err != nil {
		return err
	}

	systemd.Ready()
	err = loop.Run(ctx)
	systemd.Stopping()

	if errors.Is(err, context.Canceled) {
		logging.Info("Watchdog stopped")
		return nil
	}
	return err
}

// buildLoop wires the watchdog from validated settings.
func buildLoop(s *config.Settings, clk clock.Clock, exec system.CommandExecutor, systemd supervisor.Heartbeat) (*watchdog.Loop, error) {
	heartbeat := supervisor.Multi{}
	if systemd != nil {
		heartbeat = append(heartbeat, systemd)
	}
	if s.Watchdog.OKFile != "" {
		heartbeat = append(heartbeat, supervisor.NewMarker(s.Watchdog.OKFile, clk))
	}

	runner := hostaction.NewRunner(exec)
	actions, err := hostaction.Build(s, runner)
	if err != nil {
		return nil, err
	}
	ladder, err := recovery.NewLadder(actions)
	if err != nil {
		return nil, err
	}

	checker := healthcheck.NewTunnelChecker(s.Tunnel.Host, s.Tunnel.Port, s.Watchdog.ProbeTimeout, exec, nil)
	prober := healthcheck.NewProber(checker, clk, healthcheck.WithBeforeCheck(heartbeat.Beat))

	var strategy healthcheck.Strategy
	if s.Watchdog.WindowMode() {
		window := healthcheck.NewWindow(s.Watchdog.HistoryWindow(), s.Watchdog.HealthyPerc, s.Watchdog.RecoveryPerc)
		strategy = healthcheck.NewWindowStrategy(prober, window, clk)
		logging.Info("Health verdict: rolling window of %v (healthy >= %.0f%%, recovering >= %.0f%%)",
			s.Watchdog.HistoryWindow(), s.Watchdog.HealthyPerc*100, s.Watchdog.RecoveryPerc*100)
	} else {
		strategy = healthcheck.NewHysteresisStrategy(prober, s.Watchdog.SuccessivePasses, s.Watchdog.SuccessiveSpacing())
		logging.Info("Health verdict: %d successive passes %v apart",
			s.Watchdog.SuccessivePasses, s.Watchdog.SuccessiveSpacing())
	}

	var bootSuccess recovery.Effect
	if len(s.Watchdog.BootSuccessCommand) > 0 {
		bootSuccess = hostaction.NewCommand(runner, s.Watchdog.BootSuccessCommand)
	}

	for _, r := range ladder.Rungs() {
		logging.Info("Recovery rung %s (periodic=%t, max_resets=%d)", r, r.Periodic, r.Action.MaxInvocations)
	}
	logging.Info("Monitoring reverse tunnel %s", checker.Target())

	return watchdog.New(watchdog.Config{
		Clock:       clk,
		Heartbeat:   heartbeat,
		Strategy:    strategy,
		Ladder:      ladder,
		Executor:    recovery.NewExecutor(s.Watchdog.ActionTimeout),
		Store:       newCounterStore(s),
		Interval:    s.Watchdog.CheckInterval(),
		BootSuccess: bootSuccess,
	}), nil
}
