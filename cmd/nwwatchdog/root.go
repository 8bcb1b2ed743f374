package main

import (
	"github.com/spf13/cobra"
)

type rootOptions struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "nwwatchdog",
		Short: "Reverse-tunnel connectivity watchdog",
		Long: `nwwatchdog probes the reverse tunnel to the control server and escalates
through configured recovery actions (service restarts, reboots, power-off)
while connectivity stays down. Invocation counters persist across reboots so
the ladder never loops forever.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatchdog(cmd, opts)
		},
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to the configuration file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")
	root.CompletionOptions.DisableDefaultCmd = true

	root.AddCommand(
		newRunCmd(opts),
		newCheckCmd(opts),
		newCountersCmd(opts),
		newResetCmd(opts),
	)
	return root
}
