package main

import (
	"strconv"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jerkytreats/nwwatchdog/internal/config"
)

type counterReport struct {
	Action    string `yaml:"action"`
	File      string `yaml:"file"`
	Resets    int    `yaml:"resets"`
	MaxResets int    `yaml:"max_resets"`
	Remaining string `yaml:"remaining"`
}

type countersReport struct {
	StateDir string          `yaml:"state_dir"`
	Counters []counterReport `yaml:"counters"`
}

func newCountersCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "counters",
		Short: "Print persisted reset counters and remaining budgets as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(opts)
			if err != nil {
				return err
			}

			store := newCounterStore(s)
			report := countersReport{StateDir: s.Watchdog.StateDir}
			for _, a := range s.Actions {
				n := store.Peek(a.Name)
				report.Counters = append(report.Counters, counterReport{
					Action:    a.Name,
					File:      store.Path(a.Name),
					Resets:    n,
					MaxResets: a.Budget(),
					Remaining: remaining(a.Budget(), n),
				})
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(report); err != nil {
				return err
			}
			return enc.Close()
		},
	}
}

func remaining(budget, used int) string {
	if budget == config.Unlimited {
		return "unlimited"
	}
	left := budget - used
	if left < 0 {
		left = 0
	}
	return strconv.Itoa(left)
}
