package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newResetCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reset [action...]",
		Short: "Reset persisted reset counters (all actions when none are named)",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loadSettings(opts)
			if err != nil {
				return err
			}

			store := newCounterStore(s)
			names := args
			if len(names) == 0 {
				names = store.Actions()
			}

			for _, name := range names {
				if store.Path(name) == "" {
					return fmt.Errorf("unknown action %q", name)
				}
			}
			for _, name := range names {
				if err := store.Reset(name); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "reset %s\n", name)
			}
			return nil
		},
	}
}
