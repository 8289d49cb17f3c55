package main

import (
	"fmt"

	"github.com/spboyer/checkerd/internal/store"
	"github.com/spf13/cobra"
)

func newIgnoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ignore <name...>",
		Short: "Stop alerting on checkers",
		Long: `Mark checkers ignored. An ignored checker keeps running and its
failures still reach the sinks, but its status never changes and no
reaction fires until it is unignored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setIgnored(cmd, args, true)
		},
	}
}

func newUnignoreCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unignore <name...>",
		Short: "Resume alerting on ignored checkers",
		Long: `Return ignored checkers to new. The next run records a transition
from new, so a checker that is still failing alerts again.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return setIgnored(cmd, args, false)
		},
	}
}

func setIgnored(cmd *cobra.Command, names []string, ignored bool) error {
	a, err := loadApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close() //nolint:errcheck

	for _, name := range names {
		if _, ok := a.reg.Get(name); !ok {
			return fmt.Errorf("unknown checker %q", name)
		}
	}

	st, err := a.openStore()
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	for _, name := range names {
		reg, _ := a.reg.Get(name)
		changed, err := store.SetIgnored(st, name, reg.Section, ignored)
		if err != nil {
			return fmt.Errorf("updating %s: %w", name, err)
		}
		switch {
		case changed && ignored:
			fmt.Fprintf(w, "Started ignoring %s\n", name) //nolint:errcheck
		case changed:
			fmt.Fprintf(w, "Stopped ignoring %s\n", name) //nolint:errcheck
		case ignored:
			fmt.Fprintf(w, "%s is already ignored\n", name) //nolint:errcheck
		default:
			fmt.Fprintf(w, "%s is not ignored\n", name) //nolint:errcheck
		}
	}
	return nil
}
