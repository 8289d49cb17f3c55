package main

import (
	"fmt"

	"github.com/spboyer/checkerd/internal/runner"
	"github.com/spf13/cobra"
)

func newListCommand() *cobra.Command {
	var section string

	cmd := &cobra.Command{
		Use:   "list [pattern...]",
		Short: "List registered checkers",
		Long: `List registered checkers. Patterns are globs matched against checker
names and sections, e.g. 'checkerd list "disk_*" billing'.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}

			regs, err := runner.Filter(a.reg.All(), args)
			if err != nil {
				return err
			}

			var rows [][]string
			for _, r := range regs {
				if section != "" && r.Section != section {
					continue
				}
				rows = append(rows, []string{
					r.Name,
					r.Section,
					title(string(r.Severity)),
					title(string(r.Cadence)),
					fmt.Sprint(r.Tries),
					r.Description,
				})
			}

			w := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(w, "No checkers found in "+a.cfg.CheckersDir()) //nolint:errcheck
				return nil
			}
			writeTable(w, []string{"NAME", "SECTION", "SEVERITY", "CADENCE", "TRIES", "DESCRIPTION"}, rows, 60)
			return nil
		},
	}

	cmd.Flags().StringVar(&section, "section", "", "Only list checkers in this section")
	return cmd
}
