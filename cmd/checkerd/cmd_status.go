package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spboyer/checkerd/internal/models"
	"github.com/spf13/cobra"
)

func newStatusCommand() *cobra.Command {
	var onlyFailing bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the stored status of every checker",
		Long: `Show the stored status of every checker that has run at least once.

Exits with code 1 when any checker is failing or errored, so it can gate a
deploy.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a := &app{cfg: cfg}
			defer a.Close() //nolint:errcheck

			st, err := a.openStore()
			if err != nil {
				return err
			}
			checkers, err := st.ListCheckers()
			if err != nil {
				return err
			}

			now := time.Now()
			bad := 0
			var rows [][]string
			for _, c := range checkers {
				failing := c.Status == models.CheckerStatusFailing || c.Status == models.CheckerStatusErrored
				if failing {
					bad++
				}
				if onlyFailing && !failing {
					continue
				}
				rows = append(rows, []string{
					c.Name,
					title(string(c.Status)),
					title(string(c.Severity)),
					since(c.LatestRunDate, now),
					since(c.LatestStatusChange, now),
					c.Owner,
				})
			}

			w := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(w, "No checkers to show.") //nolint:errcheck
			} else {
				writeTable(w, []string{"NAME", "STATUS", "SEVERITY", "LAST RUN", "STATUS CHANGED", "OWNER"}, rows, 40)
			}

			if bad > 0 {
				return &CheckerFailureError{Message: fmt.Sprintf("%d checker(s) failing", bad)}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&onlyFailing, "failing", false, "Only show failing and errored checkers")
	return cmd
}

func since(t *time.Time, now time.Time) string {
	if t == nil {
		return "never"
	}
	return humanize.RelTime(*t, now, "ago", "from now")
}
