package main

import (
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spboyer/checkerd/internal/models"
	"github.com/spboyer/checkerd/internal/reporting"
	"github.com/spboyer/checkerd/internal/runner"
	"github.com/spboyer/checkerd/internal/spinner"
	"github.com/spboyer/checkerd/internal/store"
	"github.com/spf13/cobra"
)

func newRunAllCommand() *cobra.Command {
	var (
		skip      []string
		only      []string
		junitPath string
	)

	cmd := &cobra.Command{
		Use:   "run-all",
		Short: "Dry-run every enabled checker",
		Long: `Run every enabled checker once without recording anything. Nothing is
written to the store and no alerts are sent, so this is safe to run against
production before deploying new checkers.

Checkers listed in runner.disabled_checkers and in --skip are reported as
skipped.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			// Dry runs never write, but they do honor stored overrides.
			var st store.Store = store.NewMemoryStore()
			if _, err := os.Stat(a.cfg.StoreDir()); err == nil {
				if st, err = a.openStore(); err != nil {
					return err
				}
			}
			r, err := a.newRunner(st)
			if err != nil {
				return err
			}

			regs, err := runner.Filter(a.reg.All(), only)
			if err != nil {
				return err
			}
			start := time.Now()
			summary := &models.Summary{}
			results := make([]reporting.Result, 0, len(regs))

			errOut := cmd.ErrOrStderr()
			var spin *spinner.Spinner
			if spinner.IsTerminal(errOut) {
				spin = spinner.Start(errOut, "Starting checkers...")
			}

			for i, reg := range regs {
				res := reporting.Result{Checker: reg.Name, Section: reg.Section}
				switch {
				case slices.Contains(skip, reg.Name):
					res.SkipReason = "skipped by --skip"
				case slices.Contains(a.cfg.Runner.DisabledCheckers, reg.Name):
					res.SkipReason = "disabled in configuration"
				}
				if res.SkipReason != "" {
					results = append(results, res)
					continue
				}

				if spin != nil {
					spin.Update(fmt.Sprintf("[%d/%d] %s", i+1, len(regs), reg.Name))
				}
				run, err := r.DryRun(cmd.Context(), reg)
				if err != nil {
					if spin != nil {
						spin.Stop()
					}
					return err
				}
				res.Run = run
				summary.Add(run)
				summary.FailuresReported += len(run.Failures)
				results = append(results, res)
			}
			if spin != nil {
				spin.Stop()
			}
			summary.Duration = time.Since(start).Round(time.Millisecond)

			fmt.Fprint(cmd.OutOrStdout(), reporting.FormatSummaryReport(summary, results)) //nolint:errcheck

			if junitPath != "" {
				if err := reporting.WriteJUnitXML("checkerd run-all", results, start, junitPath); err != nil {
					return fmt.Errorf("writing JUnit report: %w", err)
				}
			}
			return summaryError(summary)
		},
	}

	cmd.Flags().StringSliceVar(&skip, "skip", nil, "Checker names to skip (repeatable or comma-separated)")
	cmd.Flags().StringSliceVar(&only, "only", nil, "Glob patterns of checker names or sections to run")
	cmd.Flags().StringVar(&junitPath, "junit", "", "Write a JUnit XML report to this path")
	return cmd
}
