package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spboyer/checkerd/internal/hooks"
	"github.com/spboyer/checkerd/internal/models"
	"github.com/spboyer/checkerd/internal/scheduler"
	"github.com/spboyer/checkerd/internal/webserver"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func newServeCommand() *cobra.Command {
	var (
		port     int
		host     string
		noAPI    bool
		runNow   bool
		cadences []string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run checkers on their cadences and serve the status API",
		Long: `Start the scheduler and the status API.

Every-ten-minutes and hourly checkers run on wall-clock boundaries, daily
checkers at schedule.daily_at. A cycle that is still running when its next
slot comes around is skipped. Stop with Ctrl-C; running cycles finish first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			st, err := a.openStore()
			if err != nil {
				return err
			}
			r, err := a.newRunner(st)
			if err != nil {
				return err
			}
			dailyAt, err := a.cfg.DailyAt()
			if err != nil {
				return err
			}

			schedOpts := []scheduler.Option{
				scheduler.WithDailyAt(dailyAt),
				scheduler.WithLogger(a.logger),
			}
			if len(cadences) > 0 {
				only := make([]models.Cadence, 0, len(cadences))
				for _, c := range cadences {
					parsed, err := models.ParseCadence(c)
					if err != nil {
						return err
					}
					only = append(only, parsed)
				}
				schedOpts = append(schedOpts, scheduler.WithCadences(only...))
			}
			if runNow {
				schedOpts = append(schedOpts, scheduler.WithRunNow())
			}

			var (
				mu    sync.Mutex
				total models.Summary
			)
			cycle := func(ctx context.Context, cadence models.Cadence) error {
				summary, err := r.RunCadence(ctx, a.reg, cadence)
				if err != nil {
					return err
				}
				mu.Lock()
				total.Merge(summary)
				mu.Unlock()
				a.logger.Info("cycle finished",
					"cadence", cadence,
					"checkers", summary.ChecksRun,
					"failed", summary.ChecksFailed,
					"errored", summary.ChecksErrored,
					"duration", summary.Duration,
				)
				return nil
			}
			hookRunner := &hooks.Runner{Logger: a.logger}
			sched := scheduler.New(hookRunner.Wrap(a.cfg.Hooks, cycle), schedOpts...)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error { return sched.Run(ctx) })

			if !noAPI {
				if !cmd.Flags().Changed("port") {
					port = a.cfg.Server.Port
				}
				srv, err := webserver.New(webserver.Config{
					Host:   host,
					Port:   port,
					Store:  st,
					Logger: a.logger,
				})
				if err != nil {
					stop()
					_ = g.Wait()
					return err
				}
				g.Go(func() error { return srv.ListenAndServe(ctx) })
			}

			err = g.Wait()
			mu.Lock()
			defer mu.Unlock()
			a.logger.Info("serve stopped",
				"checkers_run", total.ChecksRun,
				"failed", total.ChecksFailed,
				"errored", total.ChecksErrored,
				"sink_errors", total.SinkErrors,
			)
			return err
		},
	}

	cmd.Flags().IntVar(&port, "port", webserver.DefaultPort, "Status API port (defaults to server.port)")
	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Status API listen address")
	cmd.Flags().BoolVar(&noAPI, "no-api", false, "Only run the scheduler")
	cmd.Flags().StringSliceVar(&cadences, "cadence", nil, "Only schedule these cadences (every_ten_minutes, hourly, daily)")
	cmd.Flags().BoolVar(&runNow, "run-now", false, "Run every cadence once at startup")
	return cmd
}
