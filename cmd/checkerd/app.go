package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spboyer/checkerd/internal/archive"
	"github.com/spboyer/checkerd/internal/config"
	"github.com/spboyer/checkerd/internal/discovery"
	"github.com/spboyer/checkerd/internal/reactions"
	"github.com/spboyer/checkerd/internal/registry"
	"github.com/spboyer/checkerd/internal/runner"
	"github.com/spboyer/checkerd/internal/store"
	"github.com/spf13/cobra"
)

// app is what every command needs: configuration, the discovered
// checkers and a logger.
type app struct {
	cfg    *config.Config
	reg    *registry.Registry
	logger *slog.Logger

	closers []io.Closer
}

func configDir(cmd *cobra.Command) string {
	dir, err := cmd.Flags().GetString("dir")
	if err != nil || dir == "" {
		return "."
	}
	return dir
}

// loadConfig reads .checkerd.yaml without discovering checkers.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configDir(cmd))
	if err != nil {
		return nil, err
	}
	if _, err := cfg.Timeout(); err != nil {
		return nil, err
	}
	if _, err := cfg.DailyAt(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadApp loads the configuration and registers every discovered checker.
// Duplicate names and invalid definitions are fatal.
func loadApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	// Checkers compiled into the binary come first, then discovered ones.
	reg := registry.New()
	for _, r := range registry.Default.All() {
		if err := reg.Add(r); err != nil {
			return nil, err
		}
	}
	if err := discovery.Discover(cfg.CheckersDir(), reg); err != nil {
		return nil, fmt.Errorf("loading checkers from %s: %w", cfg.CheckersDir(), err)
	}
	return &app{cfg: cfg, reg: reg, logger: slog.Default()}, nil
}

func (a *app) openStore() (*store.FileStore, error) {
	st, err := store.OpenFileStore(a.cfg.StoreDir())
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, st)
	return st, nil
}

// Close releases everything opened through the app.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i].Close())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) mailer() reactions.Mailer {
	smtp := a.cfg.Reactions.SMTP
	if smtp.Host == "" {
		return nil
	}
	return &reactions.SMTPMailer{
		Host:     smtp.Host,
		Port:     smtp.Port,
		Username: smtp.Username,
		Password: smtp.Password(),
		From:     smtp.From,
	}
}

func (a *app) notifier() reactions.Notifier {
	if a.cfg.Reactions.Slack.WebhookURL == "" {
		return nil
	}
	return &reactions.SlackWebhook{URL: a.cfg.Reactions.Slack.WebhookURL}
}

// sink fans every failure out to the configured sinks. Transition
// alerts are separate, see reactor.
func (a *app) sink() (runner.Sink, error) {
	r := a.cfg.Reactions
	var sinks reactions.MultiSink
	for _, name := range r.Sinks {
		switch name {
		case "log":
			sinks = append(sinks, reactions.LogSink{Logger: a.logger})
		case "slack":
			n := a.notifier()
			if n == nil {
				return nil, fmt.Errorf("sink %q needs reactions.slack.webhook_url", name)
			}
			sinks = append(sinks, reactions.SlackSink{Notifier: n, Channel: r.Slack.Channel})
		case "email":
			m := a.mailer()
			if m == nil || len(r.Admins) == 0 {
				return nil, fmt.Errorf("sink %q needs reactions.smtp.host and reactions.admins", name)
			}
			sinks = append(sinks, reactions.EmailSink{Mailer: m, To: r.Admins, SiteURL: r.SiteURL})
		default:
			return nil, fmt.Errorf("unknown sink %q", name)
		}
	}
	if len(sinks) == 1 {
		return sinks[0], nil
	}
	return sinks, nil
}

func (a *app) reactor() *reactions.Reactor {
	r := a.cfg.Reactions
	opts := []reactions.ReactorOption{
		reactions.WithAdmins(r.Admins...),
		reactions.WithPagingEmail(r.PagingEmail),
		reactions.WithSiteURL(r.SiteURL),
		reactions.WithReactorLogger(a.logger),
	}
	if m := a.mailer(); m != nil {
		opts = append(opts, reactions.WithMailer(m))
	}
	if n := a.notifier(); n != nil {
		opts = append(opts, reactions.WithNotifier(n, r.Slack.Channel))
	}
	return reactions.NewReactor(opts...)
}

// archivers returns one observer per configured archive destination.
func (a *app) archivers() ([]runner.RunObserver, error) {
	var writers []archive.Writer
	if a.cfg.Archive.Dir != "" {
		writers = append(writers, archive.DirWriter{Root: a.cfg.Resolve(a.cfg.Archive.Dir)})
	}
	if az := a.cfg.Archive.Azure; az != nil {
		w, err := archive.NewBlobWriter(az.AccountURL, az.Container, nil)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}

	var observers []runner.RunObserver
	for _, w := range writers {
		arc, err := archive.New(w)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, arc)
		observers = append(observers, arc)
	}
	return observers, nil
}

// newRunner builds a Runner over st with the configured limits, the
// reactor and any archive destinations.
func (a *app) newRunner(st store.Store, extra ...runner.Option) (*runner.Runner, error) {
	timeout, err := a.cfg.Timeout()
	if err != nil {
		return nil, err
	}
	sink, err := a.sink()
	if err != nil {
		return nil, err
	}
	observers, err := a.archivers()
	if err != nil {
		return nil, err
	}

	opts := []runner.Option{
		runner.WithLogger(a.logger),
		runner.WithTimeout(timeout),
		runner.WithMaxFailures(a.cfg.Runner.MaxFailures),
		runner.WithWorkers(a.cfg.Runner.Workers),
		runner.WithKillswitch(a.cfg.Killswitch()),
		runner.WithDisabled(a.cfg.Runner.DisabledCheckers...),
		runner.WithSink(sink),
		runner.WithTransitionHandlers(a.reactor()),
		runner.WithRunObservers(observers...),
	}
	return runner.New(st, append(opts, extra...)...), nil
}
