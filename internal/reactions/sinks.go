package reactions

import (
	"context"
	"errors"
	"log/slog"

	"github.com/spboyer/checkerd/internal/models"
	"github.com/spboyer/checkerd/internal/runner"
)

// LogSink writes each failure to a structured log.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Notify(ctx context.Context, checker string, f models.CheckerFailure) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	attrs := []any{"name", checker, "text", f.Text}
	if f.Subtext != "" {
		attrs = append(attrs, "subtext", f.Subtext)
	}
	if len(f.Data) > 0 {
		attrs = append(attrs, "data", f.Data)
	}
	logger.WarnContext(ctx, "checker failure", attrs...)
	return nil
}

// SlackSink posts each failure to a Slack channel.
type SlackSink struct {
	Notifier Notifier
	Channel  string
}

func (s SlackSink) Notify(ctx context.Context, checker string, f models.CheckerFailure) error {
	channel := s.Channel
	if channel == "" {
		channel = DefaultSlackChannel
	}
	return s.Notifier.Notify(ctx, Notification{
		Title:   checker + ": " + f.Text,
		Text:    f.Subtext,
		Channel: channel,
	})
}

// EmailSink mails each failure to a fixed list of recipients.
type EmailSink struct {
	Mailer  Mailer
	To      []string
	SiteURL string
}

func (s EmailSink) Notify(ctx context.Context, checker string, f models.CheckerFailure) error {
	msg, err := failureMessage(checker, f, s.SiteURL)
	if err != nil {
		return err
	}
	msg.To = s.To
	return s.Mailer.Send(ctx, msg)
}

// MultiSink fans a failure out to every sink. All sinks are tried; their
// errors are joined.
type MultiSink []runner.Sink

func (m MultiSink) Notify(ctx context.Context, checker string, f models.CheckerFailure) error {
	var errs []error
	for _, s := range m {
		if err := s.Notify(ctx, checker, f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
