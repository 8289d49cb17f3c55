package reactions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/spboyer/checkerd/internal/models"
	"github.com/spboyer/checkerd/internal/runner"
	"github.com/spboyer/checkerd/internal/template"
)

const failureTemplate = `# {{.FailureText}}

{{if .FailureSubtext}}{{.FailureSubtext}}

{{end}}Checker **{{.Checker}}**{{if .Section}} in {{.Section}}{{end}} ({{.Severity}} severity) is failing.
{{range $k, $v := .Vars}}
- {{$k}}: ` + "`{{$v}}`" + `{{end}}

{{if .SiteURL}}[View run]({{.RunURL}}){{end}}
`

const successTemplate = `# {{.Checker}} is now succeeding

{{if .Description}}{{.Description}}

{{end}}{{if .SiteURL}}[View checker]({{.CheckerURL}}){{end}}
`

const errorTemplate = `# Error while running {{.Checker}}

` + "```" + `
{{.Exception}}
` + "```" + `

{{if .SiteURL}}[View run]({{.RunURL}}){{end}}
`

// Reactor alerts people when a checker changes status. Because it only
// reacts to transitions, a checker that keeps failing alerts once.
//
//   - errored: mail the owner and admins; page too when severity is high.
//   - failing: post the run's first failure to Slack and mail admins; page
//     too when severity is high.
//   - succeeding: mail admins that the checker recovered.
type Reactor struct {
	mailer   Mailer
	notifier Notifier
	channel  string
	admins   []string
	paging   string
	siteURL  string
	logger   *slog.Logger
}

type ReactorOption func(*Reactor)

func WithMailer(m Mailer) ReactorOption {
	return func(r *Reactor) { r.mailer = m }
}

func WithNotifier(n Notifier, channel string) ReactorOption {
	return func(r *Reactor) {
		r.notifier = n
		if channel != "" {
			r.channel = channel
		}
	}
}

func WithAdmins(admins ...string) ReactorOption {
	return func(r *Reactor) { r.admins = append(r.admins, admins...) }
}

// WithPagingEmail sets the address paged for high severity checkers.
func WithPagingEmail(addr string) ReactorOption {
	return func(r *Reactor) { r.paging = addr }
}

// WithSiteURL sets the base URL used for links in notifications.
func WithSiteURL(url string) ReactorOption {
	return func(r *Reactor) { r.siteURL = url }
}

func WithReactorLogger(l *slog.Logger) ReactorOption {
	return func(r *Reactor) { r.logger = l }
}

func NewReactor(opts ...ReactorOption) *Reactor {
	r := &Reactor{channel: DefaultSlackChannel, logger: slog.Default()}
	for _, o := range opts {
		o(r)
	}
	return r
}

var _ runner.TransitionHandler = (*Reactor)(nil)

// HandleTransition sends the notifications for t. Every notification is
// attempted; errors are joined.
func (r *Reactor) HandleTransition(ctx context.Context, t runner.Transition) error {
	switch t.To {
	case models.CheckerStatusErrored:
		return r.handleError(ctx, t)
	case models.CheckerStatusFailing:
		return r.handleFailure(ctx, t)
	case models.CheckerStatusSucceeding:
		return r.handleSuccess(ctx, t)
	}
	return nil
}

func (r *Reactor) handleError(ctx context.Context, t runner.Transition) error {
	tctx := r.context(t)
	if t.Run != nil {
		tctx.Exception = t.Run.Exception()
	}
	msg, err := render(errorTemplate, tctx)
	if err != nil {
		return err
	}
	msg.Subject = "Error while running " + t.Checker

	var errs []error
	recipients := r.admins
	if t.State.Owner != "" && !slices.Contains(recipients, t.State.Owner) {
		recipients = append([]string{t.State.Owner}, recipients...)
	}
	errs = append(errs, r.mail(ctx, msg, recipients...))
	if t.State.Severity == models.SeverityHigh {
		errs = append(errs, r.mail(ctx, msg, r.paging))
	}
	return errors.Join(errs...)
}

func (r *Reactor) handleFailure(ctx context.Context, t runner.Transition) error {
	if t.Run == nil || len(t.Run.Failures) == 0 {
		r.logger.Warn("failing transition without failures", "name", t.Checker)
		return nil
	}
	// One notification per transition, for the first failure only.
	f := t.Run.Failures[0]

	msg, err := failureMessage(t.Checker, f, r.siteURL, withTransition(t))
	if err != nil {
		return err
	}

	var errs []error
	if r.notifier != nil {
		errs = append(errs, r.notifier.Notify(ctx, Notification{Title: f.Text, Text: f.Subtext, Channel: r.channel}))
	}
	errs = append(errs, r.mail(ctx, msg, r.admins...))
	if t.State.Severity == models.SeverityHigh {
		errs = append(errs, r.mail(ctx, msg, r.paging))
	}
	return errors.Join(errs...)
}

func (r *Reactor) handleSuccess(ctx context.Context, t runner.Transition) error {
	msg, err := render(successTemplate, r.context(t))
	if err != nil {
		return err
	}
	msg.Subject = t.Checker + " is now succeeding"
	return r.mail(ctx, msg, r.admins...)
}

func (r *Reactor) mail(ctx context.Context, msg Message, to ...string) error {
	to = slices.DeleteFunc(slices.Clone(to), func(s string) bool { return s == "" })
	if r.mailer == nil || len(to) == 0 {
		return nil
	}
	msg.To = to
	if err := r.mailer.Send(ctx, msg); err != nil {
		return fmt.Errorf("mailing %q: %w", msg.Subject, err)
	}
	return nil
}

func (r *Reactor) context(t runner.Transition) *template.Context {
	c := &template.Context{
		Checker:     t.Checker,
		Section:     t.State.Section,
		Description: t.State.Description,
		Severity:    string(t.State.Severity),
		Status:      string(t.To),
		SiteURL:     r.siteURL,
	}
	if t.Run != nil {
		c.RunID = t.Run.ID
	}
	return c
}

type messageOption func(*template.Context)

func withTransition(t runner.Transition) messageOption {
	return func(c *template.Context) {
		c.Section = t.State.Section
		c.Severity = string(t.State.Severity)
		c.Status = string(t.To)
	}
}

// failureMessage renders the email for one failure.
func failureMessage(checker string, f models.CheckerFailure, siteURL string, opts ...messageOption) (Message, error) {
	c := &template.Context{
		Checker:        checker,
		RunID:          f.RunID,
		SiteURL:        siteURL,
		FailureText:    f.Text,
		FailureSubtext: f.Subtext,
		Severity:       string(models.SeverityLow),
		Vars:           map[string]string{},
	}
	for _, k := range slices.Sorted(maps.Keys(f.Data)) {
		c.Vars[k] = fmt.Sprint(f.Data[k])
	}
	for _, o := range opts {
		o(c)
	}

	msg, err := render(failureTemplate, c)
	if err != nil {
		return Message{}, err
	}
	msg.Subject = f.Text
	return msg, nil
}

// render fills tmpl and returns a message with the Markdown as its text
// part and the rendered HTML as its HTML part.
func render(tmpl string, c *template.Context) (Message, error) {
	md, err := template.Render(tmpl, c)
	if err != nil {
		return Message{}, err
	}
	html, err := template.HTML(md)
	if err != nil {
		return Message{}, err
	}
	return Message{Text: md, HTML: html}, nil
}
