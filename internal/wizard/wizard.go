// Package wizard collects the answers for `checkerd init` and renders the
// files it writes.
package wizard

import (
	"fmt"
	"io"
	"net/mail"
	"net/url"
	"os"
	"strings"
	"text/template"

	"github.com/charmbracelet/huh"
	"github.com/spboyer/checkerd/internal/config"
	"github.com/spboyer/checkerd/internal/scheduler"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// InitAnswers holds all fields collected during the interactive wizard.
type InitAnswers struct {
	CheckersDir  string
	SiteURL      string
	Admins       []string
	SlackWebhook string
	SMTPHost     string
	DailyAt      string
}

// DefaultAnswers returns the answers used when no prompt is shown.
func DefaultAnswers() *InitAnswers {
	return &InitAnswers{
		CheckersDir: config.DefaultCheckersDir,
		DailyAt:     config.DefaultDailyAt,
	}
}

const exampleCheckersTemplate = `# Checkers in this file belong to the "{{ .Section }}" section.
checkers:
  - name: disk_space
    kind: command
    description: Reports mounts that are more than 90% full.
    severity: low
    cadence: hourly
    params:
      command: sh
      args: ["-c", "df -P | awk 'NR > 1 && $5+0 > 90 { print $6 \" is \" $5 \" full\" }'"]
      timeout: 30s

  - name: status_page
    kind: http
    description: The public site answers with 200.
    severity: high
    cadence: every_ten_minutes
    tries: 2
    params:
      url: {{ if .SiteURL }}{{ .SiteURL }}{{ else }}https://example.com{{ end }}
`

// RunInitWizard runs an interactive huh form to collect configuration
// answers, starting from defaults.
func RunInitWizard(in io.Reader, out io.Writer, defaults *InitAnswers) (*InitAnswers, error) {
	if defaults == nil {
		defaults = DefaultAnswers()
	}
	var (
		checkersDir = defaults.CheckersDir
		siteURL     = defaults.SiteURL
		adminsRaw   = strings.Join(defaults.Admins, ", ")
		slack       = defaults.SlackWebhook
		smtpHost    = defaults.SMTPHost
		dailyAt     = defaults.DailyAt
	)

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Checkers directory").
				Description("Where checker definition files live").
				Placeholder(config.DefaultCheckersDir).
				Value(&checkersDir).
				Validate(requireValue("checkers directory")),
			huh.NewInput().
				Title("Site URL").
				Description("Base URL of the status API, used in alert links").
				Placeholder("https://checks.example.com").
				Value(&siteURL).
				Validate(ValidateURL),
			huh.NewInput().
				Title("Admins").
				Description("Comma-separated addresses that receive every alert").
				Placeholder("ops@example.com").
				Value(&adminsRaw).
				Validate(ValidateEmails),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Slack webhook URL").
				Description("Leave empty to disable Slack alerts").
				Value(&slack).
				Validate(ValidateURL),
			huh.NewInput().
				Title("SMTP host").
				Description("Leave empty to disable email").
				Value(&smtpHost),
			huh.NewInput().
				Title("Daily run time").
				Description("When daily checkers run, HH:MM").
				Placeholder(config.DefaultDailyAt).
				Value(&dailyAt).
				Validate(ValidateDailyAt),
		),
	).
		WithInput(in).
		WithOutput(out)

	// Use accessible mode for non-TTY input (e.g., tests, piped input).
	if f, ok := in.(*os.File); !ok || !term.IsTerminal(int(f.Fd())) {
		form = form.WithAccessible(true)
	}

	if err := form.Run(); err != nil {
		return nil, fmt.Errorf("wizard failed: %w", err)
	}

	return &InitAnswers{
		CheckersDir:  strings.TrimSpace(checkersDir),
		SiteURL:      strings.TrimRight(strings.TrimSpace(siteURL), "/"),
		Admins:       splitAndTrim(adminsRaw),
		SlackWebhook: strings.TrimSpace(slack),
		SMTPHost:     strings.TrimSpace(smtpHost),
		DailyAt:      strings.TrimSpace(dailyAt),
	}, nil
}

// GenerateConfig renders a .checkerd.yaml from the answers. Settings left
// at their defaults are omitted.
func GenerateConfig(a *InitAnswers) (string, error) {
	var cfg config.Config
	if a.CheckersDir != "" && a.CheckersDir != config.DefaultCheckersDir {
		cfg.Paths.Checkers = a.CheckersDir
	}
	if a.DailyAt != "" && a.DailyAt != config.DefaultDailyAt {
		cfg.Schedule.DailyAt = a.DailyAt
	}
	cfg.Reactions.SiteURL = a.SiteURL
	cfg.Reactions.Admins = a.Admins
	cfg.Reactions.Slack.WebhookURL = a.SlackWebhook
	if a.SMTPHost != "" {
		cfg.Reactions.SMTP = config.SMTPConfig{
			Host:        a.SMTPHost,
			Port:        config.DefaultSMTPPort,
			PasswordEnv: "CHECKERD_SMTP_PASSWORD",
			From:        "checkerd@" + a.SMTPHost,
		}
	}

	data, err := yaml.Marshal(&cfg)
	if err != nil {
		return "", fmt.Errorf("failed to render configuration: %w", err)
	}
	return "# checkerd configuration\n" + string(data), nil
}

// GenerateExampleCheckers renders a starter definition file for section.
func GenerateExampleCheckers(section string, a *InitAnswers) (string, error) {
	tmpl, err := template.New("checkers").Parse(exampleCheckersTemplate)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}

	var buf strings.Builder
	data := struct{ Section, SiteURL string }{section, a.SiteURL}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

// ValidateURL accepts an empty string or an absolute http(s) URL.
func ValidateURL(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%q is not an http(s) URL", s)
	}
	return nil
}

// ValidateEmails accepts a comma-separated list of addresses.
func ValidateEmails(s string) error {
	for _, addr := range splitAndTrim(s) {
		if _, err := mail.ParseAddress(addr); err != nil {
			return fmt.Errorf("%q is not an email address", addr)
		}
	}
	return nil
}

// ValidateDailyAt accepts "HH:MM".
func ValidateDailyAt(s string) error {
	_, err := scheduler.ParseClock(strings.TrimSpace(s))
	return err
}

func requireValue(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
