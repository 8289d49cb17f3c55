// Package config provides the Config struct and loader for .checkerd.yaml
// daemon configuration files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spboyer/checkerd/internal/hooks"
	"github.com/spboyer/checkerd/internal/scheduler"
	"github.com/spboyer/checkerd/internal/validation"
	"gopkg.in/yaml.v3"
)

// FileName is the configuration file looked up by Load.
const FileName = ".checkerd.yaml"

// Default values for the daemon configuration. New() references them and
// no other code should duplicate them.
const (
	DefaultCheckersDir = "checkers"
	DefaultStoreDir    = ".checkerd/state"

	DefaultMaxFailures = 100
	DefaultTimeout     = "1h"
	DefaultWorkers     = 1

	DefaultDailyAt = "09:30"

	DefaultServerPort = 8080

	DefaultSink         = "log"
	DefaultSlackChannel = "#alerts"
	DefaultSMTPPort     = 587
)

// PathsConfig holds where checker definitions and state live.
type PathsConfig struct {
	Checkers string `yaml:"checkers,omitempty"`
	Store    string `yaml:"store,omitempty"`
}

// RunnerConfig holds checker execution settings.
type RunnerConfig struct {
	// DisableCheckers turns every scheduled run off.
	DisableCheckers  *bool    `yaml:"disable_checkers,omitempty"`
	DisabledCheckers []string `yaml:"disabled_checkers,omitempty"`
	MaxFailures      int      `yaml:"max_failures,omitempty"`
	Timeout          string   `yaml:"timeout,omitempty"`
	Workers          int      `yaml:"workers,omitempty"`
}

// ScheduleConfig holds scheduler settings.
type ScheduleConfig struct {
	DailyAt string `yaml:"daily_at,omitempty"`
}

// ServerConfig holds status API settings.
type ServerConfig struct {
	Port int `yaml:"port,omitempty"`
}

// SlackConfig holds the incoming webhook used for failure alerts.
type SlackConfig struct {
	WebhookURL string `yaml:"webhook_url,omitempty"`
	Channel    string `yaml:"channel,omitempty"`
}

// SMTPConfig holds outgoing mail settings.
type SMTPConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Username string `yaml:"username,omitempty"`
	// PasswordEnv names the environment variable holding the password.
	PasswordEnv string `yaml:"password_env,omitempty"`
	From        string `yaml:"from,omitempty"`
}

// Password reads the SMTP password from the environment.
func (s SMTPConfig) Password() string {
	if s.PasswordEnv == "" {
		return ""
	}
	return os.Getenv(s.PasswordEnv)
}

// ReactionsConfig holds who hears about status changes and how.
type ReactionsConfig struct {
	SiteURL     string   `yaml:"site_url,omitempty"`
	Admins      []string `yaml:"admins,omitempty"`
	PagingEmail string   `yaml:"paging_email,omitempty"`
	// Sinks receive every failure of every run: log, slack, email.
	Sinks []string    `yaml:"sinks,omitempty"`
	Slack SlackConfig `yaml:"slack,omitempty"`
	SMTP  SMTPConfig  `yaml:"smtp,omitempty"`
}

// AzureArchiveConfig points at a blob container.
type AzureArchiveConfig struct {
	AccountURL string `yaml:"account_url"`
	Container  string `yaml:"container"`
}

// ArchiveConfig selects where finished runs are archived. Both may be empty.
type ArchiveConfig struct {
	Dir   string              `yaml:"dir,omitempty"`
	Azure *AzureArchiveConfig `yaml:"azure,omitempty"`
}

// Config is the top-level configuration loaded from .checkerd.yaml.
type Config struct {
	Paths     PathsConfig       `yaml:"paths,omitempty"`
	Runner    RunnerConfig      `yaml:"runner,omitempty"`
	Schedule  ScheduleConfig    `yaml:"schedule,omitempty"`
	Server    ServerConfig      `yaml:"server,omitempty"`
	Reactions ReactionsConfig   `yaml:"reactions,omitempty"`
	Archive   ArchiveConfig     `yaml:"archive,omitempty"`
	Hooks     hooks.HooksConfig `yaml:"hooks,omitempty"`

	// Dir is the directory holding the loaded file, or the start
	// directory when none was found. Relative paths resolve against it.
	Dir string `yaml:"-"`
}

// New returns a Config with all hard-coded defaults populated.
func New() *Config {
	return &Config{
		Paths: PathsConfig{
			Checkers: DefaultCheckersDir,
			Store:    DefaultStoreDir,
		},
		Runner: RunnerConfig{
			DisableCheckers: boolPtr(false),
			MaxFailures:     DefaultMaxFailures,
			Timeout:         DefaultTimeout,
			Workers:         DefaultWorkers,
		},
		Schedule: ScheduleConfig{
			DailyAt: DefaultDailyAt,
		},
		Server: ServerConfig{
			Port: DefaultServerPort,
		},
		Reactions: ReactionsConfig{
			Sinks: []string{DefaultSink},
			Slack: SlackConfig{Channel: DefaultSlackChannel},
			SMTP:  SMTPConfig{Port: DefaultSMTPPort},
		},
	}
}

// Load finds .checkerd.yaml by walking up from startDir (max 10 levels),
// validates it against the config schema, and fills in missing fields with
// defaults. If no config file is found, returns defaults with a nil error.
func Load(startDir string) (*Config, error) {
	cfg := New()

	absDir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("resolving path %q: %w", startDir, err)
	}
	cfg.Dir = absDir

	path, data, err := findConfigFile(absDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("loading %s: %w", FileName, err)
	}

	fileCfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	mergeConfig(cfg, fileCfg)
	cfg.Dir = filepath.Dir(path)
	return cfg, nil
}

// Parse validates and decodes a configuration document without applying
// defaults.
func Parse(data []byte) (*Config, error) {
	if errs := validation.ValidateConfigBytes(data); len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(errs, "\n  "))
	}
	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	return &fileCfg, nil
}

// findConfigFile walks up from dir looking for FileName (max 10 levels).
// Returns os.ErrNotExist if none is found.
func findConfigFile(dir string) (string, []byte, error) {
	for i := 0; i < 10; i++ {
		p := filepath.Join(dir, FileName)
		data, err := os.ReadFile(p)
		if err == nil {
			return p, data, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", nil, fmt.Errorf("reading %q: %w", p, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", nil, os.ErrNotExist
}

// mergeConfig overlays non-zero values from src onto dst.
func mergeConfig(dst, src *Config) {
	// Paths
	if src.Paths.Checkers != "" {
		dst.Paths.Checkers = src.Paths.Checkers
	}
	if src.Paths.Store != "" {
		dst.Paths.Store = src.Paths.Store
	}

	// Runner
	if src.Runner.DisableCheckers != nil {
		dst.Runner.DisableCheckers = src.Runner.DisableCheckers
	}
	if src.Runner.DisabledCheckers != nil {
		dst.Runner.DisabledCheckers = src.Runner.DisabledCheckers
	}
	if src.Runner.MaxFailures != 0 {
		dst.Runner.MaxFailures = src.Runner.MaxFailures
	}
	if src.Runner.Timeout != "" {
		dst.Runner.Timeout = src.Runner.Timeout
	}
	if src.Runner.Workers != 0 {
		dst.Runner.Workers = src.Runner.Workers
	}

	if src.Schedule.DailyAt != "" {
		dst.Schedule.DailyAt = src.Schedule.DailyAt
	}
	if src.Server.Port != 0 {
		dst.Server.Port = src.Server.Port
	}

	// Reactions
	r, s := &dst.Reactions, &src.Reactions
	if s.SiteURL != "" {
		r.SiteURL = strings.TrimRight(s.SiteURL, "/")
	}
	if s.Admins != nil {
		r.Admins = s.Admins
	}
	if s.PagingEmail != "" {
		r.PagingEmail = s.PagingEmail
	}
	if s.Sinks != nil {
		r.Sinks = s.Sinks
	}
	if s.Slack.WebhookURL != "" {
		r.Slack.WebhookURL = s.Slack.WebhookURL
	}
	if s.Slack.Channel != "" {
		r.Slack.Channel = s.Slack.Channel
	}
	if s.SMTP.Host != "" {
		r.SMTP.Host = s.SMTP.Host
	}
	if s.SMTP.Port != 0 {
		r.SMTP.Port = s.SMTP.Port
	}
	if s.SMTP.Username != "" {
		r.SMTP.Username = s.SMTP.Username
	}
	if s.SMTP.PasswordEnv != "" {
		r.SMTP.PasswordEnv = s.SMTP.PasswordEnv
	}
	if s.SMTP.From != "" {
		r.SMTP.From = s.SMTP.From
	}

	// Archive
	if src.Archive.Dir != "" {
		dst.Archive.Dir = src.Archive.Dir
	}
	if src.Archive.Azure != nil {
		dst.Archive.Azure = src.Archive.Azure
	}

	// Hooks
	if src.Hooks.BeforeCycle != nil {
		dst.Hooks.BeforeCycle = src.Hooks.BeforeCycle
	}
	if src.Hooks.AfterCycle != nil {
		dst.Hooks.AfterCycle = src.Hooks.AfterCycle
	}
}

// Resolve makes p absolute relative to the config directory.
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir, p)
}

// CheckersDir is the absolute checker definition root.
func (c *Config) CheckersDir() string { return c.Resolve(c.Paths.Checkers) }

// StoreDir is the absolute state directory.
func (c *Config) StoreDir() string { return c.Resolve(c.Paths.Store) }

// Killswitch reports whether scheduled runs are turned off.
func (c *Config) Killswitch() bool {
	return c.Runner.DisableCheckers != nil && *c.Runner.DisableCheckers
}

// Timeout parses the per-checker timeout.
func (c *Config) Timeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.Runner.Timeout)
	if err != nil {
		return 0, fmt.Errorf("runner.timeout: %w", err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("runner.timeout must be positive, got %s", c.Runner.Timeout)
	}
	return d, nil
}

// DailyAt parses the time of day daily checkers run.
func (c *Config) DailyAt() (scheduler.Clock, error) {
	clock, err := scheduler.ParseClock(c.Schedule.DailyAt)
	if err != nil {
		return scheduler.Clock{}, fmt.Errorf("schedule.daily_at: %w", err)
	}
	return clock, nil
}

func boolPtr(b bool) *bool {
	return &b
}
