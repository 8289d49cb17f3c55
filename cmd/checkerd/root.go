package main

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/spboyer/checkerd/internal/webapi"
	"github.com/spf13/cobra"
)

var version = "dev"

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "checkerd",
		Short: "checkerd - scheduled data integrity checkers",
		Long: `checkerd runs small checker functions on a schedule and reports the
failures they find.

Checkers are declared in YAML files under the checkers directory. Each run
is recorded, status changes are alerted once, and a read-only status API
shows what is failing right now.`,
		Version:      version,
		SilenceUsage: true,
	}

	flags := cmd.PersistentFlags()
	debugLogging := flags.Bool("debug", false, "Enable debug logging")
	logFormat := flags.String("log-format", "text", "Log format: text or json")
	flags.String("dir", ".", "Directory to start searching for .checkerd.yaml")

	cmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if *debugLogging {
			level = slog.LevelDebug
		}
		logger, err := newLogger(cmd.ErrOrStderr(), *logFormat, level)
		if err != nil {
			return err
		}
		slog.SetDefault(logger)
		return nil
	}

	webapi.Version = version

	// Add subcommands
	cmd.AddCommand(newRunCommand())
	cmd.AddCommand(newRunAllCommand())
	cmd.AddCommand(newListCommand())
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newValidateCommand())
	cmd.AddCommand(newInitCommand())
	cmd.AddCommand(newOverrideCommand())
	cmd.AddCommand(newIgnoreCommand())
	cmd.AddCommand(newUnignoreCommand())

	return cmd
}

func newLogger(w io.Writer, format string, level slog.Level) (*slog.Logger, error) {
	opts := &slog.HandlerOptions{Level: level}
	switch format {
	case "text", "":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q, expected text or json", format)
	}
}

func execute() error {
	rootCmd := newRootCommand()
	return rootCmd.Execute()
}
