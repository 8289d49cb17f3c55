package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spboyer/checkerd/internal/config"
	"github.com/spboyer/checkerd/internal/wizard"
	"github.com/spf13/cobra"
)

// DefaultSection is where init puts the example checkers.
const DefaultSection = "general"

func newInitCommand() *cobra.Command {
	var (
		yes     bool
		section string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a .checkerd.yaml and example checkers",
		Long: `Create .checkerd.yaml and an example definition file in the directory
given by --dir. Existing files are never overwritten.

Without --yes an interactive form asks for the checkers directory, who to
alert and when daily checkers run.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := filepath.Abs(configDir(cmd))
			if err != nil {
				return err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}

			answers := wizard.DefaultAnswers()
			if !yes {
				answers, err = wizard.RunInitWizard(cmd.InOrStdin(), cmd.ErrOrStderr(), answers)
				if err != nil {
					return err
				}
			}

			cfgText, err := wizard.GenerateConfig(answers)
			if err != nil {
				return err
			}
			checkersText, err := wizard.GenerateExampleCheckers(section, answers)
			if err != nil {
				return err
			}

			checkersDir := answers.CheckersDir
			if !filepath.IsAbs(checkersDir) {
				checkersDir = filepath.Join(dir, checkersDir)
			}

			w := cmd.OutOrStdout()
			if err := writeIfMissing(w, filepath.Join(dir, config.FileName), cfgText); err != nil {
				return err
			}
			if err := writeIfMissing(w, filepath.Join(checkersDir, section, "checkers.yaml"), checkersText); err != nil {
				return err
			}
			fmt.Fprintln(w, "\nRun 'checkerd validate' to check the definitions, then 'checkerd run-all' to try them.") //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Accept defaults without prompting")
	cmd.Flags().StringVar(&section, "section", DefaultSection, "Section for the example checkers")
	return cmd
}

func writeIfMissing(w io.Writer, path, content string) error {
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(w, "  exists  %s\n", path) //nolint:errcheck
		return nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(path), err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	fmt.Fprintf(w, "  created %s\n", path) //nolint:errcheck
	return nil
}
