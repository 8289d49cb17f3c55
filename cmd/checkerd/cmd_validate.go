package main

import (
	"errors"
	"fmt"

	"github.com/spboyer/checkerd/internal/discovery"
	"github.com/spboyer/checkerd/internal/registry"
	"github.com/spboyer/checkerd/internal/validation"
	"github.com/spf13/cobra"
)

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration and every checker definition",
		Long: `Validate .checkerd.yaml and every definition file below the checkers
directory without running anything. All problems are reported, not just the
first one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "✓ configuration (%s)\n", cfg.Dir) //nolint:errcheck

			files, err := discovery.Find(cfg.CheckersDir())
			if err != nil {
				return err
			}

			reg := registry.New()
			problems := 0
			report := func(path string, err error) {
				problems++
				var fe *validation.FileError
				if errors.As(err, &fe) {
					fmt.Fprintf(w, "✗ %s\n", path) //nolint:errcheck
					for _, e := range fe.Errors {
						fmt.Fprintf(w, "    %s\n", e) //nolint:errcheck
					}
					return
				}
				fmt.Fprintf(w, "✗ %s: %v\n", path, err) //nolint:errcheck
			}

			for _, f := range files {
				defs, err := discovery.Load(f)
				if err != nil {
					report(f.Path, err)
					continue
				}
				ok := true
				for _, d := range defs {
					r, err := d.Registration()
					if err == nil {
						err = reg.Add(r)
					}
					if err != nil {
						report(f.Path, err)
						ok = false
					}
				}
				if ok {
					fmt.Fprintf(w, "✓ %s (%d checker(s))\n", f.Path, len(defs)) //nolint:errcheck
				}
			}

			if problems > 0 {
				return fmt.Errorf("%d problem(s) found", problems)
			}
			fmt.Fprintf(w, "%d checker(s) in %d file(s) are valid.\n", reg.Len(), len(files)) //nolint:errcheck
			return nil
		},
	}
}
