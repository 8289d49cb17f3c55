package main

import (
	"fmt"
	"os"
	"slices"
	"sort"
	"strings"

	"github.com/spboyer/checkerd/internal/models"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newOverrideCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "override",
		Short: "Acknowledge known failures so they stop being reported",
		Long: `Manage overrides. An override is a set of key=value pairs; a failure
whose data contains all of them is dropped before it reaches any sink or
counts towards the checker's status.`,
	}
	cmd.AddCommand(newOverrideAddCommand(), newOverrideListCommand(), newOverrideRemoveCommand())
	return cmd
}

func newOverrideAddCommand() *cobra.Command {
	var (
		all  bool
		note string
		user string
	)

	cmd := &cobra.Command{
		Use:   "add [checker] key=value...",
		Short: "Add an override",
		Example: `  checkerd override add disk_space mount=/scratch --note "scratch is allowed to fill up"
  checkerd override add --all host=build-07`,
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case all && len(args) == 0:
				return fmt.Errorf("expected at least one key=value pair")
			case !all && len(args) < 2:
				return fmt.Errorf("expected a checker name and at least one key=value pair")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close() //nolint:errcheck

			o := &models.Override{AllCheckers: all, Note: note, User: user}
			pairs := args
			if !all {
				o.Checker, pairs = args[0], args[1:]
				if _, ok := a.reg.Get(o.Checker); !ok {
					return fmt.Errorf("unknown checker %q", o.Checker)
				}
			}
			if o.Data, err = parsePairs(pairs); err != nil {
				return err
			}
			if o.User == "" {
				o.User = os.Getenv("USER")
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			if err := st.AddOverride(o); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added override %s\n", o.ID) //nolint:errcheck
			return nil
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "Apply to every checker")
	cmd.Flags().StringVar(&note, "note", "", "Why the failure is acceptable")
	cmd.Flags().StringVar(&user, "user", "", "Who added the override (defaults to $USER)")
	return cmd
}

func newOverrideListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list [checker]",
		Short: "List overrides",
		Args:  cobra.MaximumNArgs(1),
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

			var names []string
			if len(args) == 1 {
				names = args
			} else {
				for _, r := range a.reg.All() {
					names = append(names, r.Name)
				}
				stored, err := st.ListCheckers()
				if err != nil {
					return err
				}
				for _, c := range stored {
					if !slices.Contains(names, c.Name) {
						names = append(names, c.Name)
					}
				}
			}

			seen := map[string]bool{}
			var list []models.Override
			for _, name := range append(names, "") {
				found, err := st.Overrides(name)
				if err != nil {
					return err
				}
				for _, o := range found {
					if !seen[o.ID] {
						seen[o.ID] = true
						list = append(list, o)
					}
				}
			}
			sort.SliceStable(list, func(i, j int) bool { return list[i].CreatedAt.Before(list[j].CreatedAt) })

			w := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(w, "No overrides.") //nolint:errcheck
				return nil
			}
			rows := make([][]string, 0, len(list))
			for _, o := range list {
				target := o.Checker
				if o.AllCheckers {
					target = "*"
				}
				rows = append(rows, []string{o.ID, target, formatPairs(o.Data), o.User, o.Note})
			}
			writeTable(w, []string{"ID", "CHECKER", "MATCH", "USER", "NOTE"}, rows, 50)
			return nil
		},
	}
}

func newOverrideRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"remove"},
		Short:   "Remove an override",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			a := &app{cfg: cfg}
			defer a.Close() //nolint:errcheck

			st, err := a.openStore()
			if err != nil {
				return err
			}
			if err := st.DeleteOverride(args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed override %s\n", args[0]) //nolint:errcheck
			return nil
		},
	}
}

// parsePairs turns key=value arguments into override data. Values are
// decoded as YAML scalars so port=443 matches a numeric field.
func parsePairs(pairs []string) (map[string]any, error) {
	data := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid pair %q, expected key=value", p)
		}
		var value any
		if err := yaml.Unmarshal([]byte(v), &value); err != nil || value == nil {
			value = v
		}
		if _, isMap := value.(map[string]any); isMap {
			value = v
		}
		if _, isList := value.([]any); isList {
			value = v
		}
		data[k] = value
	}
	return data, nil
}

func formatPairs(data map[string]any) string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, data[k])
	}
	return strings.Join(parts, " ")
}
