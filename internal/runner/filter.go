package runner

import (
	"fmt"
	"path/filepath"

	"github.com/spboyer/checkerd/internal/registry"
)

// Filter returns the registrations whose Name or Section matches at
// least one glob pattern. An empty patterns slice returns regs unchanged.
func Filter(regs []registry.Registration, patterns []string) ([]registry.Registration, error) {
	if len(patterns) == 0 {
		return regs, nil
	}

	var matched []registry.Registration
	for _, reg := range regs {
		ok, err := matchesAny(reg, patterns)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, reg)
		}
	}
	return matched, nil
}

func matchesAny(reg registry.Registration, patterns []string) (bool, error) {
	for _, p := range patterns {
		nameMatch, err := filepath.Match(p, reg.Name)
		if err != nil {
			return false, fmt.Errorf("invalid checker filter pattern %q: %w", p, err)
		}
		if nameMatch {
			return true, nil
		}
		if reg.Section == "" {
			continue
		}
		sectionMatch, err := filepath.Match(p, reg.Section)
		if err != nil {
			return false, fmt.Errorf("invalid checker filter pattern %q: %w", p, err)
		}
		if sectionMatch {
			return true, nil
		}
	}
	return false, nil
}
