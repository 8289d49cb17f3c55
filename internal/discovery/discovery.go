// Package discovery finds checker definition files below a root directory
// and registers the checkers they declare.
package discovery

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spboyer/checkerd/internal/checks"
	"github.com/spboyer/checkerd/internal/models"
	"github.com/spboyer/checkerd/internal/registry"
	"github.com/spboyer/checkerd/internal/validation"
	"gopkg.in/yaml.v3"
)

// Definition is one checker declared in a definition file.
type Definition struct {
	Name        string         `yaml:"name"`
	Kind        checks.Kind    `yaml:"kind"`
	Description string         `yaml:"description,omitempty"`
	Owner       string         `yaml:"owner,omitempty"`
	Severity    string         `yaml:"severity,omitempty"`
	Cadence     string         `yaml:"cadence,omitempty"`
	Tries       int            `yaml:"tries,omitempty"`
	Params      map[string]any `yaml:"params,omitempty"`

	// Section and Path are filled in by discovery.
	Section string `yaml:"-"`
	Path    string `yaml:"-"`
}

// File is the top-level shape of a definition file.
type File struct {
	Checkers []Definition `yaml:"checkers"`
}

// DefinitionFile is a definition file found by Find.
type DefinitionFile struct {
	Path    string // absolute path to the file
	Section string // first directory below the root
}

// Find walks root and returns every root/<section>/*.yaml file, sorted by
// path. Files ending in _test.yaml and hidden directories are skipped.
func Find(root string) ([]DefinitionFile, error) {
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root path: %w", err)
	}

	if _, err := os.Stat(absRoot); err != nil {
		return nil, fmt.Errorf("root path: %w", err)
	}

	var files []DefinitionFile

	err = filepath.WalkDir(absRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // skip inaccessible entries
		}

		if d.IsDir() {
			if path != absRoot && strings.HasPrefix(d.Name(), ".") {
				return fs.SkipDir
			}
			return nil
		}

		if !isDefinitionFile(d.Name()) {
			return nil
		}

		rel, err := filepath.Rel(absRoot, path)
		if err != nil {
			return nil
		}
		parts := strings.Split(filepath.ToSlash(rel), "/")
		// Only root/<section>/<file>.yaml is a definition file.
		if len(parts) != 2 {
			return nil
		}

		files = append(files, DefinitionFile{Path: path, Section: parts[0]})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking directory %s: %w", absRoot, err)
	}

	return files, nil
}

func isDefinitionFile(name string) bool {
	if strings.HasSuffix(name, "_test.yaml") || strings.HasSuffix(name, "_test.yml") {
		return false
	}
	return strings.HasSuffix(name, ".yaml") || strings.HasSuffix(name, ".yml")
}

// Load validates and parses one definition file.
func Load(f DefinitionFile) ([]Definition, error) {
	if err := validation.ValidateCheckersFile(f.Path); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", f.Path, err)
	}

	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", f.Path, err)
	}

	for i := range file.Checkers {
		file.Checkers[i].Section = f.Section
		file.Checkers[i].Path = f.Path
	}
	return file.Checkers, nil
}

// Registration turns a definition into a registry entry.
func (d Definition) Registration() (registry.Registration, error) {
	check, err := checks.Create(d.Kind, d.Name, d.Params)
	if err != nil {
		return registry.Registration{}, err
	}

	severity, err := models.ParseSeverity(d.Severity)
	if err != nil {
		return registry.Registration{}, fmt.Errorf("checker %q: %w", d.Name, err)
	}
	cadence, err := models.ParseCadence(d.Cadence)
	if err != nil {
		return registry.Registration{}, fmt.Errorf("checker %q: %w", d.Name, err)
	}

	return registry.Registration{
		Name:        d.Name,
		Section:     d.Section,
		Description: strings.TrimSpace(d.Description),
		Owner:       strings.TrimSpace(d.Owner),
		Tries:       max(d.Tries, 1),
		Severity:    severity,
		Cadence:     cadence,
		Func:        check.Run,
	}, nil
}

// Discover loads every definition file below root into reg. Problems in
// individual files do not stop discovery; they are all returned together,
// along with every duplicate name.
func Discover(root string, reg *registry.Registry) error {
	files, err := Find(root)
	if err != nil {
		return err
	}

	var errs []error
	for _, f := range files {
		defs, err := Load(f)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, d := range defs {
			r, err := d.Registration()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", f.Path, err))
				continue
			}
			if err := reg.Add(r); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", f.Path, err))
			}
		}
	}
	return errors.Join(errs...)
}
