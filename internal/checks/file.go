package checks

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"

	"github.com/spboyer/checkerd/internal/models"
)

// errFileCheckNoChecks is returned when a file check is created without any checks.
const errFileCheckNoChecks = "file check '%s' must have at least one of 'must_exist', 'must_not_exist', or 'content_patterns'"

// FileContentPattern defines regex patterns to match against a file's content.
type FileContentPattern struct {
	Path         string   `mapstructure:"path"`
	MustMatch    []string `mapstructure:"must_match"`
	MustNotMatch []string `mapstructure:"must_not_match"`
}

type FileCheckArgs struct {
	Name string `mapstructure:"-"`
	// Dir resolves relative paths. Absolute paths are used as is.
	Dir             string               `mapstructure:"dir"`
	MustExist       []string             `mapstructure:"must_exist"`
	MustNotExist    []string             `mapstructure:"must_not_exist"`
	ContentPatterns []FileContentPattern `mapstructure:"content_patterns"`
}

type compiledPattern struct {
	path         string
	mustMatch    []*regexp.Regexp
	mustNotMatch []*regexp.Regexp
}

// fileCheck reports missing files, files that should not be there, and
// file contents that do or don't match patterns.
type fileCheck struct {
	name         string
	dir          string
	mustExist    []string
	mustNotExist []string
	patterns     []compiledPattern
}

func NewFileCheck(args FileCheckArgs) (*fileCheck, error) {
	if len(args.MustExist) == 0 && len(args.MustNotExist) == 0 && len(args.ContentPatterns) == 0 {
		return nil, fmt.Errorf(errFileCheckNoChecks, args.Name)
	}

	fc := &fileCheck{
		name:         args.Name,
		dir:          args.Dir,
		mustExist:    args.MustExist,
		mustNotExist: args.MustNotExist,
	}
	for _, cp := range args.ContentPatterns {
		if cp.Path == "" {
			return nil, fmt.Errorf("file check '%s' has a content pattern without a 'path'", args.Name)
		}
		c := compiledPattern{path: cp.Path}
		var err error
		if c.mustMatch, err = compileAll(cp.MustMatch); err != nil {
			return nil, fmt.Errorf("file check '%s', 'must_match' for %s: %w", args.Name, cp.Path, err)
		}
		if c.mustNotMatch, err = compileAll(cp.MustNotMatch); err != nil {
			return nil, fmt.Errorf("file check '%s', 'must_not_match' for %s: %w", args.Name, cp.Path, err)
		}
		fc.patterns = append(fc.patterns, c)
	}
	return fc, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}

func (fc *fileCheck) Name() string { return fc.name }
func (fc *fileCheck) Kind() Kind   { return KindFile }

func (fc *fileCheck) Run(ctx context.Context) ([]models.CheckerFailure, error) {
	var failures []models.CheckerFailure

	for _, p := range fc.mustExist {
		if _, err := os.Stat(fc.resolve(p)); errors.Is(err, fs.ErrNotExist) {
			failures = append(failures, pathFailure("File must exist but not found: "+p, p))
		} else if err != nil {
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
	}

	for _, p := range fc.mustNotExist {
		if _, err := os.Stat(fc.resolve(p)); err == nil {
			failures = append(failures, pathFailure("File must not exist but found: "+p, p))
		}
	}

	for _, cp := range fc.patterns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		content, err := os.ReadFile(fc.resolve(cp.path))
		if errors.Is(err, fs.ErrNotExist) {
			failures = append(failures, pathFailure("File not found for content check: "+cp.path, cp.path))
			continue
		} else if err != nil {
			return nil, fmt.Errorf("reading %s: %w", cp.path, err)
		}

		for _, re := range cp.mustMatch {
			if !re.Match(content) {
				failures = append(failures, pathFailure(fmt.Sprintf("File %s missing expected pattern: %s", cp.path, re), cp.path))
			}
		}
		for _, re := range cp.mustNotMatch {
			if re.Match(content) {
				failures = append(failures, pathFailure(fmt.Sprintf("File %s contains forbidden pattern: %s", cp.path, re), cp.path))
			}
		}
	}

	return failures, nil
}

func (fc *fileCheck) resolve(p string) string {
	if filepath.IsAbs(p) || fc.dir == "" {
		return p
	}
	return filepath.Join(fc.dir, p)
}

func pathFailure(text, path string) models.CheckerFailure {
	return models.NewFailure(text).WithData(map[string]any{"path": path})
}
