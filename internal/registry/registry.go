// Package registry stores the checkers known to a process, keyed by a
// unique name and kept in registration order.
package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/spboyer/checkerd/internal/models"
)

// Func inspects live state and returns the invariant violations it found.
// A nil or empty slice means the invariant holds. Returning an error (or
// panicking) marks the run as errored rather than failed.
type Func func(ctx context.Context) ([]models.CheckerFailure, error)

// Registration is a checker plus the metadata it was registered with.
type Registration struct {
	Name        string
	Section     string
	Description string
	// Owner receives error reports for the checker.
	Owner string
	// Tries is how many attempts a failing checker gets before its
	// failures are reported. Always >= 1.
	Tries    int
	Severity models.Severity
	Cadence  models.Cadence
	Func     Func
}

// Option customizes a Registration.
type Option func(*Registration)

// WithSection sets the section (usually the package or directory) the
// checker belongs to.
func WithSection(section string) Option {
	return func(r *Registration) { r.Section = section }
}

// WithDescription sets the checker description. Surrounding whitespace is trimmed.
func WithDescription(description string) Option {
	return func(r *Registration) { r.Description = strings.TrimSpace(description) }
}

// WithTries sets the number of attempts. Values below 1 are ignored.
func WithTries(tries int) Option {
	return func(r *Registration) {
		if tries >= 1 {
			r.Tries = tries
		}
	}
}

func WithOwner(owner string) Option {
	return func(r *Registration) { r.Owner = strings.TrimSpace(owner) }
}

func WithSeverity(severity models.Severity) Option {
	return func(r *Registration) { r.Severity = severity }
}

func WithCadence(cadence models.Cadence) Option {
	return func(r *Registration) { r.Cadence = cadence }
}

// Registry maps checker names to registrations. It is safe for
// concurrent use, but is meant to be filled at startup and only read
// afterwards.
type Registry struct {
	mu         sync.RWMutex
	order      []string
	byName     map[string]*Registration
	duplicates []*DuplicateNameError
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{byName: make(map[string]*Registration)}
}

// Register adds fn under name. If name is already taken the existing
// registration is kept, the conflict is remembered for Validate, and a
// *DuplicateNameError is returned.
func (r *Registry) Register(name string, fn Func, opts ...Option) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty checker name", ErrInvalidRegistration)
	}
	if fn == nil {
		return fmt.Errorf("%w: checker %q has no function", ErrInvalidRegistration, name)
	}

	reg := &Registration{
		Name:     name,
		Tries:    1,
		Severity: models.SeverityLow,
		Cadence:  models.CadenceHourly,
		Func:     fn,
	}
	for _, o := range opts {
		o(reg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.byName[name]; ok {
		dup := &DuplicateNameError{
			Name:            name,
			Section:         reg.Section,
			ExistingSection: existing.Section,
		}
		r.duplicates = append(r.duplicates, dup)
		return dup
	}

	r.byName[name] = reg
	r.order = append(r.order, name)
	return nil
}

// Add registers a fully built Registration.
func (r *Registry) Add(reg Registration) error {
	return r.Register(reg.Name, reg.Func,
		WithSection(reg.Section),
		WithDescription(reg.Description),
		WithOwner(reg.Owner),
		WithTries(reg.Tries),
		WithSeverity(orDefault(reg.Severity, models.SeverityLow)),
		WithCadence(orDefault(reg.Cadence, models.CadenceHourly)),
	)
}

// All returns the registrations in the order they were registered.
func (r *Registry) All() []Registration {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Registration, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, *r.byName[name])
	}
	return out
}

// Get returns the registration for name.
func (r *Registry) Get(name string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.byName[name]
	if !ok {
		return Registration{}, false
	}
	return *reg, true
}

// Len returns the number of registered checkers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// ForCadence returns, in registration order, the checkers that run on
// cadence and whose name is not in disabled.
func (r *Registry) ForCadence(cadence models.Cadence, disabled []string) []Registration {
	skip := make(map[string]struct{}, len(disabled))
	for _, name := range disabled {
		skip[name] = struct{}{}
	}

	var out []Registration
	for _, reg := range r.All() {
		if reg.Cadence != cadence {
			continue
		}
		if _, ok := skip[reg.Name]; ok {
			continue
		}
		out = append(out, reg)
	}
	return out
}

// Subset returns a new registry holding only the named checkers, in the
// order they appear in r. Unknown names are reported as ErrNotFound.
func (r *Registry) Subset(names ...string) (*Registry, error) {
	sub := New()
	want := make(map[string]struct{}, len(names))
	for _, name := range names {
		if _, ok := r.Get(name); !ok {
			return nil, fmt.Errorf("checker %q: %w", name, ErrNotFound)
		}
		want[name] = struct{}{}
	}
	for _, reg := range r.All() {
		if _, ok := want[reg.Name]; ok {
			if err := sub.Add(reg); err != nil {
				return nil, err
			}
		}
	}
	return sub, nil
}

// Duplicates returns every rejected re-registration.
func (r *Registry) Duplicates() []*DuplicateNameError {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*DuplicateNameError, len(r.duplicates))
	copy(out, r.duplicates)
	return out
}

// Validate returns all duplicate registrations joined into one error, or nil.
func (r *Registry) Validate() error {
	dups := r.Duplicates()
	if len(dups) == 0 {
		return nil
	}
	errs := make([]error, 0, len(dups))
	for _, d := range dups {
		errs = append(errs, d)
	}
	return errors.Join(errs...)
}

func orDefault[T comparable](v, def T) T {
	var zero T
	if v == zero {
		return def
	}
	return v
}
