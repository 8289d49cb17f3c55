package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidRegistration is returned for an empty name or a nil function.
	ErrInvalidRegistration = errors.New("invalid checker registration")

	// ErrNotFound is returned when a checker name is not registered.
	ErrNotFound = errors.New("checker not registered")
)

// DuplicateNameError reports a second registration under a taken name.
// The first registration stays in place.
type DuplicateNameError struct {
	Name            string
	Section         string
	ExistingSection string
}

func (e *DuplicateNameError) Error() string {
	if e.Section == "" && e.ExistingSection == "" {
		return fmt.Sprintf("duplicate checker %q", e.Name)
	}
	return fmt.Sprintf("duplicate checker %q found in %q (already registered from %q)", e.Name, e.Section, e.ExistingSection)
}
