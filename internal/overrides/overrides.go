// Package overrides decides whether a failure reported by a checker has
// been acknowledged by an operator and should be dropped.
package overrides

import (
	"reflect"

	"github.com/spboyer/checkerd/internal/models"
)

// Matches reports whether every key of override is present in data with
// an equal value. An empty override matches everything.
func Matches(override, data map[string]any) bool {
	for k, want := range override {
		got, ok := data[k]
		if !ok {
			return false
		}
		if !equal(want, got) {
			return false
		}
	}
	return true
}

// IsRelevant reports whether failure should be kept for checker. Failures
// without data are always relevant. Overrides scoped to another checker
// are ignored.
func IsRelevant(failure models.CheckerFailure, checker string, list []models.Override) bool {
	if len(failure.Data) == 0 {
		return true
	}
	for _, o := range list {
		if !o.AllCheckers && o.Checker != checker {
			continue
		}
		if Matches(o.Data, failure.Data) {
			return false
		}
	}
	return true
}

// Filter returns the relevant failures, preserving order.
func Filter(failures []models.CheckerFailure, checker string, list []models.Override) []models.CheckerFailure {
	if len(list) == 0 {
		return failures
	}
	out := make([]models.CheckerFailure, 0, len(failures))
	for _, f := range failures {
		if IsRelevant(f, checker, list) {
			out = append(out, f)
		}
	}
	return out
}

// equal compares decoded JSON/YAML values, treating numeric types alike
// so an override loaded from YAML (int) matches data built in Go (int64,
// float64).
func equal(a, b any) bool {
	if fa, ok := toFloat(a); ok {
		if fb, ok := toFloat(b); ok {
			return fa == fb
		}
	}
	return reflect.DeepEqual(a, b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
