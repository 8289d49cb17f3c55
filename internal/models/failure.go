package models

import "unicode/utf8"

// MaxFailureTextLength is the longest Text a CheckerFailure keeps.
const MaxFailureTextLength = 500

// CheckerFailure describes one violated invariant reported by a checker.
type CheckerFailure struct {
	ID      string         `json:"id,omitempty"`
	RunID   string         `json:"run_id,omitempty"`
	Text    string         `json:"text"`
	Subtext string         `json:"subtext,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
}

// NewFailure returns a failure with the given text, truncated to
// MaxFailureTextLength runes.
func NewFailure(text string) CheckerFailure {
	return CheckerFailure{Text: truncateRunes(text, MaxFailureTextLength)}
}

// WithSubtext returns a copy of f with Subtext set.
func (f CheckerFailure) WithSubtext(subtext string) CheckerFailure {
	f.Subtext = subtext
	return f
}

// WithData returns a copy of f carrying data. The map is copied so the
// caller can keep mutating its own.
func (f CheckerFailure) WithData(data map[string]any) CheckerFailure {
	cp := make(map[string]any, len(data))
	for k, v := range data {
		cp[k] = v
	}
	f.Data = cp
	return f
}

func (f CheckerFailure) String() string {
	return f.Text
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
