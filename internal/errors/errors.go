// Package errors defines the error kinds shared by the search packages.
//
// Callers match on the sentinel values with errors.Is; SearchError adds the
// operation context (language, pattern) without hiding the kind.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupportedLanguage means no definition rules are registered for the language.
	ErrUnsupportedLanguage = errors.New("unsupported language")

	// ErrUnknownKind means the language has no rule for the requested definition kind.
	ErrUnknownKind = errors.New("unknown definition kind")

	// ErrSpawnFailed means the external executable could not be started.
	ErrSpawnFailed = errors.New("failed to spawn process")

	// ErrInvalidWorkingDirectory means the requested working directory is missing or not a directory.
	ErrInvalidWorkingDirectory = errors.New("invalid working directory")

	// ErrInvalidPattern is reported by ripgrep when it cannot parse a pattern.
	ErrInvalidPattern = errors.New("invalid pattern")

	// ErrFeatureMissing means the ctags executable lacks a required feature.
	ErrFeatureMissing = errors.New("required feature missing")

	// ErrInvalidWord means the query word cannot be embedded in a command line.
	ErrInvalidWord = errors.New("invalid word")
)

// SearchError carries the context of a failed search operation.
type SearchError struct {
	Op       string
	Language string
	Pattern  string
	Err      error
}

// NewSearchError wraps err with the operation name.
func NewSearchError(op string, err error) *SearchError {
	return &SearchError{Op: op, Err: err}
}

// WithLanguage records the language being searched.
func (e *SearchError) WithLanguage(lang string) *SearchError {
	e.Language = lang
	return e
}

// WithPattern records the pattern being searched.
func (e *SearchError) WithPattern(pattern string) *SearchError {
	e.Pattern = pattern
	return e
}

func (e *SearchError) Error() string {
	switch {
	case e.Language != "" && e.Pattern != "":
		return fmt.Sprintf("%s (%s, %q): %v", e.Op, e.Language, e.Pattern, e.Err)
	case e.Language != "":
		return fmt.Sprintf("%s (%s): %v", e.Op, e.Language, e.Err)
	case e.Pattern != "":
		return fmt.Sprintf("%s (%q): %v", e.Op, e.Pattern, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *SearchError) Unwrap() error {
	return e.Err
}
