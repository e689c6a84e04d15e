package usages

import (
	"cmp"
	"slices"

	"symfind/internal/search/definitions"
	"symfind/internal/search/ripgrep"
)

// DefinitionSearchResult holds the matches of one definition kind.
type DefinitionSearchResult struct {
	Kind    definitions.DefinitionKind `json:"kind"`
	Matches []ripgrep.Match            `json:"matches"`
}

// Definitions lists the kinds that produced at least one match, sorted by
// kind. A kind that was searched without results is absent.
type Definitions []DefinitionSearchResult

// Kinds returns the kinds present.
func (d Definitions) Kinds() []definitions.DefinitionKind {
	kinds := make([]definitions.DefinitionKind, 0, len(d))
	for _, r := range d {
		kinds = append(kinds, r.Kind)
	}
	return kinds
}

// Find returns the matches of kind, or nil.
func (d Definitions) Find(kind definitions.DefinitionKind) []ripgrep.Match {
	for _, r := range d {
		if r.Kind == kind {
			return r.Matches
		}
	}
	return nil
}

// Total counts matches across all kinds.
func (d Definitions) Total() int {
	n := 0
	for _, r := range d {
		n += len(r.Matches)
	}
	return n
}

// KindAt maps "path:line" of every definition match to its kind. When two
// kinds match the same line the first in kind order wins.
func (d Definitions) KindAt() map[string]definitions.DefinitionKind {
	out := make(map[string]definitions.DefinitionKind, d.Total())
	for _, r := range d {
		for _, m := range r.Matches {
			if _, ok := out[m.Key()]; !ok {
				out[m.Key()] = r.Kind
			}
		}
	}
	return out
}

// Occurrences is every whole-word hit of the word outside comment lines.
type Occurrences []ripgrep.Match

// Usage is an occurrence that passed the usage matcher.
type Usage struct {
	ripgrep.Match

	// Kind is set when the line is also a definition.
	Kind definitions.DefinitionKind `json:"kind,omitempty"`

	// WordIndices are the byte offsets of the word itself; Indices adds the
	// offsets highlighted by the matcher's exact terms.
	WordIndices []int `json:"-"`
	Indices     []int `json:"indices"`
}

// IsDefinition reports whether the usage line is a definition.
func (u Usage) IsDefinition() bool {
	return u.Kind != ""
}

func compareMatches(a, b ripgrep.Match) int {
	return cmp.Or(
		cmp.Compare(a.Path, b.Path),
		cmp.Compare(a.LineNumber, b.LineNumber),
		cmp.Compare(a.Column, b.Column),
	)
}

func sortMatches(ms []ripgrep.Match) {
	slices.SortFunc(ms, compareMatches)
}
