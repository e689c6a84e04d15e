// Package matcher implements the exact and inverse term filters used to
// narrow occurrences down to usages.
package matcher

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// CaseMatching controls how term text is compared with a line.
type CaseMatching int

const (
	// CaseSmart is case-sensitive only when the term contains an uppercase letter.
	CaseSmart CaseMatching = iota
	CaseIgnore
	CaseRespect
)

// ParseCaseMatching maps "smart", "ignore" and "respect" to a CaseMatching.
func ParseCaseMatching(s string) (CaseMatching, bool) {
	switch strings.ToLower(s) {
	case "smart", "":
		return CaseSmart, true
	case "ignore", "insensitive":
		return CaseIgnore, true
	case "respect", "sensitive":
		return CaseRespect, true
	}
	return CaseSmart, false
}

func (c CaseMatching) String() string {
	switch c {
	case CaseIgnore:
		return "ignore"
	case CaseRespect:
		return "respect"
	}
	return "smart"
}

func (c CaseMatching) sensitive(text string) bool {
	switch c {
	case CaseIgnore:
		return false
	case CaseRespect:
		return true
	}
	return strings.IndexFunc(text, unicode.IsUpper) >= 0
}

// TermType says where in the line a term must appear.
type TermType int

const (
	// Exact matches anywhere in the line.
	Exact TermType = iota
	// Prefix matches at the start of the line, ignoring leading whitespace.
	Prefix
	// Suffix matches at the end of the line, ignoring trailing whitespace.
	Suffix
)

func (t TermType) String() string {
	switch t {
	case Prefix:
		return "prefix"
	case Suffix:
		return "suffix"
	}
	return "exact"
}

// ExactTerm requires the line to contain Text.
type ExactTerm struct {
	Type TermType
	Text string
}

// InverseTerm requires the line not to contain Text.
type InverseTerm struct {
	Type TermType
	Text string
}

// IsSuperset reports whether t's text extends other's in a way that keeps
// every line matching t also matching other (foobar vs foo, ^foobar vs ^foo).
func (t ExactTerm) IsSuperset(other ExactTerm) bool {
	if t.Type != other.Type {
		return false
	}
	switch t.Type {
	case Prefix:
		return strings.HasPrefix(t.Text, other.Text)
	case Suffix:
		return strings.HasSuffix(t.Text, other.Text)
	}
	return strings.Contains(t.Text, other.Text)
}

// IsSuperset reports whether t rejects every line other rejects. That holds
// when other's text extends t's: !foo rejects everything !foobar does.
func (t InverseTerm) IsSuperset(other InverseTerm) bool {
	if t.Type != other.Type {
		return false
	}
	switch t.Type {
	case Prefix:
		return strings.HasPrefix(other.Text, t.Text)
	case Suffix:
		return strings.HasSuffix(other.Text, t.Text)
	}
	return strings.Contains(other.Text, t.Text)
}

// find locates text in line according to typ and returns the matched byte span.
func find(line, text string, typ TermType, sensitive bool) (start, end int, ok bool) {
	if text == "" {
		return 0, 0, true
	}
	switch typ {
	case Prefix:
		trimmed := strings.TrimLeftFunc(line, unicode.IsSpace)
		offset := len(line) - len(trimmed)
		if n, ok := prefixLen(trimmed, text, sensitive); ok {
			return offset, offset + n, true
		}
		return 0, 0, false
	case Suffix:
		trimmed := strings.TrimRightFunc(line, unicode.IsSpace)
		for i := range trimmed {
			if n, ok := prefixLen(trimmed[i:], text, sensitive); ok && i+n == len(trimmed) {
				return i, i + n, true
			}
		}
		return 0, 0, false
	}
	if sensitive {
		if i := strings.Index(line, text); i >= 0 {
			return i, i + len(text), true
		}
		return 0, 0, false
	}
	for i := range line {
		if n, ok := prefixLen(line[i:], text, false); ok {
			return i, i + n, true
		}
	}
	return 0, 0, false
}

// prefixLen reports whether s starts with prefix and how many bytes of s
// the prefix covers, which can differ from len(prefix) under case folding.
func prefixLen(s, prefix string, sensitive bool) (int, bool) {
	if sensitive {
		if strings.HasPrefix(s, prefix) {
			return len(prefix), true
		}
		return 0, false
	}
	i := 0
	for _, pr := range prefix {
		if i >= len(s) {
			return 0, false
		}
		sr, size := utf8.DecodeRuneInString(s[i:])
		if sr != pr && unicode.ToLower(sr) != unicode.ToLower(pr) && unicode.ToUpper(sr) != unicode.ToUpper(pr) {
			return 0, false
		}
		i += size
	}
	return i, true
}

// runeOffsets lists the byte offset of every rune in line[start:end].
func runeOffsets(line string, start, end int) []int {
	offsets := make([]int, 0, end-start)
	for i := range line[start:end] {
		offsets = append(offsets, start+i)
	}
	return offsets
}
