package matcher

import (
	"slices"
)

// ExactMatcher requires every exact term to match.
type ExactMatcher struct {
	terms        []ExactTerm
	caseMatching CaseMatching
}

// NewExactMatcher creates an ExactMatcher.
func NewExactMatcher(terms []ExactTerm, caseMatching CaseMatching) ExactMatcher {
	return ExactMatcher{terms: slices.Clone(terms), caseMatching: caseMatching}
}

// Terms returns the terms in registration order.
func (m ExactMatcher) Terms() []ExactTerm {
	return slices.Clone(m.terms)
}

// FindMatches returns the byte offsets covered by every term's first match,
// or false if any term is missing from line.
func (m ExactMatcher) FindMatches(line string) ([]int, bool) {
	indices := []int{}
	for _, term := range m.terms {
		start, end, ok := find(line, term.Text, term.Type, m.caseMatching.sensitive(term.Text))
		if !ok {
			return nil, false
		}
		indices = append(indices, runeOffsets(line, start, end)...)
	}
	slices.Sort(indices)
	return slices.Compact(indices), true
}

// InverseMatcher rejects lines matching any of its terms.
type InverseMatcher struct {
	terms        []InverseTerm
	caseMatching CaseMatching
}

// NewInverseMatcher creates an InverseMatcher.
func NewInverseMatcher(terms []InverseTerm, caseMatching CaseMatching) InverseMatcher {
	return InverseMatcher{terms: slices.Clone(terms), caseMatching: caseMatching}
}

// Terms returns the terms in registration order.
func (m InverseMatcher) Terms() []InverseTerm {
	return slices.Clone(m.terms)
}

// MatchAny reports whether any term matches line.
func (m InverseMatcher) MatchAny(line string) bool {
	for _, term := range m.terms {
		if term.Text == "" {
			continue
		}
		if _, _, ok := find(line, term.Text, term.Type, m.caseMatching.sensitive(term.Text)); ok {
			return true
		}
	}
	return false
}

// UsageMatcher combines exact and inverse terms. The zero value accepts
// every line.
type UsageMatcher struct {
	exact   ExactMatcher
	inverse InverseMatcher
}

// NewUsageMatcher creates a UsageMatcher with smart case matching.
func NewUsageMatcher(exact []ExactTerm, inverse []InverseTerm) UsageMatcher {
	return NewUsageMatcherWithCase(exact, inverse, CaseSmart)
}

// NewUsageMatcherWithCase creates a UsageMatcher with the given case matching.
func NewUsageMatcherWithCase(exact []ExactTerm, inverse []InverseTerm, caseMatching CaseMatching) UsageMatcher {
	return UsageMatcher{
		exact:   NewExactMatcher(exact, caseMatching),
		inverse: NewInverseMatcher(inverse, caseMatching),
	}
}

// ExactTerms returns the exact terms in registration order.
func (m UsageMatcher) ExactTerms() []ExactTerm {
	return m.exact.Terms()
}

// InverseTerms returns the inverse terms in registration order.
func (m UsageMatcher) InverseTerms() []InverseTerm {
	return m.inverse.Terms()
}

// IsEmpty reports whether m has no terms and so accepts every line.
func (m UsageMatcher) IsEmpty() bool {
	return len(m.exact.terms) == 0 && len(m.inverse.terms) == 0
}

// MatchIndices returns the offsets of the exact-term matches in line if all
// exact terms match and no inverse term does.
func (m UsageMatcher) MatchIndices(line string) ([]int, bool) {
	indices, ok := m.exact.FindMatches(line)
	if !ok || m.inverse.MatchAny(line) {
		return nil, false
	}
	return indices, true
}

// MatchJumpLine applies MatchIndices to line and merges the result with
// highlight offsets already known for it.
func (m UsageMatcher) MatchJumpLine(line string, indices []int) (string, []int, bool) {
	exact, ok := m.MatchIndices(line)
	if !ok {
		return "", nil, false
	}
	merged := make([]int, 0, len(indices)+len(exact))
	merged = append(merged, indices...)
	merged = append(merged, exact...)
	slices.Sort(merged)
	return line, slices.Compact(merged), true
}

// IsSuperset compares m with other term by term, in registration order.
// It is true when each of m's terms is a superset of the corresponding term
// of other, which guarantees that every line m accepts is also accepted by
// other: m's results can be computed by re-filtering other's results.
//
// Both matchers must use the same case matching and have the same number of
// exact terms and of inverse terms; otherwise the result is false.
func (m UsageMatcher) IsSuperset(other UsageMatcher) bool {
	if m.exact.caseMatching != other.exact.caseMatching || m.inverse.caseMatching != other.inverse.caseMatching {
		return false
	}
	if len(m.exact.terms) != len(other.exact.terms) || len(m.inverse.terms) != len(other.inverse.terms) {
		return false
	}
	for i, t := range m.exact.terms {
		if !t.IsSuperset(other.exact.terms[i]) {
			return false
		}
	}
	for i, t := range m.inverse.terms {
		if !t.IsSuperset(other.inverse.terms[i]) {
			return false
		}
	}
	return true
}
