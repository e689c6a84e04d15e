package usages

import (
	"sync"

	"symfind/internal/matcher"
)

// Refiner filters a fixed set of usages with successive matchers, as when a
// user types a filter query one character at a time. When the new matcher
// is a superset of the previous one, only the previous result is scanned.
type Refiner struct {
	mu      sync.Mutex
	source  []Usage
	last    matcher.UsageMatcher
	result  []Usage
	hasLast bool
}

// NewRefiner creates a Refiner over unfiltered usages, typically from ToUsages.
func NewRefiner(source []Usage) *Refiner {
	return &Refiner{source: source}
}

// Filter applies m. reused reports whether the previous result was scanned
// instead of the full source.
func (r *Refiner) Filter(m matcher.UsageMatcher) (result []Usage, reused bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	base := r.source
	if r.hasLast && m.IsSuperset(r.last) {
		base = r.result
		reused = true
	}

	r.result = Filter(base, m)
	r.last = m
	r.hasLast = true
	return r.result, reused
}

// Reset forgets the previous matcher so the next Filter scans the source.
func (r *Refiner) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hasLast = false
	r.result = nil
}
