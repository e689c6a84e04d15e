package matcher

import (
	"strings"
)

// ParseQuery splits q on whitespace into exact and inverse terms:
//
//	foo  'foo    exact
//	^foo         prefix
//	foo$         suffix
//	!foo !^foo !foo$   inverse exact, prefix, suffix
//
// Tokens that are empty once their markers are removed are ignored.
func ParseQuery(q string) ([]ExactTerm, []InverseTerm) {
	var exact []ExactTerm
	var inverse []InverseTerm

	for _, tok := range strings.Fields(q) {
		if rest, ok := strings.CutPrefix(tok, "!"); ok {
			typ, text := termType(rest)
			if text != "" {
				inverse = append(inverse, InverseTerm{Type: typ, Text: text})
			}
			continue
		}
		typ, text := termType(strings.TrimPrefix(tok, "'"))
		if text != "" {
			exact = append(exact, ExactTerm{Type: typ, Text: text})
		}
	}
	return exact, inverse
}

func termType(tok string) (TermType, string) {
	if rest, ok := strings.CutPrefix(tok, "^"); ok {
		return Prefix, rest
	}
	if rest, ok := strings.CutSuffix(tok, "$"); ok {
		return Suffix, rest
	}
	return Exact, tok
}

// FromQuery builds a smart-case UsageMatcher from a query string.
func FromQuery(q string) UsageMatcher {
	exact, inverse := ParseQuery(q)
	return NewUsageMatcher(exact, inverse)
}
