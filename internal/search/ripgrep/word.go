package ripgrep

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	symerrors "symfind/internal/errors"
)

// Word is the token being searched for.
type Word struct {
	Raw string
}

// NewWord validates raw. Quotes, newlines and NUL bytes are rejected because
// they cannot be carried through the quoted command line rg is given.
func NewWord(raw string) (Word, error) {
	if strings.TrimSpace(raw) == "" {
		return Word{}, fmt.Errorf("%w: empty", symerrors.ErrInvalidWord)
	}
	if i := strings.IndexAny(raw, "'\n\r\x00"); i >= 0 {
		return Word{}, fmt.Errorf("%w: %q contains %q", symerrors.ErrInvalidWord, raw, raw[i])
	}
	return Word{Raw: raw}, nil
}

// MustWord is NewWord for literals known to be valid.
func MustWord(raw string) Word {
	w, err := NewWord(raw)
	if err != nil {
		panic(err)
	}
	return w
}

// Indices returns the byte offsets covered by whole-word occurrences of w in
// line. An occurrence is whole when the runes on either side of it are not
// word characters, which is how rg --word-regexp decides; a word starting or
// ending with punctuation, such as $foo, is still found.
func (w Word) Indices(line string) []int {
	if w.Raw == "" {
		return nil
	}
	var indices []int
	for start := 0; start+len(w.Raw) <= len(line); {
		i := strings.Index(line[start:], w.Raw)
		if i < 0 {
			break
		}
		i += start
		end := i + len(w.Raw)
		if !wordRuneBefore(line, i) && !wordRuneAt(line, end) {
			for j := i; j < end; j++ {
				indices = append(indices, j)
			}
			start = end
			continue
		}
		_, size := utf8.DecodeRuneInString(line[i:])
		start = i + size
	}
	return indices
}

// String returns the raw word.
func (w Word) String() string {
	return w.Raw
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func wordRuneBefore(line string, i int) bool {
	if i == 0 {
		return false
	}
	r, _ := utf8.DecodeLastRuneInString(line[:i])
	return isWordRune(r)
}

func wordRuneAt(line string, i int) bool {
	if i >= len(line) {
		return false
	}
	r, _ := utf8.DecodeRuneInString(line[i:])
	return isWordRune(r)
}
