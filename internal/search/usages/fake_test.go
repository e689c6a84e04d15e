package usages

import (
	"context"
	"fmt"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dlclark/regexp2"

	symerrors "symfind/internal/errors"
	"symfind/internal/search/definitions"
	"symfind/internal/search/ripgrep"
)

var rustCorpus = map[string][]string{
	"src/lib.rs": {
		"pub struct Client {",
		"    inner: u32,",
		"}",
		"",
		"impl Client {",
		"    pub fn new() -> Client {",
		"        Client { inner: 0 }",
		"    }",
		"}",
		"// Client is documented here",
		"fn make_client() -> Client { Client::new() }",
		"// struct Client was renamed",
	},
	"src/main.rs": {
		"use crate::Client;",
		"fn main() {",
		"    let client = Client::new();",
		"    /* Client in a block comment */",
		"}",
	},
}

// fakeRunner answers rg argument lists from an in-memory corpus.
type fakeRunner struct {
	files map[string][]string

	// delay and fail are consulted per call, keyed on the argument list.
	delay func(args []string) time.Duration
	fail  func(args []string) error

	mu       sync.Mutex
	calls    [][]string
	inflight atomic.Int32
	peak     atomic.Int32
}

func newFakeRunner(files map[string][]string) *fakeRunner {
	return &fakeRunner{files: files}
}

func (f *fakeRunner) Calls() [][]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.calls)
}

func (f *fakeRunner) Run(ctx context.Context, args []string, dir string, filter ripgrep.Filter) ([]ripgrep.Match, error) {
	f.mu.Lock()
	f.calls = append(f.calls, slices.Clone(args))
	f.mu.Unlock()

	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}

	if f.delay != nil {
		if d := f.delay(args); d > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(d):
			}
		}
	}
	if f.fail != nil {
		if err := f.fail(args); err != nil {
			return nil, err
		}
	}
	return f.search(args, filter)
}

func argValue(args []string, flag string) string {
	for i, a := range args {
		if a == flag && i+1 < len(args) {
			return args[i+1]
		}
	}
	return ""
}

func isDefinitionSearch(args []string) bool {
	return slices.Contains(args, "--pcre2")
}

func (f *fakeRunner) search(args []string, filter ripgrep.Filter) ([]ripgrep.Match, error) {
	pattern := argValue(args, "-e")
	lang := argValue(args, "--type")
	glob := argValue(args, "-g")
	trim := slices.Contains(args, "--trim")

	var lineMatch func(string) (int, bool)
	if slices.Contains(args, "--word-regexp") {
		w, err := ripgrep.NewWord(pattern)
		if err != nil {
			return nil, err
		}
		lineMatch = func(line string) (int, bool) {
			idx := w.Indices(line)
			if len(idx) == 0 {
				return 0, false
			}
			return idx[0], true
		}
	} else {
		re, err := regexp2.Compile(pattern, regexp2.None)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", symerrors.ErrInvalidPattern, err)
		}
		lineMatch = func(line string) (int, bool) {
			m, err := re.FindStringMatch(line)
			if err != nil || m == nil {
				return 0, false
			}
			return m.Index, true
		}
	}

	var out []ripgrep.Match
	for path, lines := range f.files {
		if lang != "" && definitions.LanguageFromPath(path) != lang {
			continue
		}
		if glob != "" {
			if ok, _ := filepath.Match(glob, filepath.Base(path)); !ok {
				continue
			}
		}
		for i, line := range lines {
			text := line
			if trim {
				text = strings.TrimLeft(text, " \t")
			}
			start, ok := lineMatch(text)
			if !ok {
				continue
			}
			m := ripgrep.Match{Path: path, LineNumber: i + 1, Column: start + 1, Text: text}
			if filter != nil && !filter(m) {
				continue
			}
			out = append(out, m)
		}
	}
	return out, nil
}
