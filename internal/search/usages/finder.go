// Package usages combines definition and occurrence searches for a word and
// refines the occurrences into usages.
package usages

import (
	"cmp"
	"context"
	"log/slog"
	"slices"
	"time"

	"golang.org/x/sync/errgroup"

	symerrors "symfind/internal/errors"
	"symfind/internal/logging"
	"symfind/internal/matcher"
	"symfind/internal/search/definitions"
	"symfind/internal/search/ripgrep"
)

// SearchRunner runs one rg invocation. *ripgrep.Runner implements it.
type SearchRunner interface {
	Run(ctx context.Context, args []string, dir string, filter ripgrep.Filter) ([]ripgrep.Match, error)
}

// Finder fans a word search out over every definition kind of a language
// plus one occurrence search, and merges the results.
type Finder struct {
	runner  SearchRunner
	rules   *definitions.RuleTable
	dir     string
	timeout time.Duration
	logger  *slog.Logger
}

// Option configures a Finder.
type Option func(*Finder)

// WithDir sets the directory searched. Empty means the process directory.
func WithDir(dir string) Option {
	return func(f *Finder) { f.dir = dir }
}

// WithTimeout bounds each search call. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(f *Finder) { f.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(f *Finder) { f.logger = logger }
}

// NewFinder creates a Finder. A nil rules table means definitions.DefaultRules.
func NewFinder(runner SearchRunner, rules *definitions.RuleTable, opts ...Option) *Finder {
	if rules == nil {
		rules = definitions.DefaultRules()
	}
	f := &Finder{
		runner: runner,
		rules:  rules,
		logger: logging.Nop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Rules returns the rule table in use.
func (f *Finder) Rules() *definitions.RuleTable {
	return f.rules
}

func (f *Finder) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if f.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, f.timeout)
}

// SearchAll runs the definition search of every kind registered for lang and
// the occurrence search concurrently, and returns once all of them finished.
//
// A failed definition search contributes nothing. A failed occurrence search
// fails the call.
func (f *Finder) SearchAll(ctx context.Context, word ripgrep.Word, lang string) (Definitions, Occurrences, error) {
	kinds, err := f.rules.Kinds(lang)
	if err != nil {
		return nil, nil, symerrors.NewSearchError("search all", err).WithLanguage(lang).WithPattern(word.Raw)
	}

	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	perKind := f.goDefinitions(gctx, g, word, lang, kinds)

	var occurrences Occurrences
	g.Go(func() error {
		matches, err := f.occurrences(gctx, word, lang)
		if err != nil {
			return err
		}
		occurrences = matches
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, symerrors.NewSearchError("search all", err).WithLanguage(lang).WithPattern(word.Raw)
	}

	defs := assemble(kinds, perKind)
	sortMatches(occurrences)

	f.logger.Debug("search finished",
		"word", word.Raw,
		"language", lang,
		"kinds", len(kinds),
		"definitions", defs.Total(),
		"occurrences", len(occurrences))

	return defs, occurrences, nil
}

// Definitions runs only the definition searches of lang.
func (f *Finder) Definitions(ctx context.Context, word ripgrep.Word, lang string) (Definitions, error) {
	kinds, err := f.rules.Kinds(lang)
	if err != nil {
		return nil, symerrors.NewSearchError("definitions", err).WithLanguage(lang).WithPattern(word.Raw)
	}

	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	var g errgroup.Group
	perKind := f.goDefinitions(ctx, &g, word, lang, kinds)
	_ = g.Wait()

	return assemble(kinds, perKind), nil
}

// goDefinitions starts one task per kind on g. Each task writes only its own
// slot of the returned slice, which is safe to read after g.Wait.
func (f *Finder) goDefinitions(ctx context.Context, g *errgroup.Group, word ripgrep.Word, lang string, kinds []definitions.DefinitionKind) [][]ripgrep.Match {
	perKind := make([][]ripgrep.Match, len(kinds))
	for i, kind := range kinds {
		g.Go(func() error {
			matches, err := f.findDefinitions(ctx, word, lang, kind)
			if err != nil {
				f.logger.Warn("definition search failed",
					"word", word.Raw,
					"language", lang,
					"kind", kind,
					"error", err)
				return nil
			}
			perKind[i] = matches
			return nil
		})
	}
	return perKind
}

func (f *Finder) findDefinitions(ctx context.Context, word ripgrep.Word, lang string, kind definitions.DefinitionKind) ([]ripgrep.Match, error) {
	re, err := definitions.BuildFullRegexp(f.rules, lang, kind, word)
	if err != nil {
		return nil, err
	}
	return f.runner.Run(ctx, ripgrep.DefinitionArgs(lang, re), f.dir, nil)
}

// Occurrences runs only the whole-word occurrence search, dropping lines
// that look like comments in lang.
func (f *Finder) Occurrences(ctx context.Context, word ripgrep.Word, lang string) (Occurrences, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	matches, err := f.occurrences(ctx, word, lang)
	if err != nil {
		return nil, symerrors.NewSearchError("occurrences", err).WithLanguage(lang).WithPattern(word.Raw)
	}
	sortMatches(matches)
	return matches, nil
}

func (f *Finder) occurrences(ctx context.Context, word ripgrep.Word, lang string) (Occurrences, error) {
	filter := definitions.CommentFilter(definitions.CommentTokens(lang))
	return f.runner.Run(ctx, ripgrep.OccurrenceArgs(word, lang), f.dir, filter)
}

// OccurrencesByExt searches files with the given extension, for languages
// ripgrep has no type for. Comment tokens are looked up by extension.
func (f *Finder) OccurrencesByExt(ctx context.Context, word ripgrep.Word, ext string) (Occurrences, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	filter := definitions.CommentFilter(definitions.CommentTokensByExt(ext))
	matches, err := f.runner.Run(ctx, ripgrep.ExtOccurrenceArgs(word, ext), f.dir, filter)
	if err != nil {
		return nil, symerrors.NewSearchError("occurrences by extension", err).WithPattern(word.Raw)
	}
	sortMatches(matches)
	return matches, nil
}

// RegexpSearch treats each run of whitespace in the word as ".*" and
// returns the non-comment lines matching the result.
func (f *Finder) RegexpSearch(ctx context.Context, word ripgrep.Word, lang string) (Occurrences, error) {
	ctx, cancel := f.withTimeout(ctx)
	defer cancel()

	filter := definitions.CommentFilter(definitions.CommentTokens(lang))
	matches, err := f.runner.Run(ctx, ripgrep.RegexpArgs(word, lang), f.dir, filter)
	if err != nil {
		return nil, symerrors.NewSearchError("regexp search", err).WithLanguage(lang).WithPattern(word.Raw)
	}
	sortMatches(matches)
	return matches, nil
}

// Result is the outcome of Usages.
type Result struct {
	Definitions Definitions `json:"definitions"`
	Usages      []Usage     `json:"usages"`
}

// Usages runs SearchAll and keeps the occurrences accepted by m. Usage lines
// that are also definitions carry the definition kind.
func (f *Finder) Usages(ctx context.Context, word ripgrep.Word, lang string, m matcher.UsageMatcher) (Result, error) {
	defs, occurrences, err := f.SearchAll(ctx, word, lang)
	if err != nil {
		return Result{}, err
	}

	all := ToUsages(word, defs, occurrences)
	return Result{Definitions: defs, Usages: Filter(all, m)}, nil
}

// ToUsages turns occurrences into unfiltered usages highlighting word.
func ToUsages(word ripgrep.Word, defs Definitions, occurrences Occurrences) []Usage {
	kindAt := defs.KindAt()
	out := make([]Usage, 0, len(occurrences))
	for _, occ := range occurrences {
		indices := word.Indices(occ.Text)
		out = append(out, Usage{
			Match:       occ,
			Kind:        kindAt[occ.Key()],
			WordIndices: indices,
			Indices:     indices,
		})
	}
	return out
}

// Filter returns the usages accepted by m, with their highlight indices
// recomputed from the word indices and m's exact terms.
func Filter(usages []Usage, m matcher.UsageMatcher) []Usage {
	out := make([]Usage, 0, len(usages))
	for _, u := range usages {
		_, indices, ok := m.MatchJumpLine(u.Text, u.WordIndices)
		if !ok {
			continue
		}
		u.Indices = indices
		out = append(out, u)
	}
	return out
}

func assemble(kinds []definitions.DefinitionKind, perKind [][]ripgrep.Match) Definitions {
	defs := make(Definitions, 0, len(kinds))
	for i, kind := range kinds {
		if len(perKind[i]) == 0 {
			continue
		}
		sortMatches(perKind[i])
		defs = append(defs, DefinitionSearchResult{Kind: kind, Matches: perKind[i]})
	}
	slices.SortFunc(defs, func(a, b DefinitionSearchResult) int {
		return cmp.Compare(a.Kind, b.Kind)
	})
	return defs
}
