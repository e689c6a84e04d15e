package usages

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	symerrors "symfind/internal/errors"
	"symfind/internal/matcher"
	"symfind/internal/search/definitions"
	"symfind/internal/search/ripgrep"
)

func keys(ms []ripgrep.Match) []string {
	out := make([]string, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.Key())
	}
	return out
}

func TestSearchAll(t *testing.T) {
	runner := newFakeRunner(rustCorpus)
	f := NewFinder(runner, nil)

	defs, occ, err := f.SearchAll(context.Background(), ripgrep.MustWord("Client"), "rust")
	require.NoError(t, err)

	assert.Equal(t, []definitions.DefinitionKind{definitions.KindImpl, definitions.KindStruct}, defs.Kinds())
	assert.Equal(t, []string{"src/lib.rs:5"}, keys(defs.Find(definitions.KindImpl)))
	// Definition searches keep comment lines.
	assert.Equal(t, []string{"src/lib.rs:1", "src/lib.rs:12"}, keys(defs.Find(definitions.KindStruct)))

	assert.Equal(t, []string{
		"src/lib.rs:1", "src/lib.rs:5", "src/lib.rs:6", "src/lib.rs:7", "src/lib.rs:11",
		"src/main.rs:1", "src/main.rs:3",
	}, keys(occ))

	kinds, err := f.Rules().Kinds("rust")
	require.NoError(t, err)
	assert.Len(t, runner.Calls(), len(kinds)+1)
}

func TestSearchAllRunsConcurrently(t *testing.T) {
	runner := newFakeRunner(rustCorpus)
	runner.delay = func([]string) time.Duration { return 30 * time.Millisecond }
	f := NewFinder(runner, nil)

	_, _, err := f.SearchAll(context.Background(), ripgrep.MustWord("Client"), "rust")
	require.NoError(t, err)

	assert.Greater(t, runner.peak.Load(), int32(1))
	assert.Zero(t, runner.inflight.Load())
}

func TestSearchAllWaitsForSlowestTask(t *testing.T) {
	runner := newFakeRunner(rustCorpus)
	runner.delay = func(args []string) time.Duration {
		if strings.Contains(argValue(args, "-e"), "struct") {
			return 150 * time.Millisecond
		}
		return 0
	}
	f := NewFinder(runner, nil)

	start := time.Now()
	defs, _, err := f.SearchAll(context.Background(), ripgrep.MustWord("Client"), "rust")
	require.NoError(t, err)

	assert.GreaterOrEqual(t, time.Since(start), 150*time.Millisecond)
	assert.Len(t, defs.Find(definitions.KindStruct), 2)
}

func TestSearchAllDefinitionFailureIsAbsorbed(t *testing.T) {
	runner := newFakeRunner(rustCorpus)
	runner.fail = func(args []string) error {
		if strings.Contains(argValue(args, "-e"), "struct") {
			return symerrors.ErrInvalidPattern
		}
		return nil
	}
	f := NewFinder(runner, nil)

	defs, occ, err := f.SearchAll(context.Background(), ripgrep.MustWord("Client"), "rust")
	require.NoError(t, err)

	assert.Equal(t, []definitions.DefinitionKind{definitions.KindImpl}, defs.Kinds())
	assert.Len(t, occ, 7)
}

func TestSearchAllOccurrenceFailurePropagates(t *testing.T) {
	runner := newFakeRunner(rustCorpus)
	runner.fail = func(args []string) error {
		if !isDefinitionSearch(args) {
			return symerrors.ErrSpawnFailed
		}
		return nil
	}
	f := NewFinder(runner, nil)

	_, _, err := f.SearchAll(context.Background(), ripgrep.MustWord("Client"), "rust")
	require.Error(t, err)
	assert.ErrorIs(t, err, symerrors.ErrSpawnFailed)

	var searchErr *symerrors.SearchError
	require.ErrorAs(t, err, &searchErr)
	assert.Equal(t, "rust", searchErr.Language)
	assert.Equal(t, "Client", searchErr.Pattern)

	// All tasks were started and awaited.
	kinds, _ := f.Rules().Kinds("rust")
	assert.Len(t, runner.Calls(), len(kinds)+1)
	assert.Zero(t, runner.inflight.Load())
}

func TestSearchAllUnsupportedLanguage(t *testing.T) {
	runner := newFakeRunner(rustCorpus)
	f := NewFinder(runner, nil)

	_, _, err := f.SearchAll(context.Background(), ripgrep.MustWord("Client"), "cobol")
	assert.ErrorIs(t, err, symerrors.ErrUnsupportedLanguage)
	assert.Empty(t, runner.Calls())

	_, err = f.Definitions(context.Background(), ripgrep.MustWord("Client"), "cobol")
	assert.ErrorIs(t, err, symerrors.ErrUnsupportedLanguage)
}

func TestSearchAllNoMatches(t *testing.T) {
	f := NewFinder(newFakeRunner(rustCorpus), nil)

	defs, occ, err := f.SearchAll(context.Background(), ripgrep.MustWord("Nothing"), "rust")
	require.NoError(t, err)
	assert.Empty(t, defs)
	assert.Empty(t, occ)

	// A supported language without files of its type.
	defs, occ, err = f.SearchAll(context.Background(), ripgrep.MustWord("Client"), "py")
	require.NoError(t, err)
	assert.Empty(t, defs)
	assert.Empty(t, occ)
}

func TestSearchAllIsRepeatable(t *testing.T) {
	f := NewFinder(newFakeRunner(rustCorpus), nil)
	word := ripgrep.MustWord("Client")

	defs1, occ1, err := f.SearchAll(context.Background(), word, "rust")
	require.NoError(t, err)
	defs2, occ2, err := f.SearchAll(context.Background(), word, "rust")
	require.NoError(t, err)

	assert.Equal(t, defs1, defs2)
	assert.Equal(t, occ1, occ2)
}

func TestSearchAllTimeout(t *testing.T) {
	runner := newFakeRunner(rustCorpus)
	runner.delay = func([]string) time.Duration { return time.Second }
	f := NewFinder(runner, nil, WithTimeout(20*time.Millisecond))

	_, _, err := f.SearchAll(context.Background(), ripgrep.MustWord("Client"), "rust")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, runner.inflight.Load())
}

func TestSearchAllCancelled(t *testing.T) {
	runner := newFakeRunner(rustCorpus)
	runner.delay = func([]string) time.Duration { return time.Second }
	f := NewFinder(runner, nil)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	_, _, err := f.SearchAll(ctx, ripgrep.MustWord("Client"), "rust")
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestDefinitionsAndOccurrences(t *testing.T) {
	f := NewFinder(newFakeRunner(rustCorpus), nil)
	word := ripgrep.MustWord("Client")

	defs, err := f.Definitions(context.Background(), word, "rust")
	require.NoError(t, err)
	assert.Equal(t, 3, defs.Total())
	assert.Equal(t, "// struct Client was renamed", defs.Find(definitions.KindStruct)[1].Text)

	occ, err := f.Occurrences(context.Background(), word, "rust")
	require.NoError(t, err)
	for _, m := range occ {
		assert.False(t, definitions.IsComment(m, definitions.CommentTokens("rust")), m.Text)
	}
	assert.Len(t, occ, 7)
}

func TestOccurrencesByExt(t *testing.T) {
	f := NewFinder(newFakeRunner(rustCorpus), nil)
	word := ripgrep.MustWord("Client")

	occ, err := f.OccurrencesByExt(context.Background(), word, "rs")
	require.NoError(t, err)
	assert.Len(t, occ, 7)

	occ, err = f.OccurrencesByExt(context.Background(), word, ".py")
	require.NoError(t, err)
	assert.Empty(t, occ)
}

func TestRegexpSearch(t *testing.T) {
	f := NewFinder(newFakeRunner(rustCorpus), nil)

	occ, err := f.RegexpSearch(context.Background(), ripgrep.MustWord("fn  new"), "rust")
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs:6", "src/lib.rs:11"}, keys(occ))
}

func TestUsages(t *testing.T) {
	f := NewFinder(newFakeRunner(rustCorpus), nil)
	word := ripgrep.MustWord("Client")

	all, err := f.Usages(context.Background(), word, "rust", matcher.UsageMatcher{})
	require.NoError(t, err)
	require.Len(t, all.Usages, 7)
	assert.Equal(t, definitions.KindStruct, all.Usages[0].Kind)
	assert.Equal(t, definitions.KindImpl, all.Usages[1].Kind)
	assert.False(t, all.Usages[2].IsDefinition())
	assert.Equal(t, []int{11, 12, 13, 14, 15, 16}, all.Usages[0].Indices)

	res, err := f.Usages(context.Background(), word, "rust", matcher.FromQuery("new"))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs:6", "src/lib.rs:11", "src/main.rs:3"}, usageKeys(res.Usages))
	assert.Equal(t, []int{17, 18, 19, 20, 21, 22, 25, 26, 27}, res.Usages[2].Indices)
	assert.Equal(t, all.Definitions, res.Definitions)

	res, err = f.Usages(context.Background(), word, "rust", matcher.FromQuery("new !let"))
	require.NoError(t, err)
	assert.Equal(t, []string{"src/lib.rs:6", "src/lib.rs:11"}, usageKeys(res.Usages))
}

func usageKeys(us []Usage) []string {
	out := make([]string, 0, len(us))
	for _, u := range us {
		out = append(out, u.Key())
	}
	return out
}

func TestSearchAllWithRipgrep(t *testing.T) {
	if _, err := exec.LookPath("rg"); err != nil {
		t.Skip("rg not installed")
	}

	dir := t.TempDir()
	for path, lines := range rustCorpus {
		full := filepath.Join(dir, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(strings.Join(lines, "\n")+"\n"), 0o644))
	}

	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	runner := ripgrep.NewRunner("rg", ripgrep.WithPool(pool), ripgrep.WithChunkLines(2))
	f := NewFinder(runner, nil, WithDir(dir), WithTimeout(10*time.Second))

	defs, occ, err := f.SearchAll(context.Background(), ripgrep.MustWord("Client"), "rust")
	require.NoError(t, err)
	if len(defs) == 0 {
		t.Skip("rg built without PCRE2")
	}

	want := newFakeRunner(rustCorpus)
	wantDefs, wantOcc, err := NewFinder(want, nil).SearchAll(context.Background(), ripgrep.MustWord("Client"), "rust")
	require.NoError(t, err)

	assert.Equal(t, wantDefs.Kinds(), defs.Kinds())
	for _, kind := range defs.Kinds() {
		assert.Equal(t, len(wantDefs.Find(kind)), len(defs.Find(kind)), kind)
	}
	gotKeys := keys(occ)
	for i := range gotKeys {
		gotKeys[i] = filepath.ToSlash(strings.TrimPrefix(gotKeys[i], "./"))
	}
	assert.ElementsMatch(t, keys(wantOcc), gotKeys)
	assert.True(t, slices.IsSortedFunc(occ, compareMatches))
}
