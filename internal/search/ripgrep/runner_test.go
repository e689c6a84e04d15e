package ripgrep

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/panjf2000/ants/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	symerrors "symfind/internal/errors"
)

func record(path string, line int, text string) string {
	return fmt.Sprintf(`{"type":"match","data":{"path":{"text":%q},"lines":{"text":%q},"line_number":%d,"submatches":[{"match":{"text":"foo"},"start":0,"end":3}]}}`,
		path, text+"\n", line)
}

func fakeOutput(n int) []byte {
	var b strings.Builder
	b.WriteString(`{"type":"begin","data":{"path":{"text":"a.rs"}}}` + "\n")
	for i := 1; i <= n; i++ {
		text := "foo()"
		if i%10 == 0 {
			text = "// foo"
		}
		b.WriteString(record("a.rs", i, text))
		b.WriteByte('\n')
		if i%7 == 0 {
			b.WriteString("{garbage\n")
		}
	}
	b.WriteString(`{"type":"summary","data":{}}` + "\n")
	return []byte(b.String())
}

func lineNumbers(ms []Match) []int {
	out := make([]int, 0, len(ms))
	for _, m := range ms {
		out = append(out, m.LineNumber)
	}
	sort.Ints(out)
	return out
}

func TestDecodeSequentialAndPooledAgree(t *testing.T) {
	pool, err := ants.NewPool(4)
	require.NoError(t, err)
	defer pool.Release()

	output := fakeOutput(1000)
	notComment := func(m Match) bool { return !strings.HasPrefix(m.Text, "//") }

	seq := NewRunner("rg").decode(output, notComment)
	par := NewRunner("rg", WithPool(pool), WithChunkLines(16)).decode(output, notComment)

	assert.Len(t, seq, 900)
	assert.Equal(t, lineNumbers(seq), lineNumbers(par))
}

func TestDecodeAfterPoolReleaseFallsBack(t *testing.T) {
	pool, err := ants.NewPool(2)
	require.NoError(t, err)
	pool.Release()

	r := NewRunner("rg", WithPool(pool), WithChunkLines(8))
	got := r.decode(fakeOutput(100), nil)

	assert.Len(t, got, 100)
}

func TestDecodeEmpty(t *testing.T) {
	assert.Nil(t, NewRunner("").decode(nil, nil))
	assert.Empty(t, NewRunner("").decode([]byte("\n\n"), nil))
}

func TestRunInvalidWorkingDirectory(t *testing.T) {
	r := NewRunner("rg")

	_, err := r.Run(context.Background(), []string{"--json", "foo"}, filepath.Join(t.TempDir(), "missing"), nil)
	assert.ErrorIs(t, err, symerrors.ErrInvalidWorkingDirectory)

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = r.Run(context.Background(), []string{"--json", "foo"}, file, nil)
	assert.ErrorIs(t, err, symerrors.ErrInvalidWorkingDirectory)
}

func TestRunSpawnFailed(t *testing.T) {
	r := NewRunner(filepath.Join(t.TempDir(), "no-such-rg"))

	_, err := r.Run(context.Background(), []string{"--json", "foo"}, "", nil)
	assert.ErrorIs(t, err, symerrors.ErrSpawnFailed)
	assert.False(t, r.Available())
}

func requireRg(t *testing.T) *Runner {
	t.Helper()
	r := NewRunner("rg")
	if !r.Available() {
		t.Skip("ripgrep not installed")
	}
	return r
}

func TestRunAgainstRipgrep(t *testing.T) {
	r := requireRg(t)
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "lib.rs"), []byte("// foo\npub fn foo() {}\nfn bar() { foo(); }\n"), 0o644))

	got, err := r.Run(context.Background(), OccurrenceArgs(MustWord("foo"), "rust"), dir, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, lineNumbers(got))

	none, err := r.Run(context.Background(), OccurrenceArgs(MustWord("missing"), "rust"), dir, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestRunInvalidPattern(t *testing.T) {
	r := requireRg(t)

	_, err := r.Run(context.Background(), []string{"--json", "-e", "(unclosed", "--type", "rust"}, t.TempDir(), nil)
	assert.ErrorIs(t, err, symerrors.ErrInvalidPattern)
}

func TestRunCancelled(t *testing.T) {
	r := requireRg(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Run(ctx, OccurrenceArgs(MustWord("foo"), "rust"), t.TempDir(), nil)
	assert.Error(t, err)
}
