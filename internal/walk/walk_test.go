package walk

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, root string, files map[string]string) {
	t.Helper()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
}

func TestFilesHonoursIgnores(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		".gitignore":              "# generated\n*.gen.go\nscratch/\n",
		"main.go":                 "package main",
		"lib/util.go":             "package lib",
		"lib/util.gen.go":         "package lib",
		"scratch/try.go":          "package scratch",
		"node_modules/x/index.js": "x",
		".git/HEAD":               "ref",
		"testdata/big/fixture.go": "package fixture",
	})

	w := New(root, []string{"testdata/**"})

	var got []string
	require.NoError(t, w.Files(func(rel string, _ fs.DirEntry) error {
		got = append(got, rel)
		return nil
	}))

	assert.ElementsMatch(t, []string{".gitignore", "main.go", "lib/util.go"}, got)
}

func TestDirsSkipsIgnored(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"src/a.rs":         "",
		"target/debug/a.o": "",
		"docs/a.md":        "",
	})

	w := New(root, []string{"docs"})

	var got []string
	require.NoError(t, w.Dirs(func(path string) error {
		rel, ok := w.Rel(path)
		require.True(t, ok)
		got = append(got, rel)
		return nil
	}))

	assert.ElementsMatch(t, []string{".", "src"}, got)
}

func TestRel(t *testing.T) {
	root := t.TempDir()
	w := New(root, nil)

	rel, ok := w.Rel(filepath.Join(root, "a", "b.go"))
	assert.True(t, ok)
	assert.Equal(t, "a/b.go", rel)

	_, ok = w.Rel(filepath.Dir(root))
	assert.False(t, ok)

	assert.Equal(t, root, w.Root())
}
