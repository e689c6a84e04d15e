// Package walk enumerates the source tree of a project, skipping version
// control and build directories, .gitignore'd paths and exclude globs.
package walk

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	ignore "github.com/sabhiram/go-gitignore"
)

// Walker decides which paths under Root belong to the project.
type Walker struct {
	root      string
	gitignore *ignore.GitIgnore
	excludes  []string
}

// New creates a Walker for root. excludes are doublestar globs matched
// against slash-separated paths relative to root.
func New(root string, excludes []string) *Walker {
	return &Walker{
		root:      root,
		gitignore: loadGitignore(root),
		excludes:  excludes,
	}
}

// Root returns the directory being walked.
func (w *Walker) Root() string {
	return w.root
}

// Rel returns path relative to the root with forward slashes, or false if
// path is outside the root.
func (w *Walker) Rel(path string) (string, bool) {
	rel, err := filepath.Rel(w.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// SkipDir reports whether the directory at rel, relative to the root, is
// outside the project.
func (w *Walker) SkipDir(rel string) bool {
	if rel == "." || rel == "" {
		return false
	}
	if isIgnoredDir(filepath.Base(rel)) {
		return true
	}
	if w.gitignore != nil && w.gitignore.MatchesPath(rel+"/") {
		return true
	}
	return w.excluded(rel)
}

// SkipFile reports whether the file at rel, relative to the root, is
// outside the project.
func (w *Walker) SkipFile(rel string) bool {
	if w.gitignore != nil && w.gitignore.MatchesPath(rel) {
		return true
	}
	return w.excluded(rel)
}

func (w *Walker) excluded(rel string) bool {
	for _, pattern := range w.excludes {
		if matched, err := doublestar.Match(pattern, rel); err == nil && matched {
			return true
		}
	}
	return false
}

// Files calls fn for every project file with its slash-separated relative
// path. Unreadable entries are skipped. An error from fn stops the walk.
func (w *Walker) Files(fn func(rel string, d fs.DirEntry) error) error {
	return filepath.WalkDir(w.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		rel, ok := w.Rel(path)
		if !ok {
			return nil
		}
		if d.IsDir() {
			if w.SkipDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || w.SkipFile(rel) {
			return nil
		}
		return fn(rel, d)
	})
}

// Dirs calls fn for every project directory, root included.
func (w *Walker) Dirs(fn func(path string) error) error {
	return w.SubDirs(w.root, fn)
}

// SubDirs is Dirs for the subtree at start, which must lie under the root.
func (w *Walker) SubDirs(start string, fn func(path string) error) error {
	return filepath.WalkDir(start, func(path string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return nil
		}
		rel, ok := w.Rel(path)
		if !ok {
			return nil
		}
		if w.SkipDir(rel) {
			return filepath.SkipDir
		}
		return fn(path)
	})
}

// isIgnoredDir reports directories that never hold project sources.
func isIgnoredDir(name string) bool {
	switch name {
	case ".git", ".svn", ".hg",
		".idea", ".vscode",
		"node_modules", "vendor", ".bundle", "Pods",
		"target", "dist", "build", "out",
		"__pycache__", ".venv", "venv", ".tox", ".pytest_cache",
		".cache", ".next", ".nuxt", ".turbo", ".parcel-cache",
		".symfind":
		return true
	}
	return false
}

// loadGitignore loads the patterns of ~/.gitignore and root/.gitignore.
func loadGitignore(root string) *ignore.GitIgnore {
	var patterns []string

	if home, err := os.UserHomeDir(); err == nil {
		patterns = append(patterns, readPatterns(filepath.Join(home, ".gitignore"))...)
	}
	patterns = append(patterns, readPatterns(filepath.Join(root, ".gitignore"))...)

	if len(patterns) == 0 {
		return nil
	}
	return ignore.CompileIgnoreLines(patterns...)
}

func readPatterns(path string) []string {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var patterns []string
	for _, line := range strings.Split(string(content), "\n") {
		line = strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		patterns = append(patterns, line)
	}
	return patterns
}
