package config

import (
	"os"
	"path/filepath"
	"time"
)

// TagsConfig holds the ctags and tag cache settings.
type TagsConfig struct {
	// CtagsBin is the universal-ctags executable.
	CtagsBin string `toml:"ctags"`

	// CacheDir holds the tag cache databases.
	CacheDir string `toml:"cache_dir"`

	// WatchDebounce is the quiet period before a burst of file changes
	// invalidates the cache.
	WatchDebounce Duration `toml:"watch_debounce"`
}

// DefaultTagsConfig returns the built-in tag settings.
func DefaultTagsConfig() TagsConfig {
	return TagsConfig{
		CtagsBin:      "ctags",
		CacheDir:      DefaultCacheDir(),
		WatchDebounce: Duration{500 * time.Millisecond},
	}
}

// DefaultCacheDir is the user cache directory, or .symfind in the working
// directory when the platform has none.
func DefaultCacheDir() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "symfind")
	}
	return ".symfind"
}

// ApplyEnv overrides tag settings from the environment:
//   - SYMFIND_CTAGS: ctags executable
//   - SYMFIND_CACHE_DIR: cache directory
func (c *TagsConfig) ApplyEnv() {
	if bin := os.Getenv("SYMFIND_CTAGS"); bin != "" {
		c.CtagsBin = bin
	}
	if dir := os.Getenv("SYMFIND_CACHE_DIR"); dir != "" {
		c.CacheDir = dir
	}
}
