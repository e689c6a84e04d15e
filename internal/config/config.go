// Package config loads symfind settings from defaults, an optional
// .symfind.toml file and SYMFIND_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pelletier/go-toml/v2"

	"symfind/internal/matcher"
)

// FileName is the per-project configuration file looked up in the root.
const FileName = ".symfind.toml"

// Duration is a time.Duration written as "30s" or "500ms" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Config is the complete symfind configuration.
type Config struct {
	// Exclude holds doublestar globs, relative to the project root, of
	// paths that are neither tagged nor watched.
	Exclude []string `toml:"exclude"`

	Search SearchConfig `toml:"search"`
	Tags   TagsConfig   `toml:"tags"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Search: DefaultSearchConfig(),
		Tags:   DefaultTagsConfig(),
	}
}

// Load builds the configuration for the project at root. When path is
// empty, root/.symfind.toml is used if it exists; an explicit path must
// exist.
func Load(root, path string) (Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		path = filepath.Join(root, FileName)
	}
	if err := cfg.mergeFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return Config{}, err
		}
	}

	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides fields from SYMFIND_* environment variables. See
// SearchConfig.ApplyEnv and TagsConfig.ApplyEnv.
func (c *Config) ApplyEnv() {
	c.Search.ApplyEnv()
	c.Tags.ApplyEnv()
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	if c.Search.RgBin == "" {
		return errors.New("search.rg must not be empty")
	}
	if c.Search.Workers < 1 {
		return fmt.Errorf("search.workers must be positive, got %d", c.Search.Workers)
	}
	if c.Search.ChunkLines < 1 {
		return fmt.Errorf("search.chunk_lines must be positive, got %d", c.Search.ChunkLines)
	}
	if c.Search.Timeout.Duration < 0 {
		return fmt.Errorf("search.timeout must not be negative, got %s", c.Search.Timeout)
	}
	if _, ok := matcher.ParseCaseMatching(c.Search.Case); !ok {
		return fmt.Errorf("search.case: unknown mode %q", c.Search.Case)
	}
	if c.Tags.CtagsBin == "" {
		return errors.New("tags.ctags must not be empty")
	}
	for _, pattern := range c.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("exclude: invalid glob %q", pattern)
		}
	}
	return nil
}

// String returns a one-line summary of the configuration.
func (c Config) String() string {
	timeout := "none"
	if c.Search.Timeout.Duration > 0 {
		timeout = c.Search.Timeout.String()
	}
	return fmt.Sprintf("rg=%s ctags=%s timeout=%s workers=%d case=%s cache=%s excludes=[%s]",
		c.Search.RgBin, c.Tags.CtagsBin, timeout, c.Search.Workers, c.Search.Case,
		c.Tags.CacheDir, strings.Join(c.Exclude, ","))
}

func defaultWorkers() int {
	return max(runtime.NumCPU(), 1)
}

func warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Warning: "+format+"\n", args...)
}
