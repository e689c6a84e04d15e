package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// SearchConfig holds the settings of the ripgrep driven searches.
type SearchConfig struct {
	// RgBin is the ripgrep executable.
	RgBin string `toml:"rg"`

	// Timeout bounds one search call; zero disables it.
	Timeout Duration `toml:"timeout"`

	// Workers is the size of the output decoding pool.
	Workers int `toml:"workers"`

	// ChunkLines is the number of output lines decoded per pool task.
	ChunkLines int `toml:"chunk_lines"`

	// Case is the usage filter case mode: smart, ignore or respect.
	Case string `toml:"case"`

	// Rules optionally names a TOML file of extra definition rules.
	Rules string `toml:"rules"`
}

// DefaultSearchConfig returns the built-in search settings.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		RgBin:      "rg",
		Timeout:    Duration{30 * time.Second},
		Workers:    defaultWorkers(),
		ChunkLines: 512,
		Case:       "smart",
	}
}

// ApplyEnv overrides search settings from the environment:
//   - SYMFIND_RG: ripgrep executable
//   - SYMFIND_TIMEOUT: duration ("45s") or whole seconds ("45"); 0 disables
//   - SYMFIND_WORKERS: decode pool size
//   - SYMFIND_CASE: smart, ignore or respect
//
// Unparseable values are reported on stderr and ignored.
func (c *SearchConfig) ApplyEnv() {
	if bin := os.Getenv("SYMFIND_RG"); bin != "" {
		c.RgBin = bin
	}

	if timeout := os.Getenv("SYMFIND_TIMEOUT"); timeout != "" {
		if d, ok := parseTimeout(timeout); ok {
			c.Timeout = Duration{d}
		} else {
			warnf("invalid SYMFIND_TIMEOUT %q, using %s", timeout, c.Timeout)
		}
	}

	if workers := os.Getenv("SYMFIND_WORKERS"); workers != "" {
		if n, err := strconv.Atoi(workers); err == nil && n > 0 {
			c.Workers = n
		} else {
			warnf("invalid SYMFIND_WORKERS %q, using %d", workers, c.Workers)
		}
	}

	if mode := os.Getenv("SYMFIND_CASE"); mode != "" {
		c.Case = strings.ToLower(mode)
	}
}

func parseTimeout(s string) (time.Duration, bool) {
	if secs, err := strconv.Atoi(s); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return 0, false
	}
	return d, true
}
