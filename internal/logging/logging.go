// Package logging builds the slog loggers used across symfind.
//
// Configuration comes from the environment:
//   - SYMFIND_LOG_LEVEL: debug, info, warn, error (default: warn)
//   - SYMFIND_LOG_FORMAT: text, json (default: text)
//
// Logs always go to stderr; stdout carries search results.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// Config holds logging configuration.
type Config struct {
	Level  slog.Level
	Format string    // "text" or "json"
	Output io.Writer // defaults to os.Stderr
	Source string    // component name attached to every record
}

// DefaultConfig returns the defaults for the given component. A CLI that
// prints results should stay quiet unless asked, hence warn.
func DefaultConfig(source string) Config {
	return Config{
		Level:  LevelWarn,
		Format: "text",
		Output: os.Stderr,
		Source: source,
	}
}

// ParseLevel maps a level name to a slog level. ok is false for unknown names.
func ParseLevel(name string) (level slog.Level, ok bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	}
	return LevelWarn, false
}

// LoadConfigFromEnv applies SYMFIND_LOG_LEVEL and SYMFIND_LOG_FORMAT on top of DefaultConfig.
func LoadConfigFromEnv(source string) Config {
	cfg := DefaultConfig(source)

	if level, ok := ParseLevel(os.Getenv("SYMFIND_LOG_LEVEL")); ok {
		cfg.Level = level
	}
	if format := os.Getenv("SYMFIND_LOG_FORMAT"); format != "" {
		cfg.Format = strings.ToLower(format)
	}

	return cfg
}

// New creates a logger from cfg.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler).With("source", cfg.Source)
}

// Default returns a logger configured from the environment.
func Default(source string) *slog.Logger {
	return New(LoadConfigFromEnv(source))
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
