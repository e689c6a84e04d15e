package logging

import (
	"bytes"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("test-source")

	assert.Equal(t, LevelWarn, cfg.Level)
	assert.Equal(t, "text", cfg.Format)
	assert.Equal(t, os.Stderr, cfg.Output)
	assert.Equal(t, "test-source", cfg.Source)
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in    string
		want  slog.Level
		valid bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{"warning", LevelWarn, true},
		{" error ", LevelError, true},
		{"loud", LevelWarn, false},
		{"", LevelWarn, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseLevel(tt.in)
			assert.Equal(t, tt.valid, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	tests := []struct {
		name          string
		levelEnv      string
		formatEnv     string
		expectedLevel slog.Level
		expectedFmt   string
	}{
		{"defaults", "", "", LevelWarn, "text"},
		{"debug level", "debug", "", LevelDebug, "text"},
		{"unknown level keeps default", "chatty", "", LevelWarn, "text"},
		{"json format uppercase", "", "JSON", LevelWarn, "json"},
		{"info + json", "info", "json", LevelInfo, "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("SYMFIND_LOG_LEVEL", tt.levelEnv)
			t.Setenv("SYMFIND_LOG_FORMAT", tt.formatEnv)

			cfg := LoadConfigFromEnv("test")

			assert.Equal(t, tt.expectedLevel, cfg.Level)
			assert.Equal(t, tt.expectedFmt, cfg.Format)
		})
	}
}

func TestNewText(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: "text", Output: &buf, Source: "runner"})

	logger.Info("search finished", "matches", 3)

	out := buf.String()
	assert.Contains(t, out, "search finished")
	assert.Contains(t, out, "source=runner")
	assert.Contains(t, out, "matches=3")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelInfo, Format: "json", Output: &buf, Source: "json-test"})

	logger.Info("json test")

	require.NotEmpty(t, buf.String())
	assert.Contains(t, buf.String(), `"msg":"json test"`)
	assert.Contains(t, buf.String(), `"source":"json-test"`)
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: LevelWarn, Format: "text", Output: &buf, Source: "filter-test"})

	logger.Debug("debug message")
	logger.Info("info message")
	logger.Warn("warn message")

	assert.NotContains(t, buf.String(), "debug message")
	assert.NotContains(t, buf.String(), "info message")
	assert.Contains(t, buf.String(), "warn message")
}

func TestNop(t *testing.T) {
	logger := Nop()
	logger.Info("this goes nowhere")
	logger.With("key", "value").Error("neither does this")
}
