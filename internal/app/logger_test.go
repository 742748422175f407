package app

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/config"
)

func bufferLogger(cfg config.LoggingConfig) (*AtomicLogger, *bytes.Buffer) {
	var buf bytes.Buffer
	a := &AtomicLogger{out: &buf, noColor: true}
	a.Apply(cfg)
	return a, &buf
}

func TestAtomicLogger_ApplyChangesLevel(t *testing.T) {
	a, buf := bufferLogger(config.LoggingConfig{Level: "info", Format: "json"})
	live := a.Logger()

	live.Debug("hidden")
	assert.Empty(t, buf.String())

	a.Apply(config.LoggingConfig{Level: "debug", Format: "json"})
	live.Debug("shown")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestAtomicLogger_ApplyChangesFormat(t *testing.T) {
	a, buf := bufferLogger(config.LoggingConfig{Level: "info", Format: "json"})
	live := a.Logger().With("component", "engine")

	live.Info("first")
	a.Apply(config.LoggingConfig{Level: "info", Format: "text"})
	live.Info("second")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "{"))
	assert.Contains(t, lines[0], `"component":"engine"`)
	assert.False(t, strings.HasPrefix(lines[1], "{"))
	assert.Contains(t, lines[1], "second")
	assert.Contains(t, lines[1], "component=engine")
}

func TestAtomicLogger_WithGroup(t *testing.T) {
	a, buf := bufferLogger(config.LoggingConfig{Level: "info", Format: "json"})
	a.Logger().WithGroup("slack").Info("connected", "user", "bot")
	assert.Contains(t, buf.String(), `"slack":{"user":"bot"}`)
}

func TestNewAtomicLogger_FileOutput(t *testing.T) {
	dir := t.TempDir()
	a, err := NewAtomicLogger(config.LoggingConfig{
		Level:  "info",
		Format: "json",
		File:   config.LogFileConfig{Dir: dir, MaxSizeMB: 1, MaxBackups: 1, MaxAgeDays: 1},
	})
	require.NoError(t, err)
	assert.True(t, a.noColor)
	assert.NoError(t, a.Close())
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"INFO":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseLevel(in), in)
	}
}
