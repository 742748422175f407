package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lmittmann/tint"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/qj0r9j0vc2/rtm-bot/internal/infrastructure/config"
)

const logFileName = "rtm-bot.log"

// AtomicLogger owns the process logger and swaps its handler when the
// logging configuration is reloaded. Loggers obtained from Logger keep
// following later swaps.
type AtomicLogger struct {
	current atomic.Pointer[slog.Logger]
	out     io.Writer
	file    io.Closer
	noColor bool
}

// NewAtomicLogger builds the logger described by cfg. File output, when
// configured, is written alongside stdout and is fixed for the process
// lifetime.
func NewAtomicLogger(cfg config.LoggingConfig) (*AtomicLogger, error) {
	a := &AtomicLogger{out: os.Stdout}

	if dir := strings.TrimSpace(cfg.File.Dir); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating log dir: %w", err)
		}
		file := &lumberjack.Logger{
			Filename:   filepath.Join(dir, logFileName),
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		}
		a.out = io.MultiWriter(os.Stdout, file)
		a.file = file
		a.noColor = true
	}

	a.Apply(cfg)
	return a, nil
}

// Apply rebuilds the handler for cfg's level and format.
func (a *AtomicLogger) Apply(cfg config.LoggingConfig) {
	a.current.Store(slog.New(newHandler(a.out, cfg.Level, cfg.Format, a.noColor)))
}

// Get returns the current logger.
func (a *AtomicLogger) Get() *slog.Logger {
	return a.current.Load()
}

// Logger returns a logger that always writes through the current handler.
func (a *AtomicLogger) Logger() *slog.Logger {
	return slog.New(&liveHandler{root: a})
}

// Close closes the log file, if any.
func (a *AtomicLogger) Close() error {
	if a.file == nil {
		return nil
	}
	return a.file.Close()
}

func newHandler(w io.Writer, level, format string, noColor bool) slog.Handler {
	lvl := parseLevel(level)
	if strings.EqualFold(format, "text") {
		return tint.NewHandler(w, &tint.Options{
			Level:      lvl,
			TimeFormat: time.RFC3339,
			NoColor:    noColor,
		})
	}
	return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl})
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// liveHandler resolves the root's current handler on every record and
// replays the attrs and groups added to it.
type liveHandler struct {
	root *AtomicLogger
	ops  []func(slog.Handler) slog.Handler
}

func (h *liveHandler) resolve() slog.Handler {
	out := h.root.Get().Handler()
	for _, op := range h.ops {
		out = op(out)
	}
	return out
}

func (h *liveHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.root.Get().Handler().Enabled(ctx, level)
}

func (h *liveHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.resolve().Handle(ctx, r)
}

func (h *liveHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithAttrs(attrs) })
}

func (h *liveHandler) WithGroup(name string) slog.Handler {
	return h.with(func(next slog.Handler) slog.Handler { return next.WithGroup(name) })
}

func (h *liveHandler) with(op func(slog.Handler) slog.Handler) slog.Handler {
	ops := make([]func(slog.Handler) slog.Handler, len(h.ops), len(h.ops)+1)
	copy(ops, h.ops)
	return &liveHandler{root: h.root, ops: append(ops, op)}
}

// slogAdapter adapts slog.Logger to the bot and slack Logger interfaces.
type slogAdapter struct {
	logger *slog.Logger
}

func (a *slogAdapter) Debug(msg string, keysAndValues ...any) {
	a.logger.Debug(msg, keysAndValues...)
}

func (a *slogAdapter) Info(msg string, keysAndValues ...any) {
	a.logger.Info(msg, keysAndValues...)
}

func (a *slogAdapter) Warn(msg string, keysAndValues ...any) {
	a.logger.Warn(msg, keysAndValues...)
}

func (a *slogAdapter) Error(msg string, keysAndValues ...any) {
	a.logger.Error(msg, keysAndValues...)
}
