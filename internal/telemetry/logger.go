package telemetry

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var logger *slog.Logger

func Init(level slog.Level) {
	logger = slog.New(&prettyHandler{w: os.Stderr, level: level})
	slog.SetDefault(logger)
}

func L() *slog.Logger {
	if logger == nil {
		Init(slog.LevelInfo)
	}
	return logger
}

func Infof(format string, args ...any)  { L().Info(fmt.Sprintf(format, args...)) }
func Warnf(format string, args ...any)  { L().Warn(fmt.Sprintf(format, args...)) }
func Errorf(format string, args ...any) { L().Error(fmt.Sprintf(format, args...)) }
func Debugf(format string, args ...any) { L().Debug(fmt.Sprintf(format, args...)) }

// ParseLogLevel converts a string level name to slog.Level.
func ParseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// StrategyLogger is a named logger for one strategy instance. Each
// strategy tees its output to its own log file plus stderr, so a run
// quoting many markets stays diagnosable per market.
type StrategyLogger struct {
	l      *slog.Logger
	closer io.Closer
}

// OpenStrategyLogger creates <dir>/<name>.log (appending) and returns a
// logger writing to both the file and stderr.
func OpenStrategyLogger(name, dir string, level slog.Level) (*StrategyLogger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	path := filepath.Join(dir, name+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open strategy log %s: %w", path, err)
	}

	h := &prettyHandler{w: io.MultiWriter(os.Stderr, f), level: level, name: name}
	return &StrategyLogger{l: slog.New(h), closer: f}, nil
}

// NewStrategyLogger returns a logger writing to w only. Used in tests.
func NewStrategyLogger(name string, w io.Writer, level slog.Level) *StrategyLogger {
	return &StrategyLogger{l: slog.New(&prettyHandler{w: w, level: level, name: name})}
}

func (s *StrategyLogger) Infof(format string, args ...any)  { s.l.Info(fmt.Sprintf(format, args...)) }
func (s *StrategyLogger) Warnf(format string, args ...any)  { s.l.Warn(fmt.Sprintf(format, args...)) }
func (s *StrategyLogger) Errorf(format string, args ...any) { s.l.Error(fmt.Sprintf(format, args...)) }
func (s *StrategyLogger) Debugf(format string, args ...any) { s.l.Debug(fmt.Sprintf(format, args...)) }

func (s *StrategyLogger) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// prettyHandler outputs: [2026-02-21 5:10:39 PM PST] name message
type prettyHandler struct {
	w     io.Writer
	level slog.Level
	name  string
	mu    sync.Mutex
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time.Format("2006-01-02 3:04:05 PM MST")

	var prefix string
	switch {
	case r.Level >= slog.LevelError:
		prefix = "ERROR: "
	case r.Level >= slog.LevelWarn:
		prefix = "WARN: "
	}

	name := h.name
	if name != "" {
		name += " "
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprintf(h.w, "[%s] %s%s%s\n", ts, name, prefix, r.Message)
	return err
}

func (h *prettyHandler) WithAttrs(_ []slog.Attr) slog.Handler { return h }
func (h *prettyHandler) WithGroup(_ string) slog.Handler      { return h }
