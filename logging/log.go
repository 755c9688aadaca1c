package logging

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const timeFormat = "15:04:05"

type Logger struct {
	*slog.Logger
}

// New writes human-readable lines to w, with the time shortened to a clock.
func New(w io.Writer, level slog.Level) *Logger {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey && len(groups) == 0 {
				return slog.String(slog.TimeKey, a.Value.Time().Format(timeFormat))
			}
			return a
		},
	})
	return &Logger{slog.New(h)}
}

// Discard drops everything. Handy in tests.
func Discard() *Logger {
	return New(io.Discard, slog.LevelError)
}

func (l *Logger) WithModule(module string) *Logger {
	return &Logger{l.With(slog.String("module", module))}
}

// ParseLevel accepts debug, info, warn/warning and error, case-insensitively.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("unknown log level %q", s)
}

func String(key string, value string) slog.Attr {
	return slog.String(key, value)
}

func Int(key string, value int) slog.Attr {
	return slog.Int(key, value)
}

func Int64(key string, value int64) slog.Attr {
	return slog.Int64(key, value)
}

func Error(err error) slog.Attr {
	return slog.Any("error", err)
}
