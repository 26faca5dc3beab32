// Package logger provides leveled, printf-style logging for webgen.
//
// Output is discarded until Setup is called with a log file, so that
// generated text written to stdout is never interleaved with log lines.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

var (
	mu      sync.RWMutex
	current = slog.New(slog.NewTextHandler(io.Discard, nil))
	closer  io.Closer
)

// ParseLevel maps a level name to a slog.Level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(name)) {
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

// Setup configures the global logger. An empty file keeps logging disabled.
func Setup(level, file string) error {
	if file == "" {
		SetOutput(io.Discard, level)
		return nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	SetOutput(f, level)

	mu.Lock()
	closer = f
	mu.Unlock()
	return nil
}

// SetOutput points the logger at w with the given level.
func SetOutput(w io.Writer, level string) {
	h := slog.NewTextHandler(w, &slog.HandlerOptions{Level: ParseLevel(level)})

	mu.Lock()
	defer mu.Unlock()
	current = slog.New(h)
}

// Close releases the log file opened by Setup, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	if closer == nil {
		return nil
	}
	err := closer.Close()
	closer = nil
	current = slog.New(slog.NewTextHandler(io.Discard, nil))
	return err
}

func log(level slog.Level, format string, args ...any) {
	mu.RLock()
	l := current
	mu.RUnlock()
	ctx := context.Background()
	if !l.Enabled(ctx, level) {
		return
	}
	l.Log(ctx, level, fmt.Sprintf(format, args...))
}

// Debug logs at debug level.
func Debug(format string, args ...any) { log(slog.LevelDebug, format, args...) }

// Info logs at info level.
func Info(format string, args ...any) { log(slog.LevelInfo, format, args...) }

// Warn logs at warn level.
func Warn(format string, args ...any) { log(slog.LevelWarn, format, args...) }

// Error logs at error level.
func Error(format string, args ...any) { log(slog.LevelError, format, args...) }
