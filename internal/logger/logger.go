// Package logger provides process-wide structured logging for Tripwise.
//
// Records are written through log/slog. Info, Warn and Error are always
// emitted; Debug and Section only when verbose mode is enabled via the
// --verbose flag or LOG_LEVEL=debug.
package logger

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
)

var (
	mu      sync.RWMutex
	verbose bool
	output  io.Writer = os.Stderr
	format            = FormatText
	base              = build()
)

// build creates a logger from the current settings (caller must hold mu).
func build() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}
	if format == FormatJSON {
		return slog.New(slog.NewJSONHandler(output, opts))
	}
	return slog.New(slog.NewTextHandler(output, opts))
}

// SetVerbose enables or disables debug logging.
func SetVerbose(v bool) {
	mu.Lock()
	defer mu.Unlock()
	verbose = v
	base = build()
}

// IsVerbose returns true if verbose mode is enabled.
func IsVerbose() bool {
	mu.RLock()
	defer mu.RUnlock()
	return verbose
}

// SetOutput sets the output writer for logs.
// Defaults to os.Stderr. Useful for testing.
func SetOutput(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	output = w
	base = build()
}

// SetFormat selects "text" or "json" records. Unknown values mean text.
func SetFormat(f string) {
	mu.Lock()
	defer mu.Unlock()
	if f != FormatJSON {
		f = FormatText
	}
	format = f
	base = build()
}

// Logger returns the underlying slog logger, for libraries that take one.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return base
}

func log(level slog.Level, format string, args []any, attrs ...any) {
	mu.RLock()
	l := base
	mu.RUnlock()
	if !l.Enabled(context.Background(), level) {
		return
	}
	l.Log(context.Background(), level, fmt.Sprintf(format, args...), attrs...)
}

// Debug logs a message if verbose mode is enabled.
func Debug(format string, args ...any) {
	log(slog.LevelDebug, format, args)
}

// Section logs a pipeline stage marker if verbose mode is enabled.
func Section(name string) {
	log(slog.LevelDebug, "=== %s ===", []any{name}, "section", name)
}

// Info logs an informational message.
func Info(format string, args ...any) {
	log(slog.LevelInfo, format, args)
}

// Warn logs a warning.
func Warn(format string, args ...any) {
	log(slog.LevelWarn, format, args)
}

// Error logs an error.
func Error(format string, args ...any) {
	log(slog.LevelError, format, args)
}

// With returns a logger carrying the given attributes, e.g. a request ID.
func With(attrs ...any) *slog.Logger {
	return Logger().With(attrs...)
}
