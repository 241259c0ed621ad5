// Package logging provides the structured logger shared by daemonenv components.
package logging

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"syscall"
)

// Config holds logger configuration
type Config struct {
	Level     string // debug, info, warn, error
	Format    string // "json" or "text"
	Output    string // "stdout", "stderr", or file path
	Component string
}

// Logger wraps slog.Logger with a component tag and the two record shapes the
// bootstrapper emits.
type Logger struct {
	*slog.Logger
	component string
	closer    io.Closer
}

// New creates a logger from cfg. File outputs are opened in append mode.
func New(cfg Config) (*Logger, error) {
	var (
		writer io.Writer
		closer io.Closer
	)

	switch cfg.Output {
	case "", "stderr":
		writer = os.Stderr
	case "stdout":
		writer = os.Stdout
	default:
		if err := os.MkdirAll(filepath.Dir(cfg.Output), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(cfg.Output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		writer, closer = f, f
	}

	l := NewWithWriter(writer, cfg)
	l.closer = closer
	return l, nil
}

// NewWithWriter builds a logger on an existing writer.
func NewWithWriter(w io.Writer, cfg Config) *Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return &Logger{
		Logger:    slog.New(handler).With("service", "daemonenv", "component", cfg.Component),
		component: cfg.Component,
	}
}

// Nop returns a logger that discards everything.
func Nop() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

func parseLevel(s string) slog.Level {
	switch s {
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

// WithComponent returns a logger tagged with another component name.
func (l *Logger) WithComponent(component string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{
		Logger:    l.Logger.With("component", component),
		component: component,
	}
}

func (l *Logger) Component() string {
	if l == nil {
		return ""
	}
	return l.component
}

// Event records an informational system event.
func (l *Logger) Event(msg string, args ...any) {
	if l == nil {
		return
	}
	l.Info(msg, args...)
}

// Failure records err at error level together with its OS error code.
func (l *Logger) Failure(err error, msg string, args ...any) {
	if l == nil {
		return
	}
	attrs := append([]any{"errno", Errno(err), "error", err}, args...)
	l.Error(msg, attrs...)
}

// Close releases a file output, if any.
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}

// Errno extracts the OS error code carried by err, or 0.
func Errno(err error) int {
	if err == nil {
		return 0
	}
	var coded interface{ Errno() syscall.Errno }
	if errors.As(err, &coded) {
		return int(coded.Errno())
	}
	var errno syscall.Errno
	if errors.As(err, &errno) {
		return int(errno)
	}
	return 0
}
