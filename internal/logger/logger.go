// Package logger provides the structured logging interface shared by the
// eduapi SDK and CLI. The production implementation is backed by log/slog;
// NoopLogger is the default for library callers that do not supply one.
package logger

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a leveled, structured logger. The variadic args are slog
// key-value pairs, e.g.
//
//	log.Debug("dispatching request", "request_id", id, "method", method)
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}

// NoopLogger discards all log messages.
type NoopLogger struct{}

func (NoopLogger) Debug(msg string, args ...any) {}
func (NoopLogger) Info(msg string, args ...any)  {}
func (NoopLogger) Warn(msg string, args ...any)  {}
func (NoopLogger) Error(msg string, args ...any) {}
func (n NoopLogger) With(args ...any) Logger     { return n }

// SlogLogger adapts a *slog.Logger to the Logger interface.
type SlogLogger struct {
	logger *slog.Logger
}

// NewSlogLogger wraps an existing *slog.Logger.
func NewSlogLogger(l *slog.Logger) *SlogLogger {
	return &SlogLogger{logger: l}
}

// Options controls how New builds a logger.
type Options struct {
	Level  string    // debug, info, warn or error; defaults to info
	JSON   bool      // emit JSON records instead of key=value text
	Output io.Writer // defaults to os.Stderr
}

// New creates a slog-backed Logger writing to opts.Output.
func New(opts Options) *SlogLogger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if opts.JSON {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return NewSlogLogger(slog.New(handler))
}

// NewDefaultLogger logs at debug level when debug is set, info otherwise.
func NewDefaultLogger(debug bool) Logger {
	if debug {
		return New(Options{Level: "debug"})
	}
	return New(Options{Level: "info"})
}

// ParseLevel converts a config string into a slog.Level. Unknown values
// map to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
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

func (l *SlogLogger) Debug(msg string, args ...any) {
	l.logger.Debug(msg, args...)
}

func (l *SlogLogger) Info(msg string, args ...any) {
	l.logger.Info(msg, args...)
}

func (l *SlogLogger) Warn(msg string, args ...any) {
	l.logger.Warn(msg, args...)
}

func (l *SlogLogger) Error(msg string, args ...any) {
	l.logger.Error(msg, args...)
}

func (l *SlogLogger) With(args ...any) Logger {
	return &SlogLogger{logger: l.logger.With(args...)}
}
