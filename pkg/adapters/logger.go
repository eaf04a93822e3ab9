// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-objpoller.
//
// go-objpoller is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

// Package adapters provides the pluggable logger used by every poller
// component. The default writes JSON through log/slog; logrus and zap
// backends are available for hosts that already standardise on them.
package adapters

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogLevel represents the severity level of a log message.
type LogLevel int

const (
	// DebugLevel for detailed debugging information.
	DebugLevel LogLevel = iota
	// InfoLevel for general informational messages.
	InfoLevel
	// WarnLevel for warning messages.
	WarnLevel
	// ErrorLevel for error messages.
	ErrorLevel
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case DebugLevel:
		return "DEBUG"
	case InfoLevel:
		return "INFO"
	case WarnLevel:
		return "WARN"
	case ErrorLevel:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel converts a configuration string into a LogLevel.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return DebugLevel, nil
	case "", "info":
		return InfoLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "error":
		return ErrorLevel, nil
	default:
		return InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// Field represents a structured logging field (key-value pair).
type Field struct {
	Key   string
	Value any
}

// Logger defines the interface for pluggable logging implementations.
type Logger interface {
	// Debug logs a debug-level message with optional fields.
	Debug(ctx context.Context, msg string, fields ...Field)

	// Info logs an info-level message with optional fields.
	Info(ctx context.Context, msg string, fields ...Field)

	// Warn logs a warning-level message with optional fields.
	Warn(ctx context.Context, msg string, fields ...Field)

	// Error logs an error-level message with optional fields.
	Error(ctx context.Context, msg string, fields ...Field)

	// WithFields returns a new Logger with the given fields added to all log entries.
	WithFields(fields ...Field) Logger

	// SetLevel sets the minimum log level that will be output.
	SetLevel(level LogLevel)

	// GetLevel returns the current log level.
	GetLevel() LogLevel
}

// Format selects a logger backend.
const (
	FormatJSON   = "json"
	FormatText   = "text"
	FormatLogrus = "logrus"
	FormatZap    = "zap"
)

// NewLogger builds a logger for the given format writing to w. An empty
// format selects the slog JSON logger.
func NewLogger(format string, level LogLevel, w io.Writer) (Logger, error) {
	if w == nil {
		w = os.Stdout
	}
	switch strings.ToLower(format) {
	case "", FormatJSON:
		return NewSlogLogger(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}), level), nil
	case FormatText:
		return NewSlogLogger(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}), level), nil
	case FormatLogrus:
		return NewLogrusLogger(w, level), nil
	case FormatZap:
		return NewZapLogger(w, level), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", format)
	}
}

// DefaultLogger is a simple implementation using Go's standard slog package.
type DefaultLogger struct {
	logger *slog.Logger
	level  LogLevel
	fields []Field
}

// NewDefaultLogger creates a JSON logger on stdout at info level.
func NewDefaultLogger() Logger {
	return NewSlogLogger(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}), InfoLevel)
}

// NewSlogLogger wraps an arbitrary slog handler. Level filtering happens in
// the logger, so the handler should accept every level.
func NewSlogLogger(handler slog.Handler, level LogLevel) *DefaultLogger {
	return &DefaultLogger{logger: slog.New(handler), level: level}
}

// Debug logs a debug-level message.
func (l *DefaultLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields)
}

// Info logs an info-level message.
func (l *DefaultLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields)
}

// Warn logs a warning-level message.
func (l *DefaultLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields)
}

// Error logs an error-level message.
func (l *DefaultLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields)
}

// WithFields returns a new logger with additional fields.
func (l *DefaultLogger) WithFields(fields ...Field) Logger {
	return &DefaultLogger{
		logger: l.logger,
		level:  l.level,
		fields: mergeFields(l.fields, fields),
	}
}

// SetLevel sets the minimum log level.
func (l *DefaultLogger) SetLevel(level LogLevel) {
	l.level = level
}

// GetLevel returns the current log level.
func (l *DefaultLogger) GetLevel() LogLevel {
	return l.level
}

func (l *DefaultLogger) log(ctx context.Context, level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	all := mergeFields(l.fields, fields)
	attrs := make([]slog.Attr, len(all))
	for i, field := range all {
		attrs[i] = slog.Any(field.Key, field.Value)
	}
	l.logger.LogAttrs(ctx, slogLevel(level), msg, attrs...)
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case DebugLevel:
		return slog.LevelDebug
	case WarnLevel:
		return slog.LevelWarn
	case ErrorLevel:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func mergeFields(base, extra []Field) []Field {
	out := make([]Field, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

// NoOpLogger is a logger that discards all log messages.
// Useful for testing or when logging is not desired.
type NoOpLogger struct {
	level LogLevel
}

// NewNoOpLogger creates a new no-op logger.
func NewNoOpLogger() Logger {
	return &NoOpLogger{level: ErrorLevel}
}

func (l *NoOpLogger) Debug(ctx context.Context, msg string, fields ...Field) {}
func (l *NoOpLogger) Info(ctx context.Context, msg string, fields ...Field)  {}
func (l *NoOpLogger) Warn(ctx context.Context, msg string, fields ...Field)  {}
func (l *NoOpLogger) Error(ctx context.Context, msg string, fields ...Field) {}
func (l *NoOpLogger) WithFields(fields ...Field) Logger                      { return l }
func (l *NoOpLogger) SetLevel(level LogLevel)                                { l.level = level }
func (l *NoOpLogger) GetLevel() LogLevel                                     { return l.level }
