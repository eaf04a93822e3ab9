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

package adapters

import (
	"context"
	"io"

	"github.com/sirupsen/logrus"
)

// LogrusLogger adapts a logrus logger to the Logger interface.
type LogrusLogger struct {
	entry *logrus.Entry
	level LogLevel
}

// NewLogrusLogger returns a logrus-backed logger emitting JSON to w.
func NewLogrusLogger(w io.Writer, level LogLevel) *LogrusLogger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(logrus.DebugLevel)
	return &LogrusLogger{entry: logrus.NewEntry(l), level: level}
}

// NewLogrusLoggerFrom wraps an existing logrus logger.
func NewLogrusLoggerFrom(l *logrus.Logger, level LogLevel) *LogrusLogger {
	return &LogrusLogger{entry: logrus.NewEntry(l), level: level}
}

func (l *LogrusLogger) Debug(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, DebugLevel, msg, fields)
}

func (l *LogrusLogger) Info(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, InfoLevel, msg, fields)
}

func (l *LogrusLogger) Warn(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, WarnLevel, msg, fields)
}

func (l *LogrusLogger) Error(ctx context.Context, msg string, fields ...Field) {
	l.log(ctx, ErrorLevel, msg, fields)
}

func (l *LogrusLogger) WithFields(fields ...Field) Logger {
	return &LogrusLogger{entry: l.entry.WithFields(toLogrus(fields)), level: l.level}
}

func (l *LogrusLogger) SetLevel(level LogLevel) { l.level = level }
func (l *LogrusLogger) GetLevel() LogLevel      { return l.level }

func (l *LogrusLogger) log(ctx context.Context, level LogLevel, msg string, fields []Field) {
	if level < l.level {
		return
	}
	entry := l.entry.WithFields(toLogrus(fields))
	if ctx != nil {
		entry = entry.WithContext(ctx)
	}
	switch level {
	case DebugLevel:
		entry.Debug(msg)
	case WarnLevel:
		entry.Warn(msg)
	case ErrorLevel:
		entry.Error(msg)
	default:
		entry.Info(msg)
	}
}

func toLogrus(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, f := range fields {
		if err, ok := f.Value.(error); ok {
			out[f.Key] = err.Error()
			continue
		}
		out[f.Key] = f.Value
	}
	return out
}
