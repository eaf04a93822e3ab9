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

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap sugared logger to the Logger interface.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level LogLevel
}

// NewZapLogger returns a zap logger using the production JSON encoder on w.
func NewZapLogger(w io.Writer, level LogLevel) *ZapLogger {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(w), zapcore.DebugLevel)
	return &ZapLogger{sugar: zap.New(core).Sugar(), level: level}
}

// NewZapLoggerFrom wraps an existing zap logger.
func NewZapLoggerFrom(l *zap.Logger, level LogLevel) *ZapLogger {
	return &ZapLogger{sugar: l.Sugar(), level: level}
}

func (l *ZapLogger) Debug(_ context.Context, msg string, fields ...Field) {
	if l.level <= DebugLevel {
		l.sugar.Debugw(msg, toKeysAndValues(fields)...)
	}
}

func (l *ZapLogger) Info(_ context.Context, msg string, fields ...Field) {
	if l.level <= InfoLevel {
		l.sugar.Infow(msg, toKeysAndValues(fields)...)
	}
}

func (l *ZapLogger) Warn(_ context.Context, msg string, fields ...Field) {
	if l.level <= WarnLevel {
		l.sugar.Warnw(msg, toKeysAndValues(fields)...)
	}
}

func (l *ZapLogger) Error(_ context.Context, msg string, fields ...Field) {
	if l.level <= ErrorLevel {
		l.sugar.Errorw(msg, toKeysAndValues(fields)...)
	}
}

func (l *ZapLogger) WithFields(fields ...Field) Logger {
	return &ZapLogger{sugar: l.sugar.With(toKeysAndValues(fields)...), level: l.level}
}

func (l *ZapLogger) SetLevel(level LogLevel) { l.level = level }
func (l *ZapLogger) GetLevel() LogLevel      { return l.level }

// Sync flushes buffered entries.
func (l *ZapLogger) Sync() error {
	return l.sugar.Sync()
}

func toKeysAndValues(fields []Field) []any {
	kv := make([]any, 0, len(fields)*2)
	for _, f := range fields {
		kv = append(kv, f.Key, f.Value)
	}
	return kv
}
