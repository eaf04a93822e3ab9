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

package emitter

import (
	"context"
	"sync/atomic"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
)

// Log writes one structured line per event with a per-emitter sequence
// number.
type Log struct {
	logger adapters.Logger
	seq    atomic.Int64
}

// NewLog returns an emitter that logs at info level.
func NewLog(logger adapters.Logger) *Log {
	if logger == nil {
		logger = adapters.NewNoOpLogger()
	}
	return &Log{logger: logger}
}

// Emit implements Emitter.
func (l *Log) Emit(ctx context.Context, event Event) error {
	n := l.seq.Add(1)
	l.logger.Info(ctx, "object emitted",
		adapters.Field{Key: "seq", Value: n},
		adapters.Field{Key: "entity", Value: event.Entity},
		adapters.Field{Key: "object", Value: event.ObjectName},
		adapters.Field{Key: "last_modified", Value: event.LastModified},
		adapters.Field{Key: "observed_at", Value: event.ObservedAt},
		adapters.Field{Key: "strategy", Value: event.Strategy},
	)
	return nil
}

// Count returns how many events were emitted.
func (l *Log) Count() int64 {
	return l.seq.Load()
}
