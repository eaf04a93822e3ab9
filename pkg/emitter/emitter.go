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

// Package emitter delivers admission decisions to downstream consumers.
package emitter

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/multierr"
)

// Event is one admitted object.
type Event struct {
	Entity       string    `json:"entity"`
	ObjectName   string    `json:"object_name"`
	LastModified time.Time `json:"last_modified"`
	ObservedAt   time.Time `json:"observed_at"`
	Size         int64     `json:"size,omitempty"`
	Strategy     string    `json:"strategy,omitempty"`
}

// Marshal encodes the event as JSON.
func (e Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Emitter receives admitted objects. Emit is called from concurrent entity
// checks and must be safe for concurrent use.
type Emitter interface {
	Emit(ctx context.Context, event Event) error
}

// Closer is implemented by emitters holding connections.
type Closer interface {
	Close() error
}

// Close closes e when it holds resources.
func Close(e Emitter) error {
	if c, ok := e.(Closer); ok {
		return c.Close()
	}
	return nil
}

// Func adapts a function to Emitter.
type Func func(ctx context.Context, event Event) error

// Emit calls f.
func (f Func) Emit(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Multi delivers every event to each emitter in order. All emitters are
// attempted; their errors are combined.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(ctx context.Context, event Event) error {
	var err error
	for _, e := range m {
		err = multierr.Append(err, e.Emit(ctx, event))
	}
	return err
}

// Close closes every emitter that holds resources.
func (m Multi) Close() error {
	var err error
	for _, e := range m {
		err = multierr.Append(err, Close(e))
	}
	return err
}
