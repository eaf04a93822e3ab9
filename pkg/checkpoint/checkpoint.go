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

// Package checkpoint is the persistence boundary for watermarks. The poller
// works without any durable store (None); the other implementations let a
// restarted process resume from its last advanced watermark.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrClosed is returned by stores used after Close.
var ErrClosed = errors.New("checkpoint store closed")

// Loader looks up a previously persisted watermark. found is false when the
// entity has never been saved.
type Loader interface {
	TryLoad(ctx context.Context, entity string) (t time.Time, found bool, err error)
}

// Saver persists an advanced watermark. Implementations never move a stored
// watermark backwards.
type Saver interface {
	Save(ctx context.Context, entity string, t time.Time) error
}

// Store is a Loader that can also persist.
type Store interface {
	Loader
	Saver
}

// None never finds anything and discards saves.
type None struct{}

// TryLoad always reports not found.
func (None) TryLoad(context.Context, string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}

// Save does nothing.
func (None) Save(context.Context, string, time.Time) error { return nil }

// timeLayout is RFC 3339 with a fixed nine-digit fraction. UTC values in
// this layout sort lexically in time order, which the Postgres and Redis
// stores rely on to keep the maximum server side.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(entity, s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("decode watermark for %s: %w", entity, err)
	}
	return t.UTC(), nil
}
