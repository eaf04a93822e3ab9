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

package checkpoint

import (
	"context"
	"sync"
	"time"
)

// Memory keeps watermarks in a sync.Map. Useful for tests and for sharing
// state between strategies in one process.
type Memory struct {
	mu     sync.Mutex
	values sync.Map
}

var _ Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{}
}

// TryLoad implements Loader.
func (m *Memory) TryLoad(_ context.Context, entity string) (time.Time, bool, error) {
	v, ok := m.values.Load(entity)
	if !ok {
		return time.Time{}, false, nil
	}
	return v.(time.Time), true, nil
}

// Save implements Saver.
func (m *Memory) Save(_ context.Context, entity string, t time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.values.Load(entity); ok && !t.After(cur.(time.Time)) {
		return nil
	}
	m.values.Store(entity, t.UTC())
	return nil
}
