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

// Package watermark keeps the per-entity high-water mark of admitted object
// modification times. A watermark only ever moves forward.
package watermark

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
	"github.com/jeremyhahn/go-objpoller/pkg/checkpoint"
)

// Initializer produces the watermark for an entity seen for the first time
// and not found in the checkpoint store.
type Initializer func(entity string) time.Time

// Now starts new entities at the current time, so only objects modified
// after the first check are admitted.
func Now(clock func() time.Time) Initializer {
	if clock == nil {
		clock = time.Now
	}
	return func(string) time.Time { return clock().UTC() }
}

// Lookback starts new entities d before the current time.
func Lookback(clock func() time.Time, d time.Duration) Initializer {
	if clock == nil {
		clock = time.Now
	}
	return func(string) time.Time { return clock().Add(-d).UTC() }
}

// Fixed starts every new entity at t.
func Fixed(t time.Time) Initializer {
	return func(string) time.Time { return t.UTC() }
}

// Config holds the Store collaborators.
type Config struct {
	// Initializer sets the cold-start watermark. Defaults to Now(time.Now).
	Initializer Initializer

	// Checkpoint loads and persists watermarks. Defaults to checkpoint.None.
	Checkpoint checkpoint.Store

	// Logger defaults to a no-op logger.
	Logger adapters.Logger
}

type entry struct {
	mu     sync.Mutex
	value  time.Time
	loaded bool
}

// Store maps entities to watermarks. Each entity has its own lock, so a slow
// checkpoint load for one entity never blocks another.
type Store struct {
	init       Initializer
	checkpoint checkpoint.Store
	logger     adapters.Logger

	mu      sync.Mutex
	entries map[string]*entry
}

// New creates a store. A nil config uses the defaults.
func New(config *Config) *Store {
	if config == nil {
		config = &Config{}
	}
	s := &Store{
		init:       config.Initializer,
		checkpoint: config.Checkpoint,
		logger:     config.Logger,
		entries:    make(map[string]*entry),
	}
	if s.init == nil {
		s.init = Now(time.Now)
	}
	if s.checkpoint == nil {
		s.checkpoint = checkpoint.None{}
	}
	if s.logger == nil {
		s.logger = adapters.NewNoOpLogger()
	}
	return s
}

func (s *Store) entry(entity string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[entity]
	if !ok {
		e = &entry{}
		s.entries[entity] = e
	}
	return e
}

// Get returns the watermark for entity, initializing it on first access from
// the checkpoint store or, failing that, the initializer. A checkpoint error
// is returned and nothing is cached, so the next call retries the load.
func (s *Store) Get(ctx context.Context, entity string) (time.Time, error) {
	e := s.entry(entity)
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.load(ctx, entity, e); err != nil {
		return time.Time{}, err
	}
	return e.value, nil
}

// load initializes e. Callers hold e.mu.
func (s *Store) load(ctx context.Context, entity string, e *entry) error {
	if e.loaded {
		return nil
	}
	t, found, err := s.checkpoint.TryLoad(ctx, entity)
	if err != nil {
		return fmt.Errorf("load watermark for %s: %w", entity, err)
	}
	if found {
		s.logger.Debug(ctx, "watermark restored",
			adapters.Field{Key: "entity", Value: entity},
			adapters.Field{Key: "watermark", Value: t})
	} else {
		t = s.init(entity)
		s.logger.Debug(ctx, "watermark initialized",
			adapters.Field{Key: "entity", Value: entity},
			adapters.Field{Key: "watermark", Value: t})
	}
	e.value, e.loaded = t, true
	return nil
}

// Peek returns the watermark without initializing it.
func (s *Store) Peek(entity string) (time.Time, bool) {
	s.mu.Lock()
	e, ok := s.entries[entity]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.value, e.loaded
}

// Advance sets the watermark to max(current, candidate) and returns the
// stored value. The in-memory value moves even if persisting it fails; the
// persistence error is returned so the caller can report it.
func (s *Store) Advance(ctx context.Context, entity string, candidate time.Time) (time.Time, error) {
	e := s.entry(entity)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := s.load(ctx, entity, e); err != nil {
		return time.Time{}, err
	}
	if !candidate.After(e.value) {
		return e.value, nil
	}
	e.value = candidate

	if err := s.checkpoint.Save(ctx, entity, candidate); err != nil {
		return candidate, fmt.Errorf("persist watermark for %s: %w", entity, err)
	}
	return candidate, nil
}

// Entities returns every entity with an initialized watermark.
func (s *Store) Entities() []string {
	s.mu.Lock()
	snapshot := make(map[string]*entry, len(s.entries))
	for entity, e := range s.entries {
		snapshot[entity] = e
	}
	s.mu.Unlock()

	out := make([]string, 0, len(snapshot))
	for entity, e := range snapshot {
		e.mu.Lock()
		if e.loaded {
			out = append(out, entity)
		}
		e.mu.Unlock()
	}
	sort.Strings(out)
	return out
}
