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

package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Counters is an in-process Reporter. All counters use atomic operations;
// per-entity watermarks are kept in a mutex-guarded map.
type Counters struct {
	checks            atomic.Int64
	checkErrors       atomic.Int64
	partitionsScanned atomic.Int64
	objectsScanned    atomic.Int64
	objectsAdmitted   atomic.Int64
	ticks             atomic.Int64
	lastTick          atomic.Int64 // Unix timestamp in nanoseconds
	totalTickDuration atomic.Int64 // nanoseconds

	mu         sync.RWMutex
	admitted   map[string]int64
	watermarks map[string]time.Time
}

// NewCounters creates a new counters instance.
func NewCounters() *Counters {
	return &Counters{
		admitted:   make(map[string]int64),
		watermarks: make(map[string]time.Time),
	}
}

func (c *Counters) CheckCompleted(_, _ string, _ time.Duration, err error) {
	c.checks.Add(1)
	if err != nil {
		c.checkErrors.Add(1)
	}
}

func (c *Counters) ObjectsScanned(_ string, partitions, objects int) {
	c.partitionsScanned.Add(int64(partitions))
	c.objectsScanned.Add(int64(objects))
}

func (c *Counters) ObjectsAdmitted(entity string, n int) {
	if n == 0 {
		return
	}
	c.objectsAdmitted.Add(int64(n))
	c.mu.Lock()
	c.admitted[entity] += int64(n)
	c.mu.Unlock()
}

func (c *Counters) WatermarkAdvanced(entity string, t time.Time) {
	c.mu.Lock()
	c.watermarks[entity] = t
	c.mu.Unlock()
}

func (c *Counters) TickCompleted(d time.Duration, _, _ int) {
	c.ticks.Add(1)
	c.lastTick.Store(time.Now().UnixNano())
	c.totalTickDuration.Add(d.Nanoseconds())
}

// Admitted returns the number of records emitted for one entity.
func (c *Counters) Admitted(entity string) int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.admitted[entity]
}

// Watermark returns the last reported watermark for one entity.
func (c *Counters) Watermark(entity string) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.watermarks[entity]
	return t, ok
}

// Snapshot returns a point-in-time copy of all counters.
func (c *Counters) Snapshot() Snapshot {
	s := Snapshot{
		Checks:            c.checks.Load(),
		CheckErrors:       c.checkErrors.Load(),
		PartitionsScanned: c.partitionsScanned.Load(),
		ObjectsScanned:    c.objectsScanned.Load(),
		ObjectsAdmitted:   c.objectsAdmitted.Load(),
		Ticks:             c.ticks.Load(),
	}
	if nanos := c.lastTick.Load(); nanos != 0 {
		s.LastTick = time.Unix(0, nanos)
	}
	if s.Ticks > 0 {
		s.AverageTickDuration = time.Duration(c.totalTickDuration.Load() / s.Ticks)
	}
	return s
}

// Reset zeroes every counter.
func (c *Counters) Reset() {
	c.checks.Store(0)
	c.checkErrors.Store(0)
	c.partitionsScanned.Store(0)
	c.objectsScanned.Store(0)
	c.objectsAdmitted.Store(0)
	c.ticks.Store(0)
	c.lastTick.Store(0)
	c.totalTickDuration.Store(0)
	c.mu.Lock()
	c.admitted = make(map[string]int64)
	c.watermarks = make(map[string]time.Time)
	c.mu.Unlock()
}

// Snapshot is a point-in-time view of Counters.
type Snapshot struct {
	Checks              int64         `json:"checks"`
	CheckErrors         int64         `json:"check_errors"`
	PartitionsScanned   int64         `json:"partitions_scanned"`
	ObjectsScanned      int64         `json:"objects_scanned"`
	ObjectsAdmitted     int64         `json:"objects_admitted"`
	Ticks               int64         `json:"ticks"`
	LastTick            time.Time     `json:"last_tick"`
	AverageTickDuration time.Duration `json:"average_tick_duration"`
}
