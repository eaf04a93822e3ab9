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

// Package memory provides an in-memory implementation of the storage interface.
// It is used by tests and by single-process deployments where the writer and
// the poller share an address space.
package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeremyhahn/go-objpoller/pkg/common"
)

// object represents a stored object with its data and metadata.
type object struct {
	data     []byte
	metadata common.Metadata
}

// Memory is a storage backend that stores objects in memory.
type Memory struct {
	mu        sync.RWMutex
	objects   map[string]*object
	now       func() time.Time
	container bool
}

var _ common.Storage = (*Memory)(nil)

// New creates a new Memory storage backend stamping objects with time.Now.
func New() common.Storage {
	return NewWithClock(time.Now)
}

// NewWithClock creates a Memory backend whose last-modified timestamps come
// from now.
func NewWithClock(now func() time.Time) *Memory {
	if now == nil {
		now = time.Now
	}
	return &Memory{
		objects: make(map[string]*object),
		now:     now,
	}
}

// Configure sets up the backend with the necessary settings.
// The memory backend has no required settings.
func (m *Memory) Configure(settings map[string]string) error {
	return nil
}

// EnsureContainer marks the container as created. It is idempotent.
func (m *Memory) EnsureContainer(ctx context.Context) error {
	if err := common.CheckContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.container = true
	m.mu.Unlock()
	return nil
}

// ContainerExists reports whether EnsureContainer has been called.
func (m *Memory) ContainerExists() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.container
}

// PutWithContext stores an object stamped with the backend clock.
func (m *Memory) PutWithContext(ctx context.Context, key string, data io.Reader) error {
	return m.PutAt(ctx, key, data, m.now())
}

// PutAt stores an object with an explicit last-modified time.
func (m *Memory) PutAt(ctx context.Context, key string, data io.Reader, lastModified time.Time) error {
	if err := common.ValidateKey(key); err != nil {
		return err
	}
	if err := common.CheckContext(ctx); err != nil {
		return err
	}

	dataBytes, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	lastModified = lastModified.UTC()

	m.mu.Lock()
	m.objects[key] = &object{
		data: dataBytes,
		metadata: common.Metadata{
			Size:         int64(len(dataBytes)),
			LastModified: lastModified,
			ETag:         fmt.Sprintf("%d-%d", lastModified.UnixNano(), len(dataBytes)),
		},
	}
	m.mu.Unlock()
	return nil
}

// GetWithContext retrieves an object's content.
func (m *Memory) GetWithContext(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := common.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := common.CheckContext(ctx); err != nil {
		return nil, err
	}

	m.mu.RLock()
	obj, exists := m.objects[key]
	m.mu.RUnlock()
	if !exists {
		return nil, fmt.Errorf("%w: %s", common.ErrKeyNotFound, key)
	}

	// Return a copy of the data to prevent mutation
	dataCopy := make([]byte, len(obj.data))
	copy(dataCopy, obj.data)
	return io.NopCloser(bytes.NewReader(dataCopy)), nil
}

// DeleteWithContext removes an object.
func (m *Memory) DeleteWithContext(ctx context.Context, key string) error {
	if err := common.CheckContext(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; !ok {
		return fmt.Errorf("%w: %s", common.ErrKeyNotFound, key)
	}
	delete(m.objects, key)
	return nil
}

// snapshot returns the sorted objects under prefix.
func (m *Memory) snapshot(prefix string) []common.ObjectInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	keys := make([]string, 0, len(m.objects))
	for key := range m.objects {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	out := make([]common.ObjectInfo, len(keys))
	for i, key := range keys {
		md := m.objects[key].metadata
		out[i] = common.ObjectInfo{Key: key, Metadata: &md}
	}
	return out
}

// Walk streams objects under prefix in key order. The callback runs outside
// the lock, so it may write to the same backend.
func (m *Memory) Walk(ctx context.Context, prefix string, fn func(common.ObjectInfo) error) error {
	if err := common.CheckContext(ctx); err != nil {
		return err
	}
	for _, obj := range m.snapshot(prefix) {
		if err := fn(obj); err != nil {
			return err
		}
	}
	return nil
}

// ListWithOptions returns a paginated list of objects with full metadata.
func (m *Memory) ListWithOptions(ctx context.Context, opts *common.ListOptions) (*common.ListResult, error) {
	if opts == nil {
		opts = &common.ListOptions{}
	}
	if err := common.CheckContext(ctx); err != nil {
		return nil, err
	}

	all := m.snapshot(opts.Prefix)
	startIdx := 0
	if opts.ContinueFrom != "" {
		startIdx = sort.Search(len(all), func(i int) bool { return all[i].Key > opts.ContinueFrom })
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 1000
	}
	endIdx := startIdx + maxResults
	if endIdx > len(all) {
		endIdx = len(all)
	}

	result := &common.ListResult{Objects: make([]*common.ObjectInfo, 0, endIdx-startIdx)}
	for i := startIdx; i < endIdx; i++ {
		result.Objects = append(result.Objects, &all[i])
	}
	if endIdx < len(all) {
		result.Truncated = true
		result.NextToken = all[endIdx-1].Key
	}
	return result, nil
}

// Clear removes every object.
func (m *Memory) Clear() {
	m.mu.Lock()
	m.objects = make(map[string]*object)
	m.mu.Unlock()
}

// Count returns the number of stored objects.
func (m *Memory) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}
