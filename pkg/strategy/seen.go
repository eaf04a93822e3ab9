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

package strategy

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// SeenSet remembers admitted object names. Implementations are safe for
// concurrent use.
type SeenSet interface {
	// Add records name and reports whether it was not already present.
	Add(name string) bool
	Contains(name string) bool
	Remove(name string)
	Len() int
	Reset()
}

type mapSeenSet struct {
	mu    sync.Mutex
	names map[string]struct{}
}

// NewSeenSet returns an unbounded seen-set. It grows with every admitted
// object for the life of the process.
func NewSeenSet() SeenSet {
	return &mapSeenSet{names: make(map[string]struct{})}
}

func (s *mapSeenSet) Add(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.names[name]; ok {
		return false
	}
	s.names[name] = struct{}{}
	return true
}

func (s *mapSeenSet) Contains(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.names[name]
	return ok
}

func (s *mapSeenSet) Remove(name string) {
	s.mu.Lock()
	delete(s.names, name)
	s.mu.Unlock()
}

func (s *mapSeenSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.names)
}

func (s *mapSeenSet) Reset() {
	s.mu.Lock()
	s.names = make(map[string]struct{})
	s.mu.Unlock()
}

type lruSeenSet struct {
	cache *lru.Cache[string, struct{}]
}

// NewLRUSeenSet returns a seen-set holding at most size names, evicting the
// least recently admitted. size must comfortably exceed the number of
// objects in the scanned windows, or evicted names are admitted again.
func NewLRUSeenSet(size int) (SeenSet, error) {
	cache, err := lru.New[string, struct{}](size)
	if err != nil {
		return nil, err
	}
	return &lruSeenSet{cache: cache}, nil
}

func (s *lruSeenSet) Add(name string) bool {
	found, _ := s.cache.ContainsOrAdd(name, struct{}{})
	return !found
}

func (s *lruSeenSet) Contains(name string) bool { return s.cache.Contains(name) }
func (s *lruSeenSet) Remove(name string)        { s.cache.Remove(name) }
func (s *lruSeenSet) Len() int                  { return s.cache.Len() }
func (s *lruSeenSet) Reset()                    { s.cache.Purge() }
