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
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/jeremyhahn/go-objpoller/pkg/common"
	"github.com/jeremyhahn/go-objpoller/pkg/emitter"
	"github.com/jeremyhahn/go-objpoller/pkg/watermark"
)

// midnight is the start of the scenarios used throughout the tests.
var midnight = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func at(minute, second int) time.Time {
	return midnight.Add(time.Duration(minute)*time.Minute + time.Duration(second)*time.Second)
}

// stubDirectory is an in-memory listing with failure injection.
type stubDirectory struct {
	mu      sync.Mutex
	objects map[string]time.Time
	reverse bool
	failOn  map[string]error
	walked  []string
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{objects: make(map[string]time.Time), failOn: make(map[string]error)}
}

func (d *stubDirectory) put(key string, lastModified time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.objects[key] = lastModified
}

func (d *stubDirectory) fail(prefix string, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err == nil {
		delete(d.failOn, prefix)
		return
	}
	d.failOn[prefix] = err
}

func (d *stubDirectory) prefixes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := append([]string(nil), d.walked...)
	d.walked = nil
	return out
}

func (d *stubDirectory) Walk(ctx context.Context, prefix string, fn func(common.ObjectInfo) error) error {
	d.mu.Lock()
	d.walked = append(d.walked, prefix)
	if err, ok := d.failOn[prefix]; ok {
		d.mu.Unlock()
		return err
	}
	var keys []string
	for k := range d.objects {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if d.reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(keys)))
	}
	infos := make([]common.ObjectInfo, 0, len(keys))
	for _, k := range keys {
		infos = append(infos, common.ObjectInfo{Key: k, Metadata: &common.Metadata{LastModified: d.objects[k], Size: 1}})
	}
	d.mu.Unlock()

	for _, info := range infos {
		if err := fn(info); err != nil {
			return err
		}
	}
	return nil
}

// fakeClock is a settable time source.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock { return &fakeClock{t: t} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

// recorder collects emitted events and can fail on a given object.
type recorder struct {
	mu     sync.Mutex
	events []emitter.Event
	failOn string
}

func (r *recorder) Emit(_ context.Context, e emitter.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn != "" && e.ObjectName == r.failOn {
		return errors.New("sink unavailable")
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.ObjectName
	}
	return out
}

func (r *recorder) reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}

func fixedWatermarks(t time.Time) *watermark.Store {
	return watermark.New(&watermark.Config{Initializer: watermark.Fixed(t)})
}

func recordNames(records []ObjectRecord) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.Name
	}
	return out
}
