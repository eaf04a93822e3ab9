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

//go:build integration

package common

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jeremyhahn/go-objpoller/pkg/common"
	"github.com/jeremyhahn/go-objpoller/pkg/emitter"
	"github.com/jeremyhahn/go-objpoller/pkg/ingest"
	"github.com/jeremyhahn/go-objpoller/pkg/strategy"
	"github.com/jeremyhahn/go-objpoller/pkg/watermark"
)

// Getenv returns the environment variable or def when unset.
func Getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// RequireService skips the test when the endpoint's host is not reachable.
func RequireService(t *testing.T, endpoint string) {
	t.Helper()
	addr := endpoint
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		addr = u.Host
	}
	conn, err := net.DialTimeout("tcp", addr, 2*time.Second)
	if err != nil {
		t.Skipf("service at %s not reachable: %v", addr, err)
	}
	_ = conn.Close()
}

// UniqueEntity returns a name that does not collide across runs.
func UniqueEntity(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}

// PollingSuite writes records through the ingest writer and checks that
// every strategy admits each of them exactly once against a real backend.
type PollingSuite struct {
	Storage common.Storage
	T       *testing.T

	// Ahead is how far past the local clock the strategies run, absorbing
	// skew against the backend's clock. Defaults to two minutes.
	Ahead time.Duration
}

// RunAllTests executes the suite.
func (s *PollingSuite) RunAllTests() {
	if s.Ahead <= 0 {
		s.Ahead = 2 * time.Minute
	}
	s.T.Run("LastModifiedOptimized", func(t *testing.T) {
		s.run(t, func(dir common.Directory, opts []strategy.Option) (strategy.Strategy, error) {
			return strategy.NewLastModifiedOptimized(dir, strategy.DefaultLastModifiedOptimizedConfig(), opts...)
		})
	})
	s.T.Run("DelayedSlidingWindow", func(t *testing.T) {
		s.run(t, func(dir common.Directory, opts []strategy.Option) (strategy.Strategy, error) {
			return strategy.NewDelayedSlidingWindow(dir, strategy.DefaultDelayedSlidingWindowConfig(), opts...)
		})
	})
	s.T.Run("OnePlusNWindows", func(t *testing.T) {
		s.run(t, func(dir common.Directory, opts []strategy.Option) (strategy.Strategy, error) {
			cfg := strategy.DefaultOnePlusNWindowsConfig()
			cfg.TrailingWindows = 5
			return strategy.NewOnePlusNWindows(dir, cfg, opts...)
		})
	})
}

type buildFn func(common.Directory, []strategy.Option) (strategy.Strategy, error)

func (s *PollingSuite) run(t *testing.T, build buildFn) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	entity := UniqueEntity("orders")
	w, err := ingest.New(&ingest.Config{Storage: s.Storage})
	if err != nil {
		t.Fatal(err)
	}
	if err := w.CreateEntity(ctx, entity); err != nil {
		t.Fatalf("CreateEntity failed: %v", err)
	}

	want := make(map[string]bool)
	for i := 0; i < 3; i++ {
		key, err := w.Append(ctx, entity, []byte(fmt.Sprintf(`{"seq":%d}`, i)))
		if err != nil {
			t.Fatalf("Append %d failed: %v", i, err)
		}
		want[key] = true
	}

	var mu sync.Mutex
	got := make(map[string]int)
	sink := emitter.Func(func(_ context.Context, ev emitter.Event) error {
		mu.Lock()
		got[ev.ObjectName]++
		mu.Unlock()
		return nil
	})

	clock := func() time.Time { return time.Now().Add(s.Ahead) }
	st, err := build(s.Storage, []strategy.Option{
		strategy.WithClock(clock),
		strategy.WithEmitter(sink),
		strategy.WithWatermarks(watermark.New(&watermark.Config{
			Initializer: watermark.Lookback(time.Now, time.Hour),
		})),
	})
	if err != nil {
		t.Fatal(err)
	}

	for i := 0; i < 2; i++ {
		if _, err := st.CheckForUpdates(ctx, entity); err != nil {
			t.Fatalf("check %d failed: %v", i, err)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	for key := range want {
		if got[key] != 1 {
			t.Errorf("%s admitted %d times, want 1", key, got[key])
		}
	}
	for key := range got {
		if !strings.HasPrefix(key, entity+"/") {
			t.Errorf("admitted foreign object %s", key)
		}
	}
}
