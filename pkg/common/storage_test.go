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

package common_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jeremyhahn/go-objpoller/pkg/common"
)

// sliceDirectory serves a fixed listing filtered by prefix.
type sliceDirectory struct {
	objects []common.ObjectInfo
	calls   int
	err     error
}

func (d *sliceDirectory) Walk(ctx context.Context, prefix string, fn func(common.ObjectInfo) error) error {
	d.calls++
	if d.err != nil {
		return d.err
	}
	for _, obj := range d.objects {
		if !strings.HasPrefix(obj.Key, prefix) {
			continue
		}
		if err := fn(obj); err != nil {
			return err
		}
	}
	return nil
}

func TestWalkAll(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 1, 10, 0, time.UTC)
	dir := &sliceDirectory{objects: []common.ObjectInfo{
		{Key: "Orders/2024.01.01.00.01/a", Metadata: &common.Metadata{LastModified: ts, Size: 3}},
		{Key: "Orders/2024.01.01.00.02/b"},
		{Key: "Users/2024.01.01.00.01/c"},
	}}

	got, err := common.WalkAll(context.Background(), dir, "Orders/")
	if err != nil {
		t.Fatalf("WalkAll failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(got))
	}
	if !got[0].LastModified().Equal(ts) || got[0].Size() != 3 {
		t.Fatalf("unexpected metadata: %+v", got[0])
	}
	if !got[1].LastModified().IsZero() || got[1].Size() != 0 {
		t.Fatalf("missing metadata should report zero values")
	}
}

func TestWalkAllPropagatesError(t *testing.T) {
	boom := errors.New("unreachable")
	dir := &sliceDirectory{err: boom}
	if _, err := common.WalkAll(context.Background(), dir, "Orders/"); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

func TestCheckContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	if err := common.CheckContext(ctx); err != nil {
		t.Fatalf("live context reported %v", err)
	}
	cancel()
	if err := common.CheckContext(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRateLimitedDirectory(t *testing.T) {
	inner := &sliceDirectory{}
	if d := common.NewRateLimitedDirectory(inner, 0, 1); d != common.Directory(inner) {
		t.Fatalf("zero rate should return the wrapped directory")
	}

	limited := common.NewRateLimitedDirectory(inner, 1000, 2)
	for i := 0; i < 3; i++ {
		if err := limited.Walk(context.Background(), "Orders/", func(common.ObjectInfo) error { return nil }); err != nil {
			t.Fatalf("walk %d failed: %v", i, err)
		}
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 delegated calls, got %d", inner.calls)
	}
}

func TestRateLimitedDirectoryHonoursCancellation(t *testing.T) {
	inner := &sliceDirectory{}
	limited := common.NewRateLimitedDirectory(inner, 0.001, 1)

	// Drain the single burst token.
	if err := limited.Walk(context.Background(), "", func(common.ObjectInfo) error { return nil }); err != nil {
		t.Fatalf("first walk failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := limited.Walk(ctx, "", func(common.ObjectInfo) error { return nil }); err == nil {
		t.Fatalf("expected an error for a cancelled wait")
	}
	if inner.calls != 1 {
		t.Fatalf("cancelled walk must not reach the backend")
	}
}
