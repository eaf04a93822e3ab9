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

package factory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jeremyhahn/go-objpoller/pkg/common"
)

func TestBuiltinBackendsRegistered(t *testing.T) {
	names := Backends()
	for _, want := range []string{"local", "memory"} {
		found := false
		for _, n := range names {
			if n == want {
				found = true
			}
		}
		if !found {
			t.Errorf("backend %q not registered: %v", want, names)
		}
	}
}

func TestMemory(t *testing.T) {
	storage, err := NewStorage("memory", nil)
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := storage.PutWithContext(ctx, "Orders/2024.01.01.00.01/a", strings.NewReader("x")); err != nil {
		t.Fatal(err)
	}
	objs, err := common.WalkAll(ctx, storage, "Orders/")
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 1 {
		t.Fatalf("expected 1 object, got %d", len(objs))
	}
}

func TestLocal(t *testing.T) {
	storage, err := NewStorage("local", map[string]string{"path": t.TempDir()})
	if err != nil {
		t.Fatal(err)
	}
	if err := storage.EnsureContainer(context.Background()); err != nil {
		t.Fatal(err)
	}
}

func TestLocal_Configure_NoPath(t *testing.T) {
	_, err := NewStorage("local", map[string]string{})
	if !errors.Is(err, common.ErrPathNotSet) {
		t.Fatalf("expected ErrPathNotSet, got %v", err)
	}
}

func TestUnknownBackend(t *testing.T) {
	_, err := NewStorage("tape", nil)
	if !errors.Is(err, ErrUnknownBackend) {
		t.Fatalf("expected ErrUnknownBackend, got %v", err)
	}
	if !strings.Contains(err.Error(), "memory") {
		t.Fatalf("error should list available backends: %v", err)
	}
}

func TestRegisterStorage(t *testing.T) {
	called := false
	RegisterStorage("test-only", func(map[string]string) (common.Storage, error) {
		called = true
		return nil, errors.New("not really")
	})
	t.Cleanup(func() {
		registryMu.Lock()
		delete(storageRegistry, "test-only")
		registryMu.Unlock()
	})
	if _, err := NewStorage("test-only", nil); err == nil || !called {
		t.Fatalf("registered creator not invoked")
	}
}
