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

//go:build azureblob

package azure

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/jeremyhahn/go-objpoller/pkg/common"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// memContainer pages its listing pageSize blobs at a time.
type memContainer struct {
	blobs     map[string][]byte
	modified  map[string]time.Time
	pageSize  int
	created   int
	createErr error
	listErr   error
	listCalls int
}

func newMemContainer() *memContainer {
	return &memContainer{blobs: map[string][]byte{}, modified: map[string]time.Time{}, pageSize: 2}
}

func (c *memContainer) Create(context.Context) error {
	c.created++
	return c.createErr
}

func (c *memContainer) Upload(_ context.Context, name string, r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	c.blobs[name] = b
	if _, ok := c.modified[name]; !ok {
		c.modified[name] = time.Date(2024, 1, 1, 0, 1, 0, 0, time.UTC)
	}
	return nil
}

func (c *memContainer) Download(_ context.Context, name string) (io.ReadCloser, error) {
	b, ok := c.blobs[name]
	if !ok {
		return nil, common.ErrKeyNotFound
	}
	return io.NopCloser(bytes.NewReader(b)), nil
}

func (c *memContainer) ListSegment(_ context.Context, prefix, marker string, maxResults int32) ([]common.ObjectInfo, string, error) {
	c.listCalls++
	if c.listErr != nil {
		return nil, "", c.listErr
	}
	var names []string
	for name := range c.blobs {
		if strings.HasPrefix(name, prefix) && name > marker {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	size := c.pageSize
	if maxResults > 0 {
		size = int(maxResults)
	}
	next := ""
	if len(names) > size {
		names = names[:size]
		next = names[size-1]
	}
	out := make([]common.ObjectInfo, len(names))
	for i, name := range names {
		out[i] = common.ObjectInfo{Key: name, Metadata: &common.Metadata{
			LastModified: c.modified[name],
			Size:         int64(len(c.blobs[name])),
		}}
	}
	return out, next, nil
}

func newTestAzure(t *testing.T, c *memContainer) *Azure {
	t.Helper()
	a := &Azure{TestContainer: c}
	if err := a.Configure(nil); err != nil {
		t.Fatalf("Configure failed: %v", err)
	}
	return a
}

func TestConfigureRequiresAccount(t *testing.T) {
	a := New()
	if err := a.Configure(map[string]string{"accountName": "acct"}); !errors.Is(err, common.ErrAccountNotSet) {
		t.Fatalf("expected ErrAccountNotSet, got %v", err)
	}
}

func TestUnconfigured(t *testing.T) {
	a := &Azure{}
	ctx := context.Background()
	if err := a.EnsureContainer(ctx); !errors.Is(err, common.ErrNotConfigured) {
		t.Fatalf("EnsureContainer: %v", err)
	}
	if err := a.Walk(ctx, "", func(common.ObjectInfo) error { return nil }); !errors.Is(err, common.ErrNotConfigured) {
		t.Fatalf("Walk: %v", err)
	}
	if err := a.PutWithContext(ctx, "k", strings.NewReader("x")); !errors.Is(err, common.ErrNotConfigured) {
		t.Fatalf("Put: %v", err)
	}
}

func TestEnsureContainer(t *testing.T) {
	c := newMemContainer()
	a := newTestAzure(t, c)
	if err := a.EnsureContainer(context.Background()); err != nil {
		t.Fatalf("EnsureContainer: %v", err)
	}
	if c.created != 1 {
		t.Fatalf("expected one create call, got %d", c.created)
	}

	boom := errors.New("forbidden")
	c.createErr = boom
	if err := a.EnsureContainer(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

func TestPutAndGet(t *testing.T) {
	a := newTestAzure(t, newMemContainer())
	ctx := context.Background()
	if err := a.PutWithContext(ctx, "Orders/2024.01.01.00.01/a", strings.NewReader("row")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	rc, err := a.GetWithContext(ctx, "Orders/2024.01.01.00.01/a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "row" {
		t.Fatalf("got %q", b)
	}

	if err := a.PutWithContext(ctx, "../x", strings.NewReader("x")); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestWalkFollowsMarkers(t *testing.T) {
	c := newMemContainer()
	a := newTestAzure(t, c)
	ctx := context.Background()
	for _, k := range []string{"Orders/p/a", "Orders/p/b", "Orders/p/c", "Orders/p/d", "Orders/p/e", "Users/p/f"} {
		if err := a.PutWithContext(ctx, k, strings.NewReader("x")); err != nil {
			t.Fatal(err)
		}
	}

	objs, err := common.WalkAll(ctx, a, "Orders/p/")
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(objs) != 5 {
		t.Fatalf("expected 5 objects, got %d", len(objs))
	}
	if c.listCalls != 3 {
		t.Fatalf("expected 3 pages, got %d", c.listCalls)
	}
	if objs[0].LastModified().IsZero() {
		t.Fatalf("last modified not propagated")
	}
}

func TestWalkPropagatesListError(t *testing.T) {
	c := newMemContainer()
	c.listErr = errors.New("503")
	a := newTestAzure(t, c)
	if err := a.Walk(context.Background(), "Orders/", func(common.ObjectInfo) error { return nil }); !errors.Is(err, c.listErr) {
		t.Fatalf("expected list error, got %v", err)
	}
}

func TestListWithOptions(t *testing.T) {
	c := newMemContainer()
	a := newTestAzure(t, c)
	ctx := context.Background()
	for _, k := range []string{"Orders/p/a", "Orders/p/b", "Orders/p/c"} {
		_ = a.PutWithContext(ctx, k, strings.NewReader("x"))
	}
	page, err := a.ListWithOptions(ctx, &common.ListOptions{Prefix: "Orders/", MaxResults: 1})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Objects) != 1 || !page.Truncated || page.NextToken != "Orders/p/a" {
		t.Fatalf("unexpected page: %+v", page)
	}
	if _, err := a.ListWithOptions(ctx, &common.ListOptions{MaxResults: -1}); err == nil {
		t.Fatalf("expected error for negative max results")
	}
}

func TestToObjectInfo(t *testing.T) {
	size := int64(42)
	ctype := "application/json"
	ts := time.Date(2024, 1, 1, 0, 1, 10, 0, time.UTC)
	info := toObjectInfo(azblob.BlobItemInternal{
		Name: "Orders/2024.01.01.00.01/a",
		Properties: azblob.BlobPropertiesInternal{
			LastModified:  ts,
			Etag:          azblob.ETag("0x1"),
			ContentLength: &size,
			ContentType:   &ctype,
		},
	})
	if info.Key != "Orders/2024.01.01.00.01/a" || info.Size() != 42 || !info.LastModified().Equal(ts) {
		t.Fatalf("unexpected info: %+v", info)
	}
	if info.Metadata.ContentType != ctype || info.Metadata.ETag != "0x1" {
		t.Fatalf("unexpected metadata: %+v", info.Metadata)
	}
}
