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

package common

import (
	"context"
	"io"
)

// Directory is the read side of an object store as seen by the poller.
// Walk streams every object whose key starts with prefix, in key order, and
// stops at the first error returned by fn. A Directory must be re-listable:
// repeated calls observe objects written in between.
type Directory interface {
	Walk(ctx context.Context, prefix string, fn func(ObjectInfo) error) error
}

// Storage is the backend contract implemented by every object store
// integration. The poller only needs the Directory half; the write side is
// used by the ingest helpers and the push API.
type Storage interface {
	Directory

	// Configure sets up the backend with the necessary credentials and settings.
	Configure(settings map[string]string) error

	// EnsureContainer creates the backing container or bucket when it does
	// not exist yet. Calling it on an existing container is not an error.
	EnsureContainer(ctx context.Context) error

	// PutWithContext stores an object in the backend.
	PutWithContext(ctx context.Context, key string, data io.Reader) error

	// ListWithOptions returns a paginated list of objects with full metadata.
	ListWithOptions(ctx context.Context, opts *ListOptions) (*ListResult, error)
}

// WalkAll collects every object under prefix. Intended for small listings
// and tests; strategies stream through Walk instead.
func WalkAll(ctx context.Context, dir Directory, prefix string) ([]ObjectInfo, error) {
	var out []ObjectInfo
	err := dir.Walk(ctx, prefix, func(obj ObjectInfo) error {
		out = append(out, obj)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CheckContext returns ctx.Err() when the context is already cancelled.
func CheckContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
