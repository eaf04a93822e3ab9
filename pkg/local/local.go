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

// Package local stores objects as files under a root directory. An object's
// last-modified time is the file's modification time.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
	"github.com/jeremyhahn/go-objpoller/pkg/common"
)

// tempSuffix marks files that are still being written. Walk skips them so a
// reader never observes a partial object.
const tempSuffix = ".partial"

// Local is a storage backend that stores files on the local disk.
type Local struct {
	path   string
	logger adapters.Logger
}

var _ common.Storage = (*Local)(nil)

// New creates a new Local storage backend.
func New() common.Storage {
	return &Local{logger: adapters.NewNoOpLogger()}
}

// Configure sets up the backend with the necessary settings.
// Settings:
//   - path: The directory path for local storage (required)
func (l *Local) Configure(settings map[string]string) error {
	l.path = settings["path"]
	if l.path == "" {
		return common.ErrPathNotSet
	}
	if l.logger == nil {
		l.logger = adapters.NewNoOpLogger()
	}
	return nil
}

// SetLogger sets the logger used for write and listing diagnostics.
func (l *Local) SetLogger(logger adapters.Logger) {
	if logger != nil {
		l.logger = logger
	}
}

// GetPath returns the root directory.
func (l *Local) GetPath() string {
	return l.path
}

// EnsureContainer creates the root directory if needed.
func (l *Local) EnsureContainer(ctx context.Context) error {
	if l.path == "" {
		return common.ErrNotConfigured
	}
	if err := common.CheckContext(ctx); err != nil {
		return err
	}
	return os.MkdirAll(l.path, 0750)
}

// PutWithContext writes the object to a temporary file and renames it into
// place, so listings see either the whole object or nothing.
func (l *Local) PutWithContext(ctx context.Context, key string, data io.Reader) error {
	if l.path == "" {
		return common.ErrNotConfigured
	}
	if err := common.ValidateKey(key); err != nil {
		return err
	}
	if err := common.CheckContext(ctx); err != nil {
		return err
	}

	dest := filepath.Join(l.path, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(dest), 0750); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dest), filepath.Base(dest)+".*"+tempSuffix)
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	size, err := io.Copy(tmp, data)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	l.logger.Debug(ctx, "object written",
		adapters.Field{Key: "key", Value: key},
		adapters.Field{Key: "size", Value: size},
	)
	return nil
}

// PutAt writes the object and sets its modification time to lastModified.
func (l *Local) PutAt(ctx context.Context, key string, data io.Reader, lastModified time.Time) error {
	if err := l.PutWithContext(ctx, key, data); err != nil {
		return err
	}
	dest := filepath.Join(l.path, filepath.FromSlash(key))
	return os.Chtimes(dest, lastModified, lastModified)
}

// GetWithContext opens an object for reading.
func (l *Local) GetWithContext(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := common.ValidateKey(key); err != nil {
		return nil, err
	}
	if err := common.CheckContext(ctx); err != nil {
		return nil, err
	}
	f, err := os.Open(filepath.Join(l.path, filepath.FromSlash(key))) // #nosec G304 -- key is validated
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", common.ErrKeyNotFound, key)
	}
	return f, err
}

// walkRoot returns the deepest directory that can contain keys with prefix.
func (l *Local) walkRoot(prefix string) string {
	dir := prefix
	if i := strings.LastIndex(dir, "/"); i >= 0 {
		dir = dir[:i]
	} else {
		dir = ""
	}
	return filepath.Join(l.path, filepath.FromSlash(dir))
}

// Walk visits files whose slash-separated relative path starts with prefix,
// in lexical order. A prefix whose directory does not exist yields nothing.
func (l *Local) Walk(ctx context.Context, prefix string, fn func(common.ObjectInfo) error) error {
	if l.path == "" {
		return common.ErrNotConfigured
	}
	if prefix != "" {
		if err := common.ValidateKey(prefix); err != nil {
			return err
		}
	}
	if err := common.CheckContext(ctx); err != nil {
		return err
	}

	root := l.walkRoot(prefix)
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// Files can disappear between readdir and stat.
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.IsDir() || strings.HasSuffix(p, tempSuffix) {
			return nil
		}
		rel, err := filepath.Rel(l.path, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		} else if err != nil {
			return err
		}
		return fn(common.ObjectInfo{
			Key: key,
			Metadata: &common.Metadata{
				Size:         info.Size(),
				LastModified: info.ModTime().UTC(),
				ETag:         fmt.Sprintf("%d-%d", info.ModTime().UnixNano(), info.Size()),
			},
		})
	})
}

// ListWithOptions returns a paginated list of objects with full metadata.
func (l *Local) ListWithOptions(ctx context.Context, opts *common.ListOptions) (*common.ListResult, error) {
	if opts == nil {
		opts = &common.ListOptions{}
	}
	all, err := common.WalkAll(ctx, l, opts.Prefix)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Key < all[j].Key })

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

	l.logger.Debug(ctx, "list",
		adapters.Field{Key: "prefix", Value: opts.Prefix},
		adapters.Field{Key: "objects", Value: len(result.Objects)},
	)
	return result, nil
}
