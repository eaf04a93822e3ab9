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

//go:build gcpstorage

package gcs

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/jeremyhahn/go-objpoller/pkg/common"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Small internal interfaces to enable unit tests without real GCS.
type gcsBucket interface {
	Create(ctx context.Context, projectID string) error
	NewWriter(ctx context.Context, name string) io.WriteCloser
	Objects(ctx context.Context, query *storage.Query) gcsIterator
}

type gcsIterator interface {
	Next() (*storage.ObjectAttrs, error)
}

type bucketWrapper struct{ *storage.BucketHandle }

// Function variables to enable unit testing without real network I/O.
var (
	gcsNewClient = func(ctx context.Context, opts ...option.ClientOption) (*storage.Client, error) {
		return storage.NewClient(ctx, opts...)
	}
	gcsCreateBucketFn = func(ctx context.Context, b *storage.BucketHandle, projectID string) error {
		return b.Create(ctx, projectID, nil)
	}
)

func (b bucketWrapper) Create(ctx context.Context, projectID string) error {
	return gcsCreateBucketFn(ctx, b.BucketHandle, projectID)
}

func (b bucketWrapper) NewWriter(ctx context.Context, name string) io.WriteCloser {
	return b.BucketHandle.Object(name).NewWriter(ctx)
}

func (b bucketWrapper) Objects(ctx context.Context, query *storage.Query) gcsIterator {
	return b.BucketHandle.Objects(ctx, query)
}

// listedAttrs limits listing responses to the fields the poller reads.
var listedAttrs = []string{"Name", "Updated", "Size", "Etag", "ContentType"}

// GCS is a storage backend that stores objects in one Google Cloud Storage bucket.
type GCS struct {
	bucket    gcsBucket
	name      string
	projectID string
}

var _ common.Storage = (*GCS)(nil)

// New creates a new GCS storage backend.
func New() common.Storage {
	return &GCS{}
}

// Configure sets up the backend with the necessary settings.
// Settings:
//   - bucket: Bucket name (required)
//   - project: Project used when creating the bucket (optional)
//   - endpoint: Custom endpoint, e.g. an emulator; disables authentication (optional)
func (g *GCS) Configure(settings map[string]string) error {
	g.name = settings["bucket"]
	if g.name == "" {
		return common.ErrBucketNotSet
	}
	g.projectID = settings["project"]
	if g.bucket != nil {
		return nil
	}

	var opts []option.ClientOption
	if ep := settings["endpoint"]; ep != "" {
		opts = append(opts, option.WithEndpoint(ep), option.WithoutAuthentication())
	}
	client, err := gcsNewClient(context.Background(), opts...)
	if err != nil {
		return err
	}
	g.bucket = bucketWrapper{client.Bucket(g.name)}
	return nil
}

// EnsureContainer creates the bucket, treating a 409 conflict as success.
func (g *GCS) EnsureContainer(ctx context.Context) error {
	if g.bucket == nil {
		return common.ErrNotConfigured
	}
	err := g.bucket.Create(ctx, g.projectID)
	var gerr *googleapi.Error
	if errors.As(err, &gerr) && gerr.Code == http.StatusConflict {
		return nil
	}
	return err
}

// PutWithContext uploads an object. The object becomes visible on Close.
func (g *GCS) PutWithContext(ctx context.Context, key string, data io.Reader) error {
	if g.bucket == nil {
		return common.ErrNotConfigured
	}
	if err := common.ValidateKey(key); err != nil {
		return err
	}
	w := g.bucket.NewWriter(ctx, key)
	if _, err := io.Copy(w, data); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func toObjectInfo(attrs *storage.ObjectAttrs) common.ObjectInfo {
	return common.ObjectInfo{
		Key: attrs.Name,
		Metadata: &common.Metadata{
			ContentType:  attrs.ContentType,
			Size:         attrs.Size,
			LastModified: attrs.Updated.UTC(),
			ETag:         attrs.Etag,
		},
	}
}

func (g *GCS) query(prefix, startAfter string) *storage.Query {
	q := &storage.Query{Prefix: prefix}
	if startAfter != "" {
		// StartOffset is inclusive; the NUL suffix makes it exclusive.
		q.StartOffset = startAfter + "\x00"
	}
	_ = q.SetAttrSelection(listedAttrs)
	return q
}

// Walk iterates the bucket listing under prefix.
func (g *GCS) Walk(ctx context.Context, prefix string, fn func(common.ObjectInfo) error) error {
	if g.bucket == nil {
		return common.ErrNotConfigured
	}
	it := g.bucket.Objects(ctx, g.query(prefix, ""))
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(toObjectInfo(attrs)); err != nil {
			return err
		}
	}
}

// ListWithOptions returns up to MaxResults objects after ContinueFrom. The
// continuation token is the last returned key.
func (g *GCS) ListWithOptions(ctx context.Context, opts *common.ListOptions) (*common.ListResult, error) {
	if g.bucket == nil {
		return nil, common.ErrNotConfigured
	}
	if opts == nil {
		opts = &common.ListOptions{}
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 1000
	}

	result := &common.ListResult{Objects: make([]*common.ObjectInfo, 0)}
	it := g.bucket.Objects(ctx, g.query(opts.Prefix, opts.ContinueFrom))
	for {
		attrs, err := it.Next()
		if errors.Is(err, iterator.Done) {
			return result, nil
		}
		if err != nil {
			return nil, err
		}
		if len(result.Objects) == maxResults {
			result.Truncated = true
			result.NextToken = result.Objects[maxResults-1].Key
			return result, nil
		}
		info := toObjectInfo(attrs)
		result.Objects = append(result.Objects, &info)
	}
}
