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

//go:build minio

// Package minio implements the storage backend on MinIO with the native
// minio-go client.
package minio

import (
	"context"
	"io"
	"net/url"
	"strings"

	"github.com/jeremyhahn/go-objpoller/pkg/common"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// API is the subset of *minio.Client used by the backend.
type API interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
}

var _ API = (*minio.Client)(nil)

// MinIO is a storage backend that stores objects in one MinIO bucket.
type MinIO struct {
	client API
	bucket string
	region string
}

var _ common.Storage = (*MinIO)(nil)

// New creates a new MinIO storage backend.
func New() common.Storage {
	return &MinIO{}
}

// NewWithClient creates a backend around an existing client.
func NewWithClient(client API, bucket, region string) *MinIO {
	return &MinIO{client: client, bucket: bucket, region: region}
}

// Configure sets up the backend with the necessary settings.
// Required settings:
//   - bucket: the MinIO bucket name
//   - endpoint: MinIO server endpoint (e.g., "http://localhost:9000")
//   - accessKey: MinIO access key
//   - secretKey: MinIO secret key
//
// Optional settings:
//   - region: region (defaults to "us-east-1")
func (m *MinIO) Configure(settings map[string]string) error {
	m.bucket = settings["bucket"]
	if m.bucket == "" {
		return common.ErrBucketNotSet
	}
	endpoint := settings["endpoint"]
	if endpoint == "" {
		return common.ErrEndpointNotSet
	}
	accessKey := settings["accessKey"]
	if accessKey == "" {
		return common.ErrAccessKeyNotSet
	}
	secretKey := settings["secretKey"]
	if secretKey == "" {
		return common.ErrSecretKeyNotSet
	}
	m.region = settings["region"]
	if m.region == "" {
		m.region = "us-east-1"
	}

	host, secure, err := splitEndpoint(endpoint)
	if err != nil {
		return err
	}
	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: secure,
		Region: m.region,
	})
	if err != nil {
		return err
	}
	m.client = client
	return nil
}

// splitEndpoint turns "http://host:9000" into ("host:9000", false). A bare
// host defaults to TLS.
func splitEndpoint(endpoint string) (string, bool, error) {
	if !strings.Contains(endpoint, "://") {
		return endpoint, true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}
	if u.Host == "" {
		return "", false, common.ErrEndpointNotSet
	}
	return u.Host, u.Scheme == "https", nil
}

// EnsureContainer creates the bucket unless it already exists.
func (m *MinIO) EnsureContainer(ctx context.Context) error {
	if m.client == nil {
		return common.ErrNotConfigured
	}
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	return m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{Region: m.region})
}

// PutWithContext streams an object of unknown size.
func (m *MinIO) PutWithContext(ctx context.Context, key string, data io.Reader) error {
	if m.client == nil {
		return common.ErrNotConfigured
	}
	if err := common.ValidateKey(key); err != nil {
		return err
	}
	_, err := m.client.PutObject(ctx, m.bucket, key, data, -1, minio.PutObjectOptions{})
	return err
}

func toObjectInfo(obj minio.ObjectInfo) common.ObjectInfo {
	return common.ObjectInfo{
		Key: obj.Key,
		Metadata: &common.Metadata{
			ContentType:  obj.ContentType,
			Size:         obj.Size,
			LastModified: obj.LastModified.UTC(),
			ETag:         obj.ETag,
		},
	}
}

// Walk consumes the recursive listing channel. Returning early cancels the
// listing goroutine.
func (m *MinIO) Walk(ctx context.Context, prefix string, fn func(common.ObjectInfo) error) error {
	if m.client == nil {
		return common.ErrNotConfigured
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for obj := range m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return obj.Err
		}
		if err := fn(toObjectInfo(obj)); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// ListWithOptions returns up to MaxResults objects after ContinueFrom. The
// continuation token is the last returned key.
func (m *MinIO) ListWithOptions(ctx context.Context, opts *common.ListOptions) (*common.ListResult, error) {
	if m.client == nil {
		return nil, common.ErrNotConfigured
	}
	if opts == nil {
		opts = &common.ListOptions{}
	}
	maxResults := opts.MaxResults
	if maxResults <= 0 {
		maxResults = 1000
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	result := &common.ListResult{Objects: make([]*common.ObjectInfo, 0)}
	listing := m.client.ListObjects(ctx, m.bucket, minio.ListObjectsOptions{
		Prefix:     opts.Prefix,
		Recursive:  true,
		StartAfter: opts.ContinueFrom,
	})
	for obj := range listing {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if len(result.Objects) == maxResults {
			result.Truncated = true
			result.NextToken = result.Objects[maxResults-1].Key
			break
		}
		info := toObjectInfo(obj)
		result.Objects = append(result.Objects, &info)
	}
	return result, nil
}
