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
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/url"

	"github.com/jeremyhahn/go-objpoller/pkg/common"

	"github.com/Azure/azure-storage-blob-go/azblob"
)

// ContainerAPI is the subset of container operations the backend needs.
// Small enough to fake without network access.
type ContainerAPI interface {
	Create(ctx context.Context) error
	Upload(ctx context.Context, name string, r io.Reader) error
	Download(ctx context.Context, name string) (io.ReadCloser, error)
	// ListSegment returns one page of at most maxResults blobs (0 for the service
	// default) under prefix starting at marker, and the next marker ("" when done).
	ListSegment(ctx context.Context, prefix, marker string, maxResults int32) ([]common.ObjectInfo, string, error)
}

type containerWrapper struct{ azblob.ContainerURL }

// Function variables to enable unit testing without real network I/O.
var (
	azureCreateFn = func(ctx context.Context, c azblob.ContainerURL) error {
		_, err := c.Create(ctx, azblob.Metadata{}, azblob.PublicAccessNone)
		return err
	}
	azureUploadFn = func(ctx context.Context, r io.Reader, b azblob.BlockBlobURL) error {
		_, err := azblob.UploadStreamToBlockBlob(ctx, r, b, azblob.UploadStreamToBlockBlobOptions{})
		return err
	}
	azureDownloadFn = func(ctx context.Context, b azblob.BlockBlobURL) (io.ReadCloser, error) {
		resp, err := b.Download(ctx, 0, azblob.CountToEnd, azblob.BlobAccessConditions{}, false, azblob.ClientProvidedKeyOptions{})
		if err != nil {
			return nil, err
		}
		return resp.Body(azblob.RetryReaderOptions{}), nil
	}
	azureListFn = func(ctx context.Context, c azblob.ContainerURL, prefix, marker string, maxResults int32) ([]common.ObjectInfo, string, error) {
		m := azblob.Marker{}
		if marker != "" {
			m.Val = &marker
		}
		resp, err := c.ListBlobsFlatSegment(ctx, m, azblob.ListBlobsSegmentOptions{Prefix: prefix, MaxResults: maxResults})
		if err != nil {
			return nil, "", err
		}
		objects := make([]common.ObjectInfo, 0, len(resp.Segment.BlobItems))
		for _, blob := range resp.Segment.BlobItems {
			objects = append(objects, toObjectInfo(blob))
		}
		next := ""
		if resp.NextMarker.NotDone() {
			next = *resp.NextMarker.Val
		}
		return objects, next, nil
	}
)

func toObjectInfo(blob azblob.BlobItemInternal) common.ObjectInfo {
	md := &common.Metadata{
		LastModified: blob.Properties.LastModified.UTC(),
		ETag:         string(blob.Properties.Etag),
	}
	if blob.Properties.ContentLength != nil {
		md.Size = *blob.Properties.ContentLength
	}
	if blob.Properties.ContentType != nil {
		md.ContentType = *blob.Properties.ContentType
	}
	return common.ObjectInfo{Key: blob.Name, Metadata: md}
}

func (c containerWrapper) Create(ctx context.Context) error {
	return azureCreateFn(ctx, c.ContainerURL)
}

func (c containerWrapper) Upload(ctx context.Context, name string, r io.Reader) error {
	return azureUploadFn(ctx, r, c.ContainerURL.NewBlockBlobURL(name))
}

func (c containerWrapper) Download(ctx context.Context, name string) (io.ReadCloser, error) {
	return azureDownloadFn(ctx, c.ContainerURL.NewBlockBlobURL(name))
}

func (c containerWrapper) ListSegment(ctx context.Context, prefix, marker string, maxResults int32) ([]common.ObjectInfo, string, error) {
	return azureListFn(ctx, c.ContainerURL, prefix, marker, maxResults)
}

// isAlreadyExists reports whether err is the service's container-exists reply.
func isAlreadyExists(err error) bool {
	var serr azblob.StorageError
	if errors.As(err, &serr) {
		return serr.ServiceCode() == azblob.ServiceCodeContainerAlreadyExists
	}
	return false
}

// Azure is a storage backend that stores objects in Azure Blob Storage. Every
// entity shares one container; entity names are the first key segment.
type Azure struct {
	container ContainerAPI
	// For testing purposes, allow injecting a fake container.
	TestContainer ContainerAPI
}

var _ common.Storage = (*Azure)(nil)

// New creates a new Azure storage backend.
func New() common.Storage {
	return &Azure{}
}

// Configure sets up the backend with the necessary settings.
// Required settings:
//   - accountName: Azure storage account name
//   - accountKey: Azure storage account key
//   - containerName: Azure blob container name
//
// Optional settings:
//   - endpoint: Custom endpoint URL (for Azurite, etc.)
func (a *Azure) Configure(settings map[string]string) error {
	if a.TestContainer != nil {
		a.container = a.TestContainer
		return nil
	}

	accountName := settings["accountName"]
	accountKey := settings["accountKey"]
	containerName := settings["containerName"]

	if accountName == "" || accountKey == "" || containerName == "" {
		return common.ErrAccountNotSet
	}

	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return err
	}
	p := azblob.NewPipeline(credential, azblob.PipelineOptions{})

	var u *url.URL
	if ep := settings["endpoint"]; ep != "" {
		u, err = url.Parse(fmt.Sprintf("%s/%s", ep, containerName))
	} else {
		u, err = url.Parse(fmt.Sprintf("https://%s.blob.core.windows.net/%s", accountName, containerName))
	}
	if err != nil {
		return err
	}

	a.container = containerWrapper{azblob.NewContainerURL(*u, p)}
	return nil
}

// EnsureContainer creates the container, treating "already exists" as success.
func (a *Azure) EnsureContainer(ctx context.Context) error {
	if a.container == nil {
		return common.ErrNotConfigured
	}
	if err := a.container.Create(ctx); err != nil && !isAlreadyExists(err) {
		return err
	}
	return nil
}

// PutWithContext uploads an object as a block blob.
func (a *Azure) PutWithContext(ctx context.Context, key string, data io.Reader) error {
	if a.container == nil {
		return common.ErrNotConfigured
	}
	if err := common.ValidateKey(key); err != nil {
		return err
	}
	return a.container.Upload(ctx, key, data)
}

// GetWithContext downloads an object.
func (a *Azure) GetWithContext(ctx context.Context, key string) (io.ReadCloser, error) {
	if a.container == nil {
		return nil, common.ErrNotConfigured
	}
	return a.container.Download(ctx, key)
}

// Walk pages through the flat blob listing under prefix.
func (a *Azure) Walk(ctx context.Context, prefix string, fn func(common.ObjectInfo) error) error {
	if a.container == nil {
		return common.ErrNotConfigured
	}
	marker := ""
	for {
		if err := common.CheckContext(ctx); err != nil {
			return err
		}
		objects, next, err := a.container.ListSegment(ctx, prefix, marker, 0)
		if err != nil {
			return err
		}
		for _, obj := range objects {
			if err := fn(obj); err != nil {
				return err
			}
		}
		if next == "" {
			return nil
		}
		marker = next
	}
}

// ListWithOptions returns one page of the listing. The continuation token is
// the service marker.
func (a *Azure) ListWithOptions(ctx context.Context, opts *common.ListOptions) (*common.ListResult, error) {
	if a.container == nil {
		return nil, common.ErrNotConfigured
	}
	if opts == nil {
		opts = &common.ListOptions{}
	}
	if opts.MaxResults < 0 || opts.MaxResults > math.MaxInt32 {
		return nil, fmt.Errorf("invalid max results %d", opts.MaxResults)
	}
	objects, next, err := a.container.ListSegment(ctx, opts.Prefix, opts.ContinueFrom, int32(opts.MaxResults))
	if err != nil {
		return nil, err
	}
	result := &common.ListResult{
		Objects:   make([]*common.ObjectInfo, len(objects)),
		NextToken: next,
		Truncated: next != "",
	}
	for i := range objects {
		result.Objects[i] = &objects[i]
	}
	return result, nil
}
