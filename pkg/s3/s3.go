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

//go:build awss3

// Package s3 implements the storage backend on Amazon S3 and S3-compatible
// services using aws-sdk-go-v2.
package s3

import (
	"bytes"
	"context"
	"errors"
	"io"

	"github.com/jeremyhahn/go-objpoller/pkg/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// API is the subset of the S3 client used by the backend.
type API interface {
	s3.ListObjectsV2APIClient
	CreateBucket(ctx context.Context, params *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3 is a storage backend that stores objects in one S3 bucket.
type S3 struct {
	svc    API
	bucket string
	region string
}

var _ common.Storage = (*S3)(nil)

// New creates a new S3 storage backend.
func New() common.Storage {
	return &S3{}
}

// NewWithClient creates a backend around an existing client.
func NewWithClient(svc API, bucket, region string) *S3 {
	return &S3{svc: svc, bucket: bucket, region: region}
}

// Configure sets up the backend with the necessary settings.
// Settings:
//   - bucket: Bucket name (required)
//   - region: AWS region (optional, default from the environment)
//   - endpoint: Custom endpoint for S3-compatible services (optional, enables path-style)
//   - accessKey, secretKey: Static credentials (optional, default credential chain otherwise)
func (b *S3) Configure(settings map[string]string) error {
	b.bucket = settings["bucket"]
	if b.bucket == "" {
		return common.ErrBucketNotSet
	}
	b.region = settings["region"]

	ctx := context.TODO()
	var opts []func(*config.LoadOptions) error
	if b.region != "" {
		opts = append(opts, config.WithRegion(b.region))
	}
	accessKey, secretKey := settings["accessKey"], settings["secretKey"]
	if accessKey != "" || secretKey != "" {
		if accessKey == "" {
			return common.ErrAccessKeyNotSet
		}
		if secretKey == "" {
			return common.ErrSecretKeyNotSet
		}
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return err
	}
	if b.region == "" {
		b.region = cfg.Region
	}

	endpoint := settings["endpoint"]
	b.svc = s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	return nil
}

// EnsureContainer creates the bucket, treating an existing bucket owned by
// the caller as success.
func (b *S3) EnsureContainer(ctx context.Context) error {
	if b.svc == nil {
		return common.ErrNotConfigured
	}
	input := &s3.CreateBucketInput{Bucket: aws.String(b.bucket)}
	if b.region != "" && b.region != "us-east-1" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(b.region),
		}
	}
	_, err := b.svc.CreateBucket(ctx, input)
	var owned *types.BucketAlreadyOwnedByYou
	if err != nil && !errors.As(err, &owned) {
		return err
	}
	return nil
}

// PutWithContext uploads an object. The body is buffered so the SDK can
// compute checksums over a seekable reader.
func (b *S3) PutWithContext(ctx context.Context, key string, data io.Reader) error {
	if b.svc == nil {
		return common.ErrNotConfigured
	}
	if err := common.ValidateKey(key); err != nil {
		return err
	}
	body, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	_, err = b.svc.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	return err
}

// GetWithContext downloads an object.
func (b *S3) GetWithContext(ctx context.Context, key string) (io.ReadCloser, error) {
	if b.svc == nil {
		return nil, common.ErrNotConfigured
	}
	out, err := b.svc.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return nil, common.ErrKeyNotFound
	}
	if err != nil {
		return nil, err
	}
	return out.Body, nil
}

func toObjectInfo(obj types.Object) common.ObjectInfo {
	return common.ObjectInfo{
		Key: aws.ToString(obj.Key),
		Metadata: &common.Metadata{
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified).UTC(),
			ETag:         aws.ToString(obj.ETag),
		},
	}
}

// Walk pages through ListObjectsV2 under prefix.
func (b *S3) Walk(ctx context.Context, prefix string, fn func(common.ObjectInfo) error) error {
	if b.svc == nil {
		return common.ErrNotConfigured
	}
	p := s3.NewListObjectsV2Paginator(b.svc, &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return err
		}
		for _, obj := range page.Contents {
			if err := fn(toObjectInfo(obj)); err != nil {
				return err
			}
		}
	}
	return nil
}

// ListWithOptions returns one ListObjectsV2 page. The continuation token is
// the service token.
func (b *S3) ListWithOptions(ctx context.Context, opts *common.ListOptions) (*common.ListResult, error) {
	if b.svc == nil {
		return nil, common.ErrNotConfigured
	}
	if opts == nil {
		opts = &common.ListOptions{}
	}
	input := &s3.ListObjectsV2Input{
		Bucket: aws.String(b.bucket),
		Prefix: aws.String(opts.Prefix),
	}
	if opts.MaxResults > 0 {
		input.MaxKeys = aws.Int32(int32(min(opts.MaxResults, 1000)))
	}
	if opts.ContinueFrom != "" {
		input.ContinuationToken = aws.String(opts.ContinueFrom)
	}
	out, err := b.svc.ListObjectsV2(ctx, input)
	if err != nil {
		return nil, err
	}
	result := &common.ListResult{
		Objects:   make([]*common.ObjectInfo, 0, len(out.Contents)),
		Truncated: aws.ToBool(out.IsTruncated),
		NextToken: aws.ToString(out.NextContinuationToken),
	}
	for _, obj := range out.Contents {
		info := toObjectInfo(obj)
		result.Objects = append(result.Objects, &info)
	}
	return result, nil
}
