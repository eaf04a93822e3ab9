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

package s3

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/jeremyhahn/go-objpoller/pkg/common"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type mockS3Client struct {
	pages       []*s3.ListObjectsV2Output
	listCalls   int
	listErr     error
	listInputs  []*s3.ListObjectsV2Input
	createErr   error
	createInput *s3.CreateBucketInput
	putErr      error
	putKeys     []string
	putBodies   []string
	getErr      error
	getBody     string
}

func (m *mockS3Client) ListObjectsV2(_ context.Context, in *s3.ListObjectsV2Input, _ ...func(*s3.Options)) (*s3.ListObjectsV2Output, error) {
	m.listInputs = append(m.listInputs, in)
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := m.pages[m.listCalls]
	m.listCalls++
	return out, nil
}

func (m *mockS3Client) CreateBucket(_ context.Context, in *s3.CreateBucketInput, _ ...func(*s3.Options)) (*s3.CreateBucketOutput, error) {
	m.createInput = in
	if m.createErr != nil {
		return nil, m.createErr
	}
	return &s3.CreateBucketOutput{}, nil
}

func (m *mockS3Client) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if m.putErr != nil {
		return nil, m.putErr
	}
	b, _ := io.ReadAll(in.Body)
	m.putKeys = append(m.putKeys, aws.ToString(in.Key))
	m.putBodies = append(m.putBodies, string(b))
	return &s3.PutObjectOutput{}, nil
}

func (m *mockS3Client) GetObject(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(m.getBody))}, nil
}

func object(key string, lm time.Time, size int64) types.Object {
	return types.Object{Key: aws.String(key), LastModified: aws.Time(lm), Size: aws.Int64(size), ETag: aws.String(`"e"`)}
}

func TestConfigureRequiresBucket(t *testing.T) {
	if err := New().Configure(map[string]string{}); !errors.Is(err, common.ErrBucketNotSet) {
		t.Fatalf("expected ErrBucketNotSet, got %v", err)
	}
}

func TestConfigureRequiresBothKeys(t *testing.T) {
	err := New().Configure(map[string]string{"bucket": "b", "region": "us-east-1", "accessKey": "AK"})
	if !errors.Is(err, common.ErrSecretKeyNotSet) {
		t.Fatalf("expected ErrSecretKeyNotSet, got %v", err)
	}
	err = New().Configure(map[string]string{"bucket": "b", "region": "us-east-1", "secretKey": "SK"})
	if !errors.Is(err, common.ErrAccessKeyNotSet) {
		t.Fatalf("expected ErrAccessKeyNotSet, got %v", err)
	}
}

func TestUnconfigured(t *testing.T) {
	b := &S3{}
	if err := b.Walk(context.Background(), "", func(common.ObjectInfo) error { return nil }); !errors.Is(err, common.ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestEnsureContainer(t *testing.T) {
	m := &mockS3Client{}
	b := NewWithClient(m, "events", "eu-west-1")
	if err := b.EnsureContainer(context.Background()); err != nil {
		t.Fatalf("EnsureContainer: %v", err)
	}
	if m.createInput.CreateBucketConfiguration == nil ||
		m.createInput.CreateBucketConfiguration.LocationConstraint != types.BucketLocationConstraint("eu-west-1") {
		t.Fatalf("location constraint not set: %+v", m.createInput)
	}

	m.createErr = &types.BucketAlreadyOwnedByYou{}
	if err := b.EnsureContainer(context.Background()); err != nil {
		t.Fatalf("existing bucket should be success, got %v", err)
	}

	m.createErr = &types.BucketAlreadyExists{}
	if err := b.EnsureContainer(context.Background()); err == nil {
		t.Fatalf("bucket owned by someone else should fail")
	}
}

func TestEnsureContainerUSEast1(t *testing.T) {
	m := &mockS3Client{}
	b := NewWithClient(m, "events", "us-east-1")
	if err := b.EnsureContainer(context.Background()); err != nil {
		t.Fatal(err)
	}
	if m.createInput.CreateBucketConfiguration != nil {
		t.Fatalf("us-east-1 must not send a location constraint")
	}
}

func TestPutAndGet(t *testing.T) {
	m := &mockS3Client{getBody: "row"}
	b := NewWithClient(m, "events", "us-east-1")
	ctx := context.Background()
	if err := b.PutWithContext(ctx, "Orders/2024.01.01.00.01/a", strings.NewReader("row")); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if len(m.putKeys) != 1 || m.putKeys[0] != "Orders/2024.01.01.00.01/a" || m.putBodies[0] != "row" {
		t.Fatalf("unexpected put: %v %v", m.putKeys, m.putBodies)
	}
	if err := b.PutWithContext(ctx, "", strings.NewReader("row")); err == nil {
		t.Fatalf("expected validation error for empty key")
	}

	rc, err := b.GetWithContext(ctx, "Orders/2024.01.01.00.01/a")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	data, _ := io.ReadAll(rc)
	if string(data) != "row" {
		t.Fatalf("got %q", data)
	}

	m.getErr = &types.NoSuchKey{}
	if _, err := b.GetWithContext(ctx, "missing"); !errors.Is(err, common.ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestWalkFollowsPages(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 1, 10, 0, time.UTC)
	m := &mockS3Client{pages: []*s3.ListObjectsV2Output{
		{
			Contents:              []types.Object{object("Orders/p/a", ts, 1), object("Orders/p/b", ts, 2)},
			IsTruncated:           aws.Bool(true),
			NextContinuationToken: aws.String("t1"),
		},
		{
			Contents:    []types.Object{object("Orders/p/c", ts, 3)},
			IsTruncated: aws.Bool(false),
		},
	}}
	b := NewWithClient(m, "events", "us-east-1")

	objs, err := common.WalkAll(context.Background(), b, "Orders/p/")
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(objs) != 3 || m.listCalls != 2 {
		t.Fatalf("expected 3 objects over 2 pages, got %d over %d", len(objs), m.listCalls)
	}
	if !objs[2].LastModified().Equal(ts) || objs[2].Size() != 3 {
		t.Fatalf("metadata not mapped: %+v", objs[2].Metadata)
	}
	if aws.ToString(m.listInputs[1].ContinuationToken) != "t1" {
		t.Fatalf("continuation token not forwarded")
	}
	if aws.ToString(m.listInputs[0].Prefix) != "Orders/p/" {
		t.Fatalf("prefix not forwarded")
	}
}

func TestWalkPropagatesError(t *testing.T) {
	boom := errors.New("access denied")
	b := NewWithClient(&mockS3Client{listErr: boom}, "events", "us-east-1")
	if err := b.Walk(context.Background(), "Orders/", func(common.ObjectInfo) error { return nil }); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

func TestListWithOptions(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 1, 10, 0, time.UTC)
	m := &mockS3Client{pages: []*s3.ListObjectsV2Output{{
		Contents:              []types.Object{object("Orders/p/a", ts, 1)},
		IsTruncated:           aws.Bool(true),
		NextContinuationToken: aws.String("next"),
	}}}
	b := NewWithClient(m, "events", "us-east-1")
	res, err := b.ListWithOptions(context.Background(), &common.ListOptions{Prefix: "Orders/", MaxResults: 5000, ContinueFrom: "prev"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(res.Objects) != 1 || !res.Truncated || res.NextToken != "next" {
		t.Fatalf("unexpected result: %+v", res)
	}
	in := m.listInputs[0]
	if aws.ToInt32(in.MaxKeys) != 1000 || aws.ToString(in.ContinuationToken) != "prev" {
		t.Fatalf("unexpected input: %+v", in)
	}
}
