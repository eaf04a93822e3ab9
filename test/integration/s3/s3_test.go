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

//go:build integration && awss3

package s3

import (
	"testing"

	"github.com/jeremyhahn/go-objpoller/pkg/factory"
	testcommon "github.com/jeremyhahn/go-objpoller/test/integration/common"
)

// TestS3_Polling runs against any S3-compatible endpoint, MinIO by default.
func TestS3_Polling(t *testing.T) {
	endpoint := testcommon.Getenv("S3_ENDPOINT", "http://minio:9000")
	testcommon.RequireService(t, endpoint)

	st, err := factory.NewStorage("s3", map[string]string{
		"bucket":    testcommon.UniqueEntity("objpoller-s3"),
		"region":    testcommon.Getenv("S3_REGION", "us-east-1"),
		"endpoint":  endpoint,
		"accessKey": testcommon.Getenv("S3_ACCESS_KEY", "minioadmin"),
		"secretKey": testcommon.Getenv("S3_SECRET_KEY", "minioadmin"),
	})
	if err != nil {
		t.Fatal(err)
	}
	suite := &testcommon.PollingSuite{Storage: st, T: t}
	suite.RunAllTests()
}
