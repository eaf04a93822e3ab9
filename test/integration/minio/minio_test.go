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

//go:build integration && minio

package minio

import (
	"testing"

	"github.com/jeremyhahn/go-objpoller/pkg/factory"
	testcommon "github.com/jeremyhahn/go-objpoller/test/integration/common"
)

func TestMinIO_Polling(t *testing.T) {
	endpoint := testcommon.Getenv("MINIO_ENDPOINT", "http://minio:9000")
	testcommon.RequireService(t, endpoint)

	st, err := factory.NewStorage("minio", map[string]string{
		"bucket":    testcommon.UniqueEntity("objpoller-minio"),
		"endpoint":  endpoint,
		"accessKey": testcommon.Getenv("MINIO_ACCESS_KEY", "minioadmin"),
		"secretKey": testcommon.Getenv("MINIO_SECRET_KEY", "minioadmin"),
	})
	if err != nil {
		t.Fatal(err)
	}
	suite := &testcommon.PollingSuite{Storage: st, T: t}
	suite.RunAllTests()
}
