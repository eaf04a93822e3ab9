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

//go:build integration

package local

import (
	"testing"

	"github.com/jeremyhahn/go-objpoller/pkg/factory"
	testcommon "github.com/jeremyhahn/go-objpoller/test/integration/common"
)

func TestLocal_Polling(t *testing.T) {
	st, err := factory.NewStorage("local", map[string]string{
		"path": t.TempDir(),
	})
	if err != nil {
		t.Fatal(err)
	}
	suite := &testcommon.PollingSuite{Storage: st, T: t}
	suite.RunAllTests()
}
