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

//go:build integration && azureblob

package azure

import (
	"testing"

	"github.com/jeremyhahn/go-objpoller/pkg/factory"
	testcommon "github.com/jeremyhahn/go-objpoller/test/integration/common"
)

// Azurite's published development account.
const (
	azuriteAccount = "devstoreaccount1"
	azuriteKey     = "Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw=="
)

func TestAzure_Polling(t *testing.T) {
	endpoint := testcommon.Getenv("AZURE_ENDPOINT", "http://azurite:10000")
	testcommon.RequireService(t, endpoint)
	account := testcommon.Getenv("AZURE_ACCOUNT", azuriteAccount)

	st, err := factory.NewStorage("azure", map[string]string{
		"accountName":   account,
		"accountKey":    testcommon.Getenv("AZURE_KEY", azuriteKey),
		"containerName": testcommon.UniqueEntity("objpoller"),
		"endpoint":      endpoint + "/" + account,
	})
	if err != nil {
		t.Fatal(err)
	}
	suite := &testcommon.PollingSuite{Storage: st, T: t}
	suite.RunAllTests()
}
