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

package version

import "fmt"

// Version is the application version.
// This should be set at build time using:
//
//	go build -ldflags "-X github.com/jeremyhahn/go-objpoller/pkg/version.Version=1.0.0"
var Version = "0.1.0-alpha"

// Commit is the source revision, set at build time like Version.
var Commit = ""

// Get returns the application version string.
func Get() string {
	return Version
}

// String returns the version with the commit when known.
func String() string {
	if Commit == "" {
		return Version
	}
	return fmt.Sprintf("%s (%s)", Version, Commit)
}
