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

package common

import "errors"

// Backend settings. Configure returns these when a required setting is
// missing, and operations on an unconfigured backend return ErrNotConfigured.
var (
	ErrNotConfigured   = errors.New("not configured")
	ErrPathNotSet      = errors.New("path not set")
	ErrBucketNotSet    = errors.New("bucket not set")
	ErrAccountNotSet   = errors.New("accountName, accountKey, or containerName not set")
	ErrRegionNotSet    = errors.New("region not set")
	ErrEndpointNotSet  = errors.New("endpoint not set")
	ErrAccessKeyNotSet = errors.New("accessKey not set")
	ErrSecretKeyNotSet = errors.New("secretKey not set")
)

var (
	// ErrStorageRequired is returned by constructors given a nil Storage.
	ErrStorageRequired = errors.New("storage backend is required")

	// ErrKeyNotFound is returned when an object is missing.
	ErrKeyNotFound = errors.New("key not found")

	// ErrInvalidPageToken is returned when ListOptions.ContinueFrom cannot be
	// resumed by the backend.
	ErrInvalidPageToken = errors.New("invalid page token")
)
