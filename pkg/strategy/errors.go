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

package strategy

import (
	"errors"
	"fmt"
)

// ErrDirectoryRequired is returned when a strategy is built without an
// object directory.
var ErrDirectoryRequired = errors.New("object directory is required")

// ErrNegativeWindow is returned for a negative lookbehind or trailing
// window count, or a negative artificial lag.
var ErrNegativeWindow = errors.New("window settings must not be negative")

// ErrWindowTooLarge is returned for a lookbehind or trailing window count
// that alone spans partition.MaxPartitions.
var ErrWindowTooLarge = errors.New("window exceeds the partition enumeration limit")

// DirectoryUnavailableError wraps a listing failure. The check that hit it
// emitted nothing and left the watermark unchanged.
type DirectoryUnavailableError struct {
	Entity string
	Prefix string
	Err    error
}

func (e *DirectoryUnavailableError) Error() string {
	return fmt.Sprintf("directory unavailable for %s (prefix %q): %v", e.Entity, e.Prefix, e.Err)
}

func (e *DirectoryUnavailableError) Unwrap() error {
	return e.Err
}

// EmitError reports a failed delivery. Records before Object were delivered;
// the watermark was not advanced, so they are delivered again next check.
type EmitError struct {
	Entity string
	Object string
	Err    error
}

func (e *EmitError) Error() string {
	return fmt.Sprintf("emit %s for %s: %v", e.Object, e.Entity, e.Err)
}

func (e *EmitError) Unwrap() error {
	return e.Err
}
