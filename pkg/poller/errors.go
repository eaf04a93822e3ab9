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

package poller

import (
	"errors"
	"fmt"
)

var (
	// ErrStrategyRequired is returned by New without a strategy.
	ErrStrategyRequired = errors.New("polling strategy is required")

	// ErrBlankEntity is returned when registering an empty or whitespace entity.
	ErrBlankEntity = errors.New("entity name cannot be blank")

	// ErrInvalidInterval is returned by Start for a non-positive interval.
	ErrInvalidInterval = errors.New("polling interval must be positive")

	// ErrAlreadyStarted is returned by a second Start.
	ErrAlreadyStarted = errors.New("poller already started")

	// ErrNotAccepting is returned when registering after cancellation.
	ErrNotAccepting = errors.New("poller is stopping or stopped")
)

// DuplicateRegistrationError is returned when an entity is registered twice.
// It is informational: the poller keeps running with the first
// registration.
type DuplicateRegistrationError struct {
	Entity string
}

func (e *DuplicateRegistrationError) Error() string {
	return fmt.Sprintf("entity %q is already registered", e.Entity)
}

// IsConfigurationError reports whether err should stop the process before
// polling starts.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrStrategyRequired) ||
		errors.Is(err, ErrBlankEntity) ||
		errors.Is(err, ErrInvalidInterval)
}
