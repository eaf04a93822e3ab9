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

// Package client talks to a running objpoller push API.
package client

import (
	"context"
	"errors"
)

var (
	// ErrServerURLRequired is returned when no server URL is configured.
	ErrServerURLRequired = errors.New("server URL is required")

	// ErrServerError is returned for non-success responses.
	ErrServerError = errors.New("server returned error")
)

// Client is the remote write side. It has the same shape as the local
// ingest writer, so callers can switch between the two.
type Client interface {
	CreateEntity(ctx context.Context, entity string) error
	Append(ctx context.Context, entity string, payload []byte) (string, error)
	Health(ctx context.Context) error
	Close() error
}

// Config holds configuration for creating a client
type Config struct {
	ServerURL string
}
