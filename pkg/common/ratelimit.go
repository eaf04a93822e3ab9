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

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimitedDirectory throttles Walk calls against a backend so that a large
// entity set does not exhaust the store's request quota.
type RateLimitedDirectory struct {
	dir     Directory
	limiter *rate.Limiter
}

// NewRateLimitedDirectory wraps dir with a token bucket allowing r listings
// per second with the given burst. A non-positive r disables limiting and
// returns dir unchanged.
func NewRateLimitedDirectory(dir Directory, r float64, burst int) Directory {
	if r <= 0 {
		return dir
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimitedDirectory{
		dir:     dir,
		limiter: rate.NewLimiter(rate.Limit(r), burst),
	}
}

// Walk waits for a token and then delegates to the wrapped directory.
func (d *RateLimitedDirectory) Walk(ctx context.Context, prefix string, fn func(ObjectInfo) error) error {
	if err := d.limiter.Wait(ctx); err != nil {
		return err
	}
	return d.dir.Walk(ctx, prefix, fn)
}
