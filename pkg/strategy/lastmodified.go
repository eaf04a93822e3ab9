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
	"context"
	"sort"
	"time"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
	"github.com/jeremyhahn/go-objpoller/pkg/common"
	"github.com/jeremyhahn/go-objpoller/pkg/partition"
)

// LastModifiedOptimizedName identifies the last-modified optimized strategy.
const LastModifiedOptimizedName = "last-modified-optimized"

// DefaultArtificialLag is how old an object must be before the last-modified
// optimized strategy admits it.
const DefaultArtificialLag = 5 * time.Second

// LastModifiedOptimizedConfig tunes the last-modified optimized strategy.
type LastModifiedOptimizedConfig struct {
	// ArtificialLag is the minimum age of an admitted object, absorbing
	// writes that become visible out of modification order.
	ArtificialLag time.Duration
}

// DefaultLastModifiedOptimizedConfig uses DefaultArtificialLag.
func DefaultLastModifiedOptimizedConfig() LastModifiedOptimizedConfig {
	return LastModifiedOptimizedConfig{ArtificialLag: DefaultArtificialLag}
}

// LastModifiedOptimized scans from the watermark's partition through the
// current one. It collects the complete listing before applying the
// admission rule, so listing order can never affect which objects pass.
type LastModifiedOptimized struct {
	*engine
	config LastModifiedOptimizedConfig
}

var _ Strategy = (*LastModifiedOptimized)(nil)

// NewLastModifiedOptimized builds the strategy over dir.
func NewLastModifiedOptimized(dir common.Directory, config LastModifiedOptimizedConfig, opts ...Option) (*LastModifiedOptimized, error) {
	if config.ArtificialLag < 0 {
		return nil, ErrNegativeWindow
	}
	e, err := newEngine(LastModifiedOptimizedName, dir, opts)
	if err != nil {
		return nil, err
	}
	return &LastModifiedOptimized{engine: e, config: config}, nil
}

// CheckForUpdates admits objects modified after the watermark and at least
// ArtificialLag before now, oldest first.
func (s *LastModifiedOptimized) CheckForUpdates(ctx context.Context, entity string) (res *Result, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, entity, started, res, err) }()

	if err := validateEntity(entity); err != nil {
		return nil, err
	}
	wm, err := s.watermarks.Get(ctx, entity)
	if err != nil {
		return nil, err
	}
	now := s.now()

	res = &Result{Entity: entity, Watermark: wm}
	if now.Before(wm) {
		s.logger.Warn(ctx, "clock is behind the watermark, skipping check",
			adapters.Field{Key: "entity", Value: entity},
			adapters.Field{Key: "now", Value: now},
			adapters.Field{Key: "watermark", Value: wm})
		return res, nil
	}
	keys, truncated, err := partition.Bounded(wm, now)
	if err != nil {
		return nil, err
	}
	if truncated {
		s.warnTruncated(ctx, entity, wm, keys[0])
	}
	res.Partitions = keys

	var listed []ObjectRecord
	res.Scanned, err = s.scan(ctx, entity, res.Partitions, func(r ObjectRecord) {
		listed = append(listed, r)
	})
	if err != nil {
		return nil, err
	}

	sort.SliceStable(listed, func(i, j int) bool {
		if !listed[i].LastModified.Equal(listed[j].LastModified) {
			return listed[i].LastModified.Before(listed[j].LastModified)
		}
		return listed[i].Name < listed[j].Name
	})
	admitted := make([]ObjectRecord, 0, len(listed))
	for _, r := range listed {
		if r.LastModified.After(wm) && now.Sub(r.LastModified) > s.config.ArtificialLag {
			admitted = append(admitted, r)
		}
	}

	res.Emitted, err = s.emit(ctx, entity, admitted, now)
	if err != nil {
		return res, err
	}
	res.Watermark, err = s.advance(ctx, entity, wm, res.Emitted)
	return res, err
}
