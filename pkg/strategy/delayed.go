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
	"time"

	"github.com/jeremyhahn/go-objpoller/pkg/common"
	"github.com/jeremyhahn/go-objpoller/pkg/partition"
)

// DelayedSlidingWindowName identifies the delayed sliding window strategy.
const DelayedSlidingWindowName = "delayed-sliding-window"

// DelayedSlidingWindowConfig tunes the delayed sliding window.
type DelayedSlidingWindowConfig struct {
	// ArtificialLag delays closing a partition past its end.
	ArtificialLag time.Duration

	// Lookbehind is how many partitions before the watermark's partition are
	// rescanned, to catch objects named by a writer clock that runs behind
	// the store's modification time.
	Lookbehind int
}

// DefaultDelayedSlidingWindowConfig rescans one partition behind the
// watermark and closes partitions as soon as they end.
func DefaultDelayedSlidingWindowConfig() DelayedSlidingWindowConfig {
	return DelayedSlidingWindowConfig{Lookbehind: 1}
}

// DelayedSlidingWindow only looks at closed partitions: a partition p is
// closed once now is strictly after p's end plus ArtificialLag. The
// partition still being written is never scanned, so an object becomes
// visible up to one partition width after it lands.
type DelayedSlidingWindow struct {
	*engine
	config DelayedSlidingWindowConfig
}

var _ Strategy = (*DelayedSlidingWindow)(nil)

// NewDelayedSlidingWindow builds the strategy over dir.
func NewDelayedSlidingWindow(dir common.Directory, config DelayedSlidingWindowConfig, opts ...Option) (*DelayedSlidingWindow, error) {
	if config.Lookbehind < 0 || config.ArtificialLag < 0 {
		return nil, ErrNegativeWindow
	}
	if config.Lookbehind >= partition.MaxPartitions {
		return nil, ErrWindowTooLarge
	}
	e, err := newEngine(DelayedSlidingWindowName, dir, opts)
	if err != nil {
		return nil, err
	}
	return &DelayedSlidingWindow{engine: e, config: config}, nil
}

// window returns the partitions to scan, or nil when none has closed since
// the lookbehind start. A watermark older than partition.MaxPartitions
// closed partitions is scanned from the oldest partition that still fits,
// and truncated is set.
func (s *DelayedSlidingWindow) window(wm, now time.Time) (keys []string, truncated bool, err error) {
	from := partition.Start(wm).Add(-time.Duration(s.config.Lookbehind) * partition.Width)

	cutoff := now.Add(-s.config.ArtificialLag - partition.Width)
	lastClosed := partition.Start(cutoff)
	if lastClosed.Equal(cutoff) {
		lastClosed = lastClosed.Add(-partition.Width)
	}
	if lastClosed.Before(from) {
		return nil, false, nil
	}
	return partition.Bounded(from, lastClosed)
}

// CheckForUpdates admits every object in a closed partition modified after
// the watermark.
func (s *DelayedSlidingWindow) CheckForUpdates(ctx context.Context, entity string) (res *Result, err error) {
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

	keys, truncated, err := s.window(wm, now)
	if err != nil {
		return nil, err
	}
	if truncated {
		s.warnTruncated(ctx, entity, wm, keys[0])
	}
	res = &Result{Entity: entity, Partitions: keys, Watermark: wm}
	if len(keys) == 0 {
		return res, nil
	}

	var admitted []ObjectRecord
	res.Scanned, err = s.scan(ctx, entity, keys, func(r ObjectRecord) {
		if r.LastModified.After(wm) {
			admitted = append(admitted, r)
		}
	})
	if err != nil {
		return nil, err
	}

	res.Emitted, err = s.emit(ctx, entity, admitted, now)
	if err != nil {
		return res, err
	}
	res.Watermark, err = s.advance(ctx, entity, wm, res.Emitted)
	return res, err
}
