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

// OnePlusNWindowsName identifies the one-plus-N windows strategy.
const OnePlusNWindowsName = "one-plus-n-windows"

// OnePlusNWindowsConfig tunes the one-plus-N windows strategy.
type OnePlusNWindowsConfig struct {
	// TrailingWindows is N: how many partitions before the current one are
	// rescanned on every check.
	TrailingWindows int

	// Seen tracks admitted names. Defaults to NewSeenSet.
	Seen SeenSet
}

// DefaultOnePlusNWindowsConfig rescans the current and previous partition.
func DefaultOnePlusNWindowsConfig() OnePlusNWindowsConfig {
	return OnePlusNWindowsConfig{TrailingWindows: 1}
}

// OnePlusNWindows ignores watermarks. Every check rescans the current
// partition and the N before it and admits names it has not admitted
// before. Delivery is at-least-once: losing the seen-set (a restart or
// Reset) admits the objects in the window again.
type OnePlusNWindows struct {
	*engine
	trailing int
	seen     SeenSet
}

var _ Strategy = (*OnePlusNWindows)(nil)

// NewOnePlusNWindows builds the strategy over dir.
func NewOnePlusNWindows(dir common.Directory, config OnePlusNWindowsConfig, opts ...Option) (*OnePlusNWindows, error) {
	if config.TrailingWindows < 0 {
		return nil, ErrNegativeWindow
	}
	if config.TrailingWindows >= partition.MaxPartitions {
		return nil, ErrWindowTooLarge
	}
	e, err := newEngine(OnePlusNWindowsName, dir, opts)
	if err != nil {
		return nil, err
	}
	seen := config.Seen
	if seen == nil {
		seen = NewSeenSet()
	}
	return &OnePlusNWindows{engine: e, trailing: config.TrailingWindows, seen: seen}, nil
}

// Seen returns the seen-set.
func (s *OnePlusNWindows) Seen() SeenSet {
	return s.seen
}

// Reset forgets every admitted name.
func (s *OnePlusNWindows) Reset() {
	s.seen.Reset()
}

// CheckForUpdates admits every object in the window not admitted before.
func (s *OnePlusNWindows) CheckForUpdates(ctx context.Context, entity string) (res *Result, err error) {
	started := time.Now()
	defer func() { s.finish(ctx, entity, started, res, err) }()

	if err := validateEntity(entity); err != nil {
		return nil, err
	}
	now := s.now()
	keys, err := partition.Between(now.Add(-time.Duration(s.trailing)*partition.Width), now)
	if err != nil {
		return nil, err
	}
	res = &Result{Entity: entity, Partitions: keys}

	var listed []ObjectRecord
	res.Scanned, err = s.scan(ctx, entity, keys, func(r ObjectRecord) {
		listed = append(listed, r)
	})
	if err != nil {
		return nil, err
	}

	var admitted []ObjectRecord
	for _, r := range listed {
		if s.seen.Add(r.Name) {
			admitted = append(admitted, r)
		}
	}

	res.Emitted, err = s.emit(ctx, entity, admitted, now)
	if err != nil {
		// Forget what was not delivered so the next check retries it.
		for _, r := range admitted[len(res.Emitted):] {
			s.seen.Remove(r.Name)
		}
		return res, err
	}
	return res, nil
}
