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

// Package partition maps timestamps onto the one-minute buckets that object
// keys are written under (`entity/yyyy.MM.dd.HH.mm/<id>`) and enumerates the
// buckets a poller must rescan.
package partition

import (
	"errors"
	"fmt"
	"time"
)

const (
	// Width is the span of one partition.
	Width = time.Minute

	// Layout formats a partition key. It is lexically sortable and uses a
	// 24-hour clock.
	Layout = "2006.01.02.15.04"

	// MaxPartitions bounds a single enumeration (seven days of minutes).
	MaxPartitions = 7 * 24 * 60
)

// ErrRangeTooLarge is returned when an enumeration would exceed MaxPartitions.
var ErrRangeTooLarge = errors.New("partition range too large")

// InvalidRangeError is returned by Between when the end precedes the start.
type InvalidRangeError struct {
	From time.Time
	To   time.Time
}

func (e *InvalidRangeError) Error() string {
	return fmt.Sprintf("invalid partition range: %s is before %s",
		e.To.UTC().Format(time.RFC3339), e.From.UTC().Format(time.RFC3339))
}

// Start returns the beginning of the partition containing t, in UTC.
func Start(t time.Time) time.Time {
	return t.UTC().Truncate(Width)
}

// KeyFor returns the partition key for t.
func KeyFor(t time.Time) string {
	return Start(t).Format(Layout)
}

// Parse converts a partition key back to the start of its bucket.
func Parse(key string) (time.Time, error) {
	t, err := time.ParseInLocation(Layout, key, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse partition key %q: %w", key, err)
	}
	return t, nil
}

// Prefix returns the listing prefix for one entity partition.
func Prefix(entity, key string) string {
	return entity + "/" + key
}

// Since returns the keys of every bucket m with Start(watermark) <= m < now,
// ascending. When now is not after watermark the result is empty: a negative
// range is clock skew, not an error.
//
// Since is the exported partition enumeration for a watermark's backlog.
// It reports ErrRangeTooLarge for backlogs past MaxPartitions; the strategies
// enumerate through Bounded instead, which truncates the oldest partitions.
func Since(watermark, now time.Time) ([]string, error) {
	if !now.After(watermark) {
		return []string{}, nil
	}
	from := Start(watermark)
	n := int64(now.Sub(from) / Width)
	if now.Sub(from)%Width != 0 {
		n++
	}
	if n > MaxPartitions {
		return nil, fmt.Errorf("%w: %d partitions since %s", ErrRangeTooLarge, n, from.Format(Layout))
	}
	return enumerate(from, int(n)), nil
}

// Between returns the keys of every bucket from Start(from) through Start(to)
// inclusive, ascending.
func Between(from, to time.Time) ([]string, error) {
	if to.Before(from) {
		return nil, &InvalidRangeError{From: from, To: to}
	}
	first, last := Start(from), Start(to)
	n := int64(last.Sub(first)/Width) + 1
	if n > MaxPartitions {
		return nil, fmt.Errorf("%w: %d partitions from %s", ErrRangeTooLarge, n, first.Format(Layout))
	}
	return enumerate(first, int(n)), nil
}

// Bounded is Between with the start moved forward so that at most
// MaxPartitions keys are returned, ending at Start(to). truncated reports
// whether from was older than that and partitions were dropped.
func Bounded(from, to time.Time) (keys []string, truncated bool, err error) {
	earliest := Start(to).Add(-(MaxPartitions - 1) * Width)
	if Start(from).Before(earliest) && !to.Before(from) {
		from, truncated = earliest, true
	}
	keys, err = Between(from, to)
	return keys, truncated, err
}

func enumerate(first time.Time, n int) []string {
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		keys = append(keys, first.Add(time.Duration(i)*Width).Format(Layout))
	}
	return keys
}
