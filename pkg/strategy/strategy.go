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

// Package strategy decides, per entity and per check, which newly listed
// objects to admit. Every strategy lists one-minute partitions through a
// common.Directory, emits admitted objects through an emitter.Emitter and,
// where it keeps one, advances the entity's watermark afterwards.
package strategy

import (
	"context"
	"errors"
	"time"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
	"github.com/jeremyhahn/go-objpoller/pkg/common"
	"github.com/jeremyhahn/go-objpoller/pkg/emitter"
	"github.com/jeremyhahn/go-objpoller/pkg/metrics"
	"github.com/jeremyhahn/go-objpoller/pkg/partition"
	"github.com/jeremyhahn/go-objpoller/pkg/watermark"
)

// ObjectRecord is one listed object.
type ObjectRecord struct {
	Entity       string
	Name         string
	LastModified time.Time
	Size         int64
}

// Result describes one check.
type Result struct {
	Entity     string
	Partitions []string
	Scanned    int
	Emitted    []ObjectRecord

	// Watermark is the entity's watermark after the check. It is the zero
	// time for strategies that do not keep one.
	Watermark time.Time
}

// Strategy checks one entity for new objects. Implementations are safe for
// concurrent checks of different entities.
type Strategy interface {
	Name() string
	CheckForUpdates(ctx context.Context, entity string) (*Result, error)
}

// Option configures the collaborators shared by every strategy.
type Option func(*options)

type options struct {
	now        func() time.Time
	logger     adapters.Logger
	reporter   metrics.Reporter
	emitter    emitter.Emitter
	watermarks *watermark.Store
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger adapters.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithReporter sets the metrics reporter.
func WithReporter(r metrics.Reporter) Option {
	return func(o *options) { o.reporter = r }
}

// WithEmitter sets where admitted objects go. Defaults to a log emitter on
// the strategy's logger.
func WithEmitter(e emitter.Emitter) Option {
	return func(o *options) { o.emitter = e }
}

// WithWatermarks sets the watermark store. Defaults to a store whose cold
// start is the strategy clock's "now".
func WithWatermarks(s *watermark.Store) Option {
	return func(o *options) { o.watermarks = s }
}

// engine holds the collaborators and the listing and emission steps shared
// by the strategies.
type engine struct {
	name string
	dir  common.Directory
	options
}

func newEngine(name string, dir common.Directory, opts []Option) (*engine, error) {
	if dir == nil {
		return nil, ErrDirectoryRequired
	}
	e := &engine{name: name, dir: dir}
	for _, opt := range opts {
		opt(&e.options)
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = adapters.NewNoOpLogger()
	}
	e.logger = e.logger.WithFields(adapters.Field{Key: "strategy", Value: name})
	if e.reporter == nil {
		e.reporter = metrics.NewNoOp()
	}
	if e.emitter == nil {
		e.emitter = emitter.NewLog(e.logger)
	}
	if e.watermarks == nil {
		e.watermarks = watermark.New(&watermark.Config{
			Initializer: watermark.Now(e.now),
			Logger:      e.logger,
		})
	}
	return e, nil
}

// Name returns the strategy name.
func (e *engine) Name() string {
	return e.name
}

// Watermarks exposes the strategy's watermark store.
func (e *engine) Watermarks() *watermark.Store {
	return e.watermarks
}

// scan lists every partition in order and hands each object to fn.
func (e *engine) scan(ctx context.Context, entity string, keys []string, fn func(ObjectRecord)) (int, error) {
	scanned := 0
	for _, key := range keys {
		prefix := partition.Prefix(entity, key) + "/"
		err := e.dir.Walk(ctx, prefix, func(obj common.ObjectInfo) error {
			scanned++
			fn(ObjectRecord{
				Entity:       entity,
				Name:         obj.Key,
				LastModified: obj.LastModified(),
				Size:         obj.Size(),
			})
			return nil
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return scanned, err
			}
			return scanned, &DirectoryUnavailableError{Entity: entity, Prefix: prefix, Err: err}
		}
	}
	e.reporter.ObjectsScanned(entity, len(keys), scanned)
	return scanned, nil
}

// emit delivers records in order and returns those that were delivered.
func (e *engine) emit(ctx context.Context, entity string, records []ObjectRecord, observedAt time.Time) ([]ObjectRecord, error) {
	for i, r := range records {
		err := e.emitter.Emit(ctx, emitter.Event{
			Entity:       entity,
			ObjectName:   r.Name,
			LastModified: r.LastModified,
			ObservedAt:   observedAt,
			Size:         r.Size,
			Strategy:     e.name,
		})
		if err != nil {
			e.reporter.ObjectsAdmitted(entity, i)
			return records[:i], &EmitError{Entity: entity, Object: r.Name, Err: err}
		}
	}
	e.reporter.ObjectsAdmitted(entity, len(records))
	return records, nil
}

// advance moves the watermark to the newest admitted record.
func (e *engine) advance(ctx context.Context, entity string, current time.Time, admitted []ObjectRecord) (time.Time, error) {
	newest := current
	for _, r := range admitted {
		if r.LastModified.After(newest) {
			newest = r.LastModified
		}
	}
	if !newest.After(current) {
		return current, nil
	}
	wm, err := e.watermarks.Advance(ctx, entity, newest)
	e.reporter.WatermarkAdvanced(entity, wm)
	return wm, err
}

// warnTruncated logs a scan that started at first instead of at the
// watermark's partition. Objects named in the skipped partitions are not
// admitted; the watermark itself is left alone.
func (e *engine) warnTruncated(ctx context.Context, entity string, wm time.Time, first string) {
	e.logger.Warn(ctx, "watermark is older than the scan limit, skipping older partitions",
		adapters.Field{Key: "entity", Value: entity},
		adapters.Field{Key: "watermark", Value: wm},
		adapters.Field{Key: "first_partition", Value: first},
		adapters.Field{Key: "max_partitions", Value: partition.MaxPartitions})
}

// finish reports and logs the outcome of one check.
func (e *engine) finish(ctx context.Context, entity string, started time.Time, res *Result, err error) {
	e.reporter.CheckCompleted(entity, e.name, time.Since(started), err)
	if err != nil {
		return
	}
	e.logger.Debug(ctx, "check complete",
		adapters.Field{Key: "entity", Value: entity},
		adapters.Field{Key: "partitions", Value: len(res.Partitions)},
		adapters.Field{Key: "scanned", Value: res.Scanned},
		adapters.Field{Key: "emitted", Value: len(res.Emitted)},
		adapters.Field{Key: "watermark", Value: res.Watermark})
}

func validateEntity(entity string) error {
	return common.ValidateEntity(entity)
}
