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

// Package ingest is the write side of the store: it creates entity
// containers and appends payloads under the current minute partition.
package ingest

import (
	"bytes"
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
	"github.com/jeremyhahn/go-objpoller/pkg/common"
	"github.com/jeremyhahn/go-objpoller/pkg/partition"
)

// Default retry bounds for storage calls.
const (
	DefaultRetryInitialInterval = 100 * time.Millisecond
	DefaultRetryMaxTime         = 10 * time.Second
)

// Config configures a Writer.
type Config struct {
	Storage              common.Storage
	Logger               adapters.Logger
	Clock                func() time.Time
	NewID                func() string
	RetryInitialInterval time.Duration
	RetryMaxTime         time.Duration
}

// Writer appends objects to entity partitions.
type Writer struct {
	storage         common.Storage
	logger          adapters.Logger
	now             func() time.Time
	newID           func() string
	initialInterval time.Duration
	maxTime         time.Duration
}

// New creates a Writer. Storage is required; other fields have defaults.
func New(cfg *Config) (*Writer, error) {
	if cfg == nil || cfg.Storage == nil {
		return nil, common.ErrStorageRequired
	}
	w := &Writer{
		storage:         cfg.Storage,
		logger:          cfg.Logger,
		now:             cfg.Clock,
		newID:           cfg.NewID,
		initialInterval: cfg.RetryInitialInterval,
		maxTime:         cfg.RetryMaxTime,
	}
	if w.logger == nil {
		w.logger = adapters.NewNoOpLogger()
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.newID == nil {
		w.newID = uuid.NewString
	}
	if w.initialInterval <= 0 {
		w.initialInterval = DefaultRetryInitialInterval
	}
	if w.maxTime <= 0 {
		w.maxTime = DefaultRetryMaxTime
	}
	return w, nil
}

// CreateEntity onboards an entity by making sure its container exists.
func (w *Writer) CreateEntity(ctx context.Context, entity string) error {
	if err := common.ValidateEntity(entity); err != nil {
		return err
	}
	err := w.retry(ctx, "ensure container", func() error {
		return w.storage.EnsureContainer(ctx)
	})
	if err != nil {
		return err
	}
	w.logger.Info(ctx, "entity created", adapters.Field{Key: "entity", Value: entity})
	return nil
}

// Key returns the object key for a payload written at t.
func Key(entity string, t time.Time, id string) string {
	return partition.Prefix(entity, partition.KeyFor(t)) + "/" + id
}

// Append stores payload under the entity's current partition and returns its key.
func (w *Writer) Append(ctx context.Context, entity string, payload []byte) (string, error) {
	if err := common.ValidateEntity(entity); err != nil {
		return "", err
	}
	key := Key(entity, w.now(), w.newID())
	err := w.retry(ctx, "put", func() error {
		return w.storage.PutWithContext(ctx, key, bytes.NewReader(payload))
	})
	if err != nil {
		return "", err
	}
	w.logger.Debug(ctx, "payload appended",
		adapters.Field{Key: "entity", Value: entity},
		adapters.Field{Key: "key", Value: key},
		adapters.Field{Key: "size", Value: len(payload)},
	)
	return key, nil
}

// retry runs op with exponential backoff. Validation, configuration and
// context errors are not retried.
func (w *Writer) retry(ctx context.Context, label string, op func() error) error {
	retryOp := func() error {
		err := op()
		if err == nil {
			return nil
		}
		var verr *common.ValidationError
		if errors.As(err, &verr) || errors.Is(err, common.ErrNotConfigured) ||
			errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return backoff.Permanent(err)
		}
		return err
	}
	notify := func(err error, delay time.Duration) {
		w.logger.Warn(ctx, label+" failed; retrying",
			adapters.Field{Key: "error", Value: err.Error()},
			adapters.Field{Key: "delay", Value: delay.String()},
		)
	}
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = w.initialInterval
	expBackoff.MaxElapsedTime = w.maxTime
	return backoff.RetryNotify(retryOp, backoff.WithContext(expBackoff, ctx), notify)
}
