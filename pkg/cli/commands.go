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

package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
	"github.com/jeremyhahn/go-objpoller/pkg/cli/client"
	"github.com/jeremyhahn/go-objpoller/pkg/ingest"
	"github.com/jeremyhahn/go-objpoller/pkg/poller"
	"github.com/jeremyhahn/go-objpoller/pkg/server/rest"
)

// ShutdownTimeout bounds the graceful stop of the push API.
const ShutdownTimeout = 10 * time.Second

// ErrEmptyPayload is returned when push is given no record.
var ErrEmptyPayload = errors.New("payload is empty")

// NewPoller creates a poller over the built strategy and registers the
// configured entities. Duplicate entities are logged and skipped.
func (c *Components) NewPoller() (*poller.Poller, error) {
	if len(c.Config.Entities) == 0 {
		return nil, ErrNoEntities
	}
	p, err := poller.New(c.Strategy,
		poller.WithLogger(c.Logger),
		poller.WithReporter(c.Reporter),
		poller.WithMaxConcurrency(c.Config.MaxConcurrency),
	)
	if err != nil {
		return nil, err
	}
	for _, entity := range c.Config.Entities {
		var dup *poller.DuplicateRegistrationError
		if err := p.Add(entity); err != nil && !errors.As(err, &dup) {
			return nil, err
		}
	}
	return p, nil
}

// PollOnce runs a single tick over the configured entities.
func (c *Components) PollOnce(ctx context.Context) (TickSummary, error) {
	p, err := c.NewPoller()
	if err != nil {
		return TickSummary{}, err
	}
	defer p.Cancel()
	report := p.Tick(ctx)
	return NewTickSummary(report, c.Events()), nil
}

// Poll runs the poller until ctx is cancelled.
func (c *Components) Poll(ctx context.Context) error {
	p, err := c.NewPoller()
	if err != nil {
		return err
	}
	return p.Run(ctx, c.Config.Interval)
}

// Writer returns the write side: a REST client when a server is configured,
// otherwise the configured backend.
func (c *Components) Writer() (rest.Writer, error) {
	if c.Config.Server != "" {
		rc, err := client.NewRESTClient(&client.Config{ServerURL: c.Config.Server})
		if err != nil {
			return nil, err
		}
		c.closers = append(c.closers, rc.Close)
		return rc, nil
	}
	return ingest.New(&ingest.Config{
		Storage: c.Storage,
		Logger:  c.Logger,
		Clock:   c.clock,
	})
}

// Create onboards an entity.
func (c *Components) Create(ctx context.Context, entity string) error {
	w, err := c.Writer()
	if err != nil {
		return err
	}
	return w.CreateEntity(ctx, entity)
}

// Push stores one JSON record read from r and returns its key.
func (c *Components) Push(ctx context.Context, entity string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read payload: %w", err)
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, data); err != nil {
		return "", fmt.Errorf("payload is not JSON: %w", err)
	}
	if compact.Len() == 0 || compact.String() == "null" {
		return "", ErrEmptyPayload
	}

	w, err := c.Writer()
	if err != nil {
		return "", err
	}
	return w.Append(ctx, entity, compact.Bytes())
}

// Serve runs the push API until ctx is cancelled. When entities are
// configured the poller runs alongside it and its watermarks are exposed.
func (c *Components) Serve(ctx context.Context) error {
	writer, err := ingest.New(&ingest.Config{
		Storage: c.Storage,
		Logger:  c.Logger,
		Clock:   c.clock,
	})
	if err != nil {
		return err
	}

	cfg := rest.DefaultServerConfig()
	cfg.Addr = c.Config.Listen
	cfg.Logger = c.Logger
	cfg.Gatherer = c.Registry
	if len(c.Config.Entities) > 0 {
		cfg.Watermarks = c.Watermarks
	}
	srv, err := rest.NewServer(writer, cfg)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.Serve(ctx, ShutdownTimeout) })
	if len(c.Config.Entities) > 0 {
		g.Go(func() error { return c.Poll(ctx) })
	} else {
		c.Logger.Info(ctx, "no entities configured, serving push API only",
			adapters.Field{Key: "listen", Value: c.Config.Listen})
	}
	return g.Wait()
}
