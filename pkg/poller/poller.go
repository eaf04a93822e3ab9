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

// Package poller drives a polling strategy over a set of entities on a
// fixed cadence. Each tick checks every registered entity concurrently and
// waits for all of them before sleeping; a failing entity never stops the
// others.
package poller

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
	"github.com/jeremyhahn/go-objpoller/pkg/common"
	"github.com/jeremyhahn/go-objpoller/pkg/metrics"
	"github.com/jeremyhahn/go-objpoller/pkg/strategy"
)

// State is the poller lifecycle state.
type State int32

const (
	// Idle accepts registrations and waits for Start.
	Idle State = iota
	// Running ticks on the configured interval.
	Running
	// Cancelling finishes the in-flight tick and then stops.
	Cancelling
	// Stopped is terminal.
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Cancelling:
		return "cancelling"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Option configures a Poller.
type Option func(*Poller)

// WithLogger sets the logger.
func WithLogger(logger adapters.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

// WithReporter sets the metrics reporter.
func WithReporter(r metrics.Reporter) Option {
	return func(p *Poller) { p.reporter = r }
}

// WithMaxConcurrency bounds how many entities are checked at once. Zero or
// negative means one goroutine per entity.
func WithMaxConcurrency(n int) Option {
	return func(p *Poller) { p.maxConcurrency = n }
}

// TickReport summarises one fan-out.
type TickReport struct {
	Started  time.Time
	Duration time.Duration
	Checked  int
	Failed   int
	Emitted  int

	// Errors holds the failure of each failed entity.
	Errors map[string]error

	// Err combines Errors, or is nil when every check succeeded.
	Err error
}

// Poller owns the entity set and the polling cadence.
type Poller struct {
	strategy       strategy.Strategy
	logger         adapters.Logger
	reporter       metrics.Reporter
	maxConcurrency int

	mu       sync.Mutex
	state    State
	entities []string
	index    map[string]struct{}
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates an idle poller.
func New(s strategy.Strategy, opts ...Option) (*Poller, error) {
	if s == nil {
		return nil, ErrStrategyRequired
	}
	p := &Poller{
		strategy: s,
		index:    make(map[string]struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = adapters.NewNoOpLogger()
	}
	if p.reporter == nil {
		p.reporter = metrics.NewNoOp()
	}
	return p, nil
}

// Add registers an entity. It is valid while Idle or Running; an entity
// added while Running is first checked on the next tick.
func (p *Poller) Add(entity string) error {
	if strings.TrimSpace(entity) == "" {
		return ErrBlankEntity
	}
	if err := common.ValidateEntity(entity); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Cancelling || p.state == Stopped {
		return ErrNotAccepting
	}
	if _, ok := p.index[entity]; ok {
		err := &DuplicateRegistrationError{Entity: entity}
		p.logger.Warn(context.Background(), "duplicate entity registration ignored",
			adapters.Field{Key: "entity", Value: entity})
		return err
	}
	p.index[entity] = struct{}{}
	p.entities = append(p.entities, entity)
	p.logger.Info(context.Background(), "entity registered",
		adapters.Field{Key: "entity", Value: entity},
		adapters.Field{Key: "strategy", Value: p.strategy.Name()})
	return nil
}

// Entities returns the registered entities in registration order.
func (p *Poller) Entities() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.entities...)
}

// State returns the current lifecycle state.
func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start moves an idle poller to Running and begins ticking in the
// background. Cancelling ctx, or calling Cancel, stops the loop once the
// in-flight tick has completed.
func (p *Poller) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	switch p.state {
	case Idle:
	case Running:
		return ErrAlreadyStarted
	default:
		return ErrNotAccepting
	}

	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state = Running
	context.AfterFunc(loopCtx, p.markCancelling)

	p.logger.Info(ctx, "poller started",
		adapters.Field{Key: "strategy", Value: p.strategy.Name()},
		adapters.Field{Key: "interval", Value: interval.String()},
		adapters.Field{Key: "entities", Value: len(p.entities)})
	go p.run(loopCtx, interval)
	return nil
}

// Run starts the poller and blocks until it has stopped. Cancellation is a
// clean exit and returns nil.
func (p *Poller) Run(ctx context.Context, interval time.Duration) error {
	if err := p.Start(ctx, interval); err != nil {
		return err
	}
	p.Wait()
	return nil
}

// Cancel requests a stop. An idle poller stops immediately; a running one
// stops after its in-flight tick. Calling Cancel more than once is safe.
func (p *Poller) Cancel() {
	p.mu.Lock()
	switch p.state {
	case Idle:
		p.state = Stopped
		close(p.done)
	case Running:
		p.state = Cancelling
	}
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Wait blocks until the poller is Stopped.
func (p *Poller) Wait() {
	<-p.done
}

// Done is closed once the poller is Stopped.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) markCancelling() {
	p.mu.Lock()
	if p.state == Running {
		p.state = Cancelling
	}
	p.mu.Unlock()
}

func (p *Poller) run(ctx context.Context, interval time.Duration) {
	defer func() {
		p.mu.Lock()
		p.state = Stopped
		cancel := p.cancel
		p.mu.Unlock()
		cancel()
		close(p.done)
		p.logger.Info(context.Background(), "poller stopped")
	}()

	// Checks never see the loop's cancellation: a tick that has begun runs
	// to completion.
	checkCtx := context.WithoutCancel(ctx)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		if ctx.Err() != nil {
			return
		}
		p.Tick(checkCtx)
		timer.Reset(interval)
	}
}

// Tick checks every registered entity once, concurrently, and waits for all
// checks. Failures are logged and collected per entity.
func (p *Poller) Tick(ctx context.Context) TickReport {
	entities := p.Entities()
	report := TickReport{Started: time.Now(), Checked: len(entities)}

	var mu sync.Mutex
	var g errgroup.Group
	if p.maxConcurrency > 0 {
		g.SetLimit(p.maxConcurrency)
	}
	for _, entity := range entities {
		g.Go(func() error {
			res, err := p.check(ctx, entity)
			mu.Lock()
			defer mu.Unlock()
			if res != nil {
				report.Emitted += len(res.Emitted)
			}
			if err != nil {
				report.Failed++
				if report.Errors == nil {
					report.Errors = make(map[string]error)
				}
				report.Errors[entity] = err
				report.Err = multierr.Append(report.Err, fmt.Errorf("%s: %w", entity, err))
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Duration = time.Since(report.Started)
	p.reporter.TickCompleted(report.Duration, report.Checked, report.Failed)
	p.logger.Debug(ctx, "tick complete",
		adapters.Field{Key: "checked", Value: report.Checked},
		adapters.Field{Key: "failed", Value: report.Failed},
		adapters.Field{Key: "emitted", Value: report.Emitted},
		adapters.Field{Key: "duration", Value: report.Duration.String()})
	return report
}

// check runs one strategy check, turning a panic into an error so it stays
// confined to its entity.
func (p *Poller) check(ctx context.Context, entity string) (res *strategy.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, fmt.Errorf("check panicked: %v", r)
		}
		if err != nil {
			p.logger.Error(ctx, "entity check failed",
				adapters.Field{Key: "entity", Value: entity},
				adapters.Field{Key: "strategy", Value: p.strategy.Name()},
				adapters.Field{Key: "error", Value: err.Error()})
		}
	}()
	return p.strategy.CheckForUpdates(ctx, entity)
}
