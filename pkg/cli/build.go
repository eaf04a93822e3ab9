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
	"context"
	"fmt"
	"io"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/jeremyhahn/go-objpoller/pkg/adapters"
	"github.com/jeremyhahn/go-objpoller/pkg/checkpoint"
	"github.com/jeremyhahn/go-objpoller/pkg/common"
	"github.com/jeremyhahn/go-objpoller/pkg/emitter"
	"github.com/jeremyhahn/go-objpoller/pkg/factory"
	"github.com/jeremyhahn/go-objpoller/pkg/metrics"
	"github.com/jeremyhahn/go-objpoller/pkg/strategy"
	"github.com/jeremyhahn/go-objpoller/pkg/watermark"
)

// redisKeyPrefix namespaces watermark keys in a shared Redis.
const redisKeyPrefix = "objpoller:watermark:"

// BuildOptions carries process-level collaborators that do not come from
// configuration.
type BuildOptions struct {
	// Clock defaults to time.Now.
	Clock func() time.Time

	// LogWriter receives log output. Defaults to stdout.
	LogWriter io.Writer

	// RecordEvents keeps every emitted event for Events.
	RecordEvents bool
}

// Components is the wired object graph built from a Config.
type Components struct {
	Config     *Config
	Logger     adapters.Logger
	Storage    common.Storage
	Checkpoint checkpoint.Store
	Watermarks *watermark.Store
	Emitter    emitter.Emitter
	Registry   *prometheus.Registry
	Counters   *metrics.Counters
	Reporter   metrics.Reporter
	Strategy   strategy.Strategy

	clock    func() time.Time
	recorder *eventRecorder
	closers  []func() error
}

// Build validates cfg and constructs every component. On failure, anything
// already opened is closed again.
func Build(ctx context.Context, cfg *Config, opts BuildOptions) (c *Components, err error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}

	c = &Components{Config: cfg, clock: opts.Clock}
	defer func() {
		if err != nil {
			err = multierr.Append(err, c.Close())
			c = nil
		}
	}()

	if c.Logger, err = BuildLogger(cfg, opts.LogWriter); err != nil {
		return c, err
	}
	if c.Storage, err = BuildStorage(cfg); err != nil {
		return c, err
	}

	var closeCheckpoint func() error
	if c.Checkpoint, closeCheckpoint, err = BuildCheckpoint(ctx, cfg); err != nil {
		return c, err
	}
	c.closers = append(c.closers, closeCheckpoint)

	initializer, err := BuildInitializer(cfg, opts.Clock)
	if err != nil {
		return c, err
	}
	c.Watermarks = watermark.New(&watermark.Config{
		Initializer: initializer,
		Checkpoint:  c.Checkpoint,
		Logger:      c.Logger,
	})

	if c.Emitter, err = BuildEmitter(cfg, c.Logger); err != nil {
		return c, err
	}
	c.closers = append(c.closers, func() error { return emitter.Close(c.Emitter) })
	if opts.RecordEvents {
		c.recorder = &eventRecorder{}
		c.Emitter = emitter.Multi{c.Emitter, c.recorder}
	}

	c.Registry = prometheus.NewRegistry()
	prom, err := metrics.NewPrometheus(c.Registry)
	if err != nil {
		return c, err
	}
	c.Counters = metrics.NewCounters()
	c.Reporter = metrics.Multi{prom, c.Counters}

	var dir common.Directory = c.Storage
	if cfg.ListRateLimit > 0 {
		dir = common.NewRateLimitedDirectory(dir, cfg.ListRateLimit, max(1, int(cfg.ListRateLimit)))
	}
	c.Strategy, err = BuildStrategy(cfg, dir,
		strategy.WithClock(opts.Clock),
		strategy.WithLogger(c.Logger),
		strategy.WithReporter(c.Reporter),
		strategy.WithEmitter(c.Emitter),
		strategy.WithWatermarks(c.Watermarks),
	)
	return c, err
}

// Close releases connections in reverse order of creation.
func (c *Components) Close() error {
	var err error
	for _, fn := range slices.Backward(c.closers) {
		err = multierr.Append(err, fn())
	}
	c.closers = nil
	return err
}

// Events returns and clears the recorded events. It is empty unless the
// components were built with RecordEvents.
func (c *Components) Events() []emitter.Event {
	if c.recorder == nil {
		return nil
	}
	return c.recorder.drain()
}

// BuildLogger creates the logger selected by log-format and log-level.
func BuildLogger(cfg *Config, w io.Writer) (adapters.Logger, error) {
	level, err := adapters.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, newConfigError("log-level", err.Error())
	}
	logger, err := adapters.NewLogger(cfg.LogFormat, level, w)
	if err != nil {
		return nil, newConfigError("log-format", err.Error())
	}
	return logger, nil
}

// BuildStorage creates the configured backend through the factory.
func BuildStorage(cfg *Config) (common.Storage, error) {
	storage, err := factory.NewStorage(cfg.Backend, cfg.StorageSettings())
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", cfg.Backend, err)
	}
	return storage, nil
}

// BuildCheckpoint opens the configured watermark store. The returned func
// releases it and is never nil.
func BuildCheckpoint(ctx context.Context, cfg *Config) (checkpoint.Store, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Checkpoint {
	case CheckpointNone, "":
		return checkpoint.None{}, noop, nil
	case CheckpointMemory:
		return checkpoint.NewMemory(), noop, nil
	case CheckpointFile:
		f, err := checkpoint.NewFile(cfg.CheckpointPath)
		if err != nil {
			return nil, noop, err
		}
		return f, noop, nil
	case CheckpointPostgres:
		p, err := checkpoint.OpenPostgres(ctx, cfg.CheckpointDSN, checkpoint.DefaultTable)
		if err != nil {
			return nil, noop, err
		}
		return p, func() error { p.Close(); return nil }, nil
	case CheckpointRedis:
		r, err := checkpoint.OpenRedis(ctx, cfg.CheckpointDSN, redisKeyPrefix)
		if err != nil {
			return nil, noop, err
		}
		return r, r.Close, nil
	default:
		return nil, noop, newConfigError("checkpoint", fmt.Sprintf("unsupported checkpoint %q", cfg.Checkpoint))
	}
}

// BuildInitializer returns the cold-start initializer for entities without
// a persisted watermark.
func BuildInitializer(cfg *Config, clock func() time.Time) (watermark.Initializer, error) {
	switch cfg.ColdStart {
	case ColdStartNow, "":
		return watermark.Now(clock), nil
	case ColdStartEpoch:
		return watermark.Fixed(time.Unix(0, 0).UTC()), nil
	case ColdStartLookback:
		return watermark.Lookback(clock, cfg.ColdStartLookback), nil
	default:
		return nil, newConfigError("cold-start", fmt.Sprintf("unsupported cold-start %q", cfg.ColdStart))
	}
}

// BuildEmitter connects the configured emitter.
func BuildEmitter(cfg *Config, logger adapters.Logger) (emitter.Emitter, error) {
	switch cfg.Emitter {
	case EmitterLog, "":
		return emitter.NewLog(logger), nil
	case EmitterRabbitMQ:
		r, err := emitter.DialRabbitMQ(emitter.RabbitMQConfig{
			URL:      cfg.RabbitMQURL,
			Exchange: cfg.RabbitMQExchange,
		})
		if err != nil {
			return nil, err
		}
		return r, nil
	case EmitterKafka:
		k, err := emitter.DialKafka(emitter.KafkaConfig{
			Brokers:  cfg.KafkaBrokers,
			Topic:    cfg.KafkaTopic,
			ClientID: "objpoller",
		})
		if err != nil {
			return nil, err
		}
		return k, nil
	default:
		return nil, newConfigError("emitter", fmt.Sprintf("unsupported emitter %q", cfg.Emitter))
	}
}

// BuildStrategy creates the configured strategy over dir.
func BuildStrategy(cfg *Config, dir common.Directory, opts ...strategy.Option) (strategy.Strategy, error) {
	switch cfg.Strategy {
	case StrategyDelayed:
		sc := strategy.DefaultDelayedSlidingWindowConfig()
		sc.Lookbehind = cfg.LookbehindWindows
		if cfg.ArtificialLag != nil {
			sc.ArtificialLag = *cfg.ArtificialLag
		}
		return nonNil(strategy.NewDelayedSlidingWindow(dir, sc, opts...))
	case StrategyLastModified:
		sc := strategy.DefaultLastModifiedOptimizedConfig()
		if cfg.ArtificialLag != nil {
			sc.ArtificialLag = *cfg.ArtificialLag
		}
		return nonNil(strategy.NewLastModifiedOptimized(dir, sc, opts...))
	case StrategyOnePlusN:
		sc := strategy.DefaultOnePlusNWindowsConfig()
		sc.TrailingWindows = cfg.TrailingWindows
		if cfg.SeenSetSize > 0 {
			seen, err := strategy.NewLRUSeenSet(cfg.SeenSetSize)
			if err != nil {
				return nil, err
			}
			sc.Seen = seen
		}
		return nonNil(strategy.NewOnePlusNWindows(dir, sc, opts...))
	default:
		return nil, newConfigError("strategy", fmt.Sprintf("unsupported strategy %q", cfg.Strategy))
	}
}

// nonNil keeps a failed constructor from yielding a non-nil interface
// holding a nil pointer.
func nonNil[S strategy.Strategy](s S, err error) (strategy.Strategy, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []emitter.Event
}

func (r *eventRecorder) Emit(_ context.Context, event emitter.Event) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
	return nil
}

func (r *eventRecorder) drain() []emitter.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.events
	r.events = nil
	return out
}
