// Package engine wires a job provider with the task store, the completion event hub and the
// polling orchestrator. The SDK client and the CLI commands run on top of an Engine.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/jobwatch/internal/event"
	"github.com/slok/jobwatch/internal/joblist"
	"github.com/slok/jobwatch/internal/joblist/fake"
	"github.com/slok/jobwatch/internal/joblist/rest"
	"github.com/slok/jobwatch/internal/joblist/sqlite"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/poller"
	"github.com/slok/jobwatch/internal/store"
)

// Config is the configuration of the engine.
//
// Exactly one provider must be set: Lister, HTTP, SQLite or Fake.
type Config struct {
	// Lister is a custom job provider.
	Lister joblist.Lister
	HTTP   *rest.ListerConfig
	SQLite *sqlite.ProviderConfig
	Fake   *fake.ListerConfig

	Interval    time.Duration
	MaxRetries  int
	PageSize    int
	GraceWindow time.Duration
	SettleDelay time.Duration

	Logger log.Logger
}

func (c *Config) defaults() error {
	providers := 0
	if c.Lister != nil {
		providers++
	}
	if c.HTTP != nil {
		providers++
	}
	if c.SQLite != nil {
		providers++
	}
	if c.Fake != nil {
		providers++
	}
	switch providers {
	case 0:
		return fmt.Errorf("a job provider is required")
	case 1:
	default:
		return fmt.Errorf("only one job provider can be set, got %d", providers)
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Engine is the running polling engine of a provider.
type Engine struct {
	Lister joblist.Lister
	// Repository is nil when the provider jobs can't be managed locally.
	Repository   joblist.Repository
	Fake         *fake.Lister
	Store        *store.Store
	Hub          *event.Hub
	Orchestrator *poller.Orchestrator
	// AutoResumer is created stopped.
	AutoResumer *poller.AutoResumer

	closeFn func() error
}

// New creates the provider and the polling engine on top of it. The caller must call
// [Engine.Close] when done.
func New(ctx context.Context, cfg Config) (_ *Engine, err error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &Engine{}
	if err := e.setupProvider(ctx, cfg); err != nil {
		return nil, err
	}
	defer func() {
		if err != nil && e.closeFn != nil {
			_ = e.closeFn()
		}
	}()

	e.Store, err = store.New(store.Config{Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create store: %w", err)
	}

	e.Hub, err = event.NewHub(event.HubConfig{Logger: cfg.Logger})
	if err != nil {
		return nil, fmt.Errorf("could not create event hub: %w", err)
	}

	e.Orchestrator, err = poller.NewOrchestrator(poller.OrchestratorConfig{
		Store:       e.Store,
		Lister:      e.Lister,
		Publisher:   e.Hub,
		Logger:      cfg.Logger,
		Interval:    cfg.Interval,
		MaxRetries:  cfg.MaxRetries,
		PageSize:    cfg.PageSize,
		GraceWindow: cfg.GraceWindow,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create orchestrator: %w", err)
	}

	e.AutoResumer, err = poller.NewAutoResumer(poller.AutoResumerConfig{
		Orchestrator: e.Orchestrator,
		Store:        e.Store,
		SettleDelay:  cfg.SettleDelay,
		Logger:       cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create auto resumer: %w", err)
	}

	return e, nil
}

func (e *Engine) setupProvider(ctx context.Context, cfg Config) error {
	switch {
	case cfg.Lister != nil:
		e.Lister = cfg.Lister

	case cfg.HTTP != nil:
		c := *cfg.HTTP
		if c.Logger == nil {
			c.Logger = cfg.Logger
		}
		l, err := rest.NewLister(c)
		if err != nil {
			return fmt.Errorf("could not create http provider: %w", err)
		}
		e.Lister = l

	case cfg.Fake != nil:
		c := *cfg.Fake
		if c.Logger == nil {
			c.Logger = cfg.Logger
		}
		l, err := fake.NewLister(c)
		if err != nil {
			return fmt.Errorf("could not create fake provider: %w", err)
		}
		e.Lister = l
		e.Fake = l

	case cfg.SQLite != nil:
		c := *cfg.SQLite
		if c.Logger == nil {
			c.Logger = cfg.Logger
		}
		p, err := sqlite.NewProvider(ctx, c)
		if err != nil {
			return fmt.Errorf("could not create sqlite provider: %w", err)
		}
		e.Lister = p
		e.Repository = p
		e.closeFn = p.Close
	}

	return nil
}

// Close stops the auto resume and the polling, then releases the provider.
func (e *Engine) Close() error {
	e.AutoResumer.Stop()
	e.Orchestrator.Close()

	if e.closeFn != nil {
		return e.closeFn()
	}
	return nil
}
