package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/slok/jobwatch/internal/engine"
	"github.com/slok/jobwatch/internal/event"
	"github.com/slok/jobwatch/internal/joblist"
	"github.com/slok/jobwatch/internal/joblist/fake"
	"github.com/slok/jobwatch/internal/joblist/rest"
	"github.com/slok/jobwatch/internal/joblist/sqlite"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/poller"
	"github.com/slok/jobwatch/internal/store"
)

const (
	defaultDataDir = ".jobwatch"
	defaultDBFile  = "jobs.db"
)

// Config configures the SDK client.
//
// All fields are optional and have sensible defaults. At minimum, an empty
// Config{} will use ~/.jobwatch/jobs.db as a local SQLite provider.
type Config struct {
	// Provider selects the job provider implementation.
	// Default: [ProviderSQLite], ignored when Lister is set.
	Provider ProviderType

	// Lister is a custom job provider, it takes precedence over Provider.
	Lister JobLister

	// DataDir is the base directory for jobwatch data.
	// Default: ~/.jobwatch.
	DataDir string

	// DBPath is the SQLite provider database path.
	// Default: ~/.jobwatch/jobs.db.
	DBPath string

	// HTTP configures the remote provider, required for [ProviderHTTP].
	HTTP *HTTPProviderConfig

	// FakeProgressStep is the progress the running jobs of the [ProviderFake] advance on
	// every listing. Default: 0 (jobs don't advance).
	FakeProgressStep int

	// Interval is the time between polling ticks. Default: 5s.
	Interval time.Duration
	// MaxRetries is the number of non terminal ticks before polling gives up. Default: 120.
	MaxRetries int
	// PageSize is the number of jobs requested on every listing. Default: 100.
	PageSize int
	// GraceWindow is the time a finished task is kept before being removed. Default: 1.5s.
	GraceWindow time.Duration

	// AutoResume resumes polling of the processing tasks when nothing is polling.
	AutoResume bool
	// SettleDelay is the time the auto resume waits before resuming. Default: 2s.
	SettleDelay time.Duration

	// Logger receives structured log output from the SDK.
	// Default: noop (silent). See the log sub-package for the interface.
	Logger log.Logger
}

// HTTPProviderConfig configures the remote provider API client.
type HTTPProviderConfig struct {
	// URL is the API base URL, jobs are listed on `<URL>/jobs?page=N&limit=M`.
	URL string
	// Token is the bearer token, optional.
	Token string
	// Timeout is the timeout of a single request. Default: 10s.
	Timeout time.Duration
	// RateLimit is the maximum number of requests per second. Default: 2.
	RateLimit float64
	Burst     int
	// MaxRetries is the number of retries of a failed request. Default: 3.
	MaxRetries int
}

func (c *Config) defaults() error {
	if c.Provider == "" {
		c.Provider = ProviderSQLite
	}

	if c.Lister == nil {
		switch c.Provider {
		case ProviderSQLite:
			if c.DataDir == "" {
				home, err := os.UserHomeDir()
				if err != nil {
					return fmt.Errorf("could not get user home dir: %w", err)
				}
				c.DataDir = filepath.Join(home, defaultDataDir)
			}
			if c.DBPath == "" {
				c.DBPath = filepath.Join(c.DataDir, defaultDBFile)
			}
		case ProviderHTTP:
			if c.HTTP == nil || c.HTTP.URL == "" {
				return fmt.Errorf("http provider url is required: %w", ErrNotValid)
			}
		case ProviderFake:
		default:
			return fmt.Errorf("unsupported provider type: %s: %w", c.Provider, ErrNotValid)
		}
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Client is the main SDK entry point to follow provider jobs.
//
// A Client owns a single polling loop: starting polling for a task stops the polling of
// any other task. Create a Client with [New] and release its resources with [Client.Close].
// A Client is safe for concurrent use.
type Client struct {
	engine  *engine.Engine
	store   *store.Store
	hub     *event.Hub
	orch    *poller.Orchestrator
	resumer *poller.AutoResumer
	lister  joblist.Lister
	repo    joblist.Repository
	fake    *fake.Lister
	logger  log.Logger
}

// New creates a new SDK client.
//
// The caller must call [Client.Close] when done to stop the polling and release the
// provider resources. Typically used with defer:
//
//	client, err := lib.New(ctx, lib.Config{})
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
func New(ctx context.Context, cfg Config) (*Client, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e, err := engine.New(ctx, cfg.engineConfig())
	if err != nil {
		return nil, mapError(err)
	}

	c := &Client{
		engine:  e,
		store:   e.Store,
		hub:     e.Hub,
		orch:    e.Orchestrator,
		resumer: e.AutoResumer,
		lister:  e.Lister,
		repo:    e.Repository,
		fake:    e.Fake,
		logger:  cfg.Logger,
	}

	if cfg.AutoResume {
		if err := c.resumer.Start(ctx); err != nil {
			_ = e.Close()
			return nil, fmt.Errorf("could not start auto resume: %w", err)
		}
	}

	return c, nil
}

func (c Config) engineConfig() engine.Config {
	ecfg := engine.Config{
		Interval:    c.Interval,
		MaxRetries:  c.MaxRetries,
		PageSize:    c.PageSize,
		GraceWindow: c.GraceWindow,
		SettleDelay: c.SettleDelay,
		Logger:      c.Logger,
	}

	if c.Lister != nil {
		ecfg.Lister = listerAdapter{l: c.Lister}
		return ecfg
	}

	switch c.Provider {
	case ProviderHTTP:
		ecfg.HTTP = &rest.ListerConfig{
			URL:        c.HTTP.URL,
			Token:      c.HTTP.Token,
			Timeout:    c.HTTP.Timeout,
			RateLimit:  c.HTTP.RateLimit,
			Burst:      c.HTTP.Burst,
			MaxRetries: c.HTTP.MaxRetries,
		}
	case ProviderFake:
		ecfg.Fake = &fake.ListerConfig{ProgressStep: c.FakeProgressStep}
	default:
		ecfg.SQLite = &sqlite.ProviderConfig{DBPath: c.DBPath}
	}

	return ecfg
}

// Close stops the polling and releases the resources held by the client.
// After Close returns, the client must not be used.
func (c *Client) Close() error {
	return c.engine.Close()
}
