package commands

import (
	"context"
	"fmt"

	"github.com/slok/jobwatch/internal/config"
	"github.com/slok/jobwatch/internal/engine"
	"github.com/slok/jobwatch/internal/joblist"
	"github.com/slok/jobwatch/internal/joblist/fake"
	"github.com/slok/jobwatch/internal/joblist/rest"
	"github.com/slok/jobwatch/internal/joblist/sqlite"
	"github.com/slok/jobwatch/internal/log"
)

// runtime has the polling engine of a command execution.
type runtime struct {
	*engine.Engine
	cfg config.Config
}

func newRuntime(ctx context.Context, cfg config.Config, logger log.Logger) (*runtime, error) {
	ecfg := engine.Config{
		Interval:    cfg.Polling.Interval,
		MaxRetries:  cfg.Polling.MaxRetries,
		PageSize:    cfg.Polling.PageSize,
		GraceWindow: cfg.Polling.GraceWindow,
		SettleDelay: cfg.Polling.SettleDelay,
		Logger:      logger,
	}

	p := cfg.Provider
	switch p.Type {
	case config.ProviderTypeHTTP:
		ecfg.HTTP = &rest.ListerConfig{
			URL:        p.HTTP.URL,
			Token:      p.HTTP.Token,
			Timeout:    p.HTTP.Timeout,
			RateLimit:  p.HTTP.RateLimit,
			Burst:      p.HTTP.Burst,
			MaxRetries: p.HTTP.MaxRetries,
		}
	case config.ProviderTypeFake:
		ecfg.Fake = &fake.ListerConfig{ProgressStep: p.Fake.ProgressStep}
	case config.ProviderTypeSQLite:
		ecfg.SQLite = &sqlite.ProviderConfig{DBPath: p.SQLite.DBPath}
	default:
		return nil, fmt.Errorf("unsupported provider type: %s", p.Type)
	}

	e, err := engine.New(ctx, ecfg)
	if err != nil {
		return nil, err
	}

	return &runtime{Engine: e, cfg: cfg}, nil
}

// repository returns the managed provider repository, only the SQLite provider is managed.
func (r *runtime) repository() (joblist.Repository, error) {
	if r.Repository == nil {
		return nil, fmt.Errorf("jobs can only be managed on the %s provider, current: %s", config.ProviderTypeSQLite, r.cfg.Provider.Type)
	}
	return r.Repository, nil
}
