package resume

import (
	"context"
	"fmt"

	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
	"github.com/slok/jobwatch/internal/poller"
	"github.com/slok/jobwatch/internal/store"
)

// ServiceConfig is the configuration for the resume service.
type ServiceConfig struct {
	AutoResumer  *poller.AutoResumer
	Orchestrator *poller.Orchestrator
	Store        *store.Store
	Logger       log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.AutoResumer == nil {
		return fmt.Errorf("auto resumer is required")
	}

	if c.Orchestrator == nil {
		return fmt.Errorf("orchestrator is required")
	}

	if c.Store == nil {
		return fmt.Errorf("store is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Resume"})

	return nil
}

// Service resumes the polling of the tasks that are still processing on the provider.
type Service struct {
	resumer *poller.AutoResumer
	orch    *poller.Orchestrator
	store   *store.Store
	logger  log.Logger
}

// NewService creates a new resume service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		resumer: cfg.AutoResumer,
		orch:    cfg.Orchestrator,
		store:   cfg.Store,
		logger:  cfg.Logger,
	}, nil
}

// Request represents the resume request parameters.
type Request struct{}

// Result has the tasks left when the resume finished, these are the tasks that nobody is
// polling anymore (e.g. timed out).
type Result struct {
	Pending []model.Task
}

// Run discovers the processing tasks and polls them one by one until there is nothing left
// to resume or the context is cancelled.
func (s *Service) Run(ctx context.Context, _ Request) (*Result, error) {
	wake := make(chan struct{}, 1)
	unsubscribe := s.store.Subscribe(func(store.Snapshot) {
		select {
		case wake <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	if err := s.resumer.Start(ctx); err != nil {
		return nil, fmt.Errorf("could not start auto resumer: %w", err)
	}
	defer s.resumer.Stop()

	for {
		if res, done := s.finished(); done {
			s.logger.Infof("Nothing left to resume")
			return res, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}
	}
}

// finished returns true when nothing is polling and every processing task is parked.
func (s *Service) finished() (*Result, bool) {
	snap := s.store.Snapshot()
	if snap.Polling.IsPolling {
		return nil, false
	}

	res := &Result{}
	for _, t := range snap.ProcessingTasks() {
		if !s.orch.IsParked(t.ID) {
			return nil, false
		}
		res.Pending = append(res.Pending, t)
	}

	return res, true
}
