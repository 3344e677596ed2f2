package tasklist

import (
	"context"
	"fmt"

	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
	"github.com/slok/jobwatch/internal/store"
)

// Refresher reconciles the tracked tasks with the provider.
type Refresher interface {
	Refresh(ctx context.Context) error
}

// ServiceConfig is the configuration for the task list service.
type ServiceConfig struct {
	Refresher Refresher
	Store     *store.Store
	Logger    log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Refresher == nil {
		return fmt.Errorf("refresher is required")
	}

	if c.Store == nil {
		return fmt.Errorf("store is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.TaskList"})

	return nil
}

// Service lists the tracked tasks.
type Service struct {
	refresher Refresher
	store     *store.Store
	logger    log.Logger
}

// NewService creates a new task list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		refresher: cfg.Refresher,
		store:     cfg.Store,
		logger:    cfg.Logger,
	}, nil
}

// Request represents the task list request parameters.
type Request struct {
	// Status filters the tasks by status, all the tasks are returned when empty.
	Status model.TaskStatus
}

// Result is the list of tasks and the polling state.
type Result struct {
	Tasks   []model.Task
	Polling model.PollingState
}

// Run reconciles the store with the provider and returns the tracked tasks sorted by ID.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.Status != "" && !req.Status.Valid() {
		return nil, fmt.Errorf("unknown status %q: %w", req.Status, model.ErrNotValid)
	}

	if err := s.refresher.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("could not refresh tasks: %w", err)
	}

	snap := s.store.Snapshot()
	res := &Result{Polling: snap.Polling}
	for _, t := range s.store.Tasks() {
		if req.Status != "" && t.Status != req.Status {
			continue
		}
		res.Tasks = append(res.Tasks, t)
	}
	s.logger.Debugf("Listed %d tasks", len(res.Tasks))

	return res, nil
}
