package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
	"github.com/slok/jobwatch/internal/poller"
	"github.com/slok/jobwatch/internal/store"
)

// ServiceConfig is the configuration for the watch service.
type ServiceConfig struct {
	Orchestrator *poller.Orchestrator
	Store        *store.Store
	Logger       log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Orchestrator == nil {
		return fmt.Errorf("orchestrator is required")
	}

	if c.Store == nil {
		return fmt.Errorf("store is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "app.Watch"})

	return nil
}

// Service follows a task until its polling session finishes.
type Service struct {
	orch   *poller.Orchestrator
	store  *store.Store
	logger log.Logger
}

// NewService creates a new watch service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		orch:   cfg.Orchestrator,
		store:  cfg.Store,
		logger: cfg.Logger,
	}, nil
}

// Request represents the watch request parameters.
type Request struct {
	// TaskID is the provider job ID to follow.
	TaskID string
	// Interval and MaxRetries override the polling defaults when set.
	Interval   time.Duration
	MaxRetries int
	// OnUpdate is called on every status or progress change of the task.
	OnUpdate func(task model.Task)
}

// Result is the outcome of a watch.
type Result struct {
	// Task is the last known state of the task, nil if the task was never listed.
	Task  *model.Task
	State model.SessionState
}

// Run polls the task and blocks until the polling session finishes or the context is
// cancelled. A failed task returns an error wrapping model.ErrJobFailed and a session that
// gave up an error wrapping model.ErrTimeout, in both cases with the result.
//
// Cancelling the context only detaches the watcher, the polling session keeps running.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	if req.TaskID == "" {
		return nil, fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}
	logger := s.logger.WithValues(log.Kv{"task-id": req.TaskID})

	var (
		mu   sync.Mutex
		last *model.Task
		// done is set by the callback that finishes the session, it runs after the last
		// status change callback.
		done bool
	)
	setDone := func() {
		mu.Lock()
		done = true
		mu.Unlock()
	}
	setLast := func(t model.Task) {
		mu.Lock()
		last = &t
		mu.Unlock()
	}

	// Wake up on every store change or session callback to check the session state.
	wake := make(chan struct{}, 1)
	signal := func() {
		select {
		case wake <- struct{}{}:
		default:
		}
	}

	ctrl := s.orch.NewController(poller.ControllerConfig{
		Interval:   req.Interval,
		MaxRetries: req.MaxRetries,
		OnStatusChange: func(t model.Task) {
			setLast(t)
			if req.OnUpdate != nil {
				req.OnUpdate(t)
			}
		},
		OnSuccess: func(t model.Task) {
			setLast(t)
			setDone()
			signal()
		},
		OnError: func(err error) {
			if errors.Is(err, model.ErrJobFailed) {
				setDone()
			} else {
				logger.Warningf("Polling error: %s", err)
			}
			signal()
		},
		OnTimeout: func(string) {
			setDone()
			signal()
		},
	})
	defer ctrl.Close()

	unsubscribe := s.store.Subscribe(func(store.Snapshot) { signal() })
	defer unsubscribe()

	if err := ctrl.Start(ctx, req.TaskID); err != nil {
		return nil, fmt.Errorf("could not start polling: %w", err)
	}
	logger.Debugf("Watching task")

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-wake:
		}

		if ctrl.IsActive() {
			continue
		}

		state := model.SessionStateStopped
		if ls, ok := s.orch.LastSession(); ok && ls.TaskID == req.TaskID {
			state = ls.State
		}

		mu.Lock()
		callbacksDone := done
		res := &Result{Task: last, State: state}
		mu.Unlock()

		// Wait for the callbacks of the finished session.
		if !callbacksDone && (state == model.SessionStateSucceeded || state == model.SessionStateFailed || state == model.SessionStateTimedOut) {
			continue
		}
		if t, ok := s.store.Task(req.TaskID); ok {
			res.Task = &t
		}

		switch state {
		case model.SessionStateFailed:
			return res, fmt.Errorf("task %s: %w", req.TaskID, model.ErrJobFailed)
		case model.SessionStateTimedOut:
			return res, fmt.Errorf("task %s: %w", req.TaskID, model.ErrTimeout)
		}

		return res, nil
	}
}
