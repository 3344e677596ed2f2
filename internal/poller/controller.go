package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/jobwatch/internal/model"
)

// ControllerConfig is the configuration of a scoped polling controller.
type ControllerConfig struct {
	// Interval overrides the orchestrator interval for the sessions this controller starts.
	Interval time.Duration
	// MaxRetries overrides the orchestrator max retries for the sessions this controller starts.
	MaxRetries     int
	OnStatusChange func(task model.Task)
	OnSuccess      func(task model.Task)
	OnError        func(err error)
	OnTimeout      func(taskID string)
}

// Controller lets a single consumer start and stop polling for one task at a time with its
// own options and callbacks. The polling loop itself belongs to the orchestrator.
type Controller struct {
	orch       *Orchestrator
	listenerID uint64
	opts       Options
	listener   Listener

	mu     sync.Mutex
	taskID string
	closed bool
}

// NewController returns a new scoped controller.
func (o *Orchestrator) NewController(cfg ControllerConfig) *Controller {
	return &Controller{
		orch:       o,
		listenerID: o.newListenerID(),
		opts: Options{
			Interval:   cfg.Interval,
			MaxRetries: cfg.MaxRetries,
		},
		listener: Listener{
			OnStatusChange: cfg.OnStatusChange,
			OnSuccess:      cfg.OnSuccess,
			OnError:        cfg.OnError,
			OnTimeout:      cfg.OnTimeout,
		},
	}
}

// Start starts polling the task. Starting the task that is already being polled only attaches
// the controller callbacks to the running session.
func (c *Controller) Start(ctx context.Context, taskID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("controller is closed")
	}

	if c.taskID != "" && c.taskID != taskID {
		c.orch.detach(c.listenerID)
	}

	l := c.listener
	if err := c.orch.start(ctx, taskID, c.opts, c.listenerID, &l); err != nil {
		return err
	}
	c.taskID = taskID

	return nil
}

// Stop stops the polling session if it's still polling the task of this controller.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.taskID == "" {
		return
	}
	c.orch.stopTask(c.taskID)
}

// IsActive returns true if the running session is polling the task of this controller.
func (c *Controller) IsActive() bool {
	c.mu.Lock()
	taskID := c.taskID
	c.mu.Unlock()

	s := c.orch.Session()
	return taskID != "" && s.TaskID == taskID && s.State.IsRunning()
}

// Close detaches the controller callbacks. The running session is not stopped, other
// consumers could depend on it.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.orch.detach(c.listenerID)
}
