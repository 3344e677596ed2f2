package lib

import (
	"context"
	"fmt"
	"time"

	"github.com/slok/jobwatch/internal/app/watch"
	"github.com/slok/jobwatch/internal/model"
	"github.com/slok/jobwatch/internal/poller"
	"github.com/slok/jobwatch/internal/store"
)

// Tasks returns the tracked tasks sorted by ID.
func (c *Client) Tasks() []Task {
	return fromInternalTaskList(c.store.Tasks())
}

// Task returns a tracked task.
func (c *Client) Task(id string) (Task, bool) {
	t, ok := c.store.Task(id)
	if !ok {
		return Task{}, false
	}
	return fromInternalTask(t), true
}

// IsPolling returns true when a polling session is running.
func (c *Client) IsPolling() bool { return c.store.IsPolling() }

// CurrentPollingTask returns the task being polled, empty when nothing is polling.
func (c *Client) CurrentPollingTask() string { return c.store.CurrentPollingTask() }

// State returns a consistent snapshot of the tasks and the polling state.
func (c *Client) State() State { return fromInternalSnapshot(c.store.Snapshot()) }

// Subscribe calls fn with the new state after every change, until unsubscribe is called.
//
// Notifications are delivered in order on a dedicated goroutine, a slow subscriber only
// receives the latest state. fn can call the client.
func (c *Client) Subscribe(fn func(State)) (unsubscribe func()) {
	return c.store.Subscribe(func(s store.Snapshot) { fn(fromInternalSnapshot(s)) })
}

// OnCompletion calls fn every time a tracked job finishes, until unsubscribe is called.
func (c *Client) OnCompletion(fn func(CompletionEvent)) (unsubscribe func()) {
	return c.hub.Subscribe(func(ev model.CompletionEvent) { fn(fromInternalEvent(ev)) })
}

// OnEntityCompletion calls fn every time a tracked job of the entity finishes, until
// unsubscribe is called.
func (c *Client) OnEntityCompletion(entityID string, fn func(CompletionEvent)) (unsubscribe func()) {
	return c.hub.SubscribeEntity(entityID, func(ev model.CompletionEvent) { fn(fromInternalEvent(ev)) })
}

// StartPolling starts polling the task.
//
// Polling the task that is already being polled is a no-op, polling another task stops
// the current session first. Returns [ErrNotValid] if the ID is empty.
func (c *Client) StartPolling(ctx context.Context, taskID string) error {
	return mapError(c.orch.StartPolling(ctx, taskID))
}

// StopPolling stops the running polling session, if any. The task is not resumed
// automatically until polling is started for it again.
func (c *Client) StopPolling() { c.orch.StopPolling() }

// Refresh reconciles the tracked tasks with the provider without starting a polling session.
func (c *Client) Refresh(ctx context.Context) error {
	return mapError(c.orch.Refresh(ctx))
}

// Session returns the running polling session, the state is [SessionStateIdle] when
// nothing is polling.
func (c *Client) Session() Session {
	return fromInternalSession(c.orch.Session())
}

// PollOpts configures a [Controller].
//
// All fields are optional, callbacks are called without any lock held and can call the
// client.
type PollOpts struct {
	// Interval overrides the client polling interval.
	Interval time.Duration
	// MaxRetries overrides the client max retries.
	MaxRetries int
	// OnStatusChange is called when the status or the progress of the task changes.
	OnStatusChange func(Task)
	// OnSuccess is called when the task completes.
	OnSuccess func(Task)
	// OnError is called with the provider errors and, wrapping [ErrJobFailed], when the
	// task fails. A provider error only counts as a retry, polling keeps going.
	OnError func(error)
	// OnTimeout is called when polling gives up before the task finishes.
	OnTimeout func(taskID string)
}

// Controller is a scoped polling handle for a single consumer (e.g. a screen).
//
// Closing a controller only detaches its callbacks, the polling keeps running for the other
// consumers and the auto resume.
type Controller struct {
	ctrl *poller.Controller
}

// NewController returns a new polling controller.
func (c *Client) NewController(opts PollOpts) *Controller {
	cfg := poller.ControllerConfig{
		Interval:   opts.Interval,
		MaxRetries: opts.MaxRetries,
		OnTimeout:  opts.OnTimeout,
	}
	if opts.OnStatusChange != nil {
		cfg.OnStatusChange = func(t model.Task) { opts.OnStatusChange(fromInternalTask(t)) }
	}
	if opts.OnSuccess != nil {
		cfg.OnSuccess = func(t model.Task) { opts.OnSuccess(fromInternalTask(t)) }
	}
	if opts.OnError != nil {
		cfg.OnError = func(err error) { opts.OnError(mapError(err)) }
	}

	return &Controller{ctrl: c.orch.NewController(cfg)}
}

// Start starts polling the task.
func (c *Controller) Start(ctx context.Context, taskID string) error {
	return mapError(c.ctrl.Start(ctx, taskID))
}

// Stop stops the polling if it's still polling the task of this controller.
func (c *Controller) Stop() { c.ctrl.Stop() }

// IsActive returns true if the task of this controller is being polled.
func (c *Controller) IsActive() bool { return c.ctrl.IsActive() }

// Close detaches the controller callbacks.
func (c *Controller) Close() { c.ctrl.Close() }

// WatchOpts configures [Client.Watch].
type WatchOpts struct {
	Interval   time.Duration
	MaxRetries int
	// OnUpdate is called on every status or progress change.
	OnUpdate func(Task)
}

// WatchResult is the outcome of [Client.Watch].
type WatchResult struct {
	// Task is the last known task state, nil if the provider never listed it.
	Task  *Task
	State SessionState
}

// Watch polls the task and blocks until polling finishes or the context is cancelled.
//
// Returns [ErrJobFailed] when the job fails and [ErrTimeout] when polling gives up, in both
// cases with the result. A task that disappears from the provider returns a result with
// [SessionStateStopped].
func (c *Client) Watch(ctx context.Context, taskID string, opts *WatchOpts) (*WatchResult, error) {
	svc, err := watch.NewService(watch.ServiceConfig{
		Orchestrator: c.orch,
		Store:        c.store,
		Logger:       c.logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	req := watch.Request{TaskID: taskID}
	if opts != nil {
		req.Interval = opts.Interval
		req.MaxRetries = opts.MaxRetries
		if opts.OnUpdate != nil {
			req.OnUpdate = func(t model.Task) { opts.OnUpdate(fromInternalTask(t)) }
		}
	}

	res, err := svc.Run(ctx, req)
	if res == nil {
		return nil, mapError(err)
	}

	out := &WatchResult{State: SessionState(res.State)}
	if res.Task != nil {
		t := fromInternalTask(*res.Task)
		out.Task = &t
	}

	return out, mapError(err)
}

func fromInternalSession(s poller.SessionInfo) Session {
	return Session{
		ID:      s.ID,
		TaskID:  s.TaskID,
		State:   SessionState(s.State),
		Retries: s.Retries,
	}
}
