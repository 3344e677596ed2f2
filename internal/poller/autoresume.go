package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/store"
)

// DefaultSettleDelay is the default time the auto resumer waits before resuming a task.
const DefaultSettleDelay = 2 * time.Second

// AutoResumerConfig is the configuration for the auto resumer.
type AutoResumerConfig struct {
	Orchestrator *Orchestrator
	Store        *store.Store
	// SettleDelay is the time to wait before resuming, it gives the provider time to
	// register newly created jobs.
	SettleDelay time.Duration
	Logger      log.Logger
}

func (c *AutoResumerConfig) defaults() error {
	if c.Orchestrator == nil {
		return fmt.Errorf("orchestrator is required")
	}

	if c.Store == nil {
		return fmt.Errorf("store is required")
	}

	if c.SettleDelay < 0 {
		return fmt.Errorf("settle delay can't be negative")
	}
	if c.SettleDelay == 0 {
		c.SettleDelay = DefaultSettleDelay
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "poller.AutoResumer"})

	return nil
}

// AutoResumer watches the store and, when nothing is polling, resumes polling a task that is
// still processing (e.g. a consumer that started it went away before it finished).
type AutoResumer struct {
	orch        *Orchestrator
	store       *store.Store
	settleDelay time.Duration
	logger      log.Logger

	mu          sync.Mutex
	ctx         context.Context
	timer       *time.Timer
	unsubscribe func()
	running     bool
}

// NewAutoResumer returns a new auto resumer.
func NewAutoResumer(cfg AutoResumerConfig) (*AutoResumer, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &AutoResumer{
		orch:        cfg.Orchestrator,
		store:       cfg.Store,
		settleDelay: cfg.SettleDelay,
		logger:      cfg.Logger,
	}, nil
}

// Start discovers the tasks on the provider and starts watching the store. Starting an
// already started auto resumer is a no-op. A failed discovery is logged, the tasks will be
// discovered by the next polling.
func (a *AutoResumer) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = true
	a.ctx = context.WithoutCancel(ctx)
	a.mu.Unlock()

	if err := a.orch.Refresh(ctx); err != nil {
		a.logger.Warningf("Could not discover jobs: %s", err)
	}

	unsubscribe := a.store.Subscribe(func(snap store.Snapshot) { a.evaluate(snap) })

	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		unsubscribe()
		return nil
	}
	a.unsubscribe = unsubscribe
	a.mu.Unlock()

	a.evaluate(a.store.Snapshot())
	return nil
}

// Stop stops watching the store. The running polling session is not stopped.
func (a *AutoResumer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.running = false
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.unsubscribe != nil {
		a.unsubscribe()
		a.unsubscribe = nil
	}
}

// evaluate schedules a resume after the settle delay when there is something to resume.
// Only one resume is scheduled at a time.
func (a *AutoResumer) evaluate(snap store.Snapshot) {
	if snap.Polling.IsPolling || a.candidate(snap) == "" {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running || a.timer != nil {
		return
	}
	a.timer = time.AfterFunc(a.settleDelay, a.resume)
}

// resume checks again the state after the settle delay and starts polling.
func (a *AutoResumer) resume() {
	a.mu.Lock()
	a.timer = nil
	running := a.running
	ctx := a.ctx
	a.mu.Unlock()

	if !running {
		return
	}

	snap := a.store.Snapshot()
	if snap.Polling.IsPolling {
		return
	}

	taskID := a.candidate(snap)
	if taskID == "" {
		return
	}

	started, err := a.orch.startIfIdle(ctx, taskID)
	if err != nil {
		a.logger.Errorf("Could not resume polling of task %s: %s", taskID, err)
		return
	}
	if started {
		a.logger.Infof("Resumed polling of processing task %s", taskID)
	}
}

// candidate returns the first processing task that is not parked.
func (a *AutoResumer) candidate(snap store.Snapshot) string {
	for _, t := range snap.ProcessingTasks() {
		if !a.orch.IsParked(t.ID) {
			return t.ID
		}
	}

	return ""
}
