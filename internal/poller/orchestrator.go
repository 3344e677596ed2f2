// Package poller drives the job listing polling loop.
//
// A single Orchestrator owns the only polling loop of the process (single flight), scoped
// Controllers and the AutoResumer request polling through it and never own the loop
// themselves, so detaching one of them never stops a loop another one depends on.
package poller

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/slok/jobwatch/internal/event"
	"github.com/slok/jobwatch/internal/joblist"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
	"github.com/slok/jobwatch/internal/store"
)

const (
	// DefaultInterval is the default time between polling ticks.
	DefaultInterval = 5 * time.Second
	// DefaultMaxRetries is the default number of non terminal ticks before giving up.
	DefaultMaxRetries = 120
	// DefaultGraceWindow is the default time a terminal task is kept before removing it.
	DefaultGraceWindow = 1500 * time.Millisecond
)

// ErrClosed is returned when using a closed orchestrator.
var ErrClosed = errors.New("orchestrator closed")

// OrchestratorConfig is the configuration for the orchestrator.
type OrchestratorConfig struct {
	Store     *store.Store
	Lister    joblist.Lister
	Publisher event.Publisher
	Logger    log.Logger
	// Interval is the default time between ticks of a polling session.
	Interval time.Duration
	// MaxRetries is the default number of non terminal ticks before the session times out.
	MaxRetries int
	// PageSize is the number of jobs requested on every listing.
	PageSize int
	// GraceWindow is the time a terminal task stays in the store before being removed.
	GraceWindow time.Duration
}

func (c *OrchestratorConfig) defaults() error {
	if c.Store == nil {
		return fmt.Errorf("store is required")
	}

	if c.Lister == nil {
		return fmt.Errorf("lister is required")
	}

	if c.Publisher == nil {
		c.Publisher = noopPublisher{}
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "poller.Orchestrator"})

	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}

	if c.MaxRetries <= 0 {
		c.MaxRetries = DefaultMaxRetries
	}

	if c.PageSize <= 0 {
		c.PageSize = joblist.DefaultPageSize
	}

	if c.GraceWindow < 0 {
		return fmt.Errorf("grace window can't be negative")
	}
	if c.GraceWindow == 0 {
		c.GraceWindow = DefaultGraceWindow
	}

	return nil
}

type noopPublisher struct{}

func (noopPublisher) Publish(model.CompletionEvent) {}

// Options customize a polling session.
type Options struct {
	Interval   time.Duration
	MaxRetries int
}

// Listener receives the events of the polling session bound to a task. All the functions
// are optional and are called without any lock held, they can call the orchestrator.
type Listener struct {
	// OnStatusChange is called when the status or the progress of the task changes.
	OnStatusChange func(task model.Task)
	// OnSuccess is called when the task completes.
	OnSuccess func(task model.Task)
	// OnError is called with the listing errors and, wrapping model.ErrJobFailed, when the
	// task fails. A listing error is also logged, it only counts as a retry and doesn't end
	// the session, listeners that only care about the outcome can ignore it.
	OnError func(err error)
	// OnTimeout is called when the session gives up before the task finishes.
	OnTimeout func(taskID string)
}

// SessionInfo describes a polling session.
type SessionInfo struct {
	ID      string
	TaskID  string
	State   model.SessionState
	Retries int
}

// Orchestrator runs the polling loop, it's safe for concurrent use. Only one polling session
// is active at a time, starting a session for a different task stops the current one.
type Orchestrator struct {
	store       *store.Store
	lister      joblist.Lister
	publisher   event.Publisher
	logger      log.Logger
	interval    time.Duration
	maxRetries  int
	pageSize    int
	graceWindow time.Duration

	mu             sync.Mutex
	session        *session
	last           *SessionInfo
	parked         map[string]struct{}
	graceTimers    map[string]*time.Timer
	nextListenerID uint64
	// listingSeq numbers the started listings, appliedSeq is the newest one applied to the
	// store. Older listings are discarded.
	listingSeq uint64
	appliedSeq uint64
	closed     bool
}

// NewOrchestrator returns a new orchestrator.
func NewOrchestrator(cfg OrchestratorConfig) (*Orchestrator, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Orchestrator{
		store:       cfg.Store,
		lister:      cfg.Lister,
		publisher:   cfg.Publisher,
		logger:      cfg.Logger,
		interval:    cfg.Interval,
		maxRetries:  cfg.MaxRetries,
		pageSize:    cfg.PageSize,
		graceWindow: cfg.GraceWindow,
		parked:      map[string]struct{}{},
		graceTimers: map[string]*time.Timer{},
	}, nil
}

// StartPolling starts polling the task with the default options.
//
// If a session for the same task is already running it's a no-op, if it's for another task
// that session is stopped first. The session is owned by the orchestrator, cancelling ctx
// doesn't stop it.
func (o *Orchestrator) StartPolling(ctx context.Context, taskID string) error {
	return o.start(ctx, taskID, Options{}, 0, nil)
}

// StopPolling stops the running session, if any. The task keeps its last known status and
// it's not resumed automatically until polling is explicitly started for it again.
func (o *Orchestrator) StopPolling() {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.session
	if s == nil {
		o.store.SetPollingState(false)
		return
	}

	o.parked[s.taskID] = struct{}{}
	o.endLocked(s, model.SessionStateStopped)
	s.logger.Infof("Polling stopped")
}

// Refresh reconciles the store with the current job listing without starting a session.
func (o *Orchestrator) Refresh(ctx context.Context) error {
	seq := o.startListing()
	jobs, err := o.lister.ListJobs(ctx, 1, o.pageSize)
	if err != nil {
		return fmt.Errorf("could not list jobs: %w", err)
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	if !o.applyListingLocked(seq) {
		o.mu.Unlock()
		o.logger.Debugf("Discarding out of order listing")
		return nil
	}
	changes := o.store.UpsertFromListing(jobs)
	calls := o.handleChangesLocked(changes)
	o.mu.Unlock()

	runAll(calls)
	return nil
}

// Session returns the running session, or an idle session when nothing is polling.
func (o *Orchestrator) Session() SessionInfo {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session == nil {
		return SessionInfo{State: model.SessionStateIdle}
	}

	return o.session.info()
}

// LastSession returns the last finished session.
func (o *Orchestrator) LastSession() (SessionInfo, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.last == nil {
		return SessionInfo{}, false
	}

	return *o.last, true
}

// IsParked returns true when polling for the task gave up or was stopped explicitly, parked
// tasks are not resumed automatically.
func (o *Orchestrator) IsParked(taskID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	_, ok := o.parked[taskID]
	return ok
}

// Close stops the running session and the pending task removals.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return
	}
	o.closed = true

	if o.session != nil {
		o.endLocked(o.session, model.SessionStateStopped)
	}
	for id, t := range o.graceTimers {
		t.Stop()
		delete(o.graceTimers, id)
	}
}

func (o *Orchestrator) start(ctx context.Context, taskID string, opts Options, listenerID uint64, l *Listener) error {
	if taskID == "" {
		return fmt.Errorf("task id is required: %w", model.ErrNotValid)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	return o.startLocked(ctx, taskID, opts, listenerID, l)
}

// startIfIdle starts polling the task only if there is no running session and the task is
// not parked.
func (o *Orchestrator) startIfIdle(ctx context.Context, taskID string) (bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session != nil {
		return false, nil
	}
	if _, ok := o.parked[taskID]; ok {
		return false, nil
	}

	if err := o.startLocked(ctx, taskID, Options{}, 0, nil); err != nil {
		return false, err
	}

	return true, nil
}

func (o *Orchestrator) startLocked(ctx context.Context, taskID string, opts Options, listenerID uint64, l *Listener) error {
	if o.closed {
		return ErrClosed
	}

	delete(o.parked, taskID)

	if s := o.session; s != nil {
		if s.taskID == taskID {
			if l != nil {
				s.listeners[listenerID] = *l
			}
			s.logger.Debugf("Polling already active for task, ignoring start")
			return nil
		}

		s.logger.Infof("Switching polling to task %s", taskID)
		o.endLocked(s, model.SessionStateStopped)
	}

	if opts.Interval <= 0 {
		opts.Interval = o.interval
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = o.maxRetries
	}

	s := newSession(ctx, taskID, opts, o.logger)
	if l != nil {
		s.listeners[listenerID] = *l
	}
	o.session = s
	o.store.StartPolling(taskID)

	s.logger.Infof("Polling started (interval: %s, max retries: %d)", opts.Interval, opts.MaxRetries)
	go o.run(s)

	return nil
}

// stopTask stops the running session only if it's bound to the task.
func (o *Orchestrator) stopTask(taskID string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	s := o.session
	if s == nil || s.taskID != taskID {
		return
	}

	o.parked[taskID] = struct{}{}
	o.endLocked(s, model.SessionStateStopped)
	s.logger.Infof("Polling stopped")
}

// startListing returns the sequence number of a listing that is about to start.
func (o *Orchestrator) startListing() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.listingSeq++
	return o.listingSeq
}

// applyListingLocked marks the listing as applied, returns false if a newer listing has
// already been applied.
func (o *Orchestrator) applyListingLocked(seq uint64) bool {
	if seq <= o.appliedSeq {
		return false
	}
	o.appliedSeq = seq
	return true
}

func (o *Orchestrator) newListenerID() uint64 {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.nextListenerID++
	return o.nextListenerID
}

// detach removes a listener from the running session, the session keeps running.
func (o *Orchestrator) detach(listenerID uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.session != nil {
		delete(o.session.listeners, listenerID)
	}
}

// endLocked finishes the session: the loop is cancelled first and then the store polling
// flags are cleared.
func (o *Orchestrator) endLocked(s *session, state model.SessionState) {
	s.cancel()
	s.state = state

	info := s.info()
	o.last = &info
	if o.session == s {
		o.session = nil
		o.store.SetPollingState(false)
	}

	s.logger.Debugf("Polling session finished with state %s after %d retries", state, s.retries)
}

// handleChangesLocked publishes the completion of the tasks that reached a terminal status
// and schedules their removal after the grace window.
func (o *Orchestrator) handleChangesLocked(changes store.Changes) []func() {
	var calls []func()
	for _, c := range changes.Terminal {
		o.scheduleRemovalLocked(c.Task.ID)
		calls = append(calls, func() {
			o.publisher.Publish(model.CompletionEvent{
				EntityID: c.Task.EntityID,
				Job:      c.Job,
				Task:     c.Task,
			})
		})
	}

	for _, v := range changes.Vanished {
		o.logger.Infof("Task %s vanished from the job listing", v.ID)
	}

	return calls
}

func (o *Orchestrator) scheduleRemovalLocked(taskID string) {
	if t, ok := o.graceTimers[taskID]; ok {
		t.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(o.graceWindow, func() {
		o.mu.Lock()
		if o.graceTimers[taskID] != timer {
			o.mu.Unlock()
			return
		}
		delete(o.graceTimers, taskID)
		delete(o.parked, taskID)
		o.store.RemoveTask(taskID)
		o.mu.Unlock()

		o.logger.Debugf("Removed finished task %s", taskID)
	})
	o.graceTimers[taskID] = timer
}

func runAll(calls []func()) {
	for _, c := range calls {
		c()
	}
}

// session is a polling session bound to a task.
type session struct {
	id         string
	taskID     string
	interval   time.Duration
	maxRetries int
	ctx        context.Context
	cancel     context.CancelFunc
	logger     log.Logger

	// Guarded by the orchestrator mutex.
	state     model.SessionState
	retries   int
	listeners map[uint64]Listener

	inFlight inFlightFlag
}

func newSession(ctx context.Context, taskID string, opts Options, logger log.Logger) *session {
	if ctx == nil {
		ctx = context.Background()
	}

	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	ctx = logger.SetValuesOnCtx(context.WithoutCancel(ctx), log.Kv{"session-id": id, "task-id": taskID})
	ctx, cancel := context.WithCancel(ctx)

	return &session{
		id:         id,
		taskID:     taskID,
		interval:   opts.Interval,
		maxRetries: opts.MaxRetries,
		ctx:        ctx,
		cancel:     cancel,
		logger:     logger.WithCtxValues(ctx),
		state:      model.SessionStateStarting,
		listeners:  map[uint64]Listener{},
	}
}

func (s *session) info() SessionInfo {
	return SessionInfo{
		ID:      s.id,
		TaskID:  s.taskID,
		State:   s.state,
		Retries: s.retries,
	}
}

// listenerList returns the listeners in attach order.
func (s *session) listenerList() []Listener {
	ids := make([]uint64, 0, len(s.listeners))
	for id := range s.listeners {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	ls := make([]Listener, 0, len(ids))
	for _, id := range ids {
		ls = append(ls, s.listeners[id])
	}
	return ls
}
