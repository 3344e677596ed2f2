// Package store is the process wide state container of the tracked tasks and the polling
// session flags.
//
// The store doesn't do I/O nor scheduling, all the mutations go through its API and
// every mutation is notified to the subscribers with a full snapshot of the state.
package store

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/slok/jobwatch/internal/jobstatus"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
)

// Config is the configuration for the store.
type Config struct {
	Logger log.Logger
	// Now returns the current time, used to set task update times.
	Now func() time.Time
}

func (c *Config) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "store.Store"})

	if c.Now == nil {
		c.Now = func() time.Time { return time.Now().UTC() }
	}

	return nil
}

// Snapshot is a read only copy of the store state.
type Snapshot struct {
	// Version increases on every mutation, subscribers can use it to ignore stale snapshots.
	Version uint64
	Tasks   map[string]model.Task
	Polling model.PollingState
}

// TerminalChange is a task that has reached a terminal status on a reconciliation.
type TerminalChange struct {
	Task model.Task
	Job  model.Job
}

// Changes are the changes applied to the store by a listing reconciliation.
type Changes struct {
	Created  []model.Task
	Updated  []model.Task
	Terminal []TerminalChange
	Vanished []model.Task
	// Skipped is the number of listing entries that have been ignored.
	Skipped int
}

// Empty returns true if the reconciliation didn't change anything.
func (c Changes) Empty() bool {
	return len(c.Created) == 0 && len(c.Updated) == 0 && len(c.Vanished) == 0
}

// Store holds the tracked tasks and the polling session flags.
// It's safe for concurrent use.
type Store struct {
	mu      sync.RWMutex
	tasks   map[string]model.Task
	polling model.PollingState
	version uint64
	subs    map[uint64]*subscriber
	nextSub uint64
	logger  log.Logger
	now     func() time.Time
}

// New returns a new empty store.
func New(cfg Config) (*Store, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Store{
		tasks:  map[string]model.Task{},
		subs:   map[uint64]*subscriber{},
		logger: cfg.Logger,
		now:    cfg.Now,
	}, nil
}

// UpsertFromListing reconciles the tracked tasks with the full provider job listing.
//
// Every listed job creates or updates its task, tracked processing tasks missing from the
// listing are removed (vanished). Jobs without ID are skipped. A job that is seen for the
// first time already finished is only tracked when it's the current polling task.
func (s *Store) UpsertFromListing(jobs []model.Job) Changes {
	s.mu.Lock()
	defer s.mu.Unlock()

	changes := Changes{}
	now := s.now()
	seen := make(map[string]struct{}, len(jobs))
	for _, job := range jobs {
		job.ID = strings.TrimSpace(job.ID)
		if job.ID == "" {
			changes.Skipped++
			continue
		}
		if _, ok := seen[job.ID]; ok {
			changes.Skipped++
			continue
		}
		seen[job.ID] = struct{}{}

		prev, tracked := s.tasks[job.ID]
		var prevPtr *model.Task
		if tracked {
			prevPtr = &prev
		}

		res := jobstatus.Map(job, prevPtr)
		if !tracked && res.Terminal && job.ID != s.polling.CurrentPollingTask {
			continue
		}
		if !res.Recognized {
			s.logger.Debugf("Unrecognized status %q for job %s, keeping %s", job.Status, job.ID, res.Status)
		}

		task := model.Task{
			ID:        job.ID,
			EntityID:  job.EntityID,
			Kind:      job.Kind,
			Status:    res.Status,
			Progress:  res.Progress,
			UpdatedAt: prev.UpdatedAt,
		}
		if task.EntityID == "" {
			task.EntityID = prev.EntityID
		}
		if task.Kind == "" {
			task.Kind = prev.Kind
		}

		if tracked && task == prev {
			continue
		}

		task.UpdatedAt = now
		s.tasks[job.ID] = task
		if tracked {
			changes.Updated = append(changes.Updated, task)
		} else {
			changes.Created = append(changes.Created, task)
		}

		if res.Terminal && (!tracked || !prev.Status.IsTerminal()) {
			changes.Terminal = append(changes.Terminal, TerminalChange{Task: task, Job: job})
		}
	}

	for _, id := range s.sortedIDsLocked() {
		task := s.tasks[id]
		if _, ok := seen[id]; ok || task.Status != model.TaskStatusProcessing {
			continue
		}
		delete(s.tasks, id)
		changes.Vanished = append(changes.Vanished, task)
		s.logger.Debugf("Task %s vanished from the listing", id)
	}

	if !changes.Empty() {
		s.changedLocked()
	}

	return changes
}

// UpdateTask merges the partial fields into an existing task. If the task is not tracked
// it's a no-op, tasks are never created implicitly. Status updates that go backwards on the
// task lifecycle are ignored.
func (s *Store) UpdateTask(id string, u model.TaskUpdate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, ok := s.tasks[id]
	if !ok {
		s.logger.Debugf("Ignoring update of untracked task %s", id)
		return
	}

	prev := task
	if u.EntityID != nil {
		task.EntityID = *u.EntityID
	}
	if u.Kind != nil {
		task.Kind = *u.Kind
	}
	if u.Status != nil && task.Status.CanTransitionTo(*u.Status) {
		task.Status = *u.Status
	}
	if u.Progress != nil && *u.Progress >= 0 && *u.Progress <= 100 {
		task.Progress = *u.Progress
	}

	if task == prev {
		return
	}

	task.UpdatedAt = s.now()
	s.tasks[id] = task
	s.changedLocked()
}

// RemoveTask removes a task, removing a missing task is a no-op.
func (s *Store) RemoveTask(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return
	}

	delete(s.tasks, id)
	s.logger.Debugf("Removed task %s", id)
	s.changedLocked()
}

// StartPolling marks the polling as active for the task, the latest caller always wins.
func (s *Store) StartPolling(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := model.PollingState{IsPolling: true, CurrentPollingTask: id}
	if s.polling == next {
		return
	}

	s.polling = next
	s.changedLocked()
}

// SetPollingState sets the polling flag, disabling the polling also clears the current
// polling task.
func (s *Store) SetPollingState(polling bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.polling
	next.IsPolling = polling
	if !polling {
		next.CurrentPollingTask = ""
	}
	if s.polling == next {
		return
	}

	s.polling = next
	s.changedLocked()
}

// Task returns a tracked task.
func (s *Store) Task(id string) (model.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	return t, ok
}

// Tasks returns all the tracked tasks sorted by ID.
func (s *Store) Tasks() []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]model.Task, 0, len(s.tasks))
	for _, id := range s.sortedIDsLocked() {
		tasks = append(tasks, s.tasks[id])
	}

	return tasks
}

// ProcessingTasks returns the tracked tasks in processing status sorted by ID.
func (s *Store) ProcessingTasks() []model.Task {
	return filterProcessing(s.Tasks())
}

// IsPolling returns true if there is an active polling loop.
func (s *Store) IsPolling() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.polling.IsPolling
}

// CurrentPollingTask returns the task that owns the polling loop, if any.
func (s *Store) CurrentPollingTask() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.polling.CurrentPollingTask
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked()
}

// SortedTasks returns the tasks of the snapshot sorted by ID.
func (s Snapshot) SortedTasks() []model.Task {
	tasks := make([]model.Task, 0, len(s.Tasks))
	for _, t := range s.Tasks {
		tasks = append(tasks, t)
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })

	return tasks
}

// ProcessingTasks returns the processing tasks of the snapshot sorted by ID.
func (s Snapshot) ProcessingTasks() []model.Task {
	return filterProcessing(s.SortedTasks())
}

func (s *Store) snapshotLocked() Snapshot {
	tasks := make(map[string]model.Task, len(s.tasks))
	for id, t := range s.tasks {
		tasks[id] = t
	}

	return Snapshot{
		Version: s.version,
		Tasks:   tasks,
		Polling: s.polling,
	}
}

func (s *Store) sortedIDsLocked() []string {
	ids := make([]string, 0, len(s.tasks))
	for id := range s.tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	return ids
}

// changedLocked bumps the state version and hands the new snapshot to the subscribers.
// Must be called with the write lock held so subscribers receive snapshots in order.
func (s *Store) changedLocked() {
	s.version++
	if len(s.subs) == 0 {
		return
	}

	snap := s.snapshotLocked()
	for _, sub := range s.subs {
		sub.push(snap)
	}
}

func filterProcessing(tasks []model.Task) []model.Task {
	res := make([]model.Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == model.TaskStatusProcessing {
			res = append(res, t)
		}
	}

	return res
}
