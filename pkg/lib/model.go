package lib

import (
	"context"
	"errors"
	"time"

	"github.com/slok/jobwatch/internal/model"
	"github.com/slok/jobwatch/internal/store"
)

var (
	// ErrNotFound is returned when a job does not exist.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned on invalid input or unsupported operations (e.g. managing
	// jobs on a remote provider).
	ErrNotValid = errors.New("not valid")
	// ErrJobFailed is returned when the provider marks a watched job as failed.
	ErrJobFailed = errors.New("job failed")
	// ErrTimeout is returned when polling gives up before the job finishes.
	ErrTimeout = errors.New("polling timed out")
)

// ProviderType identifies the job provider implementation.
type ProviderType string

const (
	// ProviderHTTP lists the jobs from a remote provider API.
	ProviderHTTP ProviderType = "http"
	// ProviderSQLite uses a local SQLite database as the provider, jobs are managed with
	// [Client.PutJob] and [Client.DeleteJob].
	ProviderSQLite ProviderType = "sqlite"
	// ProviderFake uses an in-memory provider whose running jobs advance on every listing.
	// Use this for testing without infrastructure dependencies.
	ProviderFake ProviderType = "fake"
)

// TaskStatus is the canonical status of a tracked job.
//
// The lifecycle only moves forward:
//
//	pending -> processing -> completed | failed
type TaskStatus string

const (
	// TaskStatusPending indicates the job is known but not running yet.
	TaskStatusPending TaskStatus = "pending"
	// TaskStatusProcessing indicates the job is running on the provider.
	TaskStatusProcessing TaskStatus = "processing"
	// TaskStatusCompleted indicates the job finished successfully.
	TaskStatusCompleted TaskStatus = "completed"
	// TaskStatusFailed indicates the job finished with an error.
	TaskStatusFailed TaskStatus = "failed"
)

// Task is a tracked provider job.
//
// This is a read-only snapshot of the task at the time of the API call.
type Task struct {
	// ID is the provider job ID.
	ID string
	// EntityID is the entity the job works on (e.g. a video).
	EntityID string
	// Kind is an opaque job kind.
	Kind   string
	Status TaskStatus
	// Progress is the percent complete, it never decreases while processing.
	Progress int
	// UpdatedAt is the last time the task changed.
	UpdatedAt time.Time
}

// Job is a job record as returned by the provider, with the provider status vocabulary
// (e.g. `RUNNING`, `COMPLETED`).
type Job struct {
	ID       string
	EntityID string
	Kind     string
	Status   string
	// Progress is optional, nil when the provider doesn't report it.
	Progress *int
}

// CompletionEvent is broadcast when a tracked job finishes.
type CompletionEvent struct {
	// ID is the unique event ID (ULID).
	ID       string
	EntityID string
	Job      Job
	Task     Task
}

// PollingState is the polling information shared with all the consumers.
type PollingState struct {
	IsPolling          bool
	CurrentPollingTask string
}

// State is a consistent snapshot of the tracked tasks and the polling state.
type State struct {
	// Version increases on every change.
	Version uint64
	Tasks   []Task
	Polling PollingState
}

// SessionState is the state of a polling session.
type SessionState string

const (
	SessionStateIdle      SessionState = "idle"
	SessionStateStarting  SessionState = "starting"
	SessionStateActive    SessionState = "active"
	SessionStateSucceeded SessionState = "succeeded"
	SessionStateFailed    SessionState = "failed"
	SessionStateTimedOut  SessionState = "timed_out"
	SessionStateStopped   SessionState = "stopped"
)

// Session describes a polling session.
type Session struct {
	ID      string
	TaskID  string
	State   SessionState
	Retries int
}

// JobLister lists the jobs of the authenticated user on a custom provider. Pages start at 1.
type JobLister interface {
	ListJobs(ctx context.Context, page, pageSize int) ([]Job, error)
}

// --- Conversion helpers ---

func fromInternalTask(t model.Task) Task {
	return Task{
		ID:        t.ID,
		EntityID:  t.EntityID,
		Kind:      t.Kind,
		Status:    TaskStatus(t.Status),
		Progress:  t.Progress,
		UpdatedAt: t.UpdatedAt,
	}
}

func fromInternalTaskList(ts []model.Task) []Task {
	result := make([]Task, len(ts))
	for i, t := range ts {
		result[i] = fromInternalTask(t)
	}
	return result
}

func fromInternalJob(j model.Job) Job {
	return Job{
		ID:       j.ID,
		EntityID: j.EntityID,
		Kind:     j.Kind,
		Status:   j.Status,
		Progress: j.Progress,
	}
}

func fromInternalJobList(js []model.Job) []Job {
	result := make([]Job, len(js))
	for i, j := range js {
		result[i] = fromInternalJob(j)
	}
	return result
}

func toInternalJob(j Job) model.Job {
	return model.Job{
		ID:       j.ID,
		EntityID: j.EntityID,
		Kind:     j.Kind,
		Status:   j.Status,
		Progress: j.Progress,
	}
}

func fromInternalEvent(ev model.CompletionEvent) CompletionEvent {
	return CompletionEvent{
		ID:       ev.ID,
		EntityID: ev.EntityID,
		Job:      fromInternalJob(ev.Job),
		Task:     fromInternalTask(ev.Task),
	}
}

func fromInternalSnapshot(s store.Snapshot) State {
	tasks := make([]Task, 0, len(s.Tasks))
	for _, t := range s.SortedTasks() {
		tasks = append(tasks, fromInternalTask(t))
	}

	return State{
		Version: s.Version,
		Tasks:   tasks,
		Polling: PollingState{
			IsPolling:          s.Polling.IsPolling,
			CurrentPollingTask: s.Polling.CurrentPollingTask,
		},
	}
}

// listerAdapter adapts a public JobLister to the internal listing contract.
type listerAdapter struct {
	l JobLister
}

func (a listerAdapter) ListJobs(ctx context.Context, page, pageSize int) ([]model.Job, error) {
	jobs, err := a.l.ListJobs(ctx, page, pageSize)
	if err != nil {
		return nil, err
	}

	result := make([]model.Job, len(jobs))
	for i, j := range jobs {
		result[i] = toInternalJob(j)
	}
	return result, nil
}

func mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, model.ErrNotFound):
		return joinErrors(err, ErrNotFound)
	case errors.Is(err, model.ErrNotValid):
		return joinErrors(err, ErrNotValid)
	case errors.Is(err, model.ErrJobFailed):
		return joinErrors(err, ErrJobFailed)
	case errors.Is(err, model.ErrTimeout):
		return joinErrors(err, ErrTimeout)
	default:
		return err
	}
}

func joinErrors(original, sentinel error) error {
	return &mappedError{original: original, sentinel: sentinel}
}

type mappedError struct {
	original error
	sentinel error
}

func (e *mappedError) Error() string { return e.original.Error() }

func (e *mappedError) Is(target error) bool {
	return target == e.sentinel
}

func (e *mappedError) Unwrap() error { return e.original }
