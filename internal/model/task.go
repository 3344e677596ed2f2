package model

import (
	"fmt"
	"time"
)

// TaskStatus is the canonical, client owned, state of a tracked job.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusProcessing TaskStatus = "processing"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusFailed     TaskStatus = "failed"
)

// IsTerminal returns true when the status can't change anymore.
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Valid returns true if the status is a known canonical status.
func (s TaskStatus) Valid() bool { return s.rank() >= 0 }

// rank returns the position of the status in the task lifecycle.
func (s TaskStatus) rank() int {
	switch s {
	case TaskStatusPending:
		return 0
	case TaskStatusProcessing:
		return 1
	case TaskStatusCompleted, TaskStatusFailed:
		return 2
	}
	return -1
}

// CanTransitionTo returns true if moving from s to next follows
// pending -> processing -> {completed, failed}. Staying in the same status is allowed.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	if s == next {
		return true
	}
	if s.IsTerminal() {
		return false
	}
	return next.rank() > s.rank()
}

// Task is the canonical representation of one tracked background job.
type Task struct {
	// ID is the provider job ID.
	ID string
	// EntityID is the entity the job works on (e.g. a video), opaque to the engine.
	EntityID string
	// Kind is an opaque job kind used by consumers for correlation.
	Kind     string
	Status   TaskStatus
	Progress int
	// UpdatedAt is the last time the task changed.
	UpdatedAt time.Time
}

// Validate validates the task.
func (t Task) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("task id is required: %w", ErrNotValid)
	}

	if !t.Status.Valid() {
		return fmt.Errorf("unknown task status %q: %w", t.Status, ErrNotValid)
	}

	if t.Progress < 0 || t.Progress > 100 {
		return fmt.Errorf("progress %d out of range: %w", t.Progress, ErrNotValid)
	}

	return nil
}

// TaskUpdate has the partial fields that can be merged into an existing task.
// Nil fields are left untouched.
type TaskUpdate struct {
	EntityID *string
	Kind     *string
	Status   *TaskStatus
	Progress *int
}
