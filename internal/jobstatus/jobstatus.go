// Package jobstatus translates provider job records into the canonical task state.
package jobstatus

import (
	"strings"

	"github.com/slok/jobwatch/internal/model"
)

// providerStatuses is the provider vocabulary known by the mapper, keys are upper case.
var providerStatuses = map[string]model.TaskStatus{
	"COMPLETED":  model.TaskStatusCompleted,
	"FAILED":     model.TaskStatusFailed,
	"PROCESSING": model.TaskStatusProcessing,
	"PENDING":    model.TaskStatusProcessing,
	"RUNNING":    model.TaskStatusProcessing,
}

// Result is the canonical state of a job after mapping.
type Result struct {
	Status   model.TaskStatus
	Progress int
	Terminal bool
	// Recognized is false when the provider status is not part of the known vocabulary,
	// in that case Status holds the previous canonical status.
	Recognized bool
}

// Canonical returns the canonical status for a provider status, matching is case insensitive.
func Canonical(providerStatus string) (model.TaskStatus, bool) {
	s, ok := providerStatuses[strings.ToUpper(strings.TrimSpace(providerStatus))]
	return s, ok
}

// Map maps a provider job into the canonical task state using the previous task
// state (nil when the task is not tracked yet).
//
// Unknown provider statuses never change the status: the previous one is kept, and a task
// that was not tracked starts as pending. An unknown status is never terminal.
func Map(job model.Job, previous *model.Task) Result {
	prevStatus := model.TaskStatusPending
	prevProgress := 0
	if previous != nil {
		prevStatus = previous.Status
		prevProgress = previous.Progress
	}

	status, ok := Canonical(job.Status)
	if !ok || !prevStatus.CanTransitionTo(status) {
		status = prevStatus
	}

	progress := prevProgress
	if job.Progress != nil {
		progress = clamp(*job.Progress)
	}
	switch {
	case status == model.TaskStatusCompleted:
		progress = 100
	case status == model.TaskStatusProcessing && prevStatus == model.TaskStatusProcessing && progress < prevProgress:
		progress = prevProgress
	}

	return Result{
		Status:     status,
		Progress:   progress,
		Terminal:   status.IsTerminal(),
		Recognized: ok,
	}
}

func clamp(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}
