package model_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/slok/jobwatch/internal/model"
)

func TestTaskValidate(t *testing.T) {
	base := model.Task{
		ID:        "job-1",
		EntityID:  "video-1",
		Status:    model.TaskStatusProcessing,
		Progress:  40,
		UpdatedAt: time.Now().UTC(),
	}

	tests := map[string]struct {
		task   model.Task
		expErr bool
	}{
		"valid task": {
			task: base,
		},
		"missing id": {
			task: func() model.Task {
				t := base
				t.ID = ""
				return t
			}(),
			expErr: true,
		},
		"provider status instead of canonical": {
			task: func() model.Task {
				t := base
				t.Status = "RUNNING"
				return t
			}(),
			expErr: true,
		},
		"progress over 100": {
			task: func() model.Task {
				t := base
				t.Progress = 101
				return t
			}(),
			expErr: true,
		},
		"negative progress": {
			task: func() model.Task {
				t := base
				t.Progress = -1
				return t
			}(),
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := test.task.Validate()
			if test.expErr {
				assert.Error(t, err)
				assert.True(t, errors.Is(err, model.ErrNotValid))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTaskStatusCanTransitionTo(t *testing.T) {
	tests := map[string]struct {
		from model.TaskStatus
		to   model.TaskStatus
		exp  bool
	}{
		"Pending to processing is allowed.":     {from: model.TaskStatusPending, to: model.TaskStatusProcessing, exp: true},
		"Processing to completed is allowed.":   {from: model.TaskStatusProcessing, to: model.TaskStatusCompleted, exp: true},
		"Processing to failed is allowed.":      {from: model.TaskStatusProcessing, to: model.TaskStatusFailed, exp: true},
		"Pending to completed is allowed.":      {from: model.TaskStatusPending, to: model.TaskStatusCompleted, exp: true},
		"Same status is allowed.":               {from: model.TaskStatusProcessing, to: model.TaskStatusProcessing, exp: true},
		"Processing back to pending is denied.": {from: model.TaskStatusProcessing, to: model.TaskStatusPending, exp: false},
		"Completed to processing is denied.":    {from: model.TaskStatusCompleted, to: model.TaskStatusProcessing, exp: false},
		"Completed to failed is denied.":        {from: model.TaskStatusCompleted, to: model.TaskStatusFailed, exp: false},
		"Failed to completed is denied.":        {from: model.TaskStatusFailed, to: model.TaskStatusCompleted, exp: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, test.from.CanTransitionTo(test.to))
		})
	}
}
