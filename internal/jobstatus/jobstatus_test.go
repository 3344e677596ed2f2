package jobstatus_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slok/jobwatch/internal/jobstatus"
	"github.com/slok/jobwatch/internal/model"
)

func intPtr(i int) *int { return &i }

func TestCanonical(t *testing.T) {
	tests := map[string]struct {
		status    string
		expStatus model.TaskStatus
		expOK     bool
	}{
		"Upper case completed.":           {status: "COMPLETED", expStatus: model.TaskStatusCompleted, expOK: true},
		"Lower case completed.":           {status: "completed", expStatus: model.TaskStatusCompleted, expOK: true},
		"Title case completed.":           {status: "Completed", expStatus: model.TaskStatusCompleted, expOK: true},
		"Failed.":                         {status: "FAILED", expStatus: model.TaskStatusFailed, expOK: true},
		"Processing.":                     {status: "processing", expStatus: model.TaskStatusProcessing, expOK: true},
		"Pending maps to processing.":     {status: "PENDING", expStatus: model.TaskStatusProcessing, expOK: true},
		"Running maps to processing.":     {status: "Running", expStatus: model.TaskStatusProcessing, expOK: true},
		"Surrounding spaces are ignored.": {status: " RUNNING ", expStatus: model.TaskStatusProcessing, expOK: true},
		"Queued is unknown.":              {status: "QUEUED", expOK: false},
		"Empty is unknown.":               {status: "", expOK: false},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			gotStatus, gotOK := jobstatus.Canonical(test.status)
			assert.Equal(test.expOK, gotOK)
			assert.Equal(test.expStatus, gotStatus)
		})
	}
}

func TestMap(t *testing.T) {
	tests := map[string]struct {
		job       model.Job
		previous  *model.Task
		expResult jobstatus.Result
	}{
		"A new running job should be processing with its progress.": {
			job:       model.Job{ID: "J1", Status: "RUNNING", Progress: intPtr(40)},
			expResult: jobstatus.Result{Status: model.TaskStatusProcessing, Progress: 40, Recognized: true},
		},
		"A completed job should be terminal with full progress.": {
			job:       model.Job{ID: "J1", Status: "COMPLETED"},
			previous:  &model.Task{ID: "J1", Status: model.TaskStatusProcessing, Progress: 40},
			expResult: jobstatus.Result{Status: model.TaskStatusCompleted, Progress: 100, Terminal: true, Recognized: true},
		},
		"A failed job should be terminal keeping its progress.": {
			job:       model.Job{ID: "J1", Status: "failed"},
			previous:  &model.Task{ID: "J1", Status: model.TaskStatusProcessing, Progress: 70},
			expResult: jobstatus.Result{Status: model.TaskStatusFailed, Progress: 70, Terminal: true, Recognized: true},
		},
		"An unknown status should keep the previous status.": {
			job:       model.Job{ID: "J1", Status: "QUEUED"},
			previous:  &model.Task{ID: "J1", Status: model.TaskStatusProcessing, Progress: 10},
			expResult: jobstatus.Result{Status: model.TaskStatusProcessing, Progress: 10},
		},
		"An unknown status on a new task should be pending.": {
			job:       model.Job{ID: "J1", Status: "QUEUED"},
			expResult: jobstatus.Result{Status: model.TaskStatusPending},
		},
		"An unknown status should never be terminal even if the previous was pending.": {
			job:       model.Job{ID: "J1", Status: "DONE"},
			previous:  &model.Task{ID: "J1", Status: model.TaskStatusPending},
			expResult: jobstatus.Result{Status: model.TaskStatusPending},
		},
		"Progress should not go backwards while processing.": {
			job:       model.Job{ID: "J1", Status: "RUNNING", Progress: intPtr(20)},
			previous:  &model.Task{ID: "J1", Status: model.TaskStatusProcessing, Progress: 50},
			expResult: jobstatus.Result{Status: model.TaskStatusProcessing, Progress: 50, Recognized: true},
		},
		"Missing progress should keep the previous progress.": {
			job:       model.Job{ID: "J1", Status: "RUNNING"},
			previous:  &model.Task{ID: "J1", Status: model.TaskStatusProcessing, Progress: 50},
			expResult: jobstatus.Result{Status: model.TaskStatusProcessing, Progress: 50, Recognized: true},
		},
		"Progress should be clamped.": {
			job:       model.Job{ID: "J1", Status: "RUNNING", Progress: intPtr(250)},
			expResult: jobstatus.Result{Status: model.TaskStatusProcessing, Progress: 100, Recognized: true},
		},
		"A terminal task should not move back to processing.": {
			job:       model.Job{ID: "J1", Status: "RUNNING", Progress: intPtr(10)},
			previous:  &model.Task{ID: "J1", Status: model.TaskStatusCompleted, Progress: 100},
			expResult: jobstatus.Result{Status: model.TaskStatusCompleted, Progress: 100, Terminal: true, Recognized: true},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			got := jobstatus.Map(test.job, test.previous)
			assert.Equal(t, test.expResult, got)
		})
	}
}
