package printer_test

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/jobwatch/internal/model"
	"github.com/slok/jobwatch/internal/printer"
)

func taskFixture() model.Task {
	return model.Task{
		ID:        "job-1",
		EntityID:  "video-1",
		Kind:      "transcode",
		Status:    model.TaskStatusProcessing,
		Progress:  40,
		UpdatedAt: time.Date(2026, 1, 30, 10, 0, 0, 0, time.UTC),
	}
}

func eventFixture() model.CompletionEvent {
	task := taskFixture()
	task.Status = model.TaskStatusCompleted
	task.Progress = 100
	return model.CompletionEvent{
		ID:       "01HZX",
		EntityID: "video-1",
		Job:      model.Job{ID: "job-1", EntityID: "video-1", Status: "COMPLETED"},
		Task:     task,
	}
}

func TestTablePrinterPrintTasks(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	other := model.Task{ID: "job-2", Status: model.TaskStatusPending}
	err := p.PrintTasks([]model.Task{taskFixture(), other})
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "STATUS")
	assert.Contains(t, lines[1], "video-1")
	assert.Contains(t, lines[1], "[########------------]  40%")
	assert.Contains(t, lines[2], "job-2")
	assert.Contains(t, lines[2], "pending")
}

func TestTablePrinterPrintTasksEmpty(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	require.NoError(t, p.PrintTasks(nil))
	assert.Empty(t, buf.String())
}

func TestTablePrinterPrintTask(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	require.NoError(t, p.PrintTask(taskFixture()))
	assert.Equal(t, "job-1  processing  [########------------]  40%\n", buf.String())
}

func TestTablePrinterPrintJobs(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	progress := 70
	err := p.PrintJobs([]model.Job{
		{ID: "job-1", Status: "RUNNING", Progress: &progress},
		{ID: "job-2", Status: "QUEUED"},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "70%")
	assert.Contains(t, out, "QUEUED")
}

func TestTablePrinterPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	require.NoError(t, p.PrintEvent(eventFixture()))

	out := buf.String()
	assert.Contains(t, out, "Entity:     video-1")
	assert.Contains(t, out, "Status:     completed")
	assert.Contains(t, out, "Finished:   2026-01-30 10:00:00 UTC")
}

func TestJSONPrinterPrintTasks(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	require.NoError(t, p.PrintTasks([]model.Task{taskFixture()}))

	out := buf.String()
	assert.Contains(t, out, `"entity_id": "video-1"`)
	assert.Contains(t, out, `"status": "processing"`)
	assert.Contains(t, out, `"progress": 40`)
}

func TestJSONPrinterPrintEvent(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewJSONPrinter(&buf)

	require.NoError(t, p.PrintEvent(eventFixture()))

	out := buf.String()
	assert.Contains(t, out, `"id": "01HZX"`)
	assert.Contains(t, out, `"status": "COMPLETED"`)
	assert.Contains(t, out, `"status": "completed"`)
}

func TestTablePrinterPrintMessage(t *testing.T) {
	var buf bytes.Buffer
	p := printer.NewTablePrinter(&buf)

	err := p.PrintMessage("ok")
	require.NoError(t, err)
	assert.Equal(t, "ok", strings.TrimSpace(buf.String()))
}

func TestFormatProgress(t *testing.T) {
	tests := map[string]struct {
		progress int
		exp      string
	}{
		"Zero progress.":           {progress: 0, exp: "[--------------------]   0%"},
		"Half progress.":           {progress: 50, exp: "[##########----------]  50%"},
		"Full progress.":           {progress: 100, exp: "[####################] 100%"},
		"Out of range is clamped.": {progress: 250, exp: "[####################] 100%"},
		"Negative is clamped.":     {progress: -3, exp: "[--------------------]   0%"},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, test.exp, printer.FormatProgress(test.progress))
		})
	}
}
