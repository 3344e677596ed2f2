package printer

import (
	"encoding/json"
	"io"
	"time"

	"github.com/slok/jobwatch/internal/model"
)

// JSONPrinter prints tasks and jobs in JSON format.
type JSONPrinter struct {
	writer io.Writer
}

// NewJSONPrinter creates a new JSON printer.
func NewJSONPrinter(w io.Writer) *JSONPrinter {
	return &JSONPrinter{writer: w}
}

type taskOutput struct {
	ID        string    `json:"id"`
	EntityID  string    `json:"entity_id,omitempty"`
	Kind      string    `json:"kind,omitempty"`
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	UpdatedAt time.Time `json:"updated_at"`
}

type jobOutput struct {
	ID       string `json:"id"`
	EntityID string `json:"entity_id,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Status   string `json:"status"`
	Progress *int   `json:"progress,omitempty"`
}

type eventOutput struct {
	ID       string     `json:"id"`
	EntityID string     `json:"entity_id,omitempty"`
	Job      jobOutput  `json:"job"`
	Task     taskOutput `json:"task"`
}

type messageOutput struct {
	Message string `json:"message"`
}

// PrintTasks prints the tracked tasks in JSON format.
func (j *JSONPrinter) PrintTasks(tasks []model.Task) error {
	items := make([]taskOutput, len(tasks))
	for i, t := range tasks {
		items[i] = toTaskOutput(t)
	}

	return j.encode(items)
}

// PrintTask prints a task as a single JSON line, used to follow a task.
func (j *JSONPrinter) PrintTask(task model.Task) error {
	return json.NewEncoder(j.writer).Encode(toTaskOutput(task))
}

// PrintJobs prints provider jobs in JSON format.
func (j *JSONPrinter) PrintJobs(jobs []model.Job) error {
	items := make([]jobOutput, len(jobs))
	for i, job := range jobs {
		items[i] = toJobOutput(job)
	}

	return j.encode(items)
}

// PrintEvent prints a task completion event in JSON format.
func (j *JSONPrinter) PrintEvent(ev model.CompletionEvent) error {
	return j.encode(eventOutput{
		ID:       ev.ID,
		EntityID: ev.EntityID,
		Job:      toJobOutput(ev.Job),
		Task:     toTaskOutput(ev.Task),
	})
}

// PrintMessage prints a simple message in JSON format.
func (j *JSONPrinter) PrintMessage(msg string) error {
	return j.encode(messageOutput{Message: msg})
}

func (j *JSONPrinter) encode(v any) error {
	enc := json.NewEncoder(j.writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func toTaskOutput(t model.Task) taskOutput {
	return taskOutput{
		ID:        t.ID,
		EntityID:  t.EntityID,
		Kind:      t.Kind,
		Status:    string(t.Status),
		Progress:  t.Progress,
		UpdatedAt: t.UpdatedAt.UTC(),
	}
}

func toJobOutput(j model.Job) jobOutput {
	return jobOutput{
		ID:       j.ID,
		EntityID: j.EntityID,
		Kind:     j.Kind,
		Status:   j.Status,
		Progress: j.Progress,
	}
}
