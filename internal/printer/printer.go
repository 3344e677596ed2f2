package printer

import "github.com/slok/jobwatch/internal/model"

// Printer knows how to print tracked tasks and provider jobs in different formats.
type Printer interface {
	PrintTasks(tasks []model.Task) error
	PrintTask(task model.Task) error
	PrintJobs(jobs []model.Job) error
	PrintEvent(ev model.CompletionEvent) error
	PrintMessage(msg string) error
}
