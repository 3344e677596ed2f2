package printer

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/slok/jobwatch/internal/model"
)

// TablePrinter prints tasks and jobs in a table format.
type TablePrinter struct {
	writer io.Writer
}

// NewTablePrinter creates a new table printer.
func NewTablePrinter(w io.Writer) *TablePrinter {
	return &TablePrinter{writer: w}
}

// PrintTasks prints the tracked tasks in a table format.
func (t *TablePrinter) PrintTasks(tasks []model.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tENTITY\tKIND\tSTATUS\tPROGRESS\tUPDATED")
	for _, task := range tasks {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			task.ID,
			orDash(task.EntityID),
			orDash(task.Kind),
			task.Status,
			FormatProgress(task.Progress),
			TimeAgo(task.UpdatedAt),
		)
	}

	return nil
}

// PrintTask prints a single line with the task state, used to follow a task.
func (t *TablePrinter) PrintTask(task model.Task) error {
	_, err := fmt.Fprintf(t.writer, "%s  %-10s  %s\n", task.ID, task.Status, FormatProgress(task.Progress))
	return err
}

// PrintJobs prints provider jobs in a table format.
func (t *TablePrinter) PrintJobs(jobs []model.Job) error {
	if len(jobs) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(t.writer, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	fmt.Fprintln(tw, "ID\tENTITY\tKIND\tSTATUS\tPROGRESS")
	for _, j := range jobs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			j.ID,
			orDash(j.EntityID),
			orDash(j.Kind),
			j.Status,
			FormatJobProgress(j.Progress),
		)
	}

	return nil
}

// PrintEvent prints a task completion event.
func (t *TablePrinter) PrintEvent(ev model.CompletionEvent) error {
	fmt.Fprintf(t.writer, "Task:       %s\n", ev.Task.ID)
	fmt.Fprintf(t.writer, "Entity:     %s\n", orDash(ev.EntityID))
	fmt.Fprintf(t.writer, "Status:     %s\n", ev.Task.Status)
	fmt.Fprintf(t.writer, "Job status: %s\n", ev.Job.Status)
	fmt.Fprintf(t.writer, "Finished:   %s\n", FormatTimestamp(ev.Task.UpdatedAt))

	return nil
}

// PrintMessage prints a simple text message.
func (t *TablePrinter) PrintMessage(msg string) error {
	fmt.Fprintln(t.writer, msg)
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
