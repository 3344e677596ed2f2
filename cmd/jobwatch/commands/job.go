package commands

import (
	"github.com/alecthomas/kingpin/v2"
)

// JobCommand is the parent command for provider job management subcommands.
type JobCommand struct {
	Cmd *kingpin.CmdClause
}

// NewJobCommand returns the job parent command.
func NewJobCommand(app *kingpin.Application) *JobCommand {
	c := &JobCommand{}
	c.Cmd = app.Command("job", "Manage the jobs of the local provider.")

	return c
}
