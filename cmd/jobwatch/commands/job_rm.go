package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/jobwatch/internal/app/jobremove"
)

// JobRmCommand removes jobs from the local provider.
type JobRmCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	ids           []string
	ignoreMissing bool
}

// NewJobRmCommand returns the job rm command.
func NewJobRmCommand(rootCmd *RootCommand, jobCmd *JobCommand) *JobRmCommand {
	c := &JobRmCommand{rootCmd: rootCmd}

	c.Cmd = jobCmd.Cmd.Command("rm", "Remove jobs.")
	c.Cmd.Arg("job-id", "Job IDs.").Required().StringsVar(&c.ids)
	c.Cmd.Flag("ignore-missing", "Don't fail on jobs that don't exist.").BoolVar(&c.ignoreMissing)

	return c
}

func (c JobRmCommand) Name() string { return c.Cmd.FullCommand() }

func (c JobRmCommand) Run(ctx context.Context) error {
	logger := c.rootCmd.Logger

	cfg, err := c.rootCmd.LoadConfig(ctx)
	if err != nil {
		return err
	}

	rt, err := newRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer rt.Close()

	repo, err := rt.repository()
	if err != nil {
		return err
	}

	svc, err := jobremove.NewService(jobremove.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	err = svc.Run(ctx, jobremove.Request{
		IDs:           c.ids,
		IgnoreMissing: c.ignoreMissing,
	})
	if err != nil {
		return fmt.Errorf("could not remove jobs: %w", err)
	}

	return nil
}
