package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/jobwatch/internal/app/jobput"
	"github.com/slok/jobwatch/internal/model"
)

// JobPutCommand creates or updates a job on the local provider.
type JobPutCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	id                 string
	entityID           string
	kind               string
	status             string
	progress           int
	allowUnknownStatus bool
}

// NewJobPutCommand returns the job put command.
func NewJobPutCommand(rootCmd *RootCommand, jobCmd *JobCommand) *JobPutCommand {
	c := &JobPutCommand{rootCmd: rootCmd}

	c.Cmd = jobCmd.Cmd.Command("put", "Create or update a job.")
	c.Cmd.Arg("job-id", "Job ID.").Required().StringVar(&c.id)
	c.Cmd.Flag("status", "Provider job status (e.g. PENDING, RUNNING, COMPLETED, FAILED).").Required().StringVar(&c.status)
	c.Cmd.Flag("progress", "Job progress percent, not reported when negative.").Default("-1").IntVar(&c.progress)
	c.Cmd.Flag("entity", "ID of the entity the job works on.").StringVar(&c.entityID)
	c.Cmd.Flag("kind", "Job kind.").StringVar(&c.kind)
	c.Cmd.Flag("allow-unknown-status", "Store statuses that are not part of the provider vocabulary.").BoolVar(&c.allowUnknownStatus)

	return c
}

func (c JobPutCommand) Name() string { return c.Cmd.FullCommand() }

func (c JobPutCommand) Run(ctx context.Context) error {
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

	svc, err := jobput.NewService(jobput.ServiceConfig{
		Repository: repo,
		Logger:     logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	job := model.Job{
		ID:       c.id,
		EntityID: c.entityID,
		Kind:     c.kind,
		Status:   c.status,
	}
	if c.progress >= 0 {
		progress := c.progress
		job.Progress = &progress
	}

	err = svc.Run(ctx, jobput.Request{
		Job:                job,
		AllowUnknownStatus: c.allowUnknownStatus,
	})
	if err != nil {
		return fmt.Errorf("could not put job: %w", err)
	}

	logger.Infof("Job %s stored", c.id)

	return nil
}
