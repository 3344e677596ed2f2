package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/jobwatch/internal/app/jobs"
)

// JobListCommand lists the raw provider jobs.
type JobListCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	page     int
	pageSize int
	format   string
}

// NewJobListCommand returns the job list command.
func NewJobListCommand(rootCmd *RootCommand, jobCmd *JobCommand) *JobListCommand {
	c := &JobListCommand{rootCmd: rootCmd}

	c.Cmd = jobCmd.Cmd.Command("list", "List the provider jobs.")
	c.Cmd.Flag("page", "Page to list, starting at 1.").Default("1").IntVar(&c.page)
	c.Cmd.Flag("page-size", "Number of jobs per page, defaults to the configured page size.").IntVar(&c.pageSize)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c JobListCommand) Name() string { return c.Cmd.FullCommand() }

func (c JobListCommand) Run(ctx context.Context) error {
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

	svc, err := jobs.NewService(jobs.ServiceConfig{
		Lister: rt.Lister,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	pageSize := c.pageSize
	if pageSize <= 0 {
		pageSize = cfg.Polling.PageSize
	}

	js, err := svc.Run(ctx, jobs.Request{Page: c.page, PageSize: pageSize})
	if err != nil {
		return fmt.Errorf("could not list jobs: %w", err)
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if err := p.PrintJobs(js); err != nil {
		return fmt.Errorf("could not print jobs: %w", err)
	}

	return nil
}
