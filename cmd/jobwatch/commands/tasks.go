package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/jobwatch/internal/app/tasklist"
	"github.com/slok/jobwatch/internal/model"
)

type TasksCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	statusFilter string
	format       string
}

// NewTasksCommand returns the tasks command.
func NewTasksCommand(rootCmd *RootCommand, app *kingpin.Application) *TasksCommand {
	c := &TasksCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("tasks", "List the tasks that are being processed by the provider.")
	c.Cmd.Flag("status", "Filter by status (pending, processing, completed, failed).").StringVar(&c.statusFilter)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c TasksCommand) Name() string { return c.Cmd.FullCommand() }

func (c TasksCommand) Run(ctx context.Context) error {
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

	svc, err := tasklist.NewService(tasklist.ServiceConfig{
		Refresher: rt.Orchestrator,
		Store:     rt.Store,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, tasklist.Request{
		Status: model.TaskStatus(strings.ToLower(c.statusFilter)),
	})
	if err != nil {
		return fmt.Errorf("could not list tasks: %w", err)
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)
	if err := p.PrintTasks(res.Tasks); err != nil {
		return fmt.Errorf("could not print tasks: %w", err)
	}

	return nil
}
