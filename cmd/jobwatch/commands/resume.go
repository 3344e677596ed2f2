package commands

import (
	"context"
	"fmt"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/jobwatch/internal/app/resume"
	"github.com/slok/jobwatch/internal/model"
)

type ResumeCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	format string
}

// NewResumeCommand returns the resume command.
func NewResumeCommand(rootCmd *RootCommand, app *kingpin.Application) *ResumeCommand {
	c := &ResumeCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("resume", "Poll every job still processing on the provider until all of them finish.")
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c ResumeCommand) Name() string { return c.Cmd.FullCommand() }

func (c ResumeCommand) Run(ctx context.Context) error {
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

	p := newPrinter(c.format, c.rootCmd.Stdout)

	unsubscribe := rt.Hub.Subscribe(func(ev model.CompletionEvent) {
		if err := p.PrintEvent(ev); err != nil {
			logger.Warningf("Could not print event: %s", err)
		}
	})
	defer unsubscribe()

	svc, err := resume.NewService(resume.ServiceConfig{
		AutoResumer:  rt.AutoResumer,
		Orchestrator: rt.Orchestrator,
		Store:        rt.Store,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, resume.Request{})
	if err != nil {
		return fmt.Errorf("could not resume tasks: %w", err)
	}

	if len(res.Pending) == 0 {
		return p.PrintMessage("No jobs left processing")
	}

	if err := p.PrintMessage(fmt.Sprintf("%d jobs still processing after giving up polling them:", len(res.Pending))); err != nil {
		return err
	}
	return p.PrintTasks(res.Pending)
}
