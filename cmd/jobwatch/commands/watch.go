package commands

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alecthomas/kingpin/v2"

	"github.com/slok/jobwatch/internal/app/watch"
	"github.com/slok/jobwatch/internal/model"
)

const eventWaitTimeout = time.Second

type WatchCommand struct {
	Cmd     *kingpin.CmdClause
	rootCmd *RootCommand

	taskID     string
	interval   time.Duration
	maxRetries int
	format     string
}

// NewWatchCommand returns the watch command.
func NewWatchCommand(rootCmd *RootCommand, app *kingpin.Application) *WatchCommand {
	c := &WatchCommand{rootCmd: rootCmd}

	c.Cmd = app.Command("watch", "Poll a provider job until it finishes.")
	c.Cmd.Arg("job-id", "Provider job ID.").Required().StringVar(&c.taskID)
	c.Cmd.Flag("interval", "Time between polls, overrides the configuration.").DurationVar(&c.interval)
	c.Cmd.Flag("max-retries", "Polls without a final status before giving up, overrides the configuration.").IntVar(&c.maxRetries)
	c.Cmd.Flag("format", "Output format (table, json).").Default(formatTable).EnumVar(&c.format, formatTable, formatJSON)

	return c
}

func (c WatchCommand) Name() string { return c.Cmd.FullCommand() }

func (c WatchCommand) Run(ctx context.Context) error {
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

	// The demo provider starts empty, seed the watched job so there is something to follow.
	if rt.Fake != nil {
		rt.Fake.PutJob(model.Job{ID: c.taskID, Status: "RUNNING"})
	}

	p := newPrinter(c.format, c.rootCmd.Stdout)

	var (
		mu     sync.Mutex
		events []model.CompletionEvent
	)
	unsubscribe := rt.Hub.Subscribe(func(ev model.CompletionEvent) {
		if ev.Task.ID != c.taskID {
			return
		}
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	defer unsubscribe()

	svc, err := watch.NewService(watch.ServiceConfig{
		Orchestrator: rt.Orchestrator,
		Store:        rt.Store,
		Logger:       logger,
	})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	res, err := svc.Run(ctx, watch.Request{
		TaskID:     c.taskID,
		Interval:   c.interval,
		MaxRetries: c.maxRetries,
		OnUpdate: func(t model.Task) {
			if err := p.PrintTask(t); err != nil {
				logger.Warningf("Could not print task: %s", err)
			}
		},
	})
	if res == nil {
		return fmt.Errorf("could not watch job: %w", err)
	}

	// The completion event is published right after the session ends.
	if res.State == model.SessionStateSucceeded || res.State == model.SessionStateFailed {
		c.waitEvent(ctx, &mu, &events, eventWaitTimeout)
	}
	mu.Lock()
	for _, ev := range events {
		if err := p.PrintEvent(ev); err != nil {
			mu.Unlock()
			return fmt.Errorf("could not print event: %w", err)
		}
	}
	mu.Unlock()

	if err != nil {
		return fmt.Errorf("could not watch job: %w", err)
	}

	if res.State == model.SessionStateStopped {
		return p.PrintMessage(fmt.Sprintf("Job %s is not on the provider anymore", c.taskID))
	}

	return nil
}

func (c WatchCommand) waitEvent(ctx context.Context, mu *sync.Mutex, events *[]model.CompletionEvent, timeout time.Duration) {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	ticker := time.NewTicker(10 * time.Millisecond)
	defer ticker.Stop()

	for {
		mu.Lock()
		n := len(*events)
		mu.Unlock()
		if n > 0 {
			return
		}

		select {
		case <-ctx.Done():
			return
		case <-deadline.C:
			return
		case <-ticker.C:
		}
	}
}
