package fake

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/slok/jobwatch/internal/jobstatus"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
)

// ListerConfig is the configuration for the fake lister.
type ListerConfig struct {
	Logger log.Logger
	// Listings are scripted listings, every successful call returns the next one and the
	// last one is repeated forever. When empty the lister serves the jobs set with PutJob.
	Listings [][]model.Job
	// ProgressStep advances the progress of the running jobs on every call, jobs reaching
	// 100 are completed. Only used when serving the jobs set with PutJob.
	ProgressStep int
	// Delay is the latency of every call.
	Delay time.Duration
}

func (c *ListerConfig) defaults() error {
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "joblist.Fake"})

	if c.ProgressStep < 0 {
		return fmt.Errorf("progress step can't be negative")
	}

	return nil
}

// Lister is a fake implementation of the joblist.Lister interface.
// It simulates a provider without any network.
type Lister struct {
	mu           sync.Mutex
	listings     [][]model.Job
	jobs         map[string]model.Job
	errs         []error
	calls        int
	served       int
	progressStep int
	delay        time.Duration
	logger       log.Logger
}

// NewLister creates a new fake lister.
func NewLister(cfg ListerConfig) (*Lister, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Lister{
		listings:     cfg.Listings,
		jobs:         map[string]model.Job{},
		progressStep: cfg.ProgressStep,
		delay:        cfg.Delay,
		logger:       cfg.Logger,
	}, nil
}

// ListJobs lists the fake jobs.
func (l *Lister) ListJobs(ctx context.Context, page, pageSize int) ([]model.Job, error) {
	if l.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.delay):
		}
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	call := l.calls
	l.calls++

	if len(l.errs) > 0 {
		err := l.errs[0]
		l.errs = l.errs[1:]
		l.logger.Debugf("Returning scripted error on call %d", call)
		return nil, err
	}

	var jobs []model.Job
	if len(l.listings) > 0 {
		idx := min(l.served, len(l.listings)-1)
		jobs = append(jobs, l.listings[idx]...)
		l.served++
	} else {
		l.advanceLocked()
		jobs = l.sortedJobsLocked()
	}

	return paginate(jobs, page, pageSize), nil
}

// PutJob creates or replaces a job.
func (l *Lister) PutJob(job model.Job) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.jobs[job.ID] = job
}

// RemoveJob removes a job.
func (l *Lister) RemoveJob(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	delete(l.jobs, id)
}

// FailNext makes the next call return the error.
func (l *Lister) FailNext(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.errs = append(l.errs, err)
}

// Calls returns the number of ListJobs calls.
func (l *Lister) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.calls
}

func (l *Lister) advanceLocked() {
	if l.progressStep == 0 {
		return
	}

	for id, job := range l.jobs {
		status, ok := jobstatus.Canonical(job.Status)
		if !ok || status != model.TaskStatusProcessing {
			continue
		}

		progress := l.progressStep
		if job.Progress != nil {
			progress += *job.Progress
		}
		if progress >= 100 {
			job.Status = "COMPLETED"
			progress = 100
		} else {
			job.Status = "RUNNING"
		}
		job.Progress = &progress
		l.jobs[id] = job
	}
}

func (l *Lister) sortedJobsLocked() []model.Job {
	jobs := make([]model.Job, 0, len(l.jobs))
	for _, j := range l.jobs {
		jobs = append(jobs, j)
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })

	return jobs
}

func paginate(jobs []model.Job, page, pageSize int) []model.Job {
	if page < 1 || pageSize < 1 {
		return jobs
	}

	start := (page - 1) * pageSize
	if start >= len(jobs) {
		return []model.Job{}
	}
	end := min(start+pageSize, len(jobs))

	return jobs[start:end]
}
