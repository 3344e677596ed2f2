package jobput

import (
	"context"
	"fmt"

	"github.com/slok/jobwatch/internal/joblist"
	"github.com/slok/jobwatch/internal/jobstatus"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
)

// ServiceConfig is the configuration for the job put service.
type ServiceConfig struct {
	Repository joblist.Repository
	Logger     log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Repository == nil {
		return fmt.Errorf("repository is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service creates or updates jobs on the local provider.
type Service struct {
	repo   joblist.Repository
	logger log.Logger
}

// NewService creates a new job put service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the job put request parameters.
type Request struct {
	Job model.Job
	// AllowUnknownStatus stores statuses that are not part of the known provider vocabulary.
	AllowUnknownStatus bool
}

// Run stores the job.
func (s *Service) Run(ctx context.Context, req Request) error {
	job := req.Job
	if job.ID == "" {
		return fmt.Errorf("job id is required: %w", model.ErrNotValid)
	}

	if _, ok := jobstatus.Canonical(job.Status); !ok && !req.AllowUnknownStatus {
		return fmt.Errorf("unknown provider status %q: %w", job.Status, model.ErrNotValid)
	}

	if job.Progress != nil && (*job.Progress < 0 || *job.Progress > 100) {
		return fmt.Errorf("progress %d out of range: %w", *job.Progress, model.ErrNotValid)
	}

	if err := s.repo.PutJob(ctx, job); err != nil {
		return fmt.Errorf("could not store job: %w", err)
	}
	s.logger.Infof("Job %s stored with status %s", job.ID, job.Status)

	return nil
}
