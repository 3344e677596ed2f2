package jobs

import (
	"context"
	"fmt"

	"github.com/slok/jobwatch/internal/joblist"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
)

// ServiceConfig is the configuration for the job list service.
type ServiceConfig struct {
	Lister joblist.Lister
	Logger log.Logger
}

func (c *ServiceConfig) defaults() error {
	if c.Lister == nil {
		return fmt.Errorf("lister is required")
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}

	return nil
}

// Service lists the raw provider jobs.
type Service struct {
	lister joblist.Lister
	logger log.Logger
}

// NewService creates a new job list service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		lister: cfg.Lister,
		logger: cfg.Logger,
	}, nil
}

// Request represents the job list request parameters.
type Request struct {
	// Page starts at 1, defaults to the first page.
	Page     int
	PageSize int
}

// Run lists a page of provider jobs.
func (s *Service) Run(ctx context.Context, req Request) ([]model.Job, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = joblist.DefaultPageSize
	}

	jobs, err := s.lister.ListJobs(ctx, req.Page, req.PageSize)
	if err != nil {
		return nil, fmt.Errorf("could not list jobs: %w", err)
	}
	s.logger.Debugf("Listed %d jobs (page %d)", len(jobs), req.Page)

	return jobs, nil
}
