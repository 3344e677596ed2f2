package jobremove

import (
	"context"
	"errors"
	"fmt"

	"github.com/slok/jobwatch/internal/joblist"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
)

// ServiceConfig is the configuration for the job remove service.
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

// Service removes jobs from the local provider.
type Service struct {
	repo   joblist.Repository
	logger log.Logger
}

// NewService creates a new job remove service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Service{
		repo:   cfg.Repository,
		logger: cfg.Logger,
	}, nil
}

// Request represents the job remove request parameters.
type Request struct {
	IDs []string
	// IgnoreMissing doesn't fail on jobs that don't exist.
	IgnoreMissing bool
}

// Run removes the jobs, it stops on the first error.
func (s *Service) Run(ctx context.Context, req Request) error {
	if len(req.IDs) == 0 {
		return fmt.Errorf("at least one job id is required: %w", model.ErrNotValid)
	}

	for _, id := range req.IDs {
		err := s.repo.DeleteJob(ctx, id)
		switch {
		case err == nil:
			s.logger.Infof("Job %s removed", id)
		case errors.Is(err, model.ErrNotFound) && req.IgnoreMissing:
			s.logger.Debugf("Job %s missing, ignoring", id)
		default:
			return fmt.Errorf("could not remove job %s: %w", id, err)
		}
	}

	return nil
}
