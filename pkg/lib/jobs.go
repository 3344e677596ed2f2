package lib

import (
	"context"
	"fmt"

	"github.com/slok/jobwatch/internal/app/jobput"
	"github.com/slok/jobwatch/internal/app/jobremove"
	"github.com/slok/jobwatch/internal/app/jobs"
)

// ListJobs lists a page of raw provider jobs. Pages start at 1.
func (c *Client) ListJobs(ctx context.Context, page, pageSize int) ([]Job, error) {
	svc, err := jobs.NewService(jobs.ServiceConfig{Lister: c.lister, Logger: c.logger})
	if err != nil {
		return nil, fmt.Errorf("could not create service: %w", err)
	}

	js, err := svc.Run(ctx, jobs.Request{Page: page, PageSize: pageSize})
	if err != nil {
		return nil, mapError(err)
	}

	return fromInternalJobList(js), nil
}

// PutJob creates or updates a job on the provider.
//
// Only the [ProviderSQLite] and [ProviderFake] providers are managed by the client, other
// providers return [ErrNotValid]. Statuses outside the provider vocabulary return
// [ErrNotValid].
func (c *Client) PutJob(ctx context.Context, job Job) error {
	if c.fake != nil {
		if job.ID == "" {
			return fmt.Errorf("job id is required: %w", ErrNotValid)
		}
		c.fake.PutJob(toInternalJob(job))
		return nil
	}

	if c.repo == nil {
		return fmt.Errorf("the provider jobs can't be managed: %w", ErrNotValid)
	}

	svc, err := jobput.NewService(jobput.ServiceConfig{Repository: c.repo, Logger: c.logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	return mapError(svc.Run(ctx, jobput.Request{Job: toInternalJob(job)}))
}

// DeleteJob removes a job from the provider.
//
// Returns [ErrNotFound] if the job does not exist and [ErrNotValid] if the provider is not
// managed by the client.
func (c *Client) DeleteJob(ctx context.Context, id string) error {
	if c.fake != nil {
		c.fake.RemoveJob(id)
		return nil
	}

	if c.repo == nil {
		return fmt.Errorf("the provider jobs can't be managed: %w", ErrNotValid)
	}

	svc, err := jobremove.NewService(jobremove.ServiceConfig{Repository: c.repo, Logger: c.logger})
	if err != nil {
		return fmt.Errorf("could not create service: %w", err)
	}

	return mapError(svc.Run(ctx, jobremove.Request{IDs: []string{id}}))
}
