package joblist

import (
	"context"

	"github.com/slok/jobwatch/internal/model"
)

// DefaultPageSize is the number of jobs requested on each listing.
const DefaultPageSize = 100

// Lister lists the jobs of the authenticated user on the provider.
// Pages start at 1.
type Lister interface {
	ListJobs(ctx context.Context, page, pageSize int) ([]model.Job, error)
}

// ListerFunc is a helper to use functions as Listers.
type ListerFunc func(ctx context.Context, page, pageSize int) ([]model.Job, error)

// ListJobs satisfies Lister interface.
func (f ListerFunc) ListJobs(ctx context.Context, page, pageSize int) ([]model.Job, error) {
	return f(ctx, page, pageSize)
}

// Repository manages the jobs of a provider we own (e.g. the local provider).
type Repository interface {
	Lister
	PutJob(ctx context.Context, job model.Job) error
	DeleteJob(ctx context.Context, id string) error
}
