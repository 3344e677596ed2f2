package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/slok/jobwatch/internal/joblist"
	"github.com/slok/jobwatch/internal/joblist/sqlite/migrations"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
)

var _ joblist.Repository = (*Provider)(nil)

// ProviderConfig is the configuration for the SQLite job provider.
type ProviderConfig struct {
	DBPath string
	Logger log.Logger
	// Now returns the current time, used for job timestamps.
	Now func() time.Time
}

func (c *ProviderConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "joblist.SQLite"})

	if c.Now == nil {
		c.Now = time.Now
	}

	return nil
}

// Provider is a local job provider backed by SQLite. It implements joblist.Lister and
// lets jobs be created and changed locally, so the polling engine can be run without
// the real provider.
type Provider struct {
	db     *sql.DB
	logger log.Logger
	now    func() time.Time
}

// NewProvider opens (and migrates) the SQLite job provider database.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite job provider initialized at %s", cfg.DBPath)

	return &Provider{db: db, logger: cfg.Logger, now: cfg.Now}, nil
}

// Close closes the database connection.
func (p *Provider) Close() error { return p.db.Close() }

// ListJobs lists a page of jobs, newest first.
func (p *Provider) ListJobs(ctx context.Context, page, pageSize int) ([]model.Job, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		return nil, fmt.Errorf("page size must be positive: %w", model.ErrNotValid)
	}

	query := `
		SELECT id, entity_id, kind, status, progress
		FROM jobs
		ORDER BY created_at DESC, id ASC
		LIMIT ? OFFSET ?
	`
	rows, err := p.db.QueryContext(ctx, query, pageSize, (page-1)*pageSize)
	if err != nil {
		return nil, fmt.Errorf("could not query jobs: %w", err)
	}
	defer rows.Close()

	jobs := []model.Job{}
	for rows.Next() {
		var j model.Job
		var progress sql.NullInt64
		if err := rows.Scan(&j.ID, &j.EntityID, &j.Kind, &j.Status, &progress); err != nil {
			return nil, fmt.Errorf("could not scan job: %w", err)
		}
		if progress.Valid {
			v := int(progress.Int64)
			j.Progress = &v
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("could not iterate jobs: %w", err)
	}

	return jobs, nil
}

// PutJob creates or updates a job. The provider status is stored as is.
func (p *Provider) PutJob(ctx context.Context, job model.Job) error {
	if strings.TrimSpace(job.ID) == "" {
		return fmt.Errorf("job id is required: %w", model.ErrNotValid)
	}
	if strings.TrimSpace(job.Status) == "" {
		return fmt.Errorf("job status is required: %w", model.ErrNotValid)
	}

	var progress any
	if job.Progress != nil {
		progress = *job.Progress
	}

	now := p.now().UTC().UnixNano()
	query := `
		INSERT INTO jobs (id, entity_id, kind, status, progress, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			entity_id = CASE WHEN excluded.entity_id = '' THEN jobs.entity_id ELSE excluded.entity_id END,
			kind = CASE WHEN excluded.kind = '' THEN jobs.kind ELSE excluded.kind END,
			status = excluded.status,
			progress = COALESCE(excluded.progress, jobs.progress),
			updated_at = excluded.updated_at
	`
	if _, err := p.db.ExecContext(ctx, query, job.ID, job.EntityID, job.Kind, job.Status, progress, now, now); err != nil {
		return fmt.Errorf("could not put job: %w", err)
	}

	p.logger.Debugf("Stored job %s with status %s", job.ID, job.Status)
	return nil
}

// DeleteJob deletes a job.
func (p *Provider) DeleteJob(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("could not delete job: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("could not get affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("job %s: %w", id, model.ErrNotFound)
	}

	p.logger.Debugf("Deleted job %s", id)
	return nil
}
