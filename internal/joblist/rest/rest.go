package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/time/rate"

	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
)

// DefaultMaxRetries is the default number of retries of a failed request.
const DefaultMaxRetries = 3

// ListerConfig is the configuration for the HTTP job lister.
type ListerConfig struct {
	// URL is the provider API base URL, jobs are listed on `<URL>/jobs`.
	URL string
	// Token is the bearer token used to authenticate, optional.
	Token string
	// Timeout is the timeout of a single HTTP request.
	Timeout time.Duration
	// RateLimit is the maximum number of requests per second.
	RateLimit float64
	Burst     int
	// MaxRetries is the number of retries of a failed request inside a single listing.
	// Default: 3.
	MaxRetries int
	HTTPClient *http.Client
	Logger     log.Logger
}

func (c *ListerConfig) defaults() error {
	if c.URL == "" {
		return fmt.Errorf("url is required")
	}
	if _, err := url.Parse(c.URL); err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if c.Timeout <= 0 {
		c.Timeout = 10 * time.Second
	}

	if c.RateLimit <= 0 {
		c.RateLimit = 2
	}

	if c.Burst <= 0 {
		c.Burst = 4
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries can't be negative")
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}

	if c.HTTPClient == nil {
		c.HTTPClient = &http.Client{}
	}

	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "joblist.HTTP"})

	return nil
}

// Lister lists the provider jobs using its HTTP API.
type Lister struct {
	baseURL    string
	token      string
	timeout    time.Duration
	maxRetries int
	limiter    *rate.Limiter
	client     *http.Client
	logger     log.Logger
}

// NewLister returns a new HTTP job lister.
func NewLister(cfg ListerConfig) (*Lister, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Lister{
		baseURL:    strings.TrimRight(cfg.URL, "/"),
		token:      cfg.Token,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		client:     cfg.HTTPClient,
		logger:     cfg.Logger,
	}, nil
}

// jobJSON is the provider job representation.
type jobJSON struct {
	ID       string `json:"id"`
	EntityID string `json:"entityId"`
	Kind     string `json:"kind"`
	Status   string `json:"status"`
	Progress *int   `json:"progress,omitempty"`
}

type listJSON struct {
	Jobs []jobJSON `json:"jobs"`
}

// ListJobs lists a page of the provider jobs.
// Server and network errors are retried with exponential backoff, client errors are not.
func (l *Lister) ListJobs(ctx context.Context, page, pageSize int) ([]model.Job, error) {
	u := fmt.Sprintf("%s/jobs?page=%s&limit=%s", l.baseURL, strconv.Itoa(page), strconv.Itoa(pageSize))

	var body []byte
	operation := func() error {
		if err := l.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(err)
		}

		b, err := l.get(ctx, u)
		if err != nil {
			var statusErr *statusError
			if errors.As(err, &statusErr) && statusErr.code < 500 {
				return backoff.Permanent(err)
			}
			l.logger.Debugf("Listing jobs failed, retrying: %s", err)
			return err
		}
		body = b
		return nil
	}

	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 200 * time.Millisecond
	expBackoff.MaxElapsedTime = l.timeout
	bo := backoff.WithContext(backoff.WithMaxRetries(expBackoff, uint64(l.maxRetries)), ctx)

	if err := backoff.Retry(operation, bo); err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Err
		}
		return nil, fmt.Errorf("could not list jobs: %w", err)
	}

	jobs, err := decodeJobs(body)
	if err != nil {
		return nil, fmt.Errorf("could not decode jobs: %w", err)
	}

	return jobs, nil
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status code %d: %s", e.code, e.body)
}

func (l *Lister) get(ctx context.Context, u string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode, body: strings.TrimSpace(string(body))}
	}

	return body, nil
}

// decodeJobs accepts both `{"jobs": [...]}` and a bare array.
func decodeJobs(body []byte) ([]model.Job, error) {
	var raw []jobJSON
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return nil, err
		}
	} else {
		var l listJSON
		if err := json.Unmarshal(trimmed, &l); err != nil {
			return nil, err
		}
		raw = l.Jobs
	}

	jobs := make([]model.Job, 0, len(raw))
	for _, j := range raw {
		jobs = append(jobs, model.Job{
			ID:       j.ID,
			EntityID: j.EntityID,
			Kind:     j.Kind,
			Status:   j.Status,
			Progress: j.Progress,
		})
	}

	return jobs, nil
}
