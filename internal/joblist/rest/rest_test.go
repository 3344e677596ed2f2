package rest_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/slok/jobwatch/internal/joblist/rest"
	"github.com/slok/jobwatch/internal/log"
	"github.com/slok/jobwatch/internal/model"
)

func intPtr(i int) *int { return &i }

func TestNewLister(t *testing.T) {
	tests := map[string]struct {
		config rest.ListerConfig
		expErr bool
	}{
		"Valid config should succeed.": {
			config: rest.ListerConfig{URL: "http://127.0.0.1:8080"},
		},
		"Missing URL should fail.": {
			config: rest.ListerConfig{},
			expErr: true,
		},
		"Negative retries should fail.": {
			config: rest.ListerConfig{URL: "http://127.0.0.1:8080", MaxRetries: -1},
			expErr: true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			l, err := rest.NewLister(test.config)
			if test.expErr {
				assert.Error(t, err)
				assert.Nil(t, l)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, l)
			}
		})
	}
}

func TestListerListJobs(t *testing.T) {
	tests := map[string]struct {
		handler  func(calls int32) (int, string)
		expJobs  []model.Job
		expCalls int32
		expErr   bool
	}{
		"An object listing should be decoded.": {
			handler: func(int32) (int, string) {
				return http.StatusOK, `{"jobs":[{"id":"J1","entityId":"video-1","status":"RUNNING","progress":40},{"id":"J2","status":"COMPLETED"}]}`
			},
			expJobs: []model.Job{
				{ID: "J1", EntityID: "video-1", Status: "RUNNING", Progress: intPtr(40)},
				{ID: "J2", Status: "COMPLETED"},
			},
			expCalls: 1,
		},
		"A bare array listing should be decoded.": {
			handler: func(int32) (int, string) {
				return http.StatusOK, `[{"id":"J1","status":"PENDING","kind":"transcode"}]`
			},
			expJobs:  []model.Job{{ID: "J1", Kind: "transcode", Status: "PENDING"}},
			expCalls: 1,
		},
		"Server errors should be retried.": {
			handler: func(calls int32) (int, string) {
				if calls == 1 {
					return http.StatusBadGateway, "bad gateway"
				}
				return http.StatusOK, `{"jobs":[]}`
			},
			expJobs:  []model.Job{},
			expCalls: 2,
		},
		"Client errors should not be retried.": {
			handler: func(int32) (int, string) {
				return http.StatusUnauthorized, "unauthorized"
			},
			expCalls: 1,
			expErr:   true,
		},
		"Persistent server errors should fail after the retries.": {
			handler: func(int32) (int, string) {
				return http.StatusInternalServerError, "boom"
			},
			expCalls: 3,
			expErr:   true,
		},
		"Invalid JSON should fail.": {
			handler: func(int32) (int, string) {
				return http.StatusOK, `{"jobs":`
			},
			expCalls: 1,
			expErr:   true,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := calls.Add(1)
				assert.Equal("/jobs", r.URL.Path)
				assert.Equal("1", r.URL.Query().Get("page"))
				assert.Equal("100", r.URL.Query().Get("limit"))
				assert.Equal("Bearer secret", r.Header.Get("Authorization"))

				code, body := test.handler(n)
				w.WriteHeader(code)
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			l, err := rest.NewLister(rest.ListerConfig{
				URL:        srv.URL + "/",
				Token:      "secret",
				Timeout:    2 * time.Second,
				RateLimit:  1000,
				MaxRetries: 2,
				Logger:     log.Noop,
			})
			require.NoError(err)

			jobs, err := l.ListJobs(context.Background(), 1, 100)
			if test.expErr {
				assert.Error(err)
			} else if assert.NoError(err) {
				assert.Equal(test.expJobs, jobs)
			}
			assert.Equal(test.expCalls, calls.Load())
		})
	}
}

func TestListerDefaultRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	l, err := rest.NewLister(rest.ListerConfig{
		URL:       srv.URL,
		Timeout:   5 * time.Second,
		RateLimit: 1000,
		Logger:    log.Noop,
	})
	require.NoError(t, err)

	_, err = l.ListJobs(context.Background(), 1, 100)
	assert.Error(t, err)
	assert.Equal(t, int32(1+rest.DefaultMaxRetries), calls.Load())
}
