// Package provider serves an emulated provider job API for the integration tests.
package provider

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
)

// Job is a job as served by the provider API.
type Job struct {
	ID       string `json:"id"`
	EntityID string `json:"entityId,omitempty"`
	Kind     string `json:"kind,omitempty"`
	Status   string `json:"status"`
	Progress *int   `json:"progress,omitempty"`
}

// Server is an emulated provider API. Running jobs advance their progress by Step on every
// listing and complete when they reach 100.
type Server struct {
	URL   string
	Token string

	mu       sync.Mutex
	step     int
	jobs     map[string]Job
	requests int
}

// NewServer starts a provider API server that is closed when the test finishes.
func NewServer(t *testing.T, token string, step int) *Server {
	t.Helper()

	s := &Server{Token: token, step: step, jobs: map[string]Job{}}
	srv := httptest.NewServer(http.HandlerFunc(s.handle))
	t.Cleanup(srv.Close)
	s.URL = srv.URL

	return s
}

// PutJob creates or replaces a job.
func (s *Server) PutJob(j Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[j.ID] = j
}

// Requests returns the number of listings served.
func (s *Server) Requests() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/jobs" || r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	if s.Token != "" && r.Header.Get("Authorization") != "Bearer "+s.Token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}

	s.mu.Lock()
	s.requests++
	jobs := make([]Job, 0, len(s.jobs))
	for id, j := range s.jobs {
		if j.Status == "RUNNING" && s.step > 0 {
			p := s.step
			if j.Progress != nil {
				p += *j.Progress
			}
			if p >= 100 {
				p = 100
				j.Status = "COMPLETED"
			}
			j.Progress = &p
			s.jobs[id] = j
		}
		jobs = append(jobs, j)
	}
	s.mu.Unlock()

	sort.Slice(jobs, func(i, j int) bool { return jobs[i].ID < jobs[j].ID })
	start := min((page-1)*limit, len(jobs))
	end := min(start+limit, len(jobs))

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"jobs": jobs[start:end]})
}
