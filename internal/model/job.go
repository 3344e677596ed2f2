package model

// Job is a job record as returned by the provider job listing.
// The status uses the provider vocabulary, never the canonical one.
type Job struct {
	ID       string
	EntityID string
	Kind     string
	// Status is the raw provider status (e.g. `RUNNING`, `COMPLETED`).
	Status string
	// Progress is the optional percent complete reported by the provider.
	Progress *int
}

// CompletionEvent is broadcast when a tracked job reaches a terminal status.
type CompletionEvent struct {
	// ID is the unique event ID.
	ID       string
	EntityID string
	Job      Job
	Task     Task
}
