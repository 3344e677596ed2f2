package model

import "errors"

var (
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrNotValid is returned when a resource is not valid.
	ErrNotValid = errors.New("not valid")
	// ErrJobFailed is reported when the provider marks a job as failed.
	ErrJobFailed = errors.New("job failed")
	// ErrTimeout is reported when polling gives up before a job reaches a terminal status.
	ErrTimeout = errors.New("polling timed out")
)
