package job

import "errors"

var (
	// ErrJobNotFound indicates the job was not found.
	ErrJobNotFound = errors.New("job not found")
	// ErrQueueFull indicates the runner queue has no free slot.
	ErrQueueFull = errors.New("job queue is full")
	// ErrJobResolved indicates the job already reached a terminal status.
	ErrJobResolved = errors.New("job already resolved")
	// ErrRunnerStopped indicates the runner no longer accepts jobs.
	ErrRunnerStopped = errors.New("job runner stopped")
)
