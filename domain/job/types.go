// Package job provides domain types for chat completion jobs.
package job

import (
	"time"

	"github.com/google/uuid"
)

// Status represents the current status of a job.
type Status string

const (
	// StatusPending indicates the job is queued.
	StatusPending Status = "pending"
	// StatusProcessing indicates a worker picked the job up.
	StatusProcessing Status = "processing"
	// StatusCompleted indicates the job produced reply text.
	StatusCompleted Status = "completed"
	// StatusFailed indicates the job resolved with a failure description.
	StatusFailed Status = "failed"
)

// IsTerminal reports whether no further transitions are expected.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job is one chat message submitted for completion.
type Job struct {
	ID          string     `json:"id"`
	Message     string     `json:"message"`
	Status      Status     `json:"status"`
	Result      string     `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	WorkerID    string     `json:"worker_id,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewJob creates a pending job for a message.
func NewJob(message string) *Job {
	now := time.Now()
	return &Job{
		ID:        uuid.New().String(),
		Message:   message,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Result is what a job resolves to. Exactly one of Text and Error is set.
type Result struct {
	Text  string `json:"text,omitempty"`
	Error string `json:"error,omitempty"`
}

// Failed reports whether the result carries a failure description.
func (r Result) Failed() bool {
	return r.Error != ""
}

// Success builds a successful result.
func Success(text string) Result {
	return Result{Text: text}
}

// Failure builds a failed result.
func Failure(description string) Result {
	return Result{Error: description}
}
