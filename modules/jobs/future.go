package jobs

import (
	"context"
	"sync"

	"github.com/example/ai-support-chat/domain/job"
)

// Future is the pending result of a submitted job.
type Future struct {
	jobID  string
	done   chan struct{}
	once   sync.Once
	result job.Result
}

func newFuture(jobID string) *Future {
	return &Future{
		jobID: jobID,
		done:  make(chan struct{}),
	}
}

// JobID returns the ID of the job behind this future.
func (f *Future) JobID() string {
	return f.jobID
}

// Wait blocks until the job resolves or ctx ends. A context error is
// returned as is, so callers can tell a timeout from a failed job.
func (f *Future) Wait(ctx context.Context) (job.Result, error) {
	select {
	case <-f.done:
		return f.result, nil
	case <-ctx.Done():
		return job.Result{}, ctx.Err()
	}
}

// resolve sets the result; only the first call has an effect.
func (f *Future) resolve(result job.Result) bool {
	resolved := false
	f.once.Do(func() {
		f.result = result
		close(f.done)
		resolved = true
	})
	return resolved
}
