package jobs

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/example/ai-support-chat/domain/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startRunner(t *testing.T, cfg PoolConfig, executor Executor) *Runner {
	t.Helper()
	r := NewRunner(cfg, job.NewStore(100), nil)
	r.SetExecutor(executor)
	require.NoError(t, r.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = r.Stop(ctx)
	})
	return r
}

func waitResult(t *testing.T, f *Future) job.Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	result, err := f.Wait(ctx)
	require.NoError(t, err)
	return result
}

func TestRunner_SubmitAndWait(t *testing.T) {
	r := startRunner(t, DefaultPoolConfig(), ExecutorFunc(func(_ context.Context, j *job.Job) (job.Result, error) {
		return job.Success("reply to " + j.Message), nil
	}))

	f, err := r.Submit(context.Background(), "hello")
	require.NoError(t, err)
	assert.NotEmpty(t, f.JobID())

	result := waitResult(t, f)
	assert.Equal(t, "reply to hello", result.Text)
	assert.False(t, result.Failed())

	stored, err := r.Job(f.JobID())
	require.NoError(t, err)
	assert.Equal(t, job.StatusCompleted, stored.Status)
	assert.Equal(t, "reply to hello", stored.Result)
	assert.NotEmpty(t, stored.WorkerID)
	assert.NotNil(t, stored.CompletedAt)
}

func TestRunner_ExecutorFailures(t *testing.T) {
	tests := []struct {
		name      string
		executor  ExecutorFunc
		wantError string
	}{
		{
			name: "failed result",
			executor: func(context.Context, *job.Job) (job.Result, error) {
				return job.Failure("AI error: quota exceeded"), nil
			},
			wantError: "AI error: quota exceeded",
		},
		{
			name: "transport error",
			executor: func(context.Context, *job.Job) (job.Result, error) {
				return job.Result{}, errors.New("no responders")
			},
			wantError: "AI error: no responders",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := startRunner(t, DefaultPoolConfig(), tt.executor)

			f, err := r.Submit(context.Background(), "hello")
			require.NoError(t, err)

			result := waitResult(t, f)
			assert.Equal(t, tt.wantError, result.Error)

			stored, err := r.Job(f.JobID())
			require.NoError(t, err)
			assert.Equal(t, job.StatusFailed, stored.Status)
		})
	}
}

func TestRunner_ProcessTimeout(t *testing.T) {
	cfg := DefaultPoolConfig()
	cfg.ProcessTimeout = 20 * time.Millisecond

	r := startRunner(t, cfg, ExecutorFunc(func(ctx context.Context, _ *job.Job) (job.Result, error) {
		<-ctx.Done()
		return job.Result{}, ctx.Err()
	}))

	f, err := r.Submit(context.Background(), "slow")
	require.NoError(t, err)

	result := waitResult(t, f)
	assert.True(t, result.Failed())
	assert.Contains(t, result.Error, "deadline exceeded")
}

func TestRunner_IdenticalMessagesAreIndependent(t *testing.T) {
	var calls atomic.Int32
	r := startRunner(t, DefaultPoolConfig(), ExecutorFunc(func(_ context.Context, j *job.Job) (job.Result, error) {
		calls.Add(1)
		return job.Success(j.ID), nil
	}))

	first, err := r.Submit(context.Background(), "same")
	require.NoError(t, err)
	second, err := r.Submit(context.Background(), "same")
	require.NoError(t, err)

	assert.NotEqual(t, first.JobID(), second.JobID())
	assert.Equal(t, first.JobID(), waitResult(t, first).Text)
	assert.Equal(t, second.JobID(), waitResult(t, second).Text)
	assert.Equal(t, int32(2), calls.Load())
}

func TestRunner_QueueFull(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	r := startRunner(t, PoolConfig{Workers: 1, QueueSize: 1, ProcessTimeout: time.Second},
		ExecutorFunc(func(ctx context.Context, _ *job.Job) (job.Result, error) {
			started <- struct{}{}
			select {
			case <-release:
			case <-ctx.Done():
			}
			return job.Success("ok"), nil
		}))
	defer close(release)

	_, err := r.Submit(context.Background(), "busy")
	require.NoError(t, err)
	<-started

	_, err = r.Submit(context.Background(), "queued")
	require.NoError(t, err)

	_, err = r.Submit(context.Background(), "overflow")
	assert.ErrorIs(t, err, job.ErrQueueFull)
}

func TestRunner_SubmitBeforeStartAndAfterStop(t *testing.T) {
	r := NewRunner(DefaultPoolConfig(), job.NewStore(10), nil)
	r.SetExecutor(ExecutorFunc(func(context.Context, *job.Job) (job.Result, error) {
		return job.Success("ok"), nil
	}))

	_, err := r.Submit(context.Background(), "early")
	assert.ErrorIs(t, err, job.ErrRunnerStopped)

	require.NoError(t, r.Start(context.Background()))
	require.NoError(t, r.Stop(context.Background()))

	_, err = r.Submit(context.Background(), "late")
	assert.ErrorIs(t, err, job.ErrRunnerStopped)
}

func TestRunner_StartWithoutExecutor(t *testing.T) {
	r := NewRunner(DefaultPoolConfig(), job.NewStore(10), nil)
	assert.Error(t, r.Start(context.Background()))
}

func TestRunner_StopFailsQueuedJobs(t *testing.T) {
	started := make(chan struct{}, 1)
	r := NewRunner(PoolConfig{Workers: 1, QueueSize: 4, ProcessTimeout: time.Minute}, job.NewStore(10), nil)
	r.SetExecutor(ExecutorFunc(func(ctx context.Context, _ *job.Job) (job.Result, error) {
		started <- struct{}{}
		<-ctx.Done()
		return job.Result{}, ctx.Err()
	}))
	require.NoError(t, r.Start(context.Background()))

	inFlight, err := r.Submit(context.Background(), "first")
	require.NoError(t, err)
	<-started

	queued, err := r.Submit(context.Background(), "second")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Stop(ctx))

	assert.True(t, waitResult(t, inFlight).Failed())
	assert.Equal(t, job.ErrRunnerStopped.Error(), waitResult(t, queued).Error)
}

func TestFuture_WaitHonoursContext(t *testing.T) {
	f := newFuture("job-1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	assert.True(t, f.resolve(job.Success("late")))
	assert.False(t, f.resolve(job.Success("ignored")))

	result, err := f.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "late", result.Text)
}

func TestFuture_ConcurrentWaiters(t *testing.T) {
	f := newFuture("job-1")

	var wg sync.WaitGroup
	results := make([]string, 5)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, _ := f.Wait(context.Background())
			results[i] = r.Text
		}()
	}

	f.resolve(job.Success("done"))
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, "done", got)
	}
}

func TestRunner_Run(t *testing.T) {
	r := startRunner(t, DefaultPoolConfig(), ExecutorFunc(func(ctx context.Context, j *job.Job) (job.Result, error) {
		if j.Message == "hang" {
			<-ctx.Done()
			return job.Result{}, ctx.Err()
		}
		return job.Success("hi there"), nil
	}))

	result, err := r.Run(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, "hi there", result.Text)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = r.Run(ctx, "hang")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
