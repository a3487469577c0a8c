// Package jobs runs chat completion jobs on a bounded worker pool.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/example/ai-support-chat/domain/job"
)

// Executor produces the result of one job.
type Executor interface {
	Execute(ctx context.Context, j *job.Job) (job.Result, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, j *job.Job) (job.Result, error)

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, j *job.Job) (job.Result, error) {
	return f(ctx, j)
}

// PoolConfig holds worker pool configuration.
type PoolConfig struct {
	Workers        int
	QueueSize      int
	ProcessTimeout time.Duration
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		Workers:        4,
		QueueSize:      256,
		ProcessTimeout: 45 * time.Second,
	}
}

type task struct {
	job    *job.Job
	future *Future
}

// Runner owns the job queue and the workers draining it.
type Runner struct {
	config   PoolConfig
	store    *job.Store
	executor Executor
	queue    chan *task
	wg       sync.WaitGroup
	cancel   context.CancelFunc
	mu       sync.RWMutex
	running  bool
	logger   *slog.Logger
}

// NewRunner creates a runner. It accepts jobs only between Start and Stop.
func NewRunner(cfg PoolConfig, store *job.Store, logger *slog.Logger) *Runner {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = cfg.Workers
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		config: cfg,
		store:  store,
		queue:  make(chan *task, cfg.QueueSize),
		logger: logger,
	}
}

// SetExecutor sets the executor. It must be called before Start.
func (r *Runner) SetExecutor(executor Executor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executor = executor
}

// Start launches the workers.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.running {
		return fmt.Errorf("runner is already running")
	}
	if r.executor == nil {
		return fmt.Errorf("runner has no executor")
	}

	// Workers outlive the start context; Stop cancels them.
	workerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r.cancel = cancel
	r.running = true

	for i := 0; i < r.config.Workers; i++ {
		w := &worker{
			id:     fmt.Sprintf("worker-%d", i+1),
			runner: r,
		}
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			w.run(workerCtx)
		}()
	}

	r.logger.Info("Worker pool started", "workers", r.config.Workers, "queue_size", r.config.QueueSize)
	return nil
}

// Submit records a new job for message and queues it. It never blocks:
// a saturated queue yields ErrQueueFull.
func (r *Runner) Submit(ctx context.Context, message string) (*Future, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.running {
		return nil, job.ErrRunnerStopped
	}

	j := job.NewJob(message)
	if err := r.store.Create(j); err != nil {
		return nil, fmt.Errorf("failed to store job: %w", err)
	}

	t := &task{job: j, future: newFuture(j.ID)}
	select {
	case r.queue <- t:
		r.logger.Debug("Job queued", "job_id", j.ID)
		return t.future, nil
	default:
		_ = r.store.Resolve(j.ID, job.Failure(job.ErrQueueFull.Error()))
		return nil, job.ErrQueueFull
	}
}

// Run submits message and waits for its result until ctx ends.
func (r *Runner) Run(ctx context.Context, message string) (job.Result, error) {
	future, err := r.Submit(ctx, message)
	if err != nil {
		return job.Result{}, err
	}
	result, err := future.Wait(ctx)
	if err != nil {
		r.logger.Debug("Stopped waiting for job", "job_id", future.JobID(), "error", err)
	}
	return result, err
}

// Job returns a snapshot of a retained job.
func (r *Runner) Job(id string) (*job.Job, error) {
	return r.store.GetByID(id)
}

// Stats returns retained job counts per status plus the queue depth.
func (r *Runner) Stats() map[string]any {
	stats := map[string]any{
		"queued":   len(r.queue),
		"retained": r.store.Len(),
	}
	for status, n := range r.store.CountByStatus() {
		stats[string(status)] = n
	}
	return stats
}

// IsRunning returns true if the runner accepts jobs.
func (r *Runner) IsRunning() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.running
}

// Stop stops accepting jobs, cancels in-flight work and fails every job
// still queued. It waits for the workers until ctx ends.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return nil
	}
	r.running = false
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
		r.logger.Info("All workers stopped gracefully")
	case <-ctx.Done():
		r.logger.Warn("Timeout waiting for workers to stop")
		err = ctx.Err()
	}

	r.drain()
	return err
}

func (r *Runner) drain() {
	for {
		select {
		case t := <-r.queue:
			r.finish(t, job.Failure(job.ErrRunnerStopped.Error()))
		default:
			return
		}
	}
}

// finish records the result and resolves the future.
func (r *Runner) finish(t *task, result job.Result) {
	if err := r.store.Resolve(t.job.ID, result); err != nil && !errors.Is(err, job.ErrJobNotFound) && !errors.Is(err, job.ErrJobResolved) {
		r.logger.Warn("Error recording job result", "job_id", t.job.ID, "error", err)
	}
	t.future.resolve(result)
}

// worker processes tasks from the runner queue.
type worker struct {
	id     string
	runner *Runner
}

func (w *worker) run(ctx context.Context) {
	logger := w.runner.logger.With("worker", w.id)
	logger.Debug("Worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Debug("Worker stopping due to context cancellation")
			return
		case t := <-w.runner.queue:
			if ctx.Err() != nil {
				w.runner.finish(t, job.Failure(job.ErrRunnerStopped.Error()))
				continue
			}
			w.process(ctx, logger, t)
		}
	}
}

func (w *worker) process(ctx context.Context, logger *slog.Logger, t *task) {
	r := w.runner
	j := t.job

	// evicted jobs are still processed; only their record is gone
	if err := r.store.SetStarted(j.ID, w.id); err != nil && !errors.Is(err, job.ErrJobNotFound) {
		logger.Warn("Error updating job status", "job_id", j.ID, "error", err)
	}

	processCtx := ctx
	if r.config.ProcessTimeout > 0 {
		var cancel context.CancelFunc
		processCtx, cancel = context.WithTimeout(ctx, r.config.ProcessTimeout)
		defer cancel()
	}

	start := time.Now()
	result, err := r.executor.Execute(processCtx, j)
	duration := time.Since(start)

	if err != nil {
		logger.Warn("Job processing error", "job_id", j.ID, "error", err, "duration", duration)
		result = job.Failure(fmt.Sprintf("AI error: %v", err))
	} else if result.Failed() {
		logger.Info("Job failed", "job_id", j.ID, "error", result.Error, "duration", duration)
	} else {
		logger.Info("Job completed", "job_id", j.ID, "duration", duration)
	}

	r.finish(t, result)
}
