package job

import (
	"sync"
	"time"
)

// Store provides in-memory storage for the most recent jobs.
type Store struct {
	jobs   map[string]*Job
	order  []string
	retain int
	mu     sync.RWMutex
}

// NewStore creates a store that keeps at most retain jobs; older jobs are
// evicted in insertion order. retain <= 0 keeps everything.
func NewStore(retain int) *Store {
	return &Store{
		jobs:   make(map[string]*Job),
		retain: retain,
	}
}

// Create stores a new job.
func (s *Store) Create(job *Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[job.ID]; !exists {
		s.order = append(s.order, job.ID)
	}
	s.jobs[job.ID] = job

	if s.retain > 0 {
		for len(s.order) > s.retain {
			delete(s.jobs, s.order[0])
			s.order = s.order[1:]
		}
	}
	return nil
}

// GetByID retrieves a copy of a job by its ID.
func (s *Store) GetByID(id string) (*Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, exists := s.jobs[id]
	if !exists {
		return nil, ErrJobNotFound
	}
	jobCopy := *job
	return &jobCopy, nil
}

// SetStarted marks a job as picked up by a worker.
func (s *Store) SetStarted(id string, workerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return ErrJobNotFound
	}

	now := time.Now()
	job.Status = StatusProcessing
	job.StartedAt = &now
	job.WorkerID = workerID
	job.UpdatedAt = now
	return nil
}

// Resolve records a result, choosing completed or failed from its shape.
// A job resolves once; later results yield ErrJobResolved.
func (s *Store) Resolve(id string, result Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	job, exists := s.jobs[id]
	if !exists {
		return ErrJobNotFound
	}
	if job.Status.IsTerminal() {
		return ErrJobResolved
	}

	now := time.Now()
	if result.Failed() {
		job.Status = StatusFailed
		job.Error = result.Error
	} else {
		job.Status = StatusCompleted
		job.Result = result.Text
	}
	job.CompletedAt = &now
	job.UpdatedAt = now
	return nil
}

// CountByStatus returns the number of retained jobs per status.
func (s *Store) CountByStatus() map[Status]int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[Status]int)
	for _, job := range s.jobs {
		counts[job.Status]++
	}
	return counts
}

// Len returns the number of retained jobs.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.jobs)
}
