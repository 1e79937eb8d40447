// Package memory provides in-memory stores for development and testing.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/statlake/harvester/internal/scrape"
)

// JobStore keeps job records in a map, with the same conditional-transition
// semantics as the Postgres store.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]scrape.Job
}

// NewJobStore constructs a JobStore.
func NewJobStore() *JobStore {
	return &JobStore{
		jobs: make(map[string]scrape.Job),
	}
}

// CreateJob stores a new job record.
func (s *JobStore) CreateJob(_ context.Context, job scrape.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job
	return nil
}

// UpdateJobStatus applies the transition only when the job's current status
// equals from; otherwise it returns ErrInvalidTransition.
func (s *JobStore) UpdateJobStatus(
	_ context.Context,
	jobID string,
	from, to scrape.JobStatus,
	errText string,
	items int,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scrape.ErrNotFound
	}
	if job.Status != from {
		return fmt.Errorf("%w: job %s is %s, not %s", scrape.ErrInvalidTransition, jobID, job.Status, from)
	}
	now := time.Now().UTC()
	job.Status = to
	switch to {
	case scrape.JobStatusRunning:
		if job.StartedAt == nil {
			job.StartedAt = pointerTime(now)
		}
	case scrape.JobStatusCompleted:
		job.ItemsCollected = items
		if job.CompletedAt == nil {
			job.CompletedAt = pointerTime(now)
		}
	case scrape.JobStatusFailed:
		job.Error = errText
		if job.CompletedAt == nil {
			job.CompletedAt = pointerTime(now)
		}
	}
	s.jobs[jobID] = job
	return nil
}

// GetJob fetches a job by id.
func (s *JobStore) GetJob(_ context.Context, jobID string) (scrape.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return scrape.Job{}, scrape.ErrNotFound
	}
	return job, nil
}

// ListJobs returns all jobs, newest first.
func (s *JobStore) ListJobs(_ context.Context) ([]scrape.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	jobs := make([]scrape.Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		jobs = append(jobs, job)
	}
	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})
	return jobs, nil
}

func pointerTime(t time.Time) *time.Time {
	ts := t
	return &ts
}
