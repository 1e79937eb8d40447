package scrape

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Service orchestrates job creation, status transitions, and result reads.
// It is the only writer of job status; the worker drives transitions through
// it rather than touching the store directly.
type Service struct {
	jobs      JobStore
	results   ResultStore
	publisher Publisher
	idGen     IDGenerator
	clock     Clock
	logger    *zap.Logger
}

// NewService constructs a Service.
func NewService(
	jobs JobStore,
	results ResultStore,
	publisher Publisher,
	idGen IDGenerator,
	clock Clock,
	logger *zap.Logger,
) *Service {
	return &Service{
		jobs:      jobs,
		results:   results,
		publisher: publisher,
		idGen:     idGen,
		clock:     clock,
		logger:    logger,
	}
}

// CreateJob inserts a pending job record and then publishes its queue
// message, in that order. If the publish fails the row stays pending and the
// error is returned to the caller; a job stuck in pending beyond the grace
// period is the observable signature of a lost message.
func (s *Service) CreateJob(ctx context.Context, jobType JobType) (Job, error) {
	if !jobType.Valid() {
		return Job{}, fmt.Errorf("%w: %q", ErrUnknownJobType, jobType)
	}
	id, err := s.idGen.NewID()
	if err != nil {
		return Job{}, fmt.Errorf("generate job id: %w", err)
	}
	job := Job{
		ID:        id,
		Type:      jobType,
		Status:    JobStatusPending,
		CreatedAt: s.clock.Now(),
	}
	if err := s.jobs.CreateJob(ctx, job); err != nil {
		return Job{}, fmt.Errorf("create job: %w", err)
	}
	if err := s.publisher.Publish(ctx, Message{JobID: id, JobType: jobType}); err != nil {
		s.logger.Error("job message publish failed, job stays pending",
			zap.String("job_id", id),
			zap.String("job_type", string(jobType)),
			zap.Error(err),
		)
		return Job{}, fmt.Errorf("publish job message: %w", err)
	}
	s.logger.Info("job scheduled",
		zap.String("job_id", id),
		zap.String("job_type", string(jobType)),
	)
	return job, nil
}

// MarkRunning transitions pending -> running. ErrInvalidTransition means the
// job was already picked up (duplicate delivery) or is terminal.
func (s *Service) MarkRunning(ctx context.Context, jobID string) error {
	if err := s.jobs.UpdateJobStatus(ctx, jobID, JobStatusPending, JobStatusRunning, "", 0); err != nil {
		return fmt.Errorf("mark running: %w", err)
	}
	return nil
}

// MarkCompleted transitions running -> completed and records the number of
// rows the job persisted.
func (s *Service) MarkCompleted(ctx context.Context, jobID string, items int) error {
	if err := s.jobs.UpdateJobStatus(ctx, jobID, JobStatusRunning, JobStatusCompleted, "", items); err != nil {
		return fmt.Errorf("mark completed: %w", err)
	}
	return nil
}

// MarkFailed transitions running -> failed and records the error message.
func (s *Service) MarkFailed(ctx context.Context, jobID string, errText string) error {
	if errText == "" {
		errText = "unknown error"
	}
	if err := s.jobs.UpdateJobStatus(ctx, jobID, JobStatusRunning, JobStatusFailed, errText, 0); err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return nil
}

// GetJob returns a single job by id.
func (s *Service) GetJob(ctx context.Context, jobID string) (Job, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns all jobs, newest first.
func (s *Service) ListJobs(ctx context.Context) ([]Job, error) {
	jobs, err := s.jobs.ListJobs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// GetResults joins a job to the rows it collected. The collections included
// depend on the job type.
func (s *Service) GetResults(ctx context.Context, jobID string) (JobResults, error) {
	job, err := s.jobs.GetJob(ctx, jobID)
	if err != nil {
		return JobResults{}, fmt.Errorf("get job: %w", err)
	}
	out := JobResults{Job: job}
	if job.Type == JobTypeHockey || job.Type == JobTypeAll {
		teams, err := s.results.HockeyTeamsByJob(ctx, jobID)
		if err != nil {
			return JobResults{}, fmt.Errorf("hockey results: %w", err)
		}
		out.Hockey = teams
	}
	if job.Type == JobTypeOscar || job.Type == JobTypeAll {
		films, err := s.results.OscarFilmsByJob(ctx, jobID)
		if err != nil {
			return JobResults{}, fmt.Errorf("oscar results: %w", err)
		}
		out.Oscar = films
	}
	return out, nil
}

// AllHockeyTeams returns every hockey row across jobs.
func (s *Service) AllHockeyTeams(ctx context.Context) ([]HockeyTeam, error) {
	teams, err := s.results.ListHockeyTeams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list hockey teams: %w", err)
	}
	return teams, nil
}

// AllOscarFilms returns every oscar row across jobs.
func (s *Service) AllOscarFilms(ctx context.Context) ([]OscarFilm, error) {
	films, err := s.results.ListOscarFilms(ctx)
	if err != nil {
		return nil, fmt.Errorf("list oscar films: %w", err)
	}
	return films, nil
}
