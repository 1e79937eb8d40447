package scrape

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) (*Service, *fakeJobStore, *fakeResultStore, *fakePublisher) {
	t.Helper()
	jobs := newFakeJobStore()
	results := newFakeResultStore()
	publisher := &fakePublisher{}
	svc := NewService(
		jobs,
		results,
		publisher,
		&fakeIDGen{next: "job-1"},
		&fakeClock{now: time.Unix(1700000000, 0).UTC()},
		zap.NewNop(),
	)
	return svc, jobs, results, publisher
}

func TestService_CreateJob_StoresThenPublishes(t *testing.T) {
	t.Parallel()

	svc, jobs, _, publisher := newTestService(t)

	job, err := svc.CreateJob(context.Background(), JobTypeHockey)
	require.NoError(t, err)
	require.Equal(t, "job-1", job.ID)
	require.Equal(t, JobStatusPending, job.Status)

	stored, err := jobs.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, JobStatusPending, stored.Status)

	require.Len(t, publisher.messages, 1)
	require.Equal(t, Message{JobID: "job-1", JobType: JobTypeHockey}, publisher.messages[0])
}

func TestService_CreateJob_RejectsUnknownType(t *testing.T) {
	t.Parallel()

	svc, jobs, _, publisher := newTestService(t)

	_, err := svc.CreateJob(context.Background(), JobType("cricket"))
	require.ErrorIs(t, err, ErrUnknownJobType)
	require.Empty(t, publisher.messages)
	require.Empty(t, jobs.jobs)
}

func TestService_CreateJob_PublishFailureLeavesJobPending(t *testing.T) {
	t.Parallel()

	svc, jobs, _, publisher := newTestService(t)
	publisher.err = errors.New("broker down")

	_, err := svc.CreateJob(context.Background(), JobTypeOscar)
	require.Error(t, err)

	// The row survives the failed publish; it is the caller's evidence that
	// the job exists but never entered the queue.
	stored, err := jobs.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, JobStatusPending, stored.Status)
}

func TestService_StatusTransitions(t *testing.T) {
	t.Parallel()

	svc, jobs, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateJob(ctx, JobTypeHockey)
	require.NoError(t, err)

	require.NoError(t, svc.MarkRunning(ctx, "job-1"))
	require.Equal(t, JobStatusRunning, jobs.status("job-1"))

	// A second claim of the same job must be rejected.
	require.ErrorIs(t, svc.MarkRunning(ctx, "job-1"), ErrInvalidTransition)

	require.NoError(t, svc.MarkCompleted(ctx, "job-1", 42))
	stored, err := jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, JobStatusCompleted, stored.Status)
	require.Equal(t, 42, stored.ItemsCollected)

	// Terminal states admit no further transitions.
	require.ErrorIs(t, svc.MarkFailed(ctx, "job-1", "late failure"), ErrInvalidTransition)
}

func TestService_MarkFailedRecordsError(t *testing.T) {
	t.Parallel()

	svc, jobs, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateJob(ctx, JobTypeOscar)
	require.NoError(t, err)
	require.NoError(t, svc.MarkRunning(ctx, "job-1"))
	require.NoError(t, svc.MarkFailed(ctx, "job-1", "render timeout"))

	stored, err := jobs.GetJob(ctx, "job-1")
	require.NoError(t, err)
	require.Equal(t, JobStatusFailed, stored.Status)
	require.Equal(t, "render timeout", stored.Error)
	require.Zero(t, stored.ItemsCollected)
}

func TestService_GetResults_FiltersByJobType(t *testing.T) {
	t.Parallel()

	svc, _, results, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateJob(ctx, JobTypeHockey)
	require.NoError(t, err)

	results.hockey["job-1"] = []HockeyTeam{{TeamName: "Boston Bruins", Year: 1990}}
	results.oscar["job-1"] = []OscarFilm{{Title: "Dances with Wolves", Year: 1990}}

	out, err := svc.GetResults(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, out.Hockey, 1)
	// A hockey job never exposes oscar rows, even if some exist under its id.
	require.Empty(t, out.Oscar)
	require.Equal(t, 1, out.Count())
}

func TestService_GetResults_UnknownJob(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestService(t)

	_, err := svc.GetResults(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
}

type fakeJobStore struct {
	mu   sync.Mutex
	jobs map[string]Job
}

func newFakeJobStore() *fakeJobStore {
	return &fakeJobStore{jobs: map[string]Job{}}
}

func (s *fakeJobStore) CreateJob(_ context.Context, job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
	return nil
}

func (s *fakeJobStore) UpdateJobStatus(
	_ context.Context,
	jobID string,
	from, to JobStatus,
	errText string,
	items int,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return ErrNotFound
	}
	if job.Status != from {
		return ErrInvalidTransition
	}
	job.Status = to
	job.Error = errText
	job.ItemsCollected = items
	s.jobs[jobID] = job
	return nil
}

func (s *fakeJobStore) GetJob(_ context.Context, jobID string) (Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[jobID]
	if !ok {
		return Job{}, ErrNotFound
	}
	return job, nil
}

func (s *fakeJobStore) ListJobs(_ context.Context) ([]Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Job, 0, len(s.jobs))
	for _, job := range s.jobs {
		out = append(out, job)
	}
	return out, nil
}

func (s *fakeJobStore) status(jobID string) JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[jobID].Status
}

type fakeResultStore struct {
	mu     sync.Mutex
	hockey map[string][]HockeyTeam
	oscar  map[string][]OscarFilm
}

func newFakeResultStore() *fakeResultStore {
	return &fakeResultStore{
		hockey: map[string][]HockeyTeam{},
		oscar:  map[string][]OscarFilm{},
	}
}

func (s *fakeResultStore) AddHockeyTeams(_ context.Context, jobID string, teams []HockeyTeam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hockey[jobID] = append(s.hockey[jobID], teams...)
	return nil
}

func (s *fakeResultStore) AddOscarFilms(_ context.Context, jobID string, films []OscarFilm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.oscar[jobID] = append(s.oscar[jobID], films...)
	return nil
}

func (s *fakeResultStore) HockeyTeamsByJob(_ context.Context, jobID string) ([]HockeyTeam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hockey[jobID], nil
}

func (s *fakeResultStore) OscarFilmsByJob(_ context.Context, jobID string) ([]OscarFilm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.oscar[jobID], nil
}

func (s *fakeResultStore) ListHockeyTeams(_ context.Context) ([]HockeyTeam, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []HockeyTeam
	for _, teams := range s.hockey {
		out = append(out, teams...)
	}
	return out, nil
}

func (s *fakeResultStore) ListOscarFilms(_ context.Context) ([]OscarFilm, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []OscarFilm
	for _, films := range s.oscar {
		out = append(out, films...)
	}
	return out, nil
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []Message
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, msg Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, msg)
	return nil
}

type fakeIDGen struct {
	next string
}

func (g *fakeIDGen) NewID() (string, error) {
	return g.next, nil
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}
