package postgres

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/statlake/harvester/internal/scrape"
)

func newMockJobStore(t *testing.T) (*JobStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	store, err := NewJobStore(mock)
	require.NoError(t, err)
	return store, mock
}

func TestJobStore_CreateJob(t *testing.T) {
	t.Parallel()

	store, mock := newMockJobStore(t)
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO jobs")).
		WithArgs("job-1", "hockey", "pending", 0, (*string)(nil), created).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.CreateJob(context.Background(), scrape.Job{
		ID:        "job-1",
		Type:      scrape.JobTypeHockey,
		Status:    scrape.JobStatusPending,
		CreatedAt: created,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_UpdateJobStatus_RunningGuard(t *testing.T) {
	t.Parallel()

	store, mock := newMockJobStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = $3, started_at = $4")).
		WithArgs("job-1", "pending", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.UpdateJobStatus(
		context.Background(),
		"job-1",
		scrape.JobStatusPending,
		scrape.JobStatusRunning,
		"",
		0,
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_UpdateJobStatus_GuardMissOnClaimedJob(t *testing.T) {
	t.Parallel()

	store, mock := newMockJobStore(t)

	// Zero rows affected: the guard did not match. The follow-up read finds
	// the row, so the failure is a transition conflict, not a missing job.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = $3, started_at = $4")).
		WithArgs("job-1", "pending", "running", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, status")).
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "type", "status", "items_collected", "error",
			"created_at", "started_at", "completed_at",
		}).AddRow(
			"job-1", "hockey", "running", 0, (*string)(nil),
			time.Now().UTC(), (*time.Time)(nil), (*time.Time)(nil),
		))

	err := store.UpdateJobStatus(
		context.Background(),
		"job-1",
		scrape.JobStatusPending,
		scrape.JobStatusRunning,
		"",
		0,
	)
	require.ErrorIs(t, err, scrape.ErrInvalidTransition)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_UpdateJobStatus_MissingJob(t *testing.T) {
	t.Parallel()

	store, mock := newMockJobStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = $3, items_collected = $4, completed_at = $5")).
		WithArgs("ghost", "running", "completed", 7, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, status")).
		WithArgs("ghost").
		WillReturnError(pgx.ErrNoRows)

	err := store.UpdateJobStatus(
		context.Background(),
		"ghost",
		scrape.JobStatusRunning,
		scrape.JobStatusCompleted,
		"",
		7,
	)
	require.ErrorIs(t, err, scrape.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_UpdateJobStatus_FailedRecordsError(t *testing.T) {
	t.Parallel()

	store, mock := newMockJobStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE jobs SET status = $3, error = $4, completed_at = $5")).
		WithArgs("job-1", "running", "failed", "render timeout", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.UpdateJobStatus(
		context.Background(),
		"job-1",
		scrape.JobStatusRunning,
		scrape.JobStatusFailed,
		"render timeout",
		0,
	)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_GetJob(t *testing.T) {
	t.Parallel()

	store, mock := newMockJobStore(t)
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	started := created.Add(time.Second)
	errText := "no team rows parsed"

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, status")).
		WithArgs("job-1").
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "type", "status", "items_collected", "error",
			"created_at", "started_at", "completed_at",
		}).AddRow(
			"job-1", "hockey", "failed", 0, &errText,
			created, &started, &started,
		))

	job, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, scrape.JobStatusFailed, job.Status)
	require.Equal(t, "no team rows parsed", job.Error)
	require.NotNil(t, job.StartedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_GetJob_NotFound(t *testing.T) {
	t.Parallel()

	store, mock := newMockJobStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, type, status")).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.GetJob(context.Background(), "missing")
	require.ErrorIs(t, err, scrape.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestJobStore_ListJobs(t *testing.T) {
	t.Parallel()

	store, mock := newMockJobStore(t)
	created := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta("FROM jobs ORDER BY created_at DESC")).
		WillReturnRows(pgxmock.NewRows([]string{
			"id", "type", "status", "items_collected", "error",
			"created_at", "started_at", "completed_at",
		}).AddRow(
			"job-2", "oscar", "pending", 0, (*string)(nil),
			created.Add(time.Minute), (*time.Time)(nil), (*time.Time)(nil),
		).AddRow(
			"job-1", "hockey", "completed", 582, (*string)(nil),
			created, (*time.Time)(nil), (*time.Time)(nil),
		))

	jobs, err := store.ListJobs(context.Background())
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	require.Equal(t, "job-2", jobs[0].ID)
	require.Equal(t, 582, jobs[1].ItemsCollected)
	require.NoError(t, mock.ExpectationsWereMet())
}
