// Package postgres provides Postgres-backed persistence implementations.
//
// It assumes the following schema:
//
//	CREATE TABLE jobs (
//	    id              UUID PRIMARY KEY,
//	    type            TEXT NOT NULL,
//	    status          TEXT NOT NULL,
//	    items_collected INT NOT NULL DEFAULT 0,
//	    error           TEXT,
//	    created_at      TIMESTAMPTZ NOT NULL,
//	    started_at      TIMESTAMPTZ,
//	    completed_at    TIMESTAMPTZ
//	);
//
//	CREATE TABLE hockey_teams (
//	    id            BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//	    job_id        UUID NOT NULL REFERENCES jobs(id),
//	    team_name     TEXT NOT NULL,
//	    year          INT NOT NULL,
//	    wins          INT NOT NULL,
//	    losses        INT NOT NULL,
//	    ot_losses     INT,
//	    win_pct       DOUBLE PRECISION NOT NULL,
//	    goals_for     INT NOT NULL,
//	    goals_against INT NOT NULL,
//	    goal_diff     INT NOT NULL,
//	    created_at    TIMESTAMPTZ NOT NULL
//	);
//
//	CREATE TABLE oscar_films (
//	    id           BIGINT GENERATED ALWAYS AS IDENTITY PRIMARY KEY,
//	    job_id       UUID NOT NULL REFERENCES jobs(id),
//	    year         INT NOT NULL,
//	    title        TEXT NOT NULL,
//	    nominations  INT NOT NULL,
//	    awards       INT NOT NULL,
//	    best_picture BOOLEAN NOT NULL,
//	    created_at   TIMESTAMPTZ NOT NULL
//	);
package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/statlake/harvester/internal/scrape"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type dbPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// NewPool builds a pgx pool from Config.
func NewPool(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("db.dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return pool, nil
}

// JobStore persists job records in the jobs table.
type JobStore struct {
	pool dbPool
}

// NewJobStore constructs a JobStore on an existing pool.
func NewJobStore(pool dbPool) (*JobStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &JobStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *JobStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// CreateJob inserts a new job row.
func (s *JobStore) CreateJob(ctx context.Context, job scrape.Job) error {
	query := `
INSERT INTO jobs (id, type, status, items_collected, error, created_at)
VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query,
		job.ID,
		string(job.Type),
		string(job.Status),
		job.ItemsCollected,
		nullIfEmpty(job.Error),
		job.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// UpdateJobStatus applies a status transition as a single conditional
// UPDATE: the row changes only when its current status equals from. A guard
// miss surfaces as ErrInvalidTransition (or ErrNotFound if the id is gone),
// which is what makes concurrent duplicate processing a safe no-op.
func (s *JobStore) UpdateJobStatus(
	ctx context.Context,
	jobID string,
	from, to scrape.JobStatus,
	errText string,
	items int,
) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	now := time.Now().UTC()
	switch to {
	case scrape.JobStatusRunning:
		tag, err = s.pool.Exec(ctx, `
UPDATE jobs SET status = $3, started_at = $4
WHERE id = $1 AND status = $2`,
			jobID, string(from), string(to), now)
	case scrape.JobStatusCompleted:
		tag, err = s.pool.Exec(ctx, `
UPDATE jobs SET status = $3, items_collected = $4, completed_at = $5
WHERE id = $1 AND status = $2`,
			jobID, string(from), string(to), items, now)
	case scrape.JobStatusFailed:
		tag, err = s.pool.Exec(ctx, `
UPDATE jobs SET status = $3, error = $4, completed_at = $5
WHERE id = $1 AND status = $2`,
			jobID, string(from), string(to), errText, now)
	default:
		return fmt.Errorf("unsupported target status %q", to)
	}
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, getErr := s.GetJob(ctx, jobID); errors.Is(getErr, scrape.ErrNotFound) {
			return scrape.ErrNotFound
		}
		return fmt.Errorf("%w: job %s is not %s", scrape.ErrInvalidTransition, jobID, from)
	}
	return nil
}

// GetJob fetches a job by id.
func (s *JobStore) GetJob(ctx context.Context, jobID string) (scrape.Job, error) {
	query := `
SELECT id, type, status, items_collected, error, created_at, started_at, completed_at
FROM jobs WHERE id = $1`
	job, err := scanJob(s.pool.QueryRow(ctx, query, jobID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return scrape.Job{}, scrape.ErrNotFound
		}
		return scrape.Job{}, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns all jobs, newest first.
func (s *JobStore) ListJobs(ctx context.Context) ([]scrape.Job, error) {
	query := `
SELECT id, type, status, items_collected, error, created_at, started_at, completed_at
FROM jobs ORDER BY created_at DESC`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []scrape.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job row: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate job rows: %w", err)
	}
	return jobs, nil
}

func scanJob(row pgx.Row) (scrape.Job, error) {
	var (
		job     scrape.Job
		jobType string
		status  string
		errText *string
	)
	err := row.Scan(
		&job.ID,
		&jobType,
		&status,
		&job.ItemsCollected,
		&errText,
		&job.CreatedAt,
		&job.StartedAt,
		&job.CompletedAt,
	)
	if err != nil {
		return scrape.Job{}, err
	}
	job.Type = scrape.JobType(jobType)
	job.Status = scrape.JobStatus(status)
	if errText != nil {
		job.Error = *errText
	}
	return job, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
