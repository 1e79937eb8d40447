package scrape

import (
	"context"
	"time"
)

// JobStore persists job records. UpdateJobStatus must apply the update only
// when the job's current status equals from, returning ErrInvalidTransition
// otherwise; this conditional form is what makes duplicate delivery safe.
type JobStore interface {
	CreateJob(ctx context.Context, job Job) error
	UpdateJobStatus(ctx context.Context, jobID string, from, to JobStatus, errText string, items int) error
	GetJob(ctx context.Context, jobID string) (Job, error)
	ListJobs(ctx context.Context) ([]Job, error)
}

// ResultStore persists and reads scraped rows. Writes are append-only;
// rows are scoped by job id and never mutated.
type ResultStore interface {
	AddHockeyTeams(ctx context.Context, jobID string, teams []HockeyTeam) error
	AddOscarFilms(ctx context.Context, jobID string, films []OscarFilm) error
	HockeyTeamsByJob(ctx context.Context, jobID string) ([]HockeyTeam, error)
	OscarFilmsByJob(ctx context.Context, jobID string) ([]OscarFilm, error)
	ListHockeyTeams(ctx context.Context) ([]HockeyTeam, error)
	ListOscarFilms(ctx context.Context) ([]OscarFilm, error)
}

// Publisher pushes a job message onto the work queue. A Publish that returns
// nil means the broker durably accepted the message.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces job IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
