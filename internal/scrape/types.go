// Package scrape defines core types shared across subsystems.
package scrape

import "time"

// JobType identifies which collection strategy a job runs.
type JobType string

// Job types accepted by the scheduler. The set is closed; adding a source
// means adding a constant here and registering its crawler.
const (
	JobTypeHockey JobType = "hockey"
	JobTypeOscar  JobType = "oscar"
	JobTypeAll    JobType = "all"
)

// Valid reports whether t is one of the known job types.
func (t JobType) Valid() bool {
	switch t {
	case JobTypeHockey, JobTypeOscar, JobTypeAll:
		return true
	default:
		return false
	}
}

// JobStatus represents the lifecycle state of a scrape job.
type JobStatus string

// Job status values persisted in the job store. Transitions are monotonic
// along pending -> running -> {completed, failed}.
const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether s is a final state.
func (s JobStatus) Terminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// Job represents the metadata persisted for each scheduled scrape.
type Job struct {
	ID             string     `json:"id"`
	Type           JobType    `json:"type"`
	Status         JobStatus  `json:"status"`
	ItemsCollected int        `json:"items_collected"`
	Error          string     `json:"error,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// Message is the wire contract between the API process and the worker
// process. It is a pointer into the job store, never a payload carrier.
type Message struct {
	JobID   string  `json:"job_id"`
	JobType JobType `json:"job_type"`
}

// HockeyTeam is one season record scraped from the hockey standings table.
type HockeyTeam struct {
	ID           int64     `json:"id"`
	JobID        string    `json:"job_id"`
	TeamName     string    `json:"team_name"`
	Year         int       `json:"year"`
	Wins         int       `json:"wins"`
	Losses       int       `json:"losses"`
	OTLosses     *int      `json:"ot_losses,omitempty"`
	WinPct       float64   `json:"win_pct"`
	GoalsFor     int       `json:"goals_for"`
	GoalsAgainst int       `json:"goals_against"`
	GoalDiff     int       `json:"goal_diff"`
	CreatedAt    time.Time `json:"created_at"`
}

// OscarFilm is one award-year record scraped from the rendered films table.
type OscarFilm struct {
	ID          int64     `json:"id"`
	JobID       string    `json:"job_id"`
	Year        int       `json:"year"`
	Title       string    `json:"title"`
	Nominations int       `json:"nominations"`
	Awards      int       `json:"awards"`
	BestPicture bool      `json:"best_picture"`
	CreatedAt   time.Time `json:"created_at"`
}

// JobResults joins a job's identity to the rows it collected.
type JobResults struct {
	Job    Job          `json:"job"`
	Hockey []HockeyTeam `json:"hockey,omitempty"`
	Oscar  []OscarFilm  `json:"oscar,omitempty"`
}

// Count returns the total number of result rows across collections.
func (r JobResults) Count() int {
	return len(r.Hockey) + len(r.Oscar)
}
