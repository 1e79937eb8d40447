package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/statlake/harvester/internal/scrape"
)

// ResultStore writes and reads scraped rows. Both tables are append-only:
// a re-run inserts fresh rows under the new job id instead of mutating old
// ones, so result reads need no cross-job locking.
type ResultStore struct {
	pool dbPool
}

// NewResultStore constructs a ResultStore on an existing pool.
func NewResultStore(pool dbPool) (*ResultStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &ResultStore{pool: pool}, nil
}

// Close releases the underlying pool resources.
func (s *ResultStore) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// AddHockeyTeams inserts one row per scraped team season.
func (s *ResultStore) AddHockeyTeams(ctx context.Context, jobID string, teams []scrape.HockeyTeam) error {
	query := `
INSERT INTO hockey_teams (
	job_id, team_name, year, wins, losses, ot_losses,
	win_pct, goals_for, goals_against, goal_diff, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	now := time.Now().UTC()
	for _, t := range teams {
		_, err := s.pool.Exec(ctx, query,
			jobID, t.TeamName, t.Year, t.Wins, t.Losses, t.OTLosses,
			t.WinPct, t.GoalsFor, t.GoalsAgainst, t.GoalDiff, now,
		)
		if err != nil {
			return fmt.Errorf("insert hockey team: %w", err)
		}
	}
	return nil
}

// AddOscarFilms inserts one row per scraped film.
func (s *ResultStore) AddOscarFilms(ctx context.Context, jobID string, films []scrape.OscarFilm) error {
	query := `
INSERT INTO oscar_films (
	job_id, year, title, nominations, awards, best_picture, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7)`
	now := time.Now().UTC()
	for _, f := range films {
		_, err := s.pool.Exec(ctx, query,
			jobID, f.Year, f.Title, f.Nominations, f.Awards, f.BestPicture, now,
		)
		if err != nil {
			return fmt.Errorf("insert oscar film: %w", err)
		}
	}
	return nil
}

// HockeyTeamsByJob returns the hockey rows a specific job produced.
func (s *ResultStore) HockeyTeamsByJob(ctx context.Context, jobID string) ([]scrape.HockeyTeam, error) {
	query := hockeySelect + ` WHERE job_id = $1 ORDER BY year, team_name`
	rows, err := s.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("query hockey teams: %w", err)
	}
	defer rows.Close()
	return collectHockey(rows)
}

// ListHockeyTeams returns every hockey row across jobs.
func (s *ResultStore) ListHockeyTeams(ctx context.Context) ([]scrape.HockeyTeam, error) {
	query := hockeySelect + ` ORDER BY year, team_name`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query hockey teams: %w", err)
	}
	defer rows.Close()
	return collectHockey(rows)
}

// OscarFilmsByJob returns the oscar rows a specific job produced.
func (s *ResultStore) OscarFilmsByJob(ctx context.Context, jobID string) ([]scrape.OscarFilm, error) {
	query := oscarSelect + ` WHERE job_id = $1 ORDER BY year, title`
	rows, err := s.pool.Query(ctx, query, jobID)
	if err != nil {
		return nil, fmt.Errorf("query oscar films: %w", err)
	}
	defer rows.Close()
	return collectOscar(rows)
}

// ListOscarFilms returns every oscar row across jobs.
func (s *ResultStore) ListOscarFilms(ctx context.Context) ([]scrape.OscarFilm, error) {
	query := oscarSelect + ` ORDER BY year, title`
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query oscar films: %w", err)
	}
	defer rows.Close()
	return collectOscar(rows)
}

const hockeySelect = `
SELECT id, job_id, team_name, year, wins, losses, ot_losses,
	win_pct, goals_for, goals_against, goal_diff, created_at
FROM hockey_teams`

const oscarSelect = `
SELECT id, job_id, year, title, nominations, awards, best_picture, created_at
FROM oscar_films`

func collectHockey(rows pgx.Rows) ([]scrape.HockeyTeam, error) {
	var teams []scrape.HockeyTeam
	for rows.Next() {
		var t scrape.HockeyTeam
		err := rows.Scan(
			&t.ID, &t.JobID, &t.TeamName, &t.Year, &t.Wins, &t.Losses, &t.OTLosses,
			&t.WinPct, &t.GoalsFor, &t.GoalsAgainst, &t.GoalDiff, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan hockey row: %w", err)
		}
		teams = append(teams, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate hockey rows: %w", err)
	}
	return teams, nil
}

func collectOscar(rows pgx.Rows) ([]scrape.OscarFilm, error) {
	var films []scrape.OscarFilm
	for rows.Next() {
		var f scrape.OscarFilm
		err := rows.Scan(
			&f.ID, &f.JobID, &f.Year, &f.Title, &f.Nominations, &f.Awards, &f.BestPicture, &f.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan oscar row: %w", err)
		}
		films = append(films, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate oscar rows: %w", err)
	}
	return films, nil
}
