package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/statlake/harvester/internal/scrape"
)

// ResultStore keeps scraped rows in per-collection slices, append-only.
type ResultStore struct {
	mu     sync.RWMutex
	nextID int64
	hockey []scrape.HockeyTeam
	oscar  []scrape.OscarFilm
}

// NewResultStore constructs a ResultStore.
func NewResultStore() *ResultStore {
	return &ResultStore{}
}

// AddHockeyTeams appends hockey rows for a job.
func (s *ResultStore) AddHockeyTeams(_ context.Context, jobID string, teams []scrape.HockeyTeam) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, t := range teams {
		s.nextID++
		t.ID = s.nextID
		t.JobID = jobID
		t.CreatedAt = now
		s.hockey = append(s.hockey, t)
	}
	return nil
}

// AddOscarFilms appends oscar rows for a job.
func (s *ResultStore) AddOscarFilms(_ context.Context, jobID string, films []scrape.OscarFilm) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	for _, f := range films {
		s.nextID++
		f.ID = s.nextID
		f.JobID = jobID
		f.CreatedAt = now
		s.oscar = append(s.oscar, f)
	}
	return nil
}

// HockeyTeamsByJob returns the hockey rows a job produced.
func (s *ResultStore) HockeyTeamsByJob(_ context.Context, jobID string) ([]scrape.HockeyTeam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []scrape.HockeyTeam
	for _, t := range s.hockey {
		if t.JobID == jobID {
			out = append(out, t)
		}
	}
	sortHockey(out)
	return out, nil
}

// OscarFilmsByJob returns the oscar rows a job produced.
func (s *ResultStore) OscarFilmsByJob(_ context.Context, jobID string) ([]scrape.OscarFilm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []scrape.OscarFilm
	for _, f := range s.oscar {
		if f.JobID == jobID {
			out = append(out, f)
		}
	}
	sortOscar(out)
	return out, nil
}

// ListHockeyTeams returns every hockey row across jobs.
func (s *ResultStore) ListHockeyTeams(_ context.Context) ([]scrape.HockeyTeam, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scrape.HockeyTeam, len(s.hockey))
	copy(out, s.hockey)
	sortHockey(out)
	return out, nil
}

// ListOscarFilms returns every oscar row across jobs.
func (s *ResultStore) ListOscarFilms(_ context.Context) ([]scrape.OscarFilm, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]scrape.OscarFilm, len(s.oscar))
	copy(out, s.oscar)
	sortOscar(out)
	return out, nil
}

func sortHockey(teams []scrape.HockeyTeam) {
	sort.Slice(teams, func(i, j int) bool {
		if teams[i].Year != teams[j].Year {
			return teams[i].Year < teams[j].Year
		}
		return teams[i].TeamName < teams[j].TeamName
	})
}

func sortOscar(films []scrape.OscarFilm) {
	sort.Slice(films, func(i, j int) bool {
		if films[i].Year != films[j].Year {
			return films[i].Year < films[j].Year
		}
		return films[i].Title < films[j].Title
	})
}
