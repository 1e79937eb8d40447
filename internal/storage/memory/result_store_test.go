package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/statlake/harvester/internal/scrape"
)

func TestResultStore_AppendAndFilterByJob(t *testing.T) {
	t.Parallel()

	store := NewResultStore()
	ctx := context.Background()

	require.NoError(t, store.AddHockeyTeams(ctx, "job-1", []scrape.HockeyTeam{
		{TeamName: "Calgary Flames", Year: 1991},
		{TeamName: "Boston Bruins", Year: 1990},
	}))
	require.NoError(t, store.AddHockeyTeams(ctx, "job-2", []scrape.HockeyTeam{
		{TeamName: "Boston Bruins", Year: 1990},
	}))

	byJob, err := store.HockeyTeamsByJob(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, byJob, 2)
	require.Equal(t, "Boston Bruins", byJob[0].TeamName, "sorted by year then name")
	require.Equal(t, "job-1", byJob[0].JobID)
	require.NotZero(t, byJob[0].ID)
	require.False(t, byJob[0].CreatedAt.IsZero())

	all, err := store.ListHockeyTeams(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
}

func TestResultStore_ReRunKeepsOldRows(t *testing.T) {
	t.Parallel()

	store := NewResultStore()
	ctx := context.Background()

	require.NoError(t, store.AddOscarFilms(ctx, "job-1", []scrape.OscarFilm{
		{Title: "The Artist", Year: 2011},
	}))
	require.NoError(t, store.AddOscarFilms(ctx, "job-2", []scrape.OscarFilm{
		{Title: "The Artist", Year: 2011},
	}))

	// A fresh run appends under the new job id; the earlier job's rows are
	// untouched.
	first, err := store.OscarFilmsByJob(ctx, "job-1")
	require.NoError(t, err)
	require.Len(t, first, 1)

	all, err := store.ListOscarFilms(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.NotEqual(t, all[0].ID, all[1].ID)
}
