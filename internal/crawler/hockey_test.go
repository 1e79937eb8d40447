package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func hockeyPage(rows string, totalPages int) string {
	pagination := ""
	for i := 1; i <= totalPages; i++ {
		pagination += fmt.Sprintf(`<li><a class="page-link" href="?page_num=%d">%d</a></li>`, i, i)
	}
	return fmt.Sprintf(`<html><body>
<table>
<tr><th>Team</th></tr>
%s
</table>
<ul class="pagination">%s<li><a class="page-link" href="#">&raquo;</a></li></ul>
</body></html>`, rows, pagination)
}

const bruinsRow = `<tr class="team">
<td class="name">Boston Bruins</td>
<td class="year">1990</td>
<td class="wins">44</td>
<td class="losses">24</td>
<td class="ot-losses"></td>
<td class="pct">0.55</td>
<td class="gf">299</td>
<td class="ga">264</td>
<td class="diff">35</td>
</tr>`

const sabresRow = `<tr class="team">
<td class="name">Buffalo Sabres</td>
<td class="year">1990</td>
<td class="wins">31</td>
<td class="losses">30</td>
<td class="ot-losses">10</td>
<td class="pct">0.388</td>
<td class="gf">292</td>
<td class="ga">278</td>
<td class="diff">14</td>
</tr>`

func newHockeyServer(t *testing.T, pages map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		page := r.URL.Query().Get("page_num")
		if page == "" {
			page = "1"
		}
		body, ok := pages[page]
		if !ok {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestHockey_RunWalksAllPages(t *testing.T) {
	t.Parallel()

	server := newHockeyServer(t, map[string]string{
		"1": hockeyPage(bruinsRow, 2),
		"2": hockeyPage(sabresRow, 2),
	})

	h := NewHockey(Config{HockeyURL: server.URL}, zap.NewNop())
	batch, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Hockey, 2)
	require.Empty(t, batch.Oscar)

	bruins := batch.Hockey[0]
	require.Equal(t, "Boston Bruins", bruins.TeamName)
	require.Equal(t, 1990, bruins.Year)
	require.Equal(t, 44, bruins.Wins)
	require.Nil(t, bruins.OTLosses, "blank OT cell stays unset")
	require.InDelta(t, 0.55, bruins.WinPct, 1e-9)

	sabres := batch.Hockey[1]
	require.NotNil(t, sabres.OTLosses)
	require.Equal(t, 10, *sabres.OTLosses)
	require.Equal(t, 14, sabres.GoalDiff)
}

func TestHockey_RunSkipsMalformedRows(t *testing.T) {
	t.Parallel()

	badRow := `<tr class="team"><td>Phantom Team</td><td>not-a-year</td>
<td>1</td><td>2</td><td></td><td>0.1</td><td>3</td><td>4</td><td>-1</td></tr>`
	server := newHockeyServer(t, map[string]string{
		"1": hockeyPage(bruinsRow+badRow, 1),
	})

	h := NewHockey(Config{HockeyURL: server.URL}, zap.NewNop())
	batch, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Hockey, 1)
	require.Equal(t, "Boston Bruins", batch.Hockey[0].TeamName)
}

func TestHockey_RunStopsOnEmptyPage(t *testing.T) {
	t.Parallel()

	// The pagination widget claims three pages but page 2 has no rows.
	server := newHockeyServer(t, map[string]string{
		"1": hockeyPage(bruinsRow, 3),
		"2": hockeyPage("", 3),
		"3": hockeyPage(sabresRow, 3),
	})

	h := NewHockey(Config{HockeyURL: server.URL}, zap.NewNop())
	batch, err := h.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, batch.Hockey, 1)
}

func TestHockey_RunFailsWhenNothingParsed(t *testing.T) {
	t.Parallel()

	server := newHockeyServer(t, map[string]string{
		"1": hockeyPage("", 1),
	})

	h := NewHockey(Config{HockeyURL: server.URL}, zap.NewNop())
	_, err := h.Run(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "no team rows parsed")
}

func TestHockey_RunFailsOnServerError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	h := NewHockey(Config{HockeyURL: server.URL}, zap.NewNop())
	_, err := h.Run(context.Background())
	require.Error(t, err)
}

func TestHockey_RunHonorsCancellation(t *testing.T) {
	t.Parallel()

	server := newHockeyServer(t, map[string]string{
		"1": hockeyPage(bruinsRow, 1),
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h := NewHockey(Config{HockeyURL: server.URL, HTTPTimeout: time.Second}, zap.NewNop())
	_, err := h.Run(ctx)
	require.Error(t, err)
}

func TestParseTeamRow(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		cells   []string
		wantErr bool
	}{
		{
			name:  "valid",
			cells: []string{"Boston Bruins", "1990", "44", "24", "", "0.55", "299", "264", "35"},
		},
		{
			name:    "too few cells",
			cells:   []string{"Boston Bruins", "1990"},
			wantErr: true,
		},
		{
			name:    "empty name",
			cells:   []string{"", "1990", "44", "24", "", "0.55", "299", "264", "35"},
			wantErr: true,
		},
		{
			name:    "bad wins",
			cells:   []string{"Boston Bruins", "1990", "forty-four", "24", "", "0.55", "299", "264", "35"},
			wantErr: true,
		},
		{
			name:    "bad ot losses",
			cells:   []string{"Boston Bruins", "1990", "44", "24", "n/a", "0.55", "299", "264", "35"},
			wantErr: true,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			team, err := parseTeamRow(tc.cells)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, "Boston Bruins", team.TeamName)
			require.Equal(t, 35, team.GoalDiff)
		})
	}
}
