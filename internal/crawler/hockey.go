package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/statlake/harvester/internal/scrape"
)

const hockeySource = "hockey"

// hockeyColumns is the fixed cell layout of one standings row.
const hockeyColumns = 9

// Hockey scrapes the server-rendered, paginated hockey standings table. The
// page count is discovered from the pagination widget on the first page and
// every page is fetched with a plain HTTP GET.
type Hockey struct {
	cfg    Config
	logger *zap.Logger

	baseCollector *colly.Collector
}

// NewHockey builds the static-page crawler.
func NewHockey(cfg Config, logger *zap.Logger) *Hockey {
	cfg = cfg.withDefaults()
	c := colly.NewCollector(
		colly.Async(false),
		colly.UserAgent(cfg.UserAgent),
	)
	c.SetRequestTimeout(cfg.HTTPTimeout)

	return &Hockey{
		cfg:           cfg,
		logger:        logger.Named("crawler.hockey"),
		baseCollector: c,
	}
}

func (h *Hockey) Source() string { return hockeySource }

// Run walks every standings page and returns the parsed team rows. Any page
// failure aborts the run; a partially collected batch is never returned.
func (h *Hockey) Run(ctx context.Context) (Batch, error) {
	if err := ctx.Err(); err != nil {
		return Batch{}, scrape.NewCrawlError(hockeySource, err)
	}
	teams, totalPages, err := h.fetchPage(ctx, 1)
	if err != nil {
		return Batch{}, scrape.NewCrawlError(hockeySource, err)
	}
	h.logger.Debug("first page fetched",
		zap.Int("rows", len(teams)),
		zap.Int("total_pages", totalPages),
	)

	all := teams
	for page := 2; page <= totalPages; page++ {
		if err := ctx.Err(); err != nil {
			return Batch{}, scrape.NewCrawlError(hockeySource, err)
		}
		rows, _, err := h.fetchPage(ctx, page)
		if err != nil {
			return Batch{}, scrape.NewCrawlError(hockeySource, fmt.Errorf("page %d: %w", page, err))
		}
		if len(rows) == 0 {
			// The pagination widget overstated the page count; an
			// empty page means we walked off the end of the data.
			h.logger.Warn("empty standings page, stopping pagination", zap.Int("page", page))
			break
		}
		all = append(all, rows...)
	}

	if len(all) == 0 {
		return Batch{}, scrape.NewCrawlError(hockeySource, errors.New("no team rows parsed"))
	}
	return Batch{Hockey: all}, nil
}

func (h *Hockey) fetchPage(ctx context.Context, page int) ([]scrape.HockeyTeam, int, error) {
	pageURL, err := hockeyPageURL(h.cfg.HockeyURL, page)
	if err != nil {
		return nil, 0, err
	}

	collector := h.baseCollector.Clone()

	var (
		rows       []scrape.HockeyTeam
		totalPages = 1
		fetchErr   error
	)

	collector.OnHTML("tr.team", func(e *colly.HTMLElement) {
		team, err := parseTeamRow(e.ChildTexts("td"))
		if err != nil {
			h.logger.Warn("skipping malformed team row",
				zap.Int("page", page),
				zap.Error(err),
			)
			return
		}
		rows = append(rows, team)
	})

	collector.OnHTML("ul.pagination a.page-link", func(e *colly.HTMLElement) {
		n, err := strconv.Atoi(strings.TrimSpace(e.Text))
		if err != nil {
			return // "next" arrow and similar non-numeric links
		}
		if n > totalPages {
			totalPages = n
		}
	})

	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	if err := runCollector(ctx, collector, pageURL); err != nil {
		return nil, 0, err
	}
	if fetchErr != nil {
		return nil, 0, fmt.Errorf("fetch failed: %w", fetchErr)
	}
	return rows, totalPages, nil
}

// runCollector drives a blocking colly visit while honoring ctx cancellation.
func runCollector(ctx context.Context, collector *colly.Collector, url string) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("visit canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("visit failed: %w", err)
		}
		return nil
	}
}

func hockeyPageURL(base string, page int) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid hockey url %q: %w", base, err)
	}
	q := u.Query()
	q.Set("page_num", strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// parseTeamRow converts the <td> texts of one standings row. Cell order is
// name, year, wins, losses, OT losses, win%, goals for, goals against, diff.
func parseTeamRow(cells []string) (scrape.HockeyTeam, error) {
	if len(cells) < hockeyColumns {
		return scrape.HockeyTeam{}, fmt.Errorf("expected %d cells, got %d", hockeyColumns, len(cells))
	}
	for i := range cells {
		cells[i] = strings.TrimSpace(cells[i])
	}

	name := cells[0]
	if name == "" {
		return scrape.HockeyTeam{}, errors.New("empty team name")
	}

	year, err := strconv.Atoi(cells[1])
	if err != nil {
		return scrape.HockeyTeam{}, fmt.Errorf("year: %w", err)
	}
	wins, err := strconv.Atoi(cells[2])
	if err != nil {
		return scrape.HockeyTeam{}, fmt.Errorf("wins: %w", err)
	}
	losses, err := strconv.Atoi(cells[3])
	if err != nil {
		return scrape.HockeyTeam{}, fmt.Errorf("losses: %w", err)
	}

	// OT losses is blank for seasons before the rule existed.
	var otLosses *int
	if cells[4] != "" {
		n, err := strconv.Atoi(cells[4])
		if err != nil {
			return scrape.HockeyTeam{}, fmt.Errorf("ot losses: %w", err)
		}
		otLosses = &n
	}

	winPct, err := strconv.ParseFloat(cells[5], 64)
	if err != nil {
		return scrape.HockeyTeam{}, fmt.Errorf("win pct: %w", err)
	}
	goalsFor, err := strconv.Atoi(cells[6])
	if err != nil {
		return scrape.HockeyTeam{}, fmt.Errorf("goals for: %w", err)
	}
	goalsAgainst, err := strconv.Atoi(cells[7])
	if err != nil {
		return scrape.HockeyTeam{}, fmt.Errorf("goals against: %w", err)
	}
	goalDiff, err := strconv.Atoi(cells[8])
	if err != nil {
		return scrape.HockeyTeam{}, fmt.Errorf("goal diff: %w", err)
	}

	return scrape.HockeyTeam{
		TeamName:     name,
		Year:         year,
		Wins:         wins,
		Losses:       losses,
		OTLosses:     otLosses,
		WinPct:       winPct,
		GoalsFor:     goalsFor,
		GoalsAgainst: goalsAgainst,
		GoalDiff:     goalDiff,
	}, nil
}
