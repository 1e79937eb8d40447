package crawler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/statlake/harvester/internal/scrape"
)

const oscarSource = "oscar"

// Oscar scrapes the script-rendered best-picture page. The year buttons are
// only present after the initial JavaScript runs, and each click loads the
// film table for that year over AJAX, so the whole run happens inside a
// headless browser tab. Parsing of the rendered HTML is delegated to plain
// goquery functions so it stays testable without a browser.
type Oscar struct {
	cfg    Config
	logger *zap.Logger

	limiter   chan struct{}
	pace      *rate.Limiter
	allocator context.Context
	cancel    context.CancelFunc
}

// NewOscar builds the dynamic-page crawler. The exec allocator is created
// eagerly; the browser process itself starts on the first run.
func NewOscar(cfg Config, logger *zap.Logger) *Oscar {
	cfg = cfg.withDefaults()

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.Flag("enable-automation", false),
	)
	allocCtx, cancel := chromedp.NewExecAllocator(context.Background(), opts...)

	return &Oscar{
		cfg:       cfg,
		logger:    logger.Named("crawler.oscar"),
		limiter:   make(chan struct{}, cfg.RenderMaxParallel),
		pace:      rate.NewLimiter(rate.Limit(cfg.RenderQPS), 1),
		allocator: allocCtx,
		cancel:    cancel,
	}
}

// Close cancels the allocator context, terminating any browser it spawned.
func (o *Oscar) Close() {
	o.cancel()
}

func (o *Oscar) Source() string { return oscarSource }

// Run renders the page, expands every year section and returns the parsed
// film records. The whole run, all year clicks included, is bounded by the
// configured render timeout.
func (o *Oscar) Run(ctx context.Context) (Batch, error) {
	if err := o.acquire(ctx); err != nil {
		return Batch{}, scrape.NewCrawlError(oscarSource, err)
	}
	defer o.release()

	tabCtx, cancelTab := chromedp.NewContext(o.allocator)
	defer cancelTab()

	tabCtx, cancelTimeout := context.WithTimeout(tabCtx, o.cfg.RenderTimeout)
	defer cancelTimeout()

	// Propagate caller cancellation into the tab context.
	stop := context.AfterFunc(ctx, cancelTimeout)
	defer stop()

	films, err := o.collect(tabCtx)
	if err != nil {
		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %v", ctx.Err(), err)
		}
		return Batch{}, scrape.NewCrawlError(oscarSource, err)
	}
	return Batch{Oscar: films}, nil
}

func (o *Oscar) collect(tabCtx context.Context) ([]scrape.OscarFilm, error) {
	var pageHTML string
	err := chromedp.Run(tabCtx,
		o.networkSetup(),
		chromedp.Navigate(o.cfg.OscarURL),
		chromedp.WaitVisible("a.year-link", chromedp.ByQuery),
		chromedp.OuterHTML("html", &pageHTML, chromedp.ByQuery),
	)
	if err != nil {
		return nil, fmt.Errorf("render landing page: %w", err)
	}

	years, err := parseYearLinks(pageHTML)
	if err != nil {
		return nil, err
	}
	o.logger.Debug("year links discovered", zap.Int("years", len(years)))

	var films []scrape.OscarFilm
	for _, year := range years {
		if err := o.pace.Wait(tabCtx); err != nil {
			return nil, fmt.Errorf("pacing wait: %w", err)
		}

		tableHTML, err := o.expandYear(tabCtx, year)
		if err != nil {
			return nil, fmt.Errorf("year %d: %w", year, err)
		}
		parsed, err := parseFilmTable(tableHTML, year)
		if err != nil {
			return nil, fmt.Errorf("year %d: %w", year, err)
		}
		if len(parsed) == 0 {
			o.logger.Warn("year rendered no film rows", zap.Int("year", year))
			continue
		}
		films = append(films, parsed...)
	}

	if len(films) == 0 {
		return nil, errors.New("no film rows parsed")
	}
	return films, nil
}

// expandYear clicks one year button and waits for the AJAX-loaded table. The
// table body is emptied while the request is in flight, so waiting for a
// title cell to become visible again is the load signal.
func (o *Oscar) expandYear(tabCtx context.Context, year int) (string, error) {
	sel := fmt.Sprintf("a.year-link[id=%q]", strconv.Itoa(year))

	var tableHTML string
	err := chromedp.Run(tabCtx,
		chromedp.Click(sel, chromedp.ByQuery),
		chromedp.WaitVisible("#table-body tr.film td.film-title", chromedp.ByQuery),
		chromedp.OuterHTML("#table-body", &tableHTML, chromedp.ByQuery),
	)
	if err != nil {
		return "", fmt.Errorf("expand: %w", err)
	}
	return tableHTML, nil
}

func (o *Oscar) networkSetup() chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		if err := network.Enable().Do(ctx); err != nil {
			return fmt.Errorf("enable network domain: %w", err)
		}
		if err := emulation.SetUserAgentOverride(o.cfg.UserAgent).Do(ctx); err != nil {
			return fmt.Errorf("set user-agent: %w", err)
		}
		return nil
	})
}

func (o *Oscar) acquire(ctx context.Context) error {
	select {
	case o.limiter <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("render slot wait canceled: %w", ctx.Err())
	}
}

func (o *Oscar) release() {
	select {
	case <-o.limiter:
	default:
	}
}

// parseYearLinks extracts the year button values from the rendered landing
// page, sorted ascending and de-duplicated.
func parseYearLinks(html string) ([]int, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse landing page: %w", err)
	}

	seen := make(map[int]struct{})
	var years []int
	doc.Find("a.year-link").Each(func(_ int, s *goquery.Selection) {
		id, ok := s.Attr("id")
		if !ok {
			return
		}
		year, err := strconv.Atoi(strings.TrimSpace(id))
		if err != nil {
			return
		}
		if _, dup := seen[year]; dup {
			return
		}
		seen[year] = struct{}{}
		years = append(years, year)
	})

	if len(years) == 0 {
		return nil, errors.New("no year links found")
	}
	sort.Ints(years)
	return years, nil
}

// parseFilmTable converts one year's rendered table body into film records.
// Rows with unparsable numeric cells are dropped rather than failing the
// whole year.
func parseFilmTable(html string, year int) ([]scrape.OscarFilm, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse film table: %w", err)
	}

	var films []scrape.OscarFilm
	doc.Find("tr.film").Each(func(_ int, s *goquery.Selection) {
		title := strings.TrimSpace(s.Find("td.film-title").Text())
		if title == "" {
			return
		}
		nominations, err := strconv.Atoi(strings.TrimSpace(s.Find("td.film-nominations").Text()))
		if err != nil {
			return
		}
		awards, err := strconv.Atoi(strings.TrimSpace(s.Find("td.film-awards").Text()))
		if err != nil {
			return
		}
		bestPicture := s.Find("td.film-best-picture i").Length() > 0

		films = append(films, scrape.OscarFilm{
			Year:        year,
			Title:       title,
			Nominations: nominations,
			Awards:      awards,
			BestPicture: bestPicture,
		})
	})
	return films, nil
}
