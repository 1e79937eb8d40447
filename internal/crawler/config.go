package crawler

import "time"

// Config holds the tunables shared by all crawl strategies.
type Config struct {
	// HockeyURL is the first page of the paginated hockey standings table.
	HockeyURL string
	// OscarURL is the script-rendered oscar winners page.
	OscarURL string

	UserAgent   string
	HTTPTimeout time.Duration

	// RenderTimeout bounds one full headless-browser run, navigation and
	// all year expansions included.
	RenderTimeout time.Duration
	// RenderMaxParallel caps concurrent browser tabs.
	RenderMaxParallel int
	// RenderQPS paces in-page interactions so the rendered site is not
	// hammered by rapid successive clicks.
	RenderQPS float64
}

func (c Config) withDefaults() Config {
	if c.UserAgent == "" {
		c.UserAgent = "harvester/1.0"
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 30 * time.Second
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = 2 * time.Minute
	}
	if c.RenderMaxParallel <= 0 {
		c.RenderMaxParallel = 2
	}
	if c.RenderQPS <= 0 {
		c.RenderQPS = 2
	}
	return c
}
