// Package crawler implements the data-collection strategies. A crawler is a
// pure transformation from a source into typed records: it performs no
// persistence and no job status mutation, keeping the worker loop the single
// place that touches shared state.
package crawler

import (
	"context"

	"github.com/statlake/harvester/internal/scrape"
)

// Batch is the typed record set one crawler run produced. Exactly one of the
// collections is populated per crawler; the worker merges batches when a job
// spans multiple sources.
type Batch struct {
	Hockey []scrape.HockeyTeam
	Oscar  []scrape.OscarFilm
}

// Len returns the total record count in the batch.
func (b Batch) Len() int {
	return len(b.Hockey) + len(b.Oscar)
}

// Merge appends other's records into b.
func (b *Batch) Merge(other Batch) {
	b.Hockey = append(b.Hockey, other.Hockey...)
	b.Oscar = append(b.Oscar, other.Oscar...)
}

// Crawler fetches one external data source and parses it into records.
// Failures are reported as *scrape.CrawlError values.
type Crawler interface {
	Source() string
	Run(ctx context.Context) (Batch, error)
}
