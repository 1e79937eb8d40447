package crawler

import (
	"fmt"

	"github.com/statlake/harvester/internal/scrape"
)

// Registry maps job types onto the crawlers that serve them. The mapping is
// fixed at construction; an unknown type is a permanent error, not a retry
// candidate.
type Registry struct {
	byType map[scrape.JobType][]Crawler
}

// NewRegistry wires the two strategies. A combined job runs both in order.
func NewRegistry(hockey, oscar Crawler) *Registry {
	return &Registry{
		byType: map[scrape.JobType][]Crawler{
			scrape.JobTypeHockey: {hockey},
			scrape.JobTypeOscar:  {oscar},
			scrape.JobTypeAll:    {hockey, oscar},
		},
	}
}

// For returns the crawlers serving the given job type.
func (r *Registry) For(jobType scrape.JobType) ([]Crawler, error) {
	crawlers, ok := r.byType[jobType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", scrape.ErrUnknownJobType, jobType)
	}
	return crawlers, nil
}
