package scrape

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates a job id that does not exist in the store.
var ErrNotFound = errors.New("job not found")

// ErrInvalidTransition indicates a status update whose precondition did not
// hold, e.g. marking a terminal job running. Under at-least-once delivery
// this is an expected outcome of redelivery, not a fault.
var ErrInvalidTransition = errors.New("invalid job status transition")

// ErrUnknownJobType indicates a job type with no registered crawler.
var ErrUnknownJobType = errors.New("unknown job type")

// CrawlError wraps a failure inside a crawler: network errors, render
// timeouts, or a page whose shape no longer parses.
type CrawlError struct {
	Source string
	Err    error
}

func (e *CrawlError) Error() string {
	return fmt.Sprintf("crawl %s: %v", e.Source, e.Err)
}

func (e *CrawlError) Unwrap() error {
	return e.Err
}

// NewCrawlError builds a CrawlError for the named source.
func NewCrawlError(source string, err error) *CrawlError {
	return &CrawlError{Source: source, Err: err}
}
