package scraper

import (
	"errors"
	"fmt"
)

// ErrEmptyContent indicates the page was reachable but no main content
// could be extracted. Callers treat it like any other fetch failure.
var ErrEmptyContent = errors.New("no content extracted")

// ErrSearchUnavailable indicates the configured fetcher has no web-search
// capability (the local fallback fetcher cannot search the web).
var ErrSearchUnavailable = errors.New("web search requires a scraping API key")

// StatusError reports a non-success HTTP response from the upstream source
// or the scraping API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("unexpected status %d: %s", e.StatusCode, e.Body)
}
