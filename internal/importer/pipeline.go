// Package importer drives URLs through the fetch-and-populate lifecycle:
// a PENDING row per URL, then strictly sequential PROCESSING → COMPLETED
// or FAILED transitions, with one progress event emitted per URL.
//
// The pipeline is deliberately single-worker: the upstream content API is
// rate-sensitive, and the dashboard relies on progress arriving in input
// order with a monotonically increasing completed count.
package importer

import (
	"context"
	"fmt"
	"net/url"

	"linkstash/internal/entities"
	"linkstash/internal/scraper"
)

// ItemStore is the persistence surface the pipeline needs. Store write
// failures are fatal to a run; there is no recovery path for a persistence
// outage.
type ItemStore interface {
	CreateBatch(urls []string, userID uint) ([]entities.SavedItem, error)
	SetStatus(id, userID uint, status entities.ItemStatus) error
	SetContent(id, userID uint, fields entities.ContentFields) error
	MarkFailed(id, userID uint) error
}

// Fetcher retrieves and extracts structured content from a URL. Fetch is the
// pipeline's sole suspension point per item; its errors are recovered
// per-iteration and never abort the batch.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*scraper.Page, error)
}

// ProgressStatus is the per-URL outcome carried by a progress event.
type ProgressStatus string

const (
	ProgressSuccess ProgressStatus = "success"
	ProgressFailed  ProgressStatus = "failed"
)

// ProgressEvent is emitted exactly once per processed URL, in input order.
// Completed increases by one with each event and equals Total on the last.
type ProgressEvent struct {
	ItemID    uint           `json:"item_id"`
	URL       string         `json:"url"`
	Status    ProgressStatus `json:"status"`
	Completed int            `json:"completed"`
	Total     int            `json:"total"`
}

// Run is a handle to one in-flight import. Its event channel is a lazy,
// single-pass, forward-only sequence: consume it once, then check Err.
type Run struct {
	events chan ProgressEvent
	err    error
}

// Events returns the progress event stream. The channel is closed when the
// run finishes, is cancelled, or hits a fatal store error.
func (r *Run) Events() <-chan ProgressEvent {
	return r.events
}

// Err reports why the run stopped early. It must only be called after the
// Events channel has closed. A nil result means every URL was processed.
func (r *Run) Err() error {
	return r.err
}

// Pipeline imports batches of URLs for their owners.
type Pipeline struct {
	store   ItemStore
	fetcher Fetcher
}

// NewPipeline creates an import pipeline backed by the given store and fetcher.
func NewPipeline(store ItemStore, fetcher Fetcher) *Pipeline {
	return &Pipeline{store: store, fetcher: fetcher}
}

// Run validates the URLs, creates one PENDING row per URL, and starts the
// worker goroutine. Validation failures and the initial row creation error
// are returned synchronously, before any event is produced; cancelling ctx
// stops the worker after any in-flight fetch completes.
//
// The single-URL flow is this same call with a one-element list: both flows
// share one row lifecycle by construction.
func (p *Pipeline) Run(ctx context.Context, userID uint, urls []string) (*Run, error) {
	if len(urls) == 0 {
		return nil, ErrNoURLs
	}
	for _, u := range urls {
		if !validURL(u) {
			return nil, &InvalidURLError{URL: u}
		}
	}

	// All rows are created up front so that a cancelled run leaves the
	// un-started URLs as auditable PENDING rows rather than dropping them.
	items, err := p.store.CreateBatch(urls, userID)
	if err != nil {
		return nil, fmt.Errorf("create pending items: %w", err)
	}

	run := &Run{events: make(chan ProgressEvent)}
	go p.process(ctx, userID, items, run)
	return run, nil
}

func (p *Pipeline) process(ctx context.Context, userID uint, items []entities.SavedItem, run *Run) {
	// run.err is written only here, before the close; consumers observe it
	// through the channel-close ordering.
	defer close(run.events)

	total := len(items)
	completed := 0

	for _, item := range items {
		select {
		case <-ctx.Done():
			run.err = ctx.Err()
			return
		default:
		}

		if err := p.store.SetStatus(item.ID, userID, entities.ItemStatusProcessing); err != nil {
			run.err = fmt.Errorf("mark item %d processing: %w", item.ID, err)
			return
		}

		page, fetchErr := p.fetcher.Fetch(ctx, item.URL)
		if ctx.Err() != nil {
			// The in-flight fetch was cut short by cancellation. The row
			// stays PROCESSING rather than being reported as FAILED.
			run.err = ctx.Err()
			return
		}

		var status ProgressStatus
		if fetchErr != nil {
			if err := p.store.MarkFailed(item.ID, userID); err != nil {
				run.err = fmt.Errorf("mark item %d failed: %w", item.ID, err)
				return
			}
			status = ProgressFailed
		} else {
			if err := p.store.SetContent(item.ID, userID, PageContent(page)); err != nil {
				run.err = fmt.Errorf("store content for item %d: %w", item.ID, err)
				return
			}
			status = ProgressSuccess
		}

		completed++
		event := ProgressEvent{
			ItemID:    item.ID,
			URL:       item.URL,
			Status:    status,
			Completed: completed,
			Total:     total,
		}

		select {
		case run.events <- event:
		case <-ctx.Done():
			run.err = ctx.Err()
			return
		}
	}
}

// PageContent maps an extracted page onto the nullable item columns.
// Empty strings become NULL so a COMPLETED row only carries fields the
// extraction actually produced.
func PageContent(page *scraper.Page) entities.ContentFields {
	fields := entities.ContentFields{
		PublishedAt: page.PublishedAt,
	}
	if page.Title != "" {
		fields.Title = &page.Title
	}
	if page.Markdown != "" {
		fields.Content = &page.Markdown
	}
	if page.OGImage != "" {
		fields.OGImage = &page.OGImage
	}
	if page.Author != "" {
		fields.Author = &page.Author
	}
	return fields
}

func validURL(raw string) bool {
	parsed, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (parsed.Scheme == "http" || parsed.Scheme == "https") && parsed.Host != ""
}
