package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"linkstash/internal/entities"
	"linkstash/internal/importer"
	"linkstash/internal/scraper"
)

// ImportStore is the persistence surface the import controller needs beyond
// what the pipeline itself writes.
type ImportStore interface {
	GetForUser(id, userID uint) (*entities.SavedItem, error)
	Create(url string, userID uint) (*entities.SavedItem, error)
}

// LinkSource provides URL discovery and web search for import candidates.
type LinkSource interface {
	Discover(ctx context.Context, seedURL, filterQuery string, limit int) ([]scraper.Link, error)
	Search(ctx context.Context, query string, limit int) ([]scraper.Link, error)
}

// RescrapeEnqueuer schedules a background fetch for one item.
type RescrapeEnqueuer interface {
	EnqueueScrapeItem(ctx context.Context, itemID, userID uint) error
}

// ItemIndexer receives completed items for full-text indexing.
type ItemIndexer interface {
	IndexItem(item *entities.SavedItem) error
}

// ImportController drives URL imports through the pipeline.
type ImportController struct {
	pipeline      *importer.Pipeline
	store         ImportStore
	source        LinkSource
	enqueuer      RescrapeEnqueuer
	indexer       ItemIndexer
	discoverLimit int
	searchLimit   int
}

// NewImportController creates a new ImportController. enqueuer and indexer
// may be nil when the task queue or search index are not configured.
func NewImportController(pipeline *importer.Pipeline, store ImportStore, source LinkSource, enqueuer RescrapeEnqueuer, indexer ItemIndexer, discoverLimit, searchLimit int) *ImportController {
	return &ImportController{
		pipeline:      pipeline,
		store:         store,
		source:        source,
		enqueuer:      enqueuer,
		indexer:       indexer,
		discoverLimit: discoverLimit,
		searchLimit:   searchLimit,
	}
}

type singleImportRequest struct {
	URL string `json:"url" binding:"required"`
}

type bulkImportRequest struct {
	URLs []string `json:"urls"`
}

type discoverRequest struct {
	URL    string `json:"url" binding:"required"`
	Search string `json:"search"`
}

type searchRequest struct {
	Query string `json:"query" binding:"required"`
}

// ImportURL handles POST /api/import
// Runs the pipeline for a single URL and returns the terminal item.
func (ic *ImportController) ImportURL(c *gin.Context) {
	var req singleImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "url is required")
		return
	}

	userID := GetUserID(c)

	run, err := ic.pipeline.Run(c.Request.Context(), userID, []string{req.URL})
	if err != nil {
		respondPipelineStartError(c, err)
		return
	}

	var last *importer.ProgressEvent
	for event := range run.Events() {
		e := event
		last = &e
	}
	if err := run.Err(); err != nil {
		respondInternalError(c, err, "single import")
		return
	}
	if last == nil {
		respondInternalError(c, errors.New("import produced no result"), "single import")
		return
	}

	item, err := ic.store.GetForUser(last.ItemID, userID)
	if err != nil {
		respondInternalError(c, err, "load imported item")
		return
	}

	ic.indexCompleted(item)

	respondCreated(c, item)
}

// BulkImport handles POST /api/import/bulk
// Streams one progress event per URL as server-sent events. Closing the
// connection cancels the request context, which stops the pipeline after
// the in-flight fetch.
func (ic *ImportController) BulkImport(c *gin.Context) {
	var req bulkImportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	userID := GetUserID(c)

	run, err := ic.pipeline.Run(c.Request.Context(), userID, req.URLs)
	if err != nil {
		respondPipelineStartError(c, err)
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	for event := range run.Events() {
		payload, err := json.Marshal(event)
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
		c.Writer.Flush()

		if event.Status == importer.ProgressSuccess {
			if item, err := ic.store.GetForUser(event.ItemID, userID); err == nil {
				ic.indexCompleted(item)
			}
		}
	}

	if err := run.Err(); err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("Bulk import aborted: %v", err)
		fmt.Fprintf(c.Writer, "event: error\ndata: %s\n\n", jsonErrorPayload(err))
		c.Writer.Flush()
	}
}

// Discover handles POST /api/import/discover
// Lists candidate URLs reachable from a seed page or feed.
func (ic *ImportController) Discover(c *gin.Context) {
	var req discoverRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "url is required")
		return
	}

	links, err := ic.source.Discover(c.Request.Context(), req.URL, req.Search, ic.discoverLimit)
	if err != nil {
		respondInternalError(c, err, "discover links")
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": links, "count": len(links)})
}

// SearchWeb handles POST /api/import/search
// Runs a web search for import candidates.
func (ic *ImportController) SearchWeb(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "query is required")
		return
	}

	links, err := ic.source.Search(c.Request.Context(), req.Query, ic.searchLimit)
	if err != nil {
		if errors.Is(err, scraper.ErrSearchUnavailable) {
			respondError(c, http.StatusServiceUnavailable, "web search requires a configured scraper API")
			return
		}
		respondInternalError(c, err, "web search")
		return
	}

	c.JSON(http.StatusOK, gin.H{"links": links, "count": len(links)})
}

// Rescrape handles POST /api/items/:id/rescrape
// A PENDING row is resumed in place; a FAILED row gets a fresh row for the
// same URL so the failed attempt stays on record.
func (ic *ImportController) Rescrape(c *gin.Context) {
	if ic.enqueuer == nil {
		respondError(c, http.StatusServiceUnavailable, "task queue not configured")
		return
	}

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	userID := GetUserID(c)

	item, err := ic.store.GetForUser(id, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "item")
			return
		}
		respondInternalError(c, err, "load item for rescrape")
		return
	}

	switch item.Status {
	case entities.ItemStatusPending:
		if err := ic.enqueuer.EnqueueScrapeItem(c.Request.Context(), item.ID, userID); err != nil {
			respondInternalError(c, err, "enqueue rescrape")
			return
		}
		respondAccepted(c, "rescrape scheduled", gin.H{"item_id": item.ID})
	case entities.ItemStatusFailed:
		fresh, err := ic.store.Create(item.URL, userID)
		if err != nil {
			respondInternalError(c, err, "create rescrape item")
			return
		}
		if err := ic.enqueuer.EnqueueScrapeItem(c.Request.Context(), fresh.ID, userID); err != nil {
			respondInternalError(c, err, "enqueue rescrape")
			return
		}
		respondAccepted(c, "rescrape scheduled", gin.H{"item_id": fresh.ID})
	default:
		respondError(c, http.StatusConflict, "item is "+string(item.Status))
	}
}

// indexCompleted indexes a terminal item when both the index and content
// are present.
func (ic *ImportController) indexCompleted(item *entities.SavedItem) {
	if ic.indexer == nil || item == nil || item.Status != entities.ItemStatusCompleted {
		return
	}
	if err := ic.indexer.IndexItem(item); err != nil {
		log.Printf("Failed to index item %d: %v", item.ID, err)
	}
}

// respondPipelineStartError maps pipeline validation failures to 400 and
// everything else (row creation) to 500.
func respondPipelineStartError(c *gin.Context, err error) {
	var invalidURL *importer.InvalidURLError
	switch {
	case errors.Is(err, importer.ErrNoURLs):
		respondBadRequest(c, err.Error())
	case errors.As(err, &invalidURL):
		respondBadRequest(c, err.Error())
	default:
		respondInternalError(c, err, "start import")
	}
}

func jsonErrorPayload(err error) []byte {
	payload, marshalErr := json.Marshal(ErrorResponse{Error: err.Error()})
	if marshalErr != nil {
		return []byte(`{"error":"internal server error"}`)
	}
	return payload
}
