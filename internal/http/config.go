package http

import (
	"linkstash/internal/auth"
	"linkstash/internal/database"
	"linkstash/internal/importer"
	"linkstash/internal/summary"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Database  *database.Database
	ItemStore ItemStore
	Pipeline  *importer.Pipeline

	// Import support
	ImportStore ImportStore
	LinkSource  LinkSource
	Enqueuer    RescrapeEnqueuer

	// Full-text search (optional)
	Searcher ItemSearcher
	Indexer  ItemIndexer

	// Summarization (optional)
	SummaryService *summary.Service

	// Authentication
	AuthMiddleware *auth.Middleware

	// Discovery limits
	DiscoverLimit int
	SearchLimit   int

	// Application info
	Version string
}
