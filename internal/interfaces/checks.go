package interfaces

// This file contains compile-time interface implementation checks.
// These ensure that concrete types satisfy their interfaces at compile time,
// catching missing methods before runtime.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"linkstash/internal/auth"
	"linkstash/internal/database/items"
	"linkstash/internal/database/users"
	"linkstash/internal/http"
	"linkstash/internal/importer"
	"linkstash/internal/scheduler"
	"linkstash/internal/scraper"
	"linkstash/internal/search"
	"linkstash/internal/summarizer"
	"linkstash/internal/summary"
	"linkstash/internal/tasks"
)

// =============================================================================
// Data Access Layer
// =============================================================================

// Item store implementations
var _ importer.ItemStore = (*items.Repository)(nil)
var _ summary.ItemStore = (*items.Repository)(nil)
var _ tasks.ScrapeItemStore = (*items.Repository)(nil)
var _ scheduler.StuckStore = (*items.Repository)(nil)
var _ http.ItemStore = (*items.Repository)(nil)
var _ http.ImportStore = (*items.Repository)(nil)

// User store implementations
var _ auth.UserStore = (*users.Repository)(nil)

// =============================================================================
// External Services
// =============================================================================

// Fetcher implementations (remote API and local fallback)
var _ importer.Fetcher = (*scraper.Client)(nil)
var _ importer.Fetcher = (*scraper.Local)(nil)
var _ http.LinkSource = (*scraper.Client)(nil)
var _ http.LinkSource = (*scraper.Local)(nil)

// Summary generator implementations
var _ summary.Generator = (*summarizer.Client)(nil)

// =============================================================================
// Background Work
// =============================================================================

// Task enqueuer implementations
var _ summary.TagRetryEnqueuer = (*tasks.Client)(nil)
var _ scheduler.ScrapeEnqueuer = (*tasks.Client)(nil)
var _ http.RescrapeEnqueuer = (*tasks.Client)(nil)

// Search index implementations
var _ summary.Indexer = (*search.Index)(nil)
var _ tasks.ItemIndexer = (*search.Index)(nil)
var _ http.ItemIndexer = (*search.Index)(nil)
var _ http.ItemSearcher = (*search.Index)(nil)
