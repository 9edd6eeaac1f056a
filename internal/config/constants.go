package config

// Default storage paths
const (
	// DefaultDatabasePath is the default path for the main application database
	DefaultDatabasePath = "./linkstash.db"

	// DefaultSearchIndexPath is the default path for the full-text search index
	DefaultSearchIndexPath = "./linkstash.bleve"
)

// Default limits for link discovery (mirrors the scraping API defaults)
const (
	DefaultDiscoverLimit = 25
	DefaultSearchLimit   = 15
)
