package config

import (
	"time"

	"github.com/spf13/viper"
)

type AuthMode string

const (
	AuthModeNone  AuthMode = "none"  // No authentication required (default)
	AuthModeToken AuthMode = "token" // Per-user API tokens
)

type (
	Config struct {
		HTTP
		Global
		Database
		Scraper
		Summarizer
		Search
		Tasks
		PendingSweep
		Auth
	}

	HTTP struct {
		Port int32
		Host string
	}

	Global struct {
		ShutdownTimeoutInSeconds int
	}

	Database struct {
		Path string
	}

	// Scraper configures the external content-extraction API.
	// When APIKey is empty the built-in local fetcher is used instead.
	Scraper struct {
		BaseURL       string
		APIKey        string
		Timeout       time.Duration
		DiscoverLimit int
		SearchLimit   int
	}

	// Summarizer configures the OpenAI-compatible text-generation API.
	// Summaries and tags are disabled when APIKey is empty.
	Summarizer struct {
		BaseURL      string
		APIKey       string
		Model        string
		Timeout      time.Duration
		SystemPrompt string
	}

	Search struct {
		IndexPath string
	}

	Tasks struct {
		Enabled         bool
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}

	// PendingSweep re-enqueues PENDING items left behind by cancelled
	// bulk imports.
	PendingSweep struct {
		Enabled  bool
		Schedule string // Cron format: "*/15 * * * *" = every 15 minutes
		MinAge   time.Duration
	}

	Auth struct {
		Mode AuthMode
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.SetEnvPrefix("LINKSTASH")
	v.AutomaticEnv()
	v.SetDefault("port", 8188)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 2)
	v.SetDefault("database_path", DefaultDatabasePath)

	// Scraper defaults
	v.SetDefault("scraper_base_url", "https://api.firecrawl.dev")
	v.SetDefault("scraper_api_key", "")
	v.SetDefault("scraper_timeout", "60s")
	v.SetDefault("scraper_discover_limit", DefaultDiscoverLimit)
	v.SetDefault("scraper_search_limit", DefaultSearchLimit)

	// Summarizer defaults
	v.SetDefault("summarizer_base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("summarizer_api_key", "")
	v.SetDefault("summarizer_model", "")
	v.SetDefault("summarizer_timeout", "2m")
	v.SetDefault("summarizer_system_prompt", "")

	// Search index defaults
	v.SetDefault("search_index_path", DefaultSearchIndexPath)

	// Task queue defaults
	v.SetDefault("tasks_enabled", true)
	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	// Pending sweep defaults
	v.SetDefault("pending_sweep_enabled", false)
	v.SetDefault("pending_sweep_schedule", "*/15 * * * *")
	v.SetDefault("pending_sweep_min_age", "30m")

	// Auth defaults
	v.SetDefault("auth_mode", "none")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Database: Database{
			Path: v.GetString("DATABASE_PATH"),
		},
		Scraper: Scraper{
			BaseURL:       v.GetString("SCRAPER_BASE_URL"),
			APIKey:        v.GetString("SCRAPER_API_KEY"),
			Timeout:       v.GetDuration("SCRAPER_TIMEOUT"),
			DiscoverLimit: v.GetInt("SCRAPER_DISCOVER_LIMIT"),
			SearchLimit:   v.GetInt("SCRAPER_SEARCH_LIMIT"),
		},
		Summarizer: Summarizer{
			BaseURL:      v.GetString("SUMMARIZER_BASE_URL"),
			APIKey:       v.GetString("SUMMARIZER_API_KEY"),
			Model:        v.GetString("SUMMARIZER_MODEL"),
			Timeout:      v.GetDuration("SUMMARIZER_TIMEOUT"),
			SystemPrompt: v.GetString("SUMMARIZER_SYSTEM_PROMPT"),
		},
		Search: Search{
			IndexPath: v.GetString("SEARCH_INDEX_PATH"),
		},
		Tasks: Tasks{
			Enabled:         v.GetBool("TASKS_ENABLED"),
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		PendingSweep: PendingSweep{
			Enabled:  v.GetBool("PENDING_SWEEP_ENABLED"),
			Schedule: v.GetString("PENDING_SWEEP_SCHEDULE"),
			MinAge:   v.GetDuration("PENDING_SWEEP_MIN_AGE"),
		},
		Auth: Auth{
			Mode: AuthMode(v.GetString("AUTH_MODE")),
		},
	}
}
