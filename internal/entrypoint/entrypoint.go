package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikestefanello/backlite"

	"linkstash/internal/auth"
	"linkstash/internal/config"
	"linkstash/internal/database"
	"linkstash/internal/database/items"
	"linkstash/internal/database/users"
	http_controllers "linkstash/internal/http"
	"linkstash/internal/importer"
	"linkstash/internal/scheduler"
	"linkstash/internal/scraper"
	"linkstash/internal/search"
	"linkstash/internal/summarizer"
	"linkstash/internal/summary"
	"linkstash/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

// Serve runs the HTTP server until SIGINT/SIGTERM, then shuts down within
// the configured timeout.
func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler: router,
	}

	go func() {
		fmt.Printf("Starting server at %s:%d\n", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Call shutdown callback first (e.g., to stop task queue)
	if onShutdown != nil {
		onShutdown(ctx)
	}

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}

	log.Println("Server exiting")
}

// Run wires every component from config and serves HTTP.
func Run(cfg *config.Config, version string) {
	log.Printf("Starting linkstash v%s", version)

	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	itemsRepo := items.NewRepository(db.DB)
	usersRepo := users.NewRepository(db.DB)

	// The scraper API is used when a key is configured; otherwise pages are
	// fetched and extracted locally.
	var fetcher importer.Fetcher
	var linkSource http_controllers.LinkSource
	if cfg.Scraper.APIKey != "" {
		client := scraper.NewClient(cfg.Scraper.BaseURL, cfg.Scraper.APIKey, cfg.Scraper.Timeout)
		fetcher = client
		linkSource = client
		log.Printf("Scraper: remote API at %s", cfg.Scraper.BaseURL)
	} else {
		local := scraper.NewLocal(cfg.Scraper.Timeout)
		fetcher = local
		linkSource = local
		log.Printf("Scraper: local fallback (no SCRAPER_API_KEY set)")
	}

	pipeline := importer.NewPipeline(itemsRepo, fetcher)

	// Full-text index
	var index *search.Index
	if cfg.Search.IndexPath != "" {
		index, err = search.Open(cfg.Search.IndexPath)
		if err != nil {
			log.Printf("WARNING: Failed to open search index: %v", err)
			index = nil
		} else {
			defer index.Close()
		}
	}

	// Summarization is optional; without an API key the endpoints are
	// not registered.
	var summaryService *summary.Service
	if cfg.Summarizer.APIKey != "" {
		generator := summarizer.NewClient(summarizer.Config{
			BaseURL:      cfg.Summarizer.BaseURL,
			APIKey:       cfg.Summarizer.APIKey,
			Model:        cfg.Summarizer.Model,
			SystemPrompt: cfg.Summarizer.SystemPrompt,
			Timeout:      cfg.Summarizer.Timeout,
		})
		summaryService = summary.NewService(itemsRepo, generator)
		if index != nil {
			summaryService.SetIndexer(index)
		}
		log.Printf("Summarizer: %s via %s", cfg.Summarizer.Model, cfg.Summarizer.BaseURL)
	} else {
		log.Printf("Summarizer: disabled (no SUMMARIZER_API_KEY set)")
	}

	// Task queue
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskCfg := tasks.Config{
			Workers:         cfg.Tasks.Workers,
			ReleaseAfter:    cfg.Tasks.ReleaseAfter,
			CleanupInterval: cfg.Tasks.CleanupInterval,
		}

		taskClient, err = tasks.NewClient(cfg.Database.Path, taskCfg)
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		queues := []backlite.Queue{
			tasks.NewScrapeItemQueue(itemsRepo, fetcher, indexerOrNil(index)),
		}
		if summaryService != nil {
			queues = append(queues, tasks.NewGenerateTagsQueue(summaryService))
			summaryService.SetTagRetryEnqueuer(taskClient)
		}
		taskClient.Register(queues...)

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		go taskClient.Start(taskCtx)
	}

	// Pending sweep re-enqueues rows left behind by cancelled imports.
	var sweep *scheduler.PendingSweepScheduler
	if taskClient != nil && cfg.PendingSweep.Enabled {
		sweep = scheduler.NewPendingSweepScheduler(itemsRepo, taskClient, scheduler.SweepConfig{
			Enabled:  cfg.PendingSweep.Enabled,
			Schedule: cfg.PendingSweep.Schedule,
			MinAge:   cfg.PendingSweep.MinAge,
		})
		if err := sweep.Start(context.Background()); err != nil {
			log.Printf("WARNING: Failed to start pending sweep: %v", err)
		}
	}

	// Authentication
	defaultUser, err := usersRepo.EnsureDefaultUser()
	if err != nil {
		log.Fatalf("Failed to ensure default user: %v", err)
	}
	if cfg.Auth.Mode == config.AuthModeToken {
		log.Printf("Authentication mode: token")
	} else {
		log.Printf("Authentication mode: none (all requests run as %q)", defaultUser.Username)
	}
	authMiddleware := auth.NewMiddleware(usersRepo, cfg.Auth, defaultUser.ID)

	routerCfg := http_controllers.RouterConfig{
		Database:       db,
		ItemStore:      itemsRepo,
		Pipeline:       pipeline,
		ImportStore:    itemsRepo,
		LinkSource:     linkSource,
		Enqueuer:       enqueuerOrNil(taskClient),
		Searcher:       searcherOrNil(index),
		Indexer:        httpIndexerOrNil(index),
		SummaryService: summaryService,
		AuthMiddleware: authMiddleware,
		DiscoverLimit:  cfg.Scraper.DiscoverLimit,
		SearchLimit:    cfg.Scraper.SearchLimit,
		Version:        version,
	}

	router := http_controllers.NewRouter(routerCfg)

	Serve(router, cfg, func(ctx context.Context) {
		if sweep != nil {
			sweep.Stop()
		}
		if taskClient != nil {
			taskClient.Stop(ctx)
			if taskCtxCancel != nil {
				taskCtxCancel()
			}
		}
	})
}

// The nil-interface helpers keep a typed nil pointer from leaking into an
// interface field, which would defeat the controllers' nil checks.

func indexerOrNil(index *search.Index) tasks.ItemIndexer {
	if index == nil {
		return nil
	}
	return index
}

func httpIndexerOrNil(index *search.Index) http_controllers.ItemIndexer {
	if index == nil {
		return nil
	}
	return index
}

func searcherOrNil(index *search.Index) http_controllers.ItemSearcher {
	if index == nil {
		return nil
	}
	return index
}

func enqueuerOrNil(client *tasks.Client) http_controllers.RescrapeEnqueuer {
	if client == nil {
		return nil
	}
	return client
}
