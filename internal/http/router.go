package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	}

	health := NewHealthController(cfg.Database, cfg.Version)
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	itemsController := NewItemsController(cfg.ItemStore, cfg.Searcher)
	importController := NewImportController(
		cfg.Pipeline,
		cfg.ImportStore,
		cfg.LinkSource,
		cfg.Enqueuer,
		cfg.Indexer,
		cfg.DiscoverLimit,
		cfg.SearchLimit,
	)

	api := router.Group("/api")
	{
		api.POST("/import", importController.ImportURL)
		api.POST("/import/bulk", importController.BulkImport)
		api.POST("/import/discover", importController.Discover)
		api.POST("/import/search", importController.SearchWeb)

		api.GET("/items", itemsController.ListItems)
		api.GET("/items/stats", itemsController.GetStats)
		api.GET("/items/search", itemsController.SearchItems)
		api.GET("/items/:id", itemsController.GetItem)
		api.DELETE("/items/:id", itemsController.DeleteItem)
		api.POST("/items/:id/rescrape", importController.Rescrape)

		if cfg.SummaryService != nil {
			summaryController := NewSummaryController(cfg.SummaryService)
			api.POST("/items/:id/summary", summaryController.StreamSummary)
			api.POST("/items/:id/summary/save", summaryController.SaveSummary)
		}
	}

	return router
}
