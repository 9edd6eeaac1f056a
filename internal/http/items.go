package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"linkstash/internal/database/items"
	"linkstash/internal/entities"
	"linkstash/internal/search"
)

const (
	defaultListLimit  = 50
	maxListLimit      = 200
	defaultSearchHits = 15
)

// ItemStore is the persistence surface the items controller needs.
type ItemStore interface {
	GetForUser(id, userID uint) (*entities.SavedItem, error)
	ListForUser(userID uint, filter items.ListFilter) ([]entities.SavedItem, error)
	DeleteForUser(id, userID uint) error
	CountByStatus(userID uint) (map[entities.ItemStatus]int64, error)
}

// ItemSearcher runs full-text queries over a user's items.
type ItemSearcher interface {
	Search(queryStr string, userID uint, limit int) ([]*search.Result, error)
	RemoveItem(itemID uint) error
}

type ItemsController struct {
	store    ItemStore
	searcher ItemSearcher
}

// NewItemsController creates a new ItemsController. searcher may be nil
// when no search index is configured.
func NewItemsController(store ItemStore, searcher ItemSearcher) *ItemsController {
	return &ItemsController{store: store, searcher: searcher}
}

// ListItems handles GET /api/items?status=&limit=&offset=
func (ic *ItemsController) ListItems(c *gin.Context) {
	userID := GetUserID(c)
	limit, offset := parseLimitOffset(c, defaultListLimit, maxListLimit)

	filter := items.ListFilter{Limit: limit, Offset: offset}
	if raw := c.Query("status"); raw != "" {
		status := entities.ItemStatus(raw)
		switch status {
		case entities.ItemStatusPending, entities.ItemStatusProcessing,
			entities.ItemStatusCompleted, entities.ItemStatusFailed:
			filter.Status = status
		default:
			respondBadRequest(c, "invalid status filter")
			return
		}
	}

	list, err := ic.store.ListForUser(userID, filter)
	if err != nil {
		respondInternalError(c, err, "list items")
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": list, "count": len(list)})
}

// GetItem handles GET /api/items/:id
func (ic *ItemsController) GetItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	item, err := ic.store.GetForUser(id, GetUserID(c))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "item")
			return
		}
		respondInternalError(c, err, "get item")
		return
	}

	c.JSON(http.StatusOK, item)
}

// DeleteItem handles DELETE /api/items/:id
func (ic *ItemsController) DeleteItem(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := ic.store.DeleteForUser(id, GetUserID(c)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			respondNotFound(c, "item")
			return
		}
		respondInternalError(c, err, "delete item")
		return
	}

	if ic.searcher != nil {
		if err := ic.searcher.RemoveItem(id); err != nil {
			log.Printf("Failed to remove item %d from search index: %v", id, err)
		}
	}

	respondSuccess(c, "item deleted")
}

// GetStats handles GET /api/items/stats
func (ic *ItemsController) GetStats(c *gin.Context) {
	counts, err := ic.store.CountByStatus(GetUserID(c))
	if err != nil {
		respondInternalError(c, err, "item stats")
		return
	}

	var total int64
	for _, n := range counts {
		total += n
	}

	c.JSON(http.StatusOK, gin.H{
		"total":      total,
		"pending":    counts[entities.ItemStatusPending],
		"processing": counts[entities.ItemStatusProcessing],
		"completed":  counts[entities.ItemStatusCompleted],
		"failed":     counts[entities.ItemStatusFailed],
	})
}

// SearchItems handles GET /api/items/search?q=
func (ic *ItemsController) SearchItems(c *gin.Context) {
	if ic.searcher == nil {
		respondError(c, http.StatusServiceUnavailable, "search index not configured")
		return
	}

	query := c.Query("q")
	if query == "" {
		respondBadRequest(c, "q query parameter is required")
		return
	}

	limit, _ := parseLimitOffset(c, defaultSearchHits, maxListLimit)

	results, err := ic.searcher.Search(query, GetUserID(c), limit)
	if err != nil {
		respondInternalError(c, err, "search items")
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results, "count": len(results)})
}
