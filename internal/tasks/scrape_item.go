package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"linkstash/internal/entities"
	"linkstash/internal/importer"
)

// ScrapeItemStore is the persistence surface the scrape task needs.
type ScrapeItemStore interface {
	GetForUser(id, userID uint) (*entities.SavedItem, error)
	SetStatus(id, userID uint, status entities.ItemStatus) error
	SetContent(id, userID uint, fields entities.ContentFields) error
	MarkFailed(id, userID uint) error
}

// ItemIndexer receives completed items for full-text indexing.
type ItemIndexer interface {
	IndexItem(item *entities.SavedItem) error
}

// ScrapeItemTask re-runs fetch-and-populate for a single saved item.
// The pending sweep scheduler enqueues these for rows stuck in PENDING.
type ScrapeItemTask struct {
	ItemID uint `json:"item_id"`
	UserID uint `json:"user_id"`
}

// Config returns the queue configuration for item scrape tasks.
func (t ScrapeItemTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "scrape_item",
		MaxAttempts: 3,
		Backoff:     30 * time.Second,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// ScrapeItemProcessor creates a processor function for ScrapeItemTask.
// Items that already reached a terminal status are skipped so a sweep racing
// a live import cannot clobber a finished row. The indexer may be nil.
func ScrapeItemProcessor(store ScrapeItemStore, fetcher importer.Fetcher, indexer ItemIndexer) backlite.QueueProcessor[ScrapeItemTask] {
	return func(ctx context.Context, task ScrapeItemTask) error {
		if store == nil || fetcher == nil {
			return fmt.Errorf("scrape task not configured")
		}

		item, err := store.GetForUser(task.ItemID, task.UserID)
		if err != nil {
			return fmt.Errorf("load item %d: %w", task.ItemID, err)
		}
		if item.Status.IsTerminal() {
			log.Printf("[TASK] Item %d already %s, skipping scrape", item.ID, item.Status)
			return nil
		}

		if err := store.SetStatus(item.ID, task.UserID, entities.ItemStatusProcessing); err != nil {
			return fmt.Errorf("mark item %d processing: %w", item.ID, err)
		}

		page, fetchErr := fetcher.Fetch(ctx, item.URL)
		if fetchErr != nil {
			if err := store.MarkFailed(item.ID, task.UserID); err != nil {
				return fmt.Errorf("mark item %d failed: %w", item.ID, err)
			}
			log.Printf("[TASK] Scrape failed for item %d (%s): %v", item.ID, item.URL, fetchErr)
			return nil
		}

		if err := store.SetContent(item.ID, task.UserID, importer.PageContent(page)); err != nil {
			return fmt.Errorf("store content for item %d: %w", item.ID, err)
		}

		if indexer != nil {
			updated, err := store.GetForUser(item.ID, task.UserID)
			if err == nil {
				if err := indexer.IndexItem(updated); err != nil {
					log.Printf("[TASK] Failed to index item %d: %v", item.ID, err)
				}
			}
		}

		log.Printf("[TASK] Scraped item %d (%s)", item.ID, item.URL)
		return nil
	}
}

// NewScrapeItemQueue creates a backlite queue for item scrape tasks.
func NewScrapeItemQueue(store ScrapeItemStore, fetcher importer.Fetcher, indexer ItemIndexer) backlite.Queue {
	return backlite.NewQueue(ScrapeItemProcessor(store, fetcher, indexer))
}
