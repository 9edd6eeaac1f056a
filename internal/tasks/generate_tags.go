package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"linkstash/internal/summary"
)

// GenerateTagsTask retries tag generation for an item whose summary was
// persisted without tags.
type GenerateTagsTask struct {
	ItemID uint `json:"item_id"`
	UserID uint `json:"user_id"`
}

// Config returns the queue configuration for tag generation tasks.
func (t GenerateTagsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "generate_tags",
		MaxAttempts: 3,
		Backoff:     1 * time.Minute,
		Timeout:     2 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// GenerateTagsProcessor creates a processor function for GenerateTagsTask.
func GenerateTagsProcessor(svc *summary.Service) backlite.QueueProcessor[GenerateTagsTask] {
	return func(ctx context.Context, task GenerateTagsTask) error {
		if svc == nil {
			return fmt.Errorf("summary service not configured")
		}

		if err := svc.GenerateTagsForItem(ctx, task.ItemID, task.UserID); err != nil {
			return fmt.Errorf("generate tags for item %d: %w", task.ItemID, err)
		}

		log.Printf("[TASK] Generated tags for item %d", task.ItemID)
		return nil
	}
}

// NewGenerateTagsQueue creates a backlite queue for tag generation tasks.
func NewGenerateTagsQueue(svc *summary.Service) backlite.Queue {
	return backlite.NewQueue(GenerateTagsProcessor(svc))
}
