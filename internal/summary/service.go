// Package summary implements the summarization step that runs after an item
// has been imported: stream a summary for its content, then derive tags from
// the finished summary text and persist both.
package summary

import (
	"context"
	"errors"
	"fmt"
	"log"

	"linkstash/internal/entities"
	"linkstash/internal/summarizer"
)

// ErrNoContent indicates the item has no extracted content to summarize.
var ErrNoContent = errors.New("item has no content to summarize")

// ErrNoSummary indicates tag generation was requested before any summary
// was persisted.
var ErrNoSummary = errors.New("item has no summary to tag")

// ItemStore is the persistence surface the summarization step needs.
type ItemStore interface {
	GetForUser(id, userID uint) (*entities.SavedItem, error)
	SetSummaryAndTags(id, userID uint, summary string, tags []string) error
	SetSummary(id, userID uint, summary string) error
	SetTags(id, userID uint, tags []string) error
}

// Generator produces summaries and tags from text.
type Generator interface {
	StreamSummary(ctx context.Context, content string) (*summarizer.SummaryStream, error)
	GenerateTags(ctx context.Context, summary string) ([]string, error)
}

// TagRetryEnqueuer schedules a later tag-generation attempt (optional).
type TagRetryEnqueuer interface {
	EnqueueGenerateTags(ctx context.Context, itemID, userID uint) error
}

// Indexer keeps the search index in step with summary updates (optional).
type Indexer interface {
	IndexItem(item *entities.SavedItem) error
}

// Service orchestrates summary streaming and persistence.
type Service struct {
	store     ItemStore
	generator Generator
	retries   TagRetryEnqueuer
	indexer   Indexer
}

// NewService creates the summarization service.
func NewService(store ItemStore, generator Generator) *Service {
	return &Service{store: store, generator: generator}
}

// SetTagRetryEnqueuer enables background retries for failed tag generation.
func (s *Service) SetTagRetryEnqueuer(enqueuer TagRetryEnqueuer) {
	s.retries = enqueuer
}

// SetIndexer enables search index updates on summary persistence.
func (s *Service) SetIndexer(indexer Indexer) {
	s.indexer = indexer
}

// StreamItemSummary starts summary generation for an owned item with content.
// Missing or foreign items surface as gorm.ErrRecordNotFound.
func (s *Service) StreamItemSummary(ctx context.Context, itemID, userID uint) (*summarizer.SummaryStream, error) {
	item, err := s.store.GetForUser(itemID, userID)
	if err != nil {
		return nil, err
	}
	if item.Content == nil {
		return nil, ErrNoContent
	}
	return s.generator.StreamSummary(ctx, *item.Content)
}

// SaveSummary persists the completed summary text together with tags derived
// from it. Tag generation only starts once the full summary is known, and
// both fields are written in one update so no intermediate state is visible.
//
// The summary is the higher-value artifact: when tag generation fails it is
// persisted alone and tagging is retried in the background.
func (s *Service) SaveSummary(ctx context.Context, itemID, userID uint, summaryText string) (*entities.SavedItem, error) {
	item, err := s.store.GetForUser(itemID, userID)
	if err != nil {
		return nil, err
	}
	if item.Content == nil {
		return nil, ErrNoContent
	}

	tags, tagErr := s.generator.GenerateTags(ctx, summaryText)
	if tagErr != nil {
		log.Printf("Tag generation for item %d failed, keeping summary: %v", itemID, tagErr)
		if err := s.store.SetSummary(itemID, userID, summaryText); err != nil {
			return nil, fmt.Errorf("save summary: %w", err)
		}
		if s.retries != nil {
			if err := s.retries.EnqueueGenerateTags(ctx, itemID, userID); err != nil {
				log.Printf("Failed to enqueue tag retry for item %d: %v", itemID, err)
			}
		}
	} else {
		if err := s.store.SetSummaryAndTags(itemID, userID, summaryText, tags); err != nil {
			return nil, fmt.Errorf("save summary and tags: %w", err)
		}
	}

	updated, err := s.store.GetForUser(itemID, userID)
	if err != nil {
		return nil, fmt.Errorf("refresh item: %w", err)
	}
	s.index(updated)
	return updated, nil
}

// GenerateTagsForItem re-derives tags for an item whose summary was persisted
// without them. Used by the background retry task.
func (s *Service) GenerateTagsForItem(ctx context.Context, itemID, userID uint) error {
	item, err := s.store.GetForUser(itemID, userID)
	if err != nil {
		return err
	}
	if item.Summary == nil {
		return ErrNoSummary
	}

	tags, err := s.generator.GenerateTags(ctx, *item.Summary)
	if err != nil {
		return fmt.Errorf("generate tags: %w", err)
	}
	if err := s.store.SetTags(itemID, userID, tags); err != nil {
		return fmt.Errorf("save tags: %w", err)
	}

	if updated, err := s.store.GetForUser(itemID, userID); err == nil {
		s.index(updated)
	}
	return nil
}

func (s *Service) index(item *entities.SavedItem) {
	if s.indexer == nil {
		return
	}
	if err := s.indexer.IndexItem(item); err != nil {
		log.Printf("Failed to index item %d: %v", item.ID, err)
	}
}
