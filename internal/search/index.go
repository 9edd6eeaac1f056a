// Package search maintains a full-text index over saved items.
package search

import (
	"fmt"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"linkstash/internal/entities"
)

// Index wraps a Bleve search index over saved items.
type Index struct {
	index bleve.Index
}

// IndexedItem is the document shape stored in the index.
type IndexedItem struct {
	UserID  string
	URL     string
	Title   string
	Content string
	Summary string
	Tags    []string
}

// Result is one search hit.
type Result struct {
	ItemID    uint
	URL       string
	Title     string
	Score     float64
	Fragments map[string][]string // Highlighted snippets
}

// Open opens or creates the index at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}
	return &Index{index: idx}, nil
}

// OpenInMemory creates a non-persistent index, used by tests.
func OpenInMemory() (*Index, error) {
	idx, err := bleve.NewMemOnly(buildIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create index: %w", err)
	}
	return &Index{index: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	textFieldMapping := bleve.NewTextFieldMapping()

	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = "en" // English analyzer for better stemming

	// Owner filter field: never analyzed, only matched exactly.
	userFieldMapping := bleve.NewKeywordFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("UserID", userFieldMapping)
	docMapping.AddFieldMappingsAt("URL", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Title", titleFieldMapping)
	docMapping.AddFieldMappingsAt("Content", textFieldMapping)
	docMapping.AddFieldMappingsAt("Summary", textFieldMapping)
	docMapping.AddFieldMappingsAt("Tags", bleve.NewTextFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

// Close closes the index.
func (i *Index) Close() error {
	return i.index.Close()
}

// IndexItem adds or updates an item in the index. Items without content
// contribute their URL and title only.
func (i *Index) IndexItem(item *entities.SavedItem) error {
	doc := IndexedItem{
		UserID: strconv.FormatUint(uint64(item.UserID), 10),
		URL:    item.URL,
		Tags:   item.Tags,
	}
	if item.Title != nil {
		doc.Title = *item.Title
	}
	if item.Content != nil {
		doc.Content = *item.Content
	}
	if item.Summary != nil {
		doc.Summary = *item.Summary
	}
	return i.index.Index(strconv.FormatUint(uint64(item.ID), 10), doc)
}

// RemoveItem deletes an item from the index.
func (i *Index) RemoveItem(itemID uint) error {
	return i.index.Delete(strconv.FormatUint(uint64(itemID), 10))
}

// Search runs a query over the given user's items.
func (i *Index) Search(queryStr string, userID uint, limit int) ([]*Result, error) {
	// Parse query string (supports quotes, boolean operators, fuzzy ~)
	query := bleve.NewQueryStringQuery(queryStr)

	ownerQuery := bleve.NewTermQuery(strconv.FormatUint(uint64(userID), 10))
	ownerQuery.SetField("UserID")

	combined := bleve.NewConjunctionQuery(query, ownerQuery)

	request := bleve.NewSearchRequestOptions(combined, limit, 0, false)
	request.Highlight = bleve.NewHighlightWithStyle("html")
	request.Fields = []string{"URL", "Title"}

	results, err := i.index.Search(request)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var searchResults []*Result
	for _, hit := range results.Hits {
		id, err := strconv.ParseUint(hit.ID, 10, 32)
		if err != nil {
			continue
		}
		result := &Result{
			ItemID:    uint(id),
			Score:     hit.Score,
			Fragments: hit.Fragments,
		}
		if url, ok := hit.Fields["URL"].(string); ok {
			result.URL = url
		}
		if title, ok := hit.Fields["Title"].(string); ok {
			result.Title = title
		}
		searchResults = append(searchResults, result)
	}
	return searchResults, nil
}
