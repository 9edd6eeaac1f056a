package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkstash/internal/entities"
)

func newIndexedItem(id, userID uint, url, title, content string) *entities.SavedItem {
	return &entities.SavedItem{
		ID:      id,
		UserID:  userID,
		URL:     url,
		Title:   &title,
		Content: &content,
	}
}

func TestIndexAndSearch(t *testing.T) {
	idx, err := OpenInMemory()
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.IndexItem(newIndexedItem(1, 1,
		"https://example.com/go-channels",
		"Go Channels Explained",
		"Channels let goroutines communicate by passing values.")))
	require.NoError(t, idx.IndexItem(newIndexedItem(2, 1,
		"https://example.com/sql-indexes",
		"SQL Index Design",
		"B-tree indexes speed up point lookups and range scans.")))
	require.NoError(t, idx.IndexItem(newIndexedItem(3, 2,
		"https://example.com/other-users-channels",
		"Go Channels Explained",
		"Channels let goroutines communicate by passing values.")))

	t.Run("matches on content", func(t *testing.T) {
		results, err := idx.Search("goroutines", 1, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, uint(1), results[0].ItemID)
		assert.Equal(t, "https://example.com/go-channels", results[0].URL)
		assert.Equal(t, "Go Channels Explained", results[0].Title)
		assert.Greater(t, results[0].Score, 0.0)
	})

	t.Run("only returns the owner's items", func(t *testing.T) {
		results, err := idx.Search("goroutines", 2, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Equal(t, uint(3), results[0].ItemID)
	})

	t.Run("no hits for unmatched queries", func(t *testing.T) {
		results, err := idx.Search("kubernetes", 1, 10)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("highlights matched fragments", func(t *testing.T) {
		results, err := idx.Search("lookups", 1, 10)
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Contains(t, results[0].Fragments, "Content")
		assert.Contains(t, results[0].Fragments["Content"][0], "lookups")
	})
}

func TestIndexItemUpdatesDocument(t *testing.T) {
	idx, err := OpenInMemory()
	require.NoError(t, err)
	defer idx.Close()

	item := newIndexedItem(1, 1, "https://example.com/a", "Original Title", "original body text")
	require.NoError(t, idx.IndexItem(item))

	summary := "A summary mentioning ornithology."
	item.Summary = &summary
	item.Tags = entities.StringSlice{"birds"}
	require.NoError(t, idx.IndexItem(item))

	results, err := idx.Search("ornithology", 1, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, uint(1), results[0].ItemID)

	results, err = idx.Search("birds", 1, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestIndexItemWithoutContent(t *testing.T) {
	idx, err := OpenInMemory()
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.IndexItem(&entities.SavedItem{
		ID:     1,
		UserID: 1,
		URL:    "https://example.com/pending",
	}))

	results, err := idx.Search("pending", 1, 10)
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestRemoveItem(t *testing.T) {
	idx, err := OpenInMemory()
	require.NoError(t, err)
	defer idx.Close()

	require.NoError(t, idx.IndexItem(newIndexedItem(1, 1,
		"https://example.com/a", "Removable Article", "some body text")))

	results, err := idx.Search("removable", 1, 10)
	require.NoError(t, err)
	require.Len(t, results, 1)

	require.NoError(t, idx.RemoveItem(1))

	results, err = idx.Search("removable", 1, 10)
	require.NoError(t, err)
	assert.Empty(t, results)
}
