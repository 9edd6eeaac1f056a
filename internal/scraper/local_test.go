package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const articleHTML = `<!DOCTYPE html>
<html>
<head>
	<title>Fallback Title</title>
	<meta property="og:title" content="How Rivers Form">
	<meta property="og:image" content="https://geo.test/river.jpg">
	<meta name="author" content="Ada Stone">
	<meta property="article:published_time" content="2024-05-12T08:30:00Z">
</head>
<body>
	<nav><a href="/home">Home</a></nav>
	<article>
		<h1>How Rivers Form</h1>
		<p>Water follows gravity.</p>
		<h2>Erosion</h2>
		<p>Over time, channels deepen.</p>
		<blockquote>Everything flows.</blockquote>
		<script>trackPageView()</script>
	</article>
	<footer>Copyright</footer>
</body>
</html>`

func TestLocalFetch(t *testing.T) {
	t.Run("extracts metadata and content blocks", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, localUserAgent, r.Header.Get("User-Agent"))
			w.Write([]byte(articleHTML))
		}))
		defer server.Close()

		local := NewLocal(5 * time.Second)
		page, err := local.Fetch(context.Background(), server.URL)
		require.NoError(t, err)

		assert.Equal(t, server.URL, page.URL)
		assert.Equal(t, "How Rivers Form", page.Title)
		assert.Equal(t, "https://geo.test/river.jpg", page.OGImage)
		assert.Equal(t, "Ada Stone", page.Author)
		require.NotNil(t, page.PublishedAt)
		assert.Equal(t, 2024, page.PublishedAt.Year())

		assert.Contains(t, page.Markdown, "# How Rivers Form")
		assert.Contains(t, page.Markdown, "## Erosion")
		assert.Contains(t, page.Markdown, "> Everything flows.")
		assert.Contains(t, page.Markdown, "Water follows gravity.")
		assert.NotContains(t, page.Markdown, "trackPageView")
		assert.NotContains(t, page.Markdown, "Copyright")
	})

	t.Run("falls back to the title tag", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html><head><title>Plain Page</title></head><body><p>Some text.</p></body></html>`))
		}))
		defer server.Close()

		local := NewLocal(5 * time.Second)
		page, err := local.Fetch(context.Background(), server.URL)
		require.NoError(t, err)
		assert.Equal(t, "Plain Page", page.Title)
	})

	t.Run("empty pages are an error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`<html><body><div>wrapper only</div></body></html>`))
		}))
		defer server.Close()

		local := NewLocal(5 * time.Second)
		_, err := local.Fetch(context.Background(), server.URL)
		assert.ErrorIs(t, err, ErrEmptyContent)
	})

	t.Run("non-200 responses return a status error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		}))
		defer server.Close()

		local := NewLocal(5 * time.Second)
		_, err := local.Fetch(context.Background(), server.URL)

		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	})
}

func TestLocalDiscoverFeed(t *testing.T) {
	feed := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
<channel>
	<title>Example Blog</title>
	<item>
		<title>Go Generics in Practice</title>
		<link>https://blog.test/generics</link>
		<description>Using type parameters.</description>
	</item>
	<item>
		<title>Postgres Tips</title>
		<link>https://blog.test/postgres</link>
		<description>Indexes and plans.</description>
	</item>
	<item>
		<title>Go Modules FAQ</title>
		<link>https://blog.test/modules</link>
		<description>Versioning answers.</description>
	</item>
</channel>
</rss>`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feed))
	}))
	defer server.Close()

	local := NewLocal(5 * time.Second)

	t.Run("returns feed entries", func(t *testing.T) {
		links, err := local.Discover(context.Background(), server.URL, "", 0)
		require.NoError(t, err)
		require.Len(t, links, 3)
		assert.Equal(t, "https://blog.test/generics", links[0].URL)
		assert.Equal(t, "Go Generics in Practice", links[0].Title)
		assert.Equal(t, "Using type parameters.", links[0].Description)
	})

	t.Run("filters entries by query", func(t *testing.T) {
		links, err := local.Discover(context.Background(), server.URL, "go", 0)
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, "https://blog.test/generics", links[0].URL)
		assert.Equal(t, "https://blog.test/modules", links[1].URL)
	})

	t.Run("respects the limit", func(t *testing.T) {
		links, err := local.Discover(context.Background(), server.URL, "", 1)
		require.NoError(t, err)
		require.Len(t, links, 1)
	})
}

func TestLocalDiscoverAnchors(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body>
			<a href="/posts/one">First Post</a>
			<a href="/posts/one#comments">First Post Comments</a>
			<a href="/posts/two">Second Post</a>
			<a href="https://elsewhere.test/external">External</a>
			<a href="mailto:hi@blog.test">Mail</a>
			<a href="` + server.URL + `">Self</a>
		</body></html>`))
	}))
	defer server.Close()

	local := NewLocal(5 * time.Second)

	t.Run("resolves same-host links and drops duplicates", func(t *testing.T) {
		links, err := local.Discover(context.Background(), server.URL, "", 0)
		require.NoError(t, err)
		require.Len(t, links, 2)
		assert.Equal(t, server.URL+"/posts/one", links[0].URL)
		assert.Equal(t, "First Post", links[0].Title)
		assert.Equal(t, server.URL+"/posts/two", links[1].URL)
	})

	t.Run("filters by link text", func(t *testing.T) {
		links, err := local.Discover(context.Background(), server.URL, "second", 0)
		require.NoError(t, err)
		require.Len(t, links, 1)
		assert.Equal(t, server.URL+"/posts/two", links[0].URL)
	})
}

func TestLocalSearchUnavailable(t *testing.T) {
	local := NewLocal(5 * time.Second)
	_, err := local.Search(context.Background(), "anything", 10)
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}
