package scraper

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

const localUserAgent = "linkstash/1.0"

// Local extracts content in-process, without a scraping API. Extraction
// quality is best-effort compared to the API client, but the error contract
// is identical so the pipeline cannot tell them apart.
type Local struct {
	httpClient *http.Client
	feedParser *gofeed.Parser
}

// NewLocal creates the in-process fetcher.
func NewLocal(timeout time.Duration) *Local {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Local{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		feedParser: gofeed.NewParser(),
	}
}

// Fetch downloads the page and extracts title, metadata, and main text.
func (l *Local) Fetch(ctx context.Context, pageURL string) (*Page, error) {
	doc, err := l.fetchDocument(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	page := &Page{
		URL:         pageURL,
		Title:       extractTitle(doc),
		OGImage:     metaContent(doc, `meta[property="og:image"]`),
		Author:      extractAuthor(doc),
		PublishedAt: parseTimestamp(metaContent(doc, `meta[property="article:published_time"]`)),
		Markdown:    extractText(doc),
	}
	if page.Markdown == "" {
		return nil, ErrEmptyContent
	}
	return page, nil
}

// Discover turns a seed URL into candidate links. RSS and Atom seeds yield
// their entries; HTML seeds yield same-host anchors. filterQuery narrows
// candidates by substring match on URL and title.
func (l *Local) Discover(ctx context.Context, seedURL, filterQuery string, limit int) ([]Link, error) {
	body, err := l.fetchBody(ctx, seedURL)
	if err != nil {
		return nil, err
	}

	if feed, err := l.feedParser.ParseString(string(body)); err == nil && len(feed.Items) > 0 {
		return feedLinks(feed, filterQuery, limit), nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return anchorLinks(doc, seedURL, filterQuery, limit)
}

// Search is not supported without a scraping API.
func (l *Local) Search(ctx context.Context, query string, limit int) ([]Link, error) {
	return nil, ErrSearchUnavailable
}

func (l *Local) fetchBody(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", localUserAgent)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return body, nil
}

func (l *Local) fetchDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	body, err := l.fetchBody(ctx, pageURL)
	if err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

func metaContent(doc *goquery.Document, selector string) string {
	return strings.TrimSpace(doc.Find(selector).First().AttrOr("content", ""))
}

func extractTitle(doc *goquery.Document) string {
	if title := metaContent(doc, `meta[property="og:title"]`); title != "" {
		return title
	}
	return strings.TrimSpace(doc.Find("title").First().Text())
}

func extractAuthor(doc *goquery.Document) string {
	if author := metaContent(doc, `meta[name="author"]`); author != "" {
		return author
	}
	return metaContent(doc, `meta[property="article:author"]`)
}

// extractText pulls the readable text out of the page's main content region,
// headings prefixed so downstream summarization keeps some structure.
func extractText(doc *goquery.Document) string {
	root := doc.Find("article").First()
	if root.Length() == 0 {
		root = doc.Find("main").First()
	}
	if root.Length() == 0 {
		root = doc.Find("body").First()
	}

	root.Find("script, style, nav, header, footer, aside, noscript").Remove()

	var blocks []string
	root.Find("h1, h2, h3, p, li, blockquote").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		switch goquery.NodeName(s) {
		case "h1":
			text = "# " + text
		case "h2":
			text = "## " + text
		case "h3":
			text = "### " + text
		case "blockquote":
			text = "> " + text
		}
		blocks = append(blocks, text)
	})

	return strings.Join(blocks, "\n\n")
}

func feedLinks(feed *gofeed.Feed, filterQuery string, limit int) []Link {
	var links []Link
	for _, item := range feed.Items {
		if item.Link == "" {
			continue
		}
		link := Link{URL: item.Link, Title: item.Title, Description: item.Description}
		if !matchesFilter(link, filterQuery) {
			continue
		}
		links = append(links, link)
		if limit > 0 && len(links) >= limit {
			break
		}
	}
	return links
}

func anchorLinks(doc *goquery.Document, seedURL, filterQuery string, limit int) ([]Link, error) {
	base, err := url.Parse(seedURL)
	if err != nil {
		return nil, fmt.Errorf("parse seed url: %w", err)
	}

	seen := make(map[string]bool)
	var links []Link
	doc.Find("a[href]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		href := s.AttrOr("href", "")
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved := base.ResolveReference(ref)
		resolved.Fragment = ""
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return true
		}
		// Discovery stays on the seed's host; external links are noise.
		if resolved.Host != base.Host {
			return true
		}
		target := resolved.String()
		if seen[target] || target == seedURL {
			return true
		}
		seen[target] = true

		link := Link{URL: target, Title: strings.TrimSpace(s.Text())}
		if !matchesFilter(link, filterQuery) {
			return true
		}
		links = append(links, link)
		return limit <= 0 || len(links) < limit
	})

	return links, nil
}

func matchesFilter(link Link, filterQuery string) bool {
	if filterQuery == "" {
		return true
	}
	needle := strings.ToLower(filterQuery)
	return strings.Contains(strings.ToLower(link.URL), needle) ||
		strings.Contains(strings.ToLower(link.Title), needle)
}
