// Package scraper retrieves and extracts structured content from URLs.
//
// Two implementations are provided: Client talks to a Firecrawl-compatible
// scraping API, and Local extracts content in-process for deployments
// without an API key. Both satisfy the importer.Fetcher contract.
package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 60 * time.Second

	scrapeEndpoint = "/v2/scrape"
	mapEndpoint    = "/v2/map"
	searchEndpoint = "/v2/search"
)

// Page is the extracted content of a single URL.
type Page struct {
	URL         string
	Title       string
	Markdown    string
	OGImage     string
	Author      string
	PublishedAt *time.Time
}

// Link is a discovery or search candidate fed into the import flow.
type Link struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// Client interfaces with a Firecrawl-compatible scraping API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewClient creates a scraping API client. A zero timeout falls back to the
// default; the timeout doubles as the pipeline's per-fetch bound.
func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type scrapeRequest struct {
	URL             string         `json:"url"`
	Formats         []any          `json:"formats"`
	OnlyMainContent bool           `json:"onlyMainContent"`
	Location        scrapeLocation `json:"location"`
}

type scrapeLocation struct {
	Country   string   `json:"country"`
	Languages []string `json:"languages"`
}

type scrapeResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Markdown string `json:"markdown"`
		Metadata struct {
			Title   string `json:"title"`
			OGImage string `json:"ogImage"`
		} `json:"metadata"`
		JSON struct {
			Author      string `json:"author"`
			PublishedAt string `json:"publishedAt"`
		} `json:"json"`
	} `json:"data"`
}

// Fetch scrapes one URL, asking the API for markdown plus a structured
// extraction of author and publication date.
func (c *Client) Fetch(ctx context.Context, url string) (*Page, error) {
	reqBody := scrapeRequest{
		URL: url,
		Formats: []any{
			"markdown",
			map[string]any{
				"type": "json",
				"schema": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"author":      map[string]any{"type": "string"},
						"publishedAt": map[string]any{"type": "string"},
					},
				},
			},
		},
		OnlyMainContent: true,
		Location:        scrapeLocation{Country: "US", Languages: []string{"en"}},
	}

	var resp scrapeResponse
	if err := c.post(ctx, scrapeEndpoint, reqBody, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("scrape failed: %s", resp.Error)
	}
	if strings.TrimSpace(resp.Data.Markdown) == "" {
		return nil, ErrEmptyContent
	}

	page := &Page{
		URL:         url,
		Title:       resp.Data.Metadata.Title,
		Markdown:    resp.Data.Markdown,
		OGImage:     resp.Data.Metadata.OGImage,
		Author:      resp.Data.JSON.Author,
		PublishedAt: parseTimestamp(resp.Data.JSON.PublishedAt),
	}
	return page, nil
}

type mapRequest struct {
	URL    string `json:"url"`
	Search string `json:"search,omitempty"`
	Limit  int    `json:"limit"`
}

type mapResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Links   []Link `json:"links"`
}

// Discover maps one seed URL to a list of candidate links, optionally
// filtered by a search term.
func (c *Client) Discover(ctx context.Context, seedURL, filterQuery string, limit int) ([]Link, error) {
	var resp mapResponse
	err := c.post(ctx, mapEndpoint, mapRequest{URL: seedURL, Search: filterQuery, Limit: limit}, &resp)
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("map failed: %s", resp.Error)
	}
	return resp.Links, nil
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

type searchResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    struct {
		Web []Link `json:"web"`
	} `json:"data"`
}

// Search runs a web search and returns the result pages as candidate links.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Link, error) {
	var resp searchResponse
	if err := c.post(ctx, searchEndpoint, searchRequest{Query: query, Limit: limit}, &resp); err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, fmt.Errorf("search failed: %s", resp.Error)
	}
	return resp.Data.Web, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(snippet))}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// parseTimestamp handles the loosely formatted dates structured extraction
// returns. Unparseable values are dropped rather than failing the fetch.
func parseTimestamp(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		time.RFC1123,
		time.RFC1123Z,
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}
