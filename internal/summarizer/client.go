// Package summarizer generates summaries and tags from saved content via an
// OpenAI-compatible chat-completions API.
package summarizer

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	chatCompletionsEndpoint = "/chat/completions"

	defaultTimeout = 2 * time.Minute

	defaultSystemPrompt = `You are a helpful assistant that summarizes text content concisely, focusing on key points, informative summaries of web content, and clarity. Your summaries should:
- Be 2-3 paragraphs long
- Capture the main ideas and essential details
- Use clear and simple language`

	tagPromptFormat = "Generate 3-5 comma-separated tags for:\n\n%s"

	maxTags = 5
)

// ErrNoTags indicates the model's tag response contained nothing usable.
var ErrNoTags = errors.New("no tags in model response")

// Config holds the connection settings for the text-generation API.
type Config struct {
	BaseURL      string
	APIKey       string
	Model        string
	SystemPrompt string
	Timeout      time.Duration
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL      string
	apiKey       string
	model        string
	systemPrompt string
	httpClient   *http.Client
}

// NewClient builds a client from configuration.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	systemPrompt := strings.TrimSpace(cfg.SystemPrompt)
	if systemPrompt == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		model:        cfg.Model,
		systemPrompt: systemPrompt,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatStreamChunk struct {
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
}

// SummaryStream is a live sequence of summary text chunks. Consume Chunks
// until it closes, then check Err; Close abandons the stream early.
type SummaryStream struct {
	chunks chan string
	body   io.Closer
	err    error
}

// Chunks returns the text chunk channel. It is closed when generation
// completes or fails.
func (s *SummaryStream) Chunks() <-chan string {
	return s.chunks
}

// Err reports a mid-stream failure. Only valid after Chunks has closed.
func (s *SummaryStream) Err() error {
	return s.err
}

// Close releases the underlying response. Safe to call at any point.
func (s *SummaryStream) Close() error {
	return s.body.Close()
}

// StreamSummary starts a streamed summary generation for the given content.
func (c *Client) StreamSummary(ctx context.Context, content string) (*SummaryStream, error) {
	reqBody := chatRequest{
		Model:  c.model,
		Stream: true,
		Messages: []chatMessage{
			{Role: "system", Content: c.systemPrompt},
			{Role: "user", Content: "Please summarize the following content:\n\n" + content},
		},
	}

	resp, err := c.post(ctx, reqBody)
	if err != nil {
		return nil, err
	}

	stream := &SummaryStream{
		chunks: make(chan string),
		body:   resp.Body,
	}
	go stream.consume(ctx, resp.Body)
	return stream, nil
}

// consume reads server-sent "data:" lines off the response and forwards the
// delta text until the terminator arrives.
func (s *SummaryStream) consume(ctx context.Context, body io.ReadCloser) {
	defer close(s.chunks)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "[DONE]" {
			return
		}

		var chunk chatStreamChunk
		if err := json.Unmarshal([]byte(payload), &chunk); err != nil {
			s.err = fmt.Errorf("decode stream chunk: %w", err)
			return
		}
		if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
			continue
		}

		select {
		case s.chunks <- chunk.Choices[0].Delta.Content:
		case <-ctx.Done():
			s.err = ctx.Err()
			return
		}
	}
	if err := scanner.Err(); err != nil {
		s.err = fmt.Errorf("read stream: %w", err)
	}
}

// GenerateTags derives up to five short tags from a summary.
func (c *Client) GenerateTags(ctx context.Context, summary string) ([]string, error) {
	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: fmt.Sprintf(tagPromptFormat, summary)},
		},
	}

	resp, err := c.post(ctx, reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, ErrNoTags
	}

	tags := parseTags(parsed.Choices[0].Message.Content)
	if len(tags) == 0 {
		return nil, ErrNoTags
	}
	return tags, nil
}

func (c *Client) post(ctx context.Context, payload chatRequest) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+chatCompletionsEndpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		resp.Body.Close()
		return nil, fmt.Errorf("model API error %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}
	return resp, nil
}

// parseTags normalizes a comma-separated model response into at most five
// lower-cased, deduplicated tags.
func parseTags(raw string) []string {
	var tags []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		tag := strings.ToLower(strings.TrimSpace(part))
		tag = strings.Trim(tag, `"'.`)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
		if len(tags) == maxTags {
			break
		}
	}
	return tags
}
