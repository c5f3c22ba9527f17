// Package perplexity calls Perplexity's search-grounded chat completions API
// with a single user prompt.
package perplexity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
)

const (
	defaultBaseURL = "https://api.perplexity.ai"
	defaultModel   = "sonar-pro"

	// errorSnippet caps how much of a failed response body is kept.
	errorSnippet = 2048
)

// Client asks Perplexity a single question.
type Client interface {
	Ask(ctx context.Context, req AskRequest) (*Answer, error)
}

// AskRequest is sent as one user message.
type AskRequest struct {
	Model     string
	Prompt    string
	MaxTokens int
	// Domains limits web search to the listed domains. Empty means the whole web.
	Domains []string
}

// Answer holds one text per returned choice, in order.
type Answer struct {
	ID        string
	Texts     []string
	Citations []string
	Usage     Usage
}

// Usage reports token consumption.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

// StatusError reports a non-200 response. Body is truncated and kept for
// logging only.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("perplexity: unexpected status %d: %s", e.StatusCode, e.Body)
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model              string        `json:"model"`
	Messages           []chatMessage `json:"messages"`
	MaxTokens          int           `json:"max_tokens,omitempty"`
	SearchDomainFilter []string      `json:"search_domain_filter,omitempty"`
}

type chatResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Citations []string `json:"citations"`
	Usage     Usage    `json:"usage"`
}

// Option configures the client.
type Option func(*client)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *client) {
		c.baseURL = url
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(c *client) {
		c.model = model
	}
}

type client struct {
	apiKey  string
	baseURL string
	model   string
	http    *http.Client
}

// NewClient creates a Perplexity client. Request deadlines come from the
// caller's context.
func NewClient(apiKey string, opts ...Option) Client {
	c := &client{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		http:    &http.Client{},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *client) Ask(ctx context.Context, req AskRequest) (*Answer, error) {
	body := chatRequest{
		Model:              req.Model,
		Messages:           []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:          req.MaxTokens,
		SearchDomainFilter: req.Domains,
	}
	if body.Model == "" {
		body.Model = c.model
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: marshal request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: create request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, eris.Wrap(err, "perplexity: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, errorSnippet))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(snippet)}
	}

	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, eris.Wrap(err, "perplexity: decode response")
	}

	ans := &Answer{ID: cr.ID, Citations: cr.Citations, Usage: cr.Usage}
	for _, ch := range cr.Choices {
		ans.Texts = append(ans.Texts, ch.Message.Content)
	}
	return ans, nil
}
