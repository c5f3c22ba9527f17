// Package gemini wraps google.golang.org/genai for search-grounded text
// generation.
package gemini

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
	"google.golang.org/genai"
)

const defaultModel = "gemini-2.5-flash"

// Client generates grounded text.
type Client interface {
	Generate(ctx context.Context, req Request) (*Response, error)
}

// Request is a single grounded generation call.
type Request struct {
	Model     string
	Prompt    string
	MaxTokens int32
	// Search enables the GoogleSearch tool.
	Search bool
}

// Response carries the aggregated text and grounding sources.
type Response struct {
	Text         string
	Sources      []string
	InputTokens  int
	OutputTokens int
}

// APIError reports a non-2xx status from the Gemini API.
type APIError struct {
	StatusCode int
	Err        error
}

func (e *APIError) Error() string {
	return e.Err.Error()
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// Config configures the client.
type Config struct {
	APIKey string
	Model  string

	// BaseURL overrides the Gemini API base URL. Useful for proxies/testing.
	BaseURL string
}

type genaiClient struct {
	client *genai.Client
	model  string
}

// NewClient creates a Gemini client.
func NewClient(ctx context.Context, cfg Config) (Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, eris.New("gemini: api key is required")
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}

	cc := &genai.ClientConfig{
		APIKey:  strings.TrimSpace(cfg.APIKey),
		Backend: genai.BackendGeminiAPI,
	}
	if strings.TrimSpace(cfg.BaseURL) != "" {
		cc.HTTPOptions.BaseURL = strings.TrimSpace(cfg.BaseURL)
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, eris.Wrap(err, "gemini: new client")
	}
	return &genaiClient{client: client, model: model}, nil
}

func (c *genaiClient) Generate(ctx context.Context, req Request) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	gcfg := &genai.GenerateContentConfig{
		CandidateCount: 1,
	}
	if req.MaxTokens > 0 {
		gcfg.MaxOutputTokens = req.MaxTokens
	}
	if req.Search {
		gcfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}

	resp, err := c.client.Models.GenerateContent(ctx, model, genai.Text(req.Prompt), gcfg)
	if err != nil {
		var apiErr genai.APIError
		if eris.As(err, &apiErr) {
			return nil, &APIError{StatusCode: apiErr.Code, Err: eris.Wrap(err, "gemini: generate content")}
		}
		return nil, eris.Wrap(err, "gemini: generate content")
	}

	out := &Response{
		Text:    resp.Text(),
		Sources: extractSources(resp),
	}
	if resp.UsageMetadata != nil {
		out.InputTokens = int(resp.UsageMetadata.PromptTokenCount)
		out.OutputTokens = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return out, nil
}

func extractSources(resp *genai.GenerateContentResponse) []string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return nil
	}
	gm := resp.Candidates[0].GroundingMetadata
	if gm == nil {
		return nil
	}

	seen := make(map[string]struct{}, len(gm.GroundingChunks))
	var out []string
	for _, chunk := range gm.GroundingChunks {
		if chunk == nil || chunk.Web == nil {
			continue
		}
		uri := strings.TrimSpace(chunk.Web.URI)
		if uri == "" {
			continue
		}
		if _, ok := seen[uri]; ok {
			continue
		}
		seen[uri] = struct{}{}
		out = append(out, uri)
	}
	return out
}
