// Package openai wraps the OpenAI Responses API with the hosted web_search
// tool enabled.
package openai

import (
	"context"
	"fmt"

	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"github.com/rotisserie/eris"
)

const defaultModel = "gpt-4.1"

// Client creates model responses.
type Client interface {
	CreateResponse(ctx context.Context, req ResponseRequest) (*Response, error)
}

// ResponseRequest is our own request type for CreateResponse.
type ResponseRequest struct {
	Model           string
	Input           string
	Tools           []Tool
	MaxOutputTokens int
}

// Tool is a hosted tool definition.
type Tool struct {
	Type    string
	Filters *ToolFilters
}

// ToolFilters restricts web_search results.
type ToolFilters struct {
	AllowedDomains []string
}

// WebSearchTool returns a web_search tool, restricted to domains when any are
// given.
func WebSearchTool(domains ...string) Tool {
	t := Tool{Type: string(responses.WebSearchToolTypeWebSearch)}
	if len(domains) > 0 {
		t.Filters = &ToolFilters{AllowedDomains: domains}
	}
	return t
}

// Response is our own response type from CreateResponse.
type Response struct {
	ID     string
	Status string
	Model  string
	Output []OutputItem
	Usage  Usage

	// OutputText aggregates every output_text block of every message item.
	OutputText string
}

// OutputItem is one element of Response.Output. Type is "message",
// "web_search_call", "reasoning", ...
type OutputItem struct {
	Type    string
	ID      string
	Status  string
	Content []ContentPart
}

// ContentPart is one block of a message item. Type is "output_text" or
// "refusal".
type ContentPart struct {
	Type    string
	Text    string
	Refusal string
}

// Usage reports token consumption.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// StatusError is returned when the API answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Err        error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("openai: unexpected status %d: %v", e.StatusCode, e.Err)
}

func (e *StatusError) Unwrap() error {
	return e.Err
}

// Option configures the client.
type Option func(*clientOptions)

type clientOptions struct {
	baseURL string
	model   string
}

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(o *clientOptions) {
		o.baseURL = url
	}
}

// WithModel overrides the default model.
func WithModel(model string) Option {
	return func(o *clientOptions) {
		o.model = model
	}
}

// sdkClient implements Client using the official openai-go SDK.
type sdkClient struct {
	client sdk.Client
	model  string
}

// NewClient creates a Responses API client. SDK-level retries are disabled;
// callers own the single-attempt policy.
func NewClient(apiKey string, opts ...Option) Client {
	o := clientOptions{model: defaultModel}
	for _, fn := range opts {
		fn(&o)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if o.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(o.baseURL))
	}

	return &sdkClient{client: sdk.NewClient(reqOpts...), model: o.model}
}

func (c *sdkClient) CreateResponse(ctx context.Context, req ResponseRequest) (*Response, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(model),
		Input: responses.ResponseNewParamsInputUnion{OfString: sdk.String(req.Input)},
		Tools: toSDKTools(req.Tools),
	}
	if req.MaxOutputTokens > 0 {
		params.MaxOutputTokens = sdk.Int(int64(req.MaxOutputTokens))
	}

	resp, err := c.client.Responses.New(ctx, params)
	if err != nil {
		var apiErr *sdk.Error
		if eris.As(err, &apiErr) {
			return nil, &StatusError{StatusCode: apiErr.StatusCode, Err: eris.Wrap(err, "openai: create response")}
		}
		return nil, eris.Wrap(err, "openai: create response")
	}

	return fromSDKResponse(resp), nil
}

// --- SDK type conversion helpers ---

func toSDKTools(tools []Tool) []responses.ToolUnionParam {
	if len(tools) == 0 {
		return nil
	}
	out := make([]responses.ToolUnionParam, 0, len(tools))
	for _, t := range tools {
		ws := &responses.WebSearchToolParam{Type: responses.WebSearchToolType(t.Type)}
		if t.Filters != nil {
			ws.Filters = responses.WebSearchToolFiltersParam{AllowedDomains: t.Filters.AllowedDomains}
		}
		out = append(out, responses.ToolUnionParam{OfWebSearch: ws})
	}
	return out
}

func fromSDKResponse(resp *responses.Response) *Response {
	items := make([]OutputItem, 0, len(resp.Output))
	for _, it := range resp.Output {
		item := OutputItem{Type: it.Type, ID: it.ID, Status: it.Status}
		if it.Type == "message" {
			msg := it.AsMessage()
			for _, c := range msg.Content {
				item.Content = append(item.Content, ContentPart{Type: c.Type, Text: c.Text, Refusal: c.Refusal})
			}
		}
		items = append(items, item)
	}

	return &Response{
		ID:         resp.ID,
		Status:     string(resp.Status),
		Model:      string(resp.Model),
		Output:     items,
		OutputText: resp.OutputText(),
		Usage: Usage{
			InputTokens:  int(resp.Usage.InputTokens),
			OutputTokens: int(resp.Usage.OutputTokens),
		},
	}
}
