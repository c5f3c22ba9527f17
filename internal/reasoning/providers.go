package reasoning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/sells-group/opportunity-research/internal/model"
	"github.com/sells-group/opportunity-research/pkg/anthropic"
	"github.com/sells-group/opportunity-research/pkg/gemini"
	"github.com/sells-group/opportunity-research/pkg/openai"
	"github.com/sells-group/opportunity-research/pkg/perplexity"
)

// Provider names accepted by the reasoning.provider setting.
const (
	ProviderAnthropic  = "anthropic"
	ProviderOpenAI     = "openai"
	ProviderGemini     = "gemini"
	ProviderPerplexity = "perplexity"
)

// AnthropicProvider calls the Messages API with the web_search server tool.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider wraps client.
func NewAnthropicProvider(client anthropic.Client, model string) *AnthropicProvider {
	return &AnthropicProvider{client: client, model: model}
}

// Name implements Provider.
func (p *AnthropicProvider) Name() string { return ProviderAnthropic }

// Generate implements Provider.
func (p *AnthropicProvider) Generate(ctx context.Context, req Request) (Response, model.TokenUsage, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     p.model,
		MaxTokens: int64(req.MaxTokens),
		Prompt:    req.Instruction,
		WebSearch: &anthropic.WebSearch{
			AllowedDomains: req.Tool.AllowedDomains,
			MaxUses:        int64(req.Tool.MaxUses),
		},
	})
	if err != nil {
		var apiErr *anthropic.APIError
		if errors.As(err, &apiErr) {
			return nil, model.TokenUsage{}, &ServiceError{Provider: p.Name(), StatusCode: apiErr.StatusCode, Err: err}
		}
		return nil, model.TokenUsage{}, err
	}

	resp.Usage.LogCost(p.model, req.Label)
	switch resp.StopReason {
	case "max_tokens", "pause_turn":
		zap.L().Warn("anthropic response cut short",
			zap.String("phase", req.Label),
			zap.String("stop_reason", resp.StopReason),
		)
	}

	blocks := make([]ContentPart, 0, len(resp.Content))
	for _, b := range resp.Content {
		blocks = append(blocks, ContentPart{Type: b.Type, Text: b.Text})
	}
	usage := model.TokenUsage{
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}
	return ContentBlocks{Blocks: blocks}, usage, nil
}

// OpenAIProvider calls the Responses API with the web_search tool.
type OpenAIProvider struct {
	client openai.Client
}

// NewOpenAIProvider wraps client.
func NewOpenAIProvider(client openai.Client) *OpenAIProvider {
	return &OpenAIProvider{client: client}
}

// Name implements Provider.
func (p *OpenAIProvider) Name() string { return ProviderOpenAI }

// Generate implements Provider.
func (p *OpenAIProvider) Generate(ctx context.Context, req Request) (Response, model.TokenUsage, error) {
	resp, err := p.client.CreateResponse(ctx, openai.ResponseRequest{
		Input:           req.Instruction,
		Tools:           []openai.Tool{openai.WebSearchTool(req.Tool.AllowedDomains...)},
		MaxOutputTokens: req.MaxTokens,
	})
	if err != nil {
		var se *openai.StatusError
		if errors.As(err, &se) {
			return nil, model.TokenUsage{}, &ServiceError{Provider: p.Name(), StatusCode: se.StatusCode, Err: err}
		}
		return nil, model.TokenUsage{}, err
	}

	usage := model.TokenUsage{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}
	if resp.OutputText != "" {
		return OutputText{Text: resp.OutputText}, usage, nil
	}

	items := make([]OutputItem, 0, len(resp.Output))
	for _, it := range resp.Output {
		parts := make([]ContentPart, 0, len(it.Content))
		for _, c := range it.Content {
			parts = append(parts, ContentPart{Type: c.Type, Text: c.Text})
		}
		items = append(items, OutputItem{Type: it.Type, Content: parts})
	}
	return OutputItems{Items: items}, usage, nil
}

// GeminiProvider calls generateContent with Google Search grounding. The
// search tool has no allow-list, so restriction is written into the prompt as
// a site: operator.
type GeminiProvider struct {
	client gemini.Client
}

// NewGeminiProvider wraps client.
func NewGeminiProvider(client gemini.Client) *GeminiProvider {
	return &GeminiProvider{client: client}
}

// Name implements Provider.
func (p *GeminiProvider) Name() string { return ProviderGemini }

// Generate implements Provider.
func (p *GeminiProvider) Generate(ctx context.Context, req Request) (Response, model.TokenUsage, error) {
	prompt := req.Instruction
	if req.Tool.Restricted() {
		prompt += siteDirective(req.Tool.AllowedDomains)
	}

	resp, err := p.client.Generate(ctx, gemini.Request{
		Prompt:    prompt,
		MaxTokens: int32(req.MaxTokens), //nolint:gosec // bounded by config
		Search:    true,
	})
	if err != nil {
		var apiErr *gemini.APIError
		if errors.As(err, &apiErr) {
			return nil, model.TokenUsage{}, &ServiceError{Provider: p.Name(), StatusCode: apiErr.StatusCode, Err: err}
		}
		return nil, model.TokenUsage{}, err
	}

	usage := model.TokenUsage{InputTokens: resp.InputTokens, OutputTokens: resp.OutputTokens}
	return OutputText{Text: resp.Text}, usage, nil
}

func siteDirective(domains []string) string {
	ops := make([]string, len(domains))
	for i, d := range domains {
		ops[i] = "site:" + d
	}
	return fmt.Sprintf("\n\nEvery web search you run MUST include the operator %s. Ignore results from any other site.",
		strings.Join(ops, " OR "))
}

// PerplexityProvider calls chat completions, which search the web on every
// request.
type PerplexityProvider struct {
	client perplexity.Client
}

// NewPerplexityProvider wraps client.
func NewPerplexityProvider(client perplexity.Client) *PerplexityProvider {
	return &PerplexityProvider{client: client}
}

// Name implements Provider.
func (p *PerplexityProvider) Name() string { return ProviderPerplexity }

// Generate implements Provider.
func (p *PerplexityProvider) Generate(ctx context.Context, req Request) (Response, model.TokenUsage, error) {
	ans, err := p.client.Ask(ctx, perplexity.AskRequest{
		Prompt:    req.Instruction,
		MaxTokens: req.MaxTokens,
		Domains:   req.Tool.AllowedDomains,
	})
	if err != nil {
		var se *perplexity.StatusError
		if errors.As(err, &se) {
			return nil, model.TokenUsage{}, &ServiceError{Provider: p.Name(), StatusCode: se.StatusCode, Err: err}
		}
		return nil, model.TokenUsage{}, err
	}

	usage := model.TokenUsage{InputTokens: ans.Usage.PromptTokens, OutputTokens: ans.Usage.CompletionTokens}
	return Choices{Messages: ans.Texts}, usage, nil
}
