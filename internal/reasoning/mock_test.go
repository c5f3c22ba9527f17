package reasoning

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/opportunity-research/internal/model"
	"github.com/sells-group/opportunity-research/pkg/anthropic"
	"github.com/sells-group/opportunity-research/pkg/gemini"
	"github.com/sells-group/opportunity-research/pkg/openai"
	"github.com/sells-group/opportunity-research/pkg/perplexity"
)

// --- Provider Mock ---

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Name() string {
	return "mock"
}

func (m *mockProvider) Generate(ctx context.Context, req Request) (Response, model.TokenUsage, error) {
	args := m.Called(ctx, req)
	var resp Response
	if args.Get(0) != nil {
		resp = args.Get(0).(Response)
	}
	return resp, args.Get(1).(model.TokenUsage), args.Error(2)
}

// --- Anthropic Mock ---

type mockAnthropicClient struct {
	mock.Mock
}

func (m *mockAnthropicClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*anthropic.MessageResponse), args.Error(1)
}

// --- OpenAI Mock ---

type mockOpenAIClient struct {
	mock.Mock
}

func (m *mockOpenAIClient) CreateResponse(ctx context.Context, req openai.ResponseRequest) (*openai.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*openai.Response), args.Error(1)
}

// --- Gemini Mock ---

type mockGeminiClient struct {
	mock.Mock
}

func (m *mockGeminiClient) Generate(ctx context.Context, req gemini.Request) (*gemini.Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gemini.Response), args.Error(1)
}

// --- Perplexity Mock ---

type mockPerplexityClient struct {
	mock.Mock
}

func (m *mockPerplexityClient) Ask(ctx context.Context, req perplexity.AskRequest) (*perplexity.Answer, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*perplexity.Answer), args.Error(1)
}
