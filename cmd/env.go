package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/opportunity-research/internal/config"
	"github.com/sells-group/opportunity-research/internal/pipeline"
	"github.com/sells-group/opportunity-research/internal/reasoning"
	"github.com/sells-group/opportunity-research/internal/sink"
	anthropicpkg "github.com/sells-group/opportunity-research/pkg/anthropic"
	"github.com/sells-group/opportunity-research/pkg/gemini"
	"github.com/sells-group/opportunity-research/pkg/openai"
	"github.com/sells-group/opportunity-research/pkg/perplexity"
)

// appEnv holds the initialized pipeline and sink shared by serve and lookup.
type appEnv struct {
	Pipeline   *pipeline.Pipeline
	Sink       sink.Sink
	Dispatcher *sink.Dispatcher
}

// Close releases the sink.
func (e *appEnv) Close() {
	if e.Sink != nil {
		if err := e.Sink.Close(); err != nil {
			zap.L().Warn("close sink", zap.Error(err))
		}
	}
}

// initEnv validates cfg for mode, then builds the provider, adapter,
// pipeline and sinks. Callers should defer env.Close().
func initEnv(ctx context.Context, c *config.Config, mode string) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	provider, err := newProvider(ctx, c)
	if err != nil {
		return nil, err
	}
	adapter := newAdapter(provider, c.Reasoning)

	s, err := sink.New(ctx, c.Sink)
	if err != nil {
		return nil, err
	}
	if err := sink.Migrate(ctx, s); err != nil {
		_ = s.Close()
		return nil, eris.Wrap(err, "migrate sinks")
	}

	zap.L().Info("environment ready",
		zap.String("provider", adapter.Provider()),
		zap.String("sink", s.Name()),
	)

	return &appEnv{
		Pipeline:   pipeline.New(adapter, c.Pipeline),
		Sink:       s,
		Dispatcher: sink.NewDispatcher(s, sink.Timeout(c.Sink)),
	}, nil
}

func newAdapter(p reasoning.Provider, rc config.ReasoningConfig) *reasoning.Adapter {
	opts := []reasoning.Option{reasoning.WithMaxTokens(rc.MaxTokens)}
	if rc.RequestsPerSecond > 0 {
		opts = append(opts, reasoning.WithRateLimit(rc.RequestsPerSecond))
	}
	if b := reasoning.NewBreaker(p.Name(), rc.BreakerThreshold, time.Duration(rc.BreakerResetSecs)*time.Second); b != nil {
		opts = append(opts, reasoning.WithBreaker(b))
	}
	return reasoning.NewAdapter(p, opts...)
}

// newProvider builds the bridge for c.Reasoning.Provider.
func newProvider(ctx context.Context, c *config.Config) (reasoning.Provider, error) {
	switch c.Reasoning.Provider {
	case reasoning.ProviderAnthropic:
		var opts []anthropicpkg.Option
		if c.Anthropic.BaseURL != "" {
			opts = append(opts, anthropicpkg.WithBaseURL(c.Anthropic.BaseURL))
		}
		return reasoning.NewAnthropicProvider(anthropicpkg.NewClient(c.Anthropic.Key, opts...), c.Anthropic.Model), nil

	case reasoning.ProviderOpenAI:
		opts := []openai.Option{openai.WithModel(c.OpenAI.Model)}
		if c.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(c.OpenAI.BaseURL))
		}
		return reasoning.NewOpenAIProvider(openai.NewClient(c.OpenAI.Key, opts...)), nil

	case reasoning.ProviderGemini:
		client, err := gemini.NewClient(ctx, gemini.Config{
			APIKey:  c.Gemini.Key,
			Model:   c.Gemini.Model,
			BaseURL: c.Gemini.BaseURL,
		})
		if err != nil {
			return nil, eris.Wrap(err, "init gemini")
		}
		return reasoning.NewGeminiProvider(client), nil

	case reasoning.ProviderPerplexity:
		opts := []perplexity.Option{perplexity.WithModel(c.Perplexity.Model)}
		if c.Perplexity.BaseURL != "" {
			opts = append(opts, perplexity.WithBaseURL(c.Perplexity.BaseURL))
		}
		return reasoning.NewPerplexityProvider(perplexity.NewClient(c.Perplexity.Key, opts...)), nil

	default:
		return nil, eris.Errorf("unsupported reasoning provider %q", c.Reasoning.Provider)
	}
}
