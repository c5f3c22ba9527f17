package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-research/internal/config"
	"github.com/sells-group/opportunity-research/internal/reasoning"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Reasoning:  config.ReasoningConfig{Provider: "anthropic", MaxTokens: 4096, BreakerThreshold: 5, BreakerResetSecs: 30},
		Anthropic:  config.AnthropicConfig{Key: "sk-ant-test", Model: "claude-sonnet-4-5-20250929"},
		OpenAI:     config.OpenAIConfig{Key: "sk-test", Model: "gpt-4.1"},
		Gemini:     config.GeminiConfig{Key: "gm-test", Model: "gemini-2.5-flash"},
		Perplexity: config.PerplexityConfig{Key: "pplx-test", Model: "sonar-pro"},
		Pipeline: config.PipelineConfig{
			IdentityDomain:      "linkedin.com",
			VerifyTimeoutSecs:   60,
			ResearchTimeoutSecs: 120,
		},
		Sink: config.SinkConfig{
			Drivers:    []string{"sqlite"},
			SQLitePath: filepath.Join(t.TempDir(), "lookups.db"),
		},
	}
}

func TestNewProvider(t *testing.T) {
	for _, name := range []string{
		reasoning.ProviderAnthropic,
		reasoning.ProviderOpenAI,
		reasoning.ProviderGemini,
		reasoning.ProviderPerplexity,
	} {
		t.Run(name, func(t *testing.T) {
			c := testConfig(t)
			c.Reasoning.Provider = name

			p, err := newProvider(context.Background(), c)
			require.NoError(t, err)
			assert.Equal(t, name, p.Name())
		})
	}
}

func TestNewProvider_Unsupported(t *testing.T) {
	c := testConfig(t)
	c.Reasoning.Provider = "llama"

	_, err := newProvider(context.Background(), c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unsupported reasoning provider "llama"`)
}

func TestInitEnv(t *testing.T) {
	env, err := initEnv(context.Background(), testConfig(t), "lookup")
	require.NoError(t, err)
	defer env.Close()

	assert.NotNil(t, env.Pipeline)
	assert.NotNil(t, env.Dispatcher)
	assert.Equal(t, "sqlite", env.Sink.Name())
}

func TestInitEnv_InvalidConfig(t *testing.T) {
	c := testConfig(t)
	c.Anthropic.Key = ""

	_, err := initEnv(context.Background(), c, "lookup")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")
}

func TestNewAdapter_DisabledBreaker(t *testing.T) {
	c := testConfig(t)
	p, err := newProvider(context.Background(), c)
	require.NoError(t, err)

	a := newAdapter(p, config.ReasoningConfig{})
	assert.Equal(t, reasoning.ProviderAnthropic, a.Provider())
}
