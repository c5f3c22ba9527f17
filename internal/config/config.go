package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Reasoning  ReasoningConfig  `yaml:"reasoning" mapstructure:"reasoning"`
	Anthropic  AnthropicConfig  `yaml:"anthropic" mapstructure:"anthropic"`
	OpenAI     OpenAIConfig     `yaml:"openai" mapstructure:"openai"`
	Gemini     GeminiConfig     `yaml:"gemini" mapstructure:"gemini"`
	Perplexity PerplexityConfig `yaml:"perplexity" mapstructure:"perplexity"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit" mapstructure:"ratelimit"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Sink       SinkConfig       `yaml:"sink" mapstructure:"sink"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ReasoningConfig selects the upstream reasoning provider and bounds calls to it.
type ReasoningConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	MaxTokens         int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BreakerThreshold  int     `yaml:"breaker_threshold" mapstructure:"breaker_threshold"`
	BreakerResetSecs  int     `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// OpenAIConfig holds OpenAI Responses API settings.
type OpenAIConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// GeminiConfig holds Gemini API settings.
type GeminiConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// PerplexityConfig holds Perplexity API settings.
type PerplexityConfig struct {
	Key     string `yaml:"key" mapstructure:"key"`
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
	Model   string `yaml:"model" mapstructure:"model"`
}

// PipelineConfig configures the verification and research phases.
type PipelineConfig struct {
	IdentityDomain      string `yaml:"identity_domain" mapstructure:"identity_domain"`
	VerifyTimeoutSecs   int    `yaml:"verify_timeout_secs" mapstructure:"verify_timeout_secs"`
	ResearchTimeoutSecs int    `yaml:"research_timeout_secs" mapstructure:"research_timeout_secs"`
	VerifyMaxSearches   int    `yaml:"verify_max_searches" mapstructure:"verify_max_searches"`
	ResearchMaxSearches int    `yaml:"research_max_searches" mapstructure:"research_max_searches"`
}

// RateLimitConfig configures the per-client fixed-window limiter.
type RateLimitConfig struct {
	Requests   int `yaml:"requests" mapstructure:"requests"`
	WindowSecs int `yaml:"window_secs" mapstructure:"window_secs"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Port             int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins   []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	TrustProxy       bool     `yaml:"trust_proxy" mapstructure:"trust_proxy"`
	MaxBodyBytes     int64    `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	ReadTimeoutSecs  int      `yaml:"read_timeout_secs" mapstructure:"read_timeout_secs"`
	WriteTimeoutSecs int      `yaml:"write_timeout_secs" mapstructure:"write_timeout_secs"`
}

// SinkConfig configures where lookup log entries are appended.
type SinkConfig struct {
	Drivers     []string         `yaml:"drivers" mapstructure:"drivers"`
	TimeoutSecs int              `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	SQLitePath  string           `yaml:"sqlite_path" mapstructure:"sqlite_path"`
	PostgresURL string           `yaml:"postgres_url" mapstructure:"postgres_url"`
	XLSXPath    string           `yaml:"xlsx_path" mapstructure:"xlsx_path"`
	Notion      NotionConfig     `yaml:"notion" mapstructure:"notion"`
	Salesforce  SalesforceConfig `yaml:"salesforce" mapstructure:"salesforce"`
}

// NotionConfig holds Notion API credentials and the lookup log database.
type NotionConfig struct {
	Token      string `yaml:"token" mapstructure:"token"`
	DatabaseID string `yaml:"database_id" mapstructure:"database_id"`
}

// SalesforceConfig holds Salesforce JWT auth settings.
type SalesforceConfig struct {
	ClientID string `yaml:"client_id" mapstructure:"client_id"`
	Username string `yaml:"username" mapstructure:"username"`
	KeyPath  string `yaml:"key_path" mapstructure:"key_path"`
	LoginURL string `yaml:"login_url" mapstructure:"login_url"`
	SObject  string `yaml:"sobject" mapstructure:"sobject"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RESEARCH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("reasoning.provider", "anthropic")
	v.SetDefault("reasoning.max_tokens", 4096)
	v.SetDefault("reasoning.requests_per_second", 2.0)
	v.SetDefault("reasoning.breaker_threshold", 5)
	v.SetDefault("reasoning.breaker_reset_secs", 30)
	v.SetDefault("anthropic.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.model", "gpt-4.1")
	v.SetDefault("gemini.model", "gemini-2.5-flash")
	v.SetDefault("perplexity.base_url", "https://api.perplexity.ai")
	v.SetDefault("perplexity.model", "sonar-pro")
	v.SetDefault("pipeline.identity_domain", "linkedin.com")
	v.SetDefault("pipeline.verify_timeout_secs", 60)
	v.SetDefault("pipeline.research_timeout_secs", 120)
	v.SetDefault("pipeline.verify_max_searches", 5)
	v.SetDefault("pipeline.research_max_searches", 10)
	v.SetDefault("ratelimit.requests", 10)
	v.SetDefault("ratelimit.window_secs", 60)
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_body_bytes", 16<<10)
	v.SetDefault("server.read_timeout_secs", 15)
	v.SetDefault("server.write_timeout_secs", 200)
	v.SetDefault("sink.drivers", []string{"sqlite"})
	v.SetDefault("sink.timeout_secs", 30)
	v.SetDefault("sink.sqlite_path", "lookups.db")
	v.SetDefault("sink.xlsx_path", "lookups.xlsx")
	v.SetDefault("sink.salesforce.login_url", "https://login.salesforce.com")
	v.SetDefault("sink.salesforce.sobject", "Lead")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks the settings required by mode ("serve", "lookup" or
// "migrate"). All problems are reported together.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "serve", "lookup":
		errs = append(errs, c.validateReasoning()...)
		errs = append(errs, c.validateSinks()...)
		if mode == "serve" {
			if c.Server.Port <= 0 {
				errs = append(errs, "server.port must be > 0")
			}
			if c.RateLimit.Requests <= 0 || c.RateLimit.WindowSecs <= 0 {
				errs = append(errs, "ratelimit.requests and ratelimit.window_secs must be > 0")
			}
			if c.Server.MaxBodyBytes <= 0 {
				errs = append(errs, "server.max_body_bytes must be > 0")
			}
		}
	case "migrate":
		errs = append(errs, c.validateSinks()...)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(errs) > 0 {
		return eris.Errorf("config: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateReasoning() []string {
	var errs []string

	key := ""
	switch c.Reasoning.Provider {
	case "anthropic":
		key = c.Anthropic.Key
	case "openai":
		key = c.OpenAI.Key
	case "gemini":
		key = c.Gemini.Key
	case "perplexity":
		key = c.Perplexity.Key
	default:
		return []string{fmt.Sprintf("reasoning.provider %q is not supported", c.Reasoning.Provider)}
	}
	if key == "" {
		errs = append(errs, fmt.Sprintf("%s.key is required", c.Reasoning.Provider))
	}

	if c.Pipeline.VerifyTimeoutSecs <= 0 || c.Pipeline.ResearchTimeoutSecs <= 0 {
		errs = append(errs, "pipeline timeouts must be > 0")
	}
	if strings.TrimSpace(c.Pipeline.IdentityDomain) == "" {
		errs = append(errs, "pipeline.identity_domain is required")
	}
	return errs
}

func (c *Config) validateSinks() []string {
	var errs []string
	for _, d := range c.Sink.Drivers {
		switch d {
		case "sqlite":
			if c.Sink.SQLitePath == "" {
				errs = append(errs, "sink.sqlite_path is required")
			}
		case "postgres":
			if c.Sink.PostgresURL == "" {
				errs = append(errs, "sink.postgres_url is required")
			}
		case "xlsx":
			if c.Sink.XLSXPath == "" {
				errs = append(errs, "sink.xlsx_path is required")
			}
		case "notion":
			if c.Sink.Notion.Token == "" || c.Sink.Notion.DatabaseID == "" {
				errs = append(errs, "sink.notion.token and sink.notion.database_id are required")
			}
		case "salesforce":
			sf := c.Sink.Salesforce
			if sf.ClientID == "" || sf.Username == "" || sf.KeyPath == "" {
				errs = append(errs, "sink.salesforce.client_id, username and key_path are required")
			}
		default:
			errs = append(errs, fmt.Sprintf("sink driver %q is not supported", d))
		}
	}
	return errs
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
