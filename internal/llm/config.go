package llm

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config selects and configures a provider. Environment variables use the
// ADAPTEST_ prefix, e.g. ADAPTEST_LLM_PROVIDER and ADAPTEST_OPENAI_API_KEY.
type Config struct {
	// Provider is one of anthropic, openai, gemini, openrouter, mock or
	// empty for none.
	Provider string `yaml:"provider" env:"LLM_PROVIDER"`

	Anthropic  AnthropicConfig `yaml:"anthropic" envPrefix:"ANTHROPIC_"`
	OpenAI     OpenAIConfig    `yaml:"openai" envPrefix:"OPENAI_"`
	Gemini     GeminiConfig    `yaml:"gemini" envPrefix:"GEMINI_"`
	OpenRouter OpenAIConfig    `yaml:"openrouter" envPrefix:"OPENROUTER_"`
	Retry      RetryConfig     `yaml:"retry" envPrefix:"LLM_RETRY_"`

	// Timeout bounds one Generate call including retries.
	Timeout time.Duration `yaml:"timeout" env:"LLM_TIMEOUT"`
}

type AnthropicConfig struct {
	APIKey string `yaml:"-" env:"API_KEY"`
	Model  string `yaml:"model" env:"MODEL"`
}

type OpenAIConfig struct {
	APIKey  string `yaml:"-" env:"API_KEY"`
	Model   string `yaml:"model" env:"MODEL"`
	BaseURL string `yaml:"base_url" env:"BASE_URL"`
}

type GeminiConfig struct {
	APIKey string `yaml:"-" env:"API_KEY"`
	Model  string `yaml:"model" env:"MODEL"`
}

// RetryConfig controls backoff for transient provider errors.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts" env:"MAX_ATTEMPTS"`
	InitialWait time.Duration `yaml:"initial_wait" env:"INITIAL_WAIT"`
	MaxWait     time.Duration `yaml:"max_wait" env:"MAX_WAIT"`
	Multiplier  float64       `yaml:"multiplier" env:"MULTIPLIER"`
}

// DefaultConfig has no provider selected; grading then falls back to
// answer keys only.
func DefaultConfig() Config {
	return Config{
		Anthropic:  AnthropicConfig{Model: "claude-haiku"},
		OpenAI:     OpenAIConfig{Model: "gpt-4o-mini"},
		Gemini:     GeminiConfig{Model: "gemini-flash"},
		OpenRouter: OpenAIConfig{Model: "google/gemini-2.0-flash-001", BaseURL: openRouterBaseURL},
		Retry: RetryConfig{
			MaxAttempts: 3,
			InitialWait: time.Second,
			MaxWait:     10 * time.Second,
			Multiplier:  2,
		},
		Timeout: 30 * time.Second,
	}
}

// ConfigFromEnv overlays ADAPTEST_* environment variables on the defaults.
func ConfigFromEnv() (Config, error) {
	cfg := DefaultConfig()
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: "ADAPTEST_"}); err != nil {
		return Config{}, fmt.Errorf("parse llm env: %w", err)
	}
	return cfg, nil
}

// Discover fills in a provider from the vendors' standard key variables
// when none is configured. It reports whether a provider is now set.
func (c *Config) Discover(getenv func(string) string) bool {
	if c.Provider != "" {
		return true
	}
	switch {
	case getenv("ANTHROPIC_API_KEY") != "":
		c.Provider, c.Anthropic.APIKey = "anthropic", getenv("ANTHROPIC_API_KEY")
	case getenv("OPENAI_API_KEY") != "":
		c.Provider, c.OpenAI.APIKey = "openai", getenv("OPENAI_API_KEY")
	case getenv("GEMINI_API_KEY") != "":
		c.Provider, c.Gemini.APIKey = "gemini", getenv("GEMINI_API_KEY")
	case getenv("OPENROUTER_API_KEY") != "":
		c.Provider, c.OpenRouter.APIKey = "openrouter", getenv("OPENROUTER_API_KEY")
	default:
		return false
	}
	return true
}

// Validate checks that the selected provider has its API key.
func (c Config) Validate() error {
	var key string
	switch c.Provider {
	case "", "mock":
		return nil
	case "anthropic":
		key = c.Anthropic.APIKey
	case "openai":
		key = c.OpenAI.APIKey
	case "gemini":
		key = c.Gemini.APIKey
	case "openrouter":
		key = c.OpenRouter.APIKey
	default:
		return fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
	if key == "" {
		return fmt.Errorf("ADAPTEST_%s_API_KEY is required for the %s provider", strings.ToUpper(c.Provider), c.Provider)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("llm retry max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}
