package llm

import (
	"context"
	"fmt"

	"github.com/abhisek/adaptest/internal/logger"
)

// New builds the configured provider wrapped as
// caller → timeout → retry → recording → provider. It returns nil when no
// provider is configured. rec may be nil to skip recording.
func New(ctx context.Context, cfg Config, rec Recorder, log *logger.Logger) (Provider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case "":
		return nil, nil
	case "mock":
		base = NewMockProvider()
	case "anthropic":
		base, err = newAnthropic(cfg.Anthropic)
	case "openai":
		base, err = newOpenAI(cfg.OpenAI)
	case "openrouter":
		or := cfg.OpenRouter
		if or.BaseURL == "" {
			or.BaseURL = openRouterBaseURL
		}
		base, err = newOpenAI(or)
	case "gemini":
		base, err = newGemini(ctx, cfg.Gemini)
	}
	if err != nil {
		return nil, fmt.Errorf("init %s provider: %w", cfg.Provider, err)
	}

	if rec != nil {
		base = WithRecording(base, cfg.Provider, rec, log)
	}
	return WithTimeout(WithRetry(base, cfg.Retry), cfg.Timeout), nil
}
