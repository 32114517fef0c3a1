package ai

import (
	"context"

	"medteam/internal/adapters/config"
	"medteam/pkg/errors"
)

// NewChatProvider builds the provider selected in cfg, wrapped with the
// configured rate limit. The API key comes from cfg only.
func NewChatProvider(ctx context.Context, cfg config.AIConfig) (ChatProvider, error) {
	name := ProviderName(cfg.ProviderName())

	var (
		provider ChatProvider
		err      error
	)
	switch name {
	case ProviderNameTogether:
		provider, err = NewOpenAICompatibleProvider(name, cfg.APIKey(), baseURLOr(cfg.BaseURL, TogetherBaseURL), cfg.Timeout)
	case ProviderNameOpenAI:
		provider, err = NewOpenAICompatibleProvider(name, cfg.APIKey(), baseURLOr(cfg.BaseURL, OpenAIBaseURL), cfg.Timeout)
	case ProviderNameGemini:
		provider, err = NewGeminiProvider(ctx, cfg.APIKey(), cfg.BaseURL, cfg.Timeout)
	default:
		return nil, errors.Wrapf(errors.ErrInvalidInput, "unsupported AI provider %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	return WithRateLimit(provider, RateLimitConfig{
		ReqPerMinute: cfg.RateLimitPerMinute,
		Burst:        cfg.RateLimitBurst,
	}), nil
}

func baseURLOr(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}
