package ai

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"medteam/pkg/errors"
)

// RateLimitConfig contains client-side rate limit settings for a provider.
type RateLimitConfig struct {
	ReqPerMinute float64
	Burst        int
}

// Enabled reports whether the config describes an actual limit.
func (c RateLimitConfig) Enabled() bool {
	return c.ReqPerMinute > 0
}

// RateLimitedProvider throttles calls to an underlying provider with a token bucket.
type RateLimitedProvider struct {
	next    ChatProvider
	limiter *rate.Limiter
	perMin  float64
}

var _ ChatProvider = (*RateLimitedProvider)(nil)

// WithRateLimit wraps next with a limiter, or returns next unchanged when
// the config is disabled.
func WithRateLimit(next ChatProvider, cfg RateLimitConfig) ChatProvider {
	if !cfg.Enabled() {
		return next
	}

	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &RateLimitedProvider{
		next:    next,
		limiter: rate.NewLimiter(rate.Limit(cfg.ReqPerMinute/60.0), burst),
		perMin:  cfg.ReqPerMinute,
	}
}

// Name returns the wrapped provider's name.
func (p *RateLimitedProvider) Name() string { return p.next.Name() }

// Chat waits for a token, then delegates.
func (p *RateLimitedProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, &RateLimitError{Provider: p.next.Name(), Limit: p.perMin, Err: err}
	}
	return p.next.Chat(ctx, req)
}

// RateLimitError wraps rate limit related errors with provider context.
type RateLimitError struct {
	Provider string
	Limit    float64
	Err      error
}

// Error implements error interface.
func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit error for provider %s (limit: %.0f req/min): %v", e.Provider, e.Limit, e.Err)
}

// Unwrap exposes both the sentinel and the cause.
func (e *RateLimitError) Unwrap() []error {
	return []error{errors.ErrRateLimitExceeded, e.Err}
}
