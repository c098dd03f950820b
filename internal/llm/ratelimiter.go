package llm

import (
	"context"
	"sync"
	"time"
)

// RateLimitedProvider wraps a Provider with a token bucket rate limiter.
type RateLimitedProvider struct {
	provider Provider
	rpm      int
	mu       sync.Mutex
	tokens   float64
	lastFill time.Time
	now      func() time.Time
}

// NewRateLimitedProvider wraps the given provider with a rate limiter
// that allows at most rpm requests per minute. rpm <= 0 disables limiting.
func NewRateLimitedProvider(provider Provider, rpm int) Provider {
	if rpm <= 0 {
		return provider
	}
	return &RateLimitedProvider{
		provider: provider,
		rpm:      rpm,
		tokens:   float64(rpm),
		lastFill: time.Now(),
		now:      time.Now,
	}
}

func (r *RateLimitedProvider) Name() string {
	return r.provider.Name()
}

func (r *RateLimitedProvider) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	if err := r.wait(ctx); err != nil {
		return nil, err
	}
	return r.provider.Complete(ctx, req)
}

// reserve takes a token if one is available, otherwise it reports how long
// until the next one.
func (r *RateLimitedProvider) reserve() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	perToken := time.Minute / time.Duration(r.rpm)
	r.tokens += float64(now.Sub(r.lastFill)) / float64(perToken)
	if r.tokens > float64(r.rpm) {
		r.tokens = float64(r.rpm)
	}
	r.lastFill = now

	if r.tokens >= 1 {
		r.tokens--
		return 0, true
	}
	return time.Duration((1 - r.tokens) * float64(perToken)), false
}

func (r *RateLimitedProvider) wait(ctx context.Context) error {
	for {
		delay, ok := r.reserve()
		if ok {
			return nil
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
