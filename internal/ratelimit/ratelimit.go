package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/amishk599/jobfeed/internal/model"
)

// ProviderLimiter spaces out calls to the same upstream provider.
type ProviderLimiter struct {
	mu       sync.Mutex
	next     map[string]time.Time // earliest start of the next call, per provider
	minDelay time.Duration
}

// NewProviderLimiter returns a limiter that keeps calls to one provider at
// least minDelay apart. A zero minDelay disables waiting.
func NewProviderLimiter(minDelay time.Duration) *ProviderLimiter {
	return &ProviderLimiter{
		next:     make(map[string]time.Time),
		minDelay: minDelay,
	}
}

// Wait blocks until a call to provider may start. The slot is reserved before
// sleeping, so concurrent callers queue up behind each other.
func (l *ProviderLimiter) Wait(ctx context.Context, provider string) error {
	l.mu.Lock()
	now := time.Now()
	start := now
	if n, ok := l.next[provider]; ok && n.After(now) {
		start = n
	}
	l.next[provider] = start.Add(l.minDelay)
	l.mu.Unlock()

	wait := start.Sub(now)
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("rate limiter wait for %s: %w", provider, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// RateLimitedSource waits on a shared limiter before delegating to the
// wrapped client. Clients of the same provider type share one key.
type RateLimitedSource struct {
	inner    model.SourceClient
	limiter  *ProviderLimiter
	provider string
}

// NewRateLimitedSource wraps inner. All sources of one provider type should
// share the same limiter and provider key.
func NewRateLimitedSource(inner model.SourceClient, limiter *ProviderLimiter, provider string) *RateLimitedSource {
	return &RateLimitedSource{
		inner:    inner,
		limiter:  limiter,
		provider: provider,
	}
}

// Name returns the wrapped client's name.
func (s *RateLimitedSource) Name() string { return s.inner.Name() }

// Search waits for the limiter, then delegates.
func (s *RateLimitedSource) Search(ctx context.Context, query string) ([]json.RawMessage, error) {
	if err := s.limiter.Wait(ctx, s.provider); err != nil {
		return nil, err
	}
	return s.inner.Search(ctx, query)
}
