package resource

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/time/rate"
)

// TokenBucket wraps a rate.Limiter with denial metrics and a non-blocking
// acquire. Tokens refill at Rate per second up to Burst; the bucket starts
// full.
type TokenBucket struct {
	name    string
	limiter *rate.Limiter

	now func() time.Time
}

// NewTokenBucket creates a bucket that starts full.
func NewTokenBucket(name string, r float64, burst int) (*TokenBucket, error) {
	if r <= 0 {
		return nil, fmt.Errorf("token bucket %s: rate must be positive, got %v", name, r)
	}
	if burst < 1 {
		return nil, fmt.Errorf("token bucket %s: burst must be at least 1, got %d", name, burst)
	}
	return &TokenBucket{
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(r), burst),
		now:     time.Now,
	}, nil
}

// Acquire takes n tokens if available, reporting whether it succeeded.
func (b *TokenBucket) Acquire(n int) bool {
	if n <= 0 {
		return true
	}
	if !b.limiter.AllowN(b.now(), n) {
		rateLimitDenials.WithLabelValues(b.name).Inc()
		return false
	}
	return true
}

// Wait blocks until n tokens can be acquired or the context is canceled.
func (b *TokenBucket) Wait(ctx context.Context, n int) error {
	if n <= 0 {
		return nil
	}
	if err := b.limiter.WaitN(ctx, n); err != nil {
		return fmt.Errorf("waiting for %d token(s) on %s: %w", n, b.name, err)
	}
	return nil
}

// Available returns the current token count after refill.
func (b *TokenBucket) Available() float64 {
	return b.limiter.TokensAt(b.now())
}
