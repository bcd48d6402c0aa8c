package processor

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter gates item processing to at most rate_limit operations per
// second. Burst is fixed at 1: Wait() guarantees at least 1/rate seconds
// between any two returns, matching a strict token-interval limiter rather
// than a bursting token bucket.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter builds a limiter for qps operations per second. qps <= 0
// means unlimited and is represented by a nil *RateLimiter (Wait becomes a
// no-op via the nil receiver check).
func NewRateLimiter(qps int) *RateLimiter {
	if qps <= 0 {
		return nil
	}
	return &RateLimiter{limiter: rate.NewLimiter(rate.Limit(qps), 1)}
}

// Wait blocks until the limiter allows another request, or ctx is done.
// A nil *RateLimiter means unlimited and always returns immediately.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if r == nil {
		return nil
	}
	return r.limiter.Wait(ctx)
}
