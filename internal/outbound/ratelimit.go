package outbound

import (
	"context"

	"golang.org/x/time/rate"
)

// RateLimiter wraps a token bucket limiter for outbound calls. It is safe for
// concurrent use.
type RateLimiter struct {
	limiter *rate.Limiter
}

// NewRateLimiter creates a limiter allowing ratePerSecond sustained requests
// with the given burst. A rate of zero or less disables limiting.
func NewRateLimiter(ratePerSecond float64, burst int) *RateLimiter {
	limit := rate.Limit(ratePerSecond)
	if ratePerSecond <= 0 {
		limit = rate.Inf
	}
	return &RateLimiter{
		limiter: rate.NewLimiter(limit, burst),
	}
}

// Wait blocks until a request is allowed or ctx is done.
func (r *RateLimiter) Wait(ctx context.Context) error {
	return r.limiter.Wait(ctx)
}
