package ratelimit

import (
	"context"
	"math"

	"golang.org/x/time/rate"
)

// Limiter defines the interface for rate limiting
type Limiter interface {
	// Allow reports whether a call may happen now, consuming a token if so
	Allow() bool
	// Wait blocks until a call may happen or ctx is done
	Wait(ctx context.Context) error
}

// tokenBucket adapts rate.Limiter
type tokenBucket struct {
	limiter *rate.Limiter
}

// PerSecond allows n calls per second with a burst of one. n <= 0 disables
// pacing.
func PerSecond(n float64) Limiter {
	if n <= 0 {
		return Unlimited()
	}
	return &tokenBucket{limiter: rate.NewLimiter(rate.Limit(n), 1)}
}

// NewTokenBucket allows burst calls at once, refilled at n per second
func NewTokenBucket(n float64, burst int) Limiter {
	if burst < 1 {
		burst = 1
	}
	return &tokenBucket{limiter: rate.NewLimiter(rate.Limit(n), burst)}
}

// Unlimited never blocks
func Unlimited() Limiter {
	return &tokenBucket{limiter: rate.NewLimiter(rate.Inf, math.MaxInt)}
}

func (t *tokenBucket) Allow() bool {
	return t.limiter.Allow()
}

func (t *tokenBucket) Wait(ctx context.Context) error {
	return t.limiter.Wait(ctx)
}
