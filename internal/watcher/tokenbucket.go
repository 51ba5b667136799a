package watcher

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// tokenBucket throttles how fast drained fs events are handed to the
// indexer, coupling watcher back-pressure to the storage writer's batching
// capacity per spec.md §4.4. Built on golang.org/x/time/rate, the same way
// rclone's xpan backend wraps a *rate.Limiter for its own call-rate limit
// (backend/xpan/ratelimiter.go's rateLimiterClient) - scale adjusts the
// limiter's configured rate at runtime the same way rclone's
// fs/accounting.TokenBucket retunes a *rate.Limiter's Limit under a
// bandwidth schedule (see token_bucket_test.go's curr[0].Limit() checks).
type tokenBucket struct {
	mu       sync.Mutex
	limiter  *rate.Limiter
	baseRate float64
	fillRate float64 // tokens per second, current (possibly throttled); mirrors limiter.Limit()
}

func newTokenBucket(capacity, fillPerSec int) *tokenBucket {
	if capacity <= 0 {
		capacity = 512
	}
	if fillPerSec <= 0 {
		fillPerSec = 256
	}
	return &tokenBucket{
		limiter:  rate.NewLimiter(rate.Limit(fillPerSec), capacity),
		baseRate: float64(fillPerSec),
		fillRate: float64(fillPerSec),
	}
}

// scale adjusts the bucket's fill rate down from its configured ceiling as
// loadRatio (the storage writer queue's qsize/capacity) rises past
// threshold, linearly down to 10% of baseRate at loadRatio==1.0, and
// restores the full rate once load drops back below threshold.
func (b *tokenBucket) scale(loadRatio, threshold float64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	next := b.baseRate
	switch {
	case loadRatio <= threshold:
		next = b.baseRate
	case threshold >= 1:
		next = b.baseRate * 0.1
	default:
		if loadRatio > 1 {
			loadRatio = 1
		}
		frac := 1 - (loadRatio-threshold)/(1-threshold)*0.9
		next = b.baseRate * frac
	}
	b.fillRate = next
	b.limiter.SetLimit(rate.Limit(next))
}

// wait blocks until a token is available or ctx is done.
func (b *tokenBucket) wait(ctx context.Context) {
	_ = b.limiter.Wait(ctx)
}

func (b *tokenBucket) tryTake() bool {
	return b.limiter.Allow()
}
