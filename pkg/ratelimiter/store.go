package ratelimiter

import (
	"context"
	"time"
)

// Store persists token bucket state.
type Store interface {
	// ConsumeTokens refills the bucket for key and takes tokens from it.
	// A negative remaining count means the request must be denied.
	ConsumeTokens(ctx context.Context, key string, tokens int, config Config) (remaining int, resetAt time.Time, err error)

	// Reset clears the bucket for key.
	Reset(ctx context.Context, key string) error
}

// refill applies the elapsed intervals to a bucket. The interval count is
// capped so large gaps cannot overflow.
func refill(tokens int, lastRefill, now time.Time, config Config) (int, time.Time) {
	elapsed := now.Sub(lastRefill)
	maxIntervals := int64(config.Capacity/config.RefillRate + 1)
	intervals := int(min(int64(elapsed/config.RefillInterval), maxIntervals))
	if intervals <= 0 {
		return tokens, lastRefill
	}
	return min(tokens+intervals*config.RefillRate, config.Capacity), now
}
