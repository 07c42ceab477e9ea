// Package ratelimiter implements token bucket rate limiting.
//
// A Bucket allows bursts up to Config.Capacity and refills RefillRate tokens
// every RefillInterval. Bucket state lives in a Store: MemoryStore for a
// single instance, RedisStore (an atomic Lua script over go-redis) when
// replicas share limits.
//
//	store := ratelimiter.NewMemoryStore()
//	defer store.Close()
//
//	limiter, err := ratelimiter.NewBucket(store, ratelimiter.Config{
//		Capacity:       10,
//		RefillRate:     1,
//		RefillInterval: 6 * time.Second,
//	})
//
//	r.Use(ratelimiter.Middleware(limiter, func(r *http.Request) string {
//		return clientip.GetIPFromContext(r.Context())
//	}))
//
// The middleware sets X-RateLimit-Limit, X-RateLimit-Remaining,
// X-RateLimit-Reset and, on rejection, Retry-After. WithDenyHandler
// customizes the rejection body.
package ratelimiter
