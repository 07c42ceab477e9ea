// Package redis connects to Redis with go-redis/v9.
//
//	client, err := redis.Connect(ctx, cfg)
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//
// The client backs the distributed rate limiter store
// (ratelimiter.NewRedisStore) and Healthcheck plugs it into the readiness
// probe.
package redis
