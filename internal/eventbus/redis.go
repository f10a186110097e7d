package eventbus

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PingRedis verifies the broker is reachable before a binary commits to
// serving, retrying with a fixed backoff the same way store.Connect waits
// for Postgres. A scheduler or worker that starts without its bus would
// silently do nothing.
func PingRedis(ctx context.Context, addr string) error {
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	const (
		maxAttempts = 30
		delay       = 500 * time.Millisecond
	)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		lastErr = client.Ping(pingCtx).Err()
		cancel()

		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt < maxAttempts {
			time.Sleep(delay)
		}
	}

	return fmt.Errorf("redis not ready after %d attempts: %w", maxAttempts, lastErr)
}
