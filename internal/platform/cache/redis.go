// Package cache opens the Redis connection that backs sessions, credentials,
// notifications and export results.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options tune the Redis connection.
type Options struct {
	Addr     string
	Attempts int
	Backoff  time.Duration
}

// Connect creates a Redis client and waits until it answers PING, retrying
// while the server is still starting.
func Connect(ctx context.Context, opts Options) (*redis.Client, error) {
	if opts.Attempts <= 0 {
		opts.Attempts = 3
	}
	if opts.Backoff <= 0 {
		opts.Backoff = 500 * time.Millisecond
	}
	client := redis.NewClient(&redis.Options{Addr: opts.Addr})

	var err error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = client.Ping(pingCtx).Err()
		cancel()
		if err == nil {
			return client, nil
		}
		if attempt == opts.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(opts.Backoff * time.Duration(attempt)):
		}
	}
	_ = client.Close()
	return nil, fmt.Errorf("platform/cache: ping %s: %w", opts.Addr, err)
}
