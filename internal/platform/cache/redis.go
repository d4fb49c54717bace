package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnreachable marks a client that was built but failed its first ping.
var ErrUnreachable = errors.New("platform/cache: redis unreachable")

// Options tunes the Redis client.
type Options struct {
	Addr        string
	PingTimeout time.Duration
}

// Open builds a Redis client and pings it once. On ping failure the client is
// still returned together with an error wrapping ErrUnreachable, so callers
// can choose to run degraded (stats caching falls through to the database).
func Open(ctx context.Context, opts Options) (*redis.Client, error) {
	if opts.Addr == "" {
		return nil, errors.New("platform/cache: address required")
	}
	timeout := opts.PingTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	client := redis.NewClient(&redis.Options{Addr: opts.Addr})

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return client, fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return client, nil
}
