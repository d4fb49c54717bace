package voters

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"github.com/dunvault/dunvault/internal/authz"
)

const statsKeyPrefix = "dunvault:voters:stats:"

// StatsCache keeps tag counts per scope in redis. Concurrent misses for the
// same scope share one load. A nil client disables caching.
type StatsCache struct {
	client *redis.Client
	ttl    time.Duration
	group  singleflight.Group
}

// NewStatsCache constructs a StatsCache.
func NewStatsCache(client *redis.Client, ttl time.Duration) *StatsCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &StatsCache{client: client, ttl: ttl}
}

func statsKey(scope authz.Scope) string {
	return statsKeyPrefix + scope.Key()
}

// Fetch returns cached counts for scope or loads and stores them. Redis
// faults fall through to the loader.
func (c *StatsCache) Fetch(ctx context.Context, scope authz.Scope, loader func(context.Context) (TagCounts, error)) (TagCounts, bool, error) {
	if c == nil || c.client == nil {
		counts, err := loader(ctx)
		return counts, false, err
	}
	key := statsKey(scope)
	if payload, err := c.client.Get(ctx, key).Bytes(); err == nil {
		var counts TagCounts
		if err := json.Unmarshal(payload, &counts); err == nil {
			return counts, true, nil
		}
	}

	ch := c.group.DoChan(key, func() (interface{}, error) {
		counts, err := loader(ctx)
		if err != nil {
			return TagCounts{}, err
		}
		if raw, err := json.Marshal(counts); err == nil {
			_ = c.client.Set(ctx, key, raw, c.ttl).Err()
		}
		return counts, nil
	})
	select {
	case <-ctx.Done():
		return TagCounts{}, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return TagCounts{}, false, res.Err
		}
		return res.Val.(TagCounts), false, nil
	}
}

// Invalidate drops the cached counts that include a row tagged dun.
func (c *StatsCache) Invalidate(ctx context.Context, dun string) error {
	if c == nil || c.client == nil {
		return nil
	}
	keys := []string{statsKey(authz.Scope{All: true})}
	if dun != "" {
		keys = append(keys, statsKey(authz.Scope{DUN: dun}))
	}
	if err := c.client.Del(ctx, keys...).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("voters: invalidate stats: %w", err)
	}
	return nil
}
