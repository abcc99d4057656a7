package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/denisok6893-rgb/stay-pricing/internal/domain"
)

// RedisBaselineCache caches market baselines as JSON under
// baseline:<location>:<category>.
type RedisBaselineCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBaselineCache accepts either a redis:// URL or a bare host:port.
func NewRedisBaselineCache(url string, ttl time.Duration) (*RedisBaselineCache, error) {
	opts := &redis.Options{Addr: url, DB: 0}
	if strings.HasPrefix(url, "redis://") || strings.HasPrefix(url, "rediss://") {
		parsed, err := redis.ParseURL(url)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opts = parsed
	}
	return &RedisBaselineCache{client: redis.NewClient(opts), ttl: ttl}, nil
}

func (c *RedisBaselineCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisBaselineCache) Close() error {
	return c.client.Close()
}

func baselineKey(location, category string) string {
	return "baseline:" + location + ":" + category
}

func (c *RedisBaselineCache) Get(ctx context.Context, location, category string) (domain.MarketBaseline, bool, error) {
	raw, err := c.client.Get(ctx, baselineKey(location, category)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.MarketBaseline{}, false, nil
	}
	if err != nil {
		return domain.MarketBaseline{}, false, fmt.Errorf("redis: get baseline: %w", err)
	}
	var b domain.MarketBaseline
	if err := json.Unmarshal(raw, &b); err != nil {
		return domain.MarketBaseline{}, false, fmt.Errorf("redis: decode baseline: %w", err)
	}
	return b, true, nil
}

func (c *RedisBaselineCache) Set(ctx context.Context, b domain.MarketBaseline) error {
	raw, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("redis: encode baseline: %w", err)
	}
	return c.client.Set(ctx, baselineKey(b.Location, b.Category), raw, c.ttl).Err()
}

func (c *RedisBaselineCache) Delete(ctx context.Context, location, category string) error {
	return c.client.Del(ctx, baselineKey(location, category)).Err()
}
