package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/efb/signals/signals-backend/internal/domain"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix namespaces series envelopes in Redis
const KeyPrefix = "series:"

// RedisSeriesCache implements domain.SeriesCache on Redis string keys with a TTL
type RedisSeriesCache struct {
	client redis.UniversalClient
}

// Ensure RedisSeriesCache implements domain.SeriesCache
var _ domain.SeriesCache = (*RedisSeriesCache)(nil)

// NewRedisSeriesCache connects to Redis using a redis:// URL and verifies the connection
func NewRedisSeriesCache(ctx context.Context, url string) (*RedisSeriesCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	c := NewRedisSeriesCacheWithClient(redis.NewClient(opts))
	if err := c.Ping(ctx); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return c, nil
}

// NewRedisSeriesCacheWithClient wraps an existing client
func NewRedisSeriesCacheWithClient(client redis.UniversalClient) *RedisSeriesCache {
	return &RedisSeriesCache{client: client}
}

// Get returns the cached envelope, or nil on a miss
func (c *RedisSeriesCache) Get(ctx context.Context, key string) (*domain.Envelope, error) {
	data, err := c.client.Get(ctx, KeyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get series from redis: %w", err)
	}

	var envelope domain.Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached series: %w", err)
	}
	return &envelope, nil
}

// Set stores the envelope for ttl
func (c *RedisSeriesCache) Set(ctx context.Context, key string, envelope *domain.Envelope, ttl time.Duration) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal series: %w", err)
	}
	if err := c.client.Set(ctx, KeyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set series in redis: %w", err)
	}
	return nil
}

// Ping checks the connection
func (c *RedisSeriesCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close releases the client
func (c *RedisSeriesCache) Close() error {
	return c.client.Close()
}
