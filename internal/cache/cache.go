package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/vbonduro/vistoria/internal/domain"
)

// ErrMiss is returned by Get when no stats are cached for a property.
var ErrMiss = errors.New("cache miss")

// StatsCache keeps the severity counts of a property between requests.
type StatsCache interface {
	Get(ctx context.Context, propertyID string) (domain.Stats, error)
	Set(ctx context.Context, propertyID string, stats domain.Stats) error
	Invalidate(ctx context.Context, propertyID string) error
}

const keyPrefix = "vistoria:stats:"

func statsKey(propertyID string) string {
	return keyPrefix + propertyID
}

// RedisStatsCache stores stats as JSON strings with a TTL.
type RedisStatsCache struct {
	c   *redis.Client
	ttl time.Duration
}

func NewRedisStatsCache(c *redis.Client, ttl time.Duration) *RedisStatsCache {
	return &RedisStatsCache{c: c, ttl: ttl}
}

// NewRedisClient connects to addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := c.Ping(ctx).Err(); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return c, nil
}

func (r *RedisStatsCache) Get(ctx context.Context, propertyID string) (domain.Stats, error) {
	val, err := r.c.Get(ctx, statsKey(propertyID)).Result()
	if err != nil {
		if err == redis.Nil {
			return domain.Stats{}, ErrMiss
		}
		return domain.Stats{}, fmt.Errorf("failed to read cached stats: %w", err)
	}

	var s domain.Stats
	if err := json.Unmarshal([]byte(val), &s); err != nil {
		return domain.Stats{}, fmt.Errorf("failed to decode cached stats: %w", err)
	}
	return s, nil
}

func (r *RedisStatsCache) Set(ctx context.Context, propertyID string, stats domain.Stats) error {
	b, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to encode stats: %w", err)
	}
	if err := r.c.Set(ctx, statsKey(propertyID), b, r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache stats: %w", err)
	}
	return nil
}

func (r *RedisStatsCache) Invalidate(ctx context.Context, propertyID string) error {
	if err := r.c.Del(ctx, statsKey(propertyID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate stats: %w", err)
	}
	return nil
}

// NoopStatsCache never holds anything. It is used when no Redis is configured.
type NoopStatsCache struct{}

func (NoopStatsCache) Get(context.Context, string) (domain.Stats, error) {
	return domain.Stats{}, ErrMiss
}

func (NoopStatsCache) Set(context.Context, string, domain.Stats) error { return nil }

func (NoopStatsCache) Invalidate(context.Context, string) error { return nil }
