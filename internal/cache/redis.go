package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Bjornhona/movie-explorer/internal/config"

	"github.com/redis/go-redis/v9"
)

// New connects to redis using the environment configuration.
func New(ctx context.Context) (*redis.Client, error) {
	host, port, password := config.RedisConfig()

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%s", host, port),
		Password: password,
		DB:       0,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	return client, nil
}

// GetJSON reads a cached value into dest. ok is false on a cache miss;
// unmarshal failures are reported as errors so callers can fall through
// to the upstream fetch.
func GetJSON(ctx context.Context, client *redis.Client, key string, dest any) (bool, error) {
	if client == nil {
		return false, nil
	}

	raw, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cached value: %w", err)
	}
	return true, nil
}

// SetJSON stores value under key with the given TTL.
func SetJSON(ctx context.Context, client *redis.Client, key string, value any, ttl time.Duration) error {
	if client == nil {
		return nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for caching: %w", err)
	}
	return client.Set(ctx, key, raw, ttl).Err()
}
