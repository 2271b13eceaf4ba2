package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Logical keys persisted per visitor. All three credentials are cleared
// together on logout.
const (
	KeyRequestToken = "request_token"
	KeySessionID    = "session_id"
	KeyExpiresAt    = "session_expires_at"
	KeyAccountID    = "account_id"
	KeyUsername     = "account_username"
)

// Store is the key-value persistence port for per-visitor credentials.
// Reads are idempotent and side-effect-free; AuthenticationSession is the
// only writer.
type Store interface {
	Get(ctx context.Context, visitorID, key string) (string, error)
	Set(ctx context.Context, visitorID, key, value string) error
	Remove(ctx context.Context, visitorID string, keys ...string) error
}

const (
	storeKeyPrefix = "session:"
	storeTTL       = 30 * 24 * time.Hour
)

// RedisStore keeps each visitor's credentials in a redis hash under
// session:<visitor>.
type RedisStore struct {
	redis *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{redis: client}
}

func (s *RedisStore) Get(ctx context.Context, visitorID, key string) (string, error) {
	value, err := s.redis.HGet(ctx, storeKeyPrefix+visitorID, key).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, nil
}

func (s *RedisStore) Set(ctx context.Context, visitorID, key, value string) error {
	hashKey := storeKeyPrefix + visitorID
	if err := s.redis.HSet(ctx, hashKey, key, value).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	if err := s.redis.Expire(ctx, hashKey, storeTTL).Err(); err != nil {
		return fmt.Errorf("failed to refresh TTL: %w", err)
	}
	return nil
}

func (s *RedisStore) Remove(ctx context.Context, visitorID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := s.redis.HDel(ctx, storeKeyPrefix+visitorID, keys...).Err(); err != nil {
		return fmt.Errorf("failed to remove keys: %w", err)
	}
	return nil
}

// MemoryStore is an in-process Store used in tests.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]map[string]string)}
}

func (s *MemoryStore) Get(ctx context.Context, visitorID, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[visitorID][key], nil
}

func (s *MemoryStore) Set(ctx context.Context, visitorID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.values[visitorID] == nil {
		s.values[visitorID] = make(map[string]string)
	}
	s.values[visitorID][key] = value
	return nil
}

func (s *MemoryStore) Remove(ctx context.Context, visitorID string, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.values[visitorID], key)
	}
	return nil
}
