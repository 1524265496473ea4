package client

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/localizekit/authgate/jwt"
)

// ErrStoreUnavailable wraps backend failures from a TokenStore.
var ErrStoreUnavailable = errors.New("token store unavailable")

// TokenStore holds the current session pair. Set replaces both tokens
// together; a reader never observes one new token next to one stale one.
// Get returns an empty pair when no session is stored.
type TokenStore interface {
	Get(ctx context.Context) (jwt.TokenPair, error)
	Set(ctx context.Context, pair jwt.TokenPair) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the pair in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	pair jwt.TokenPair
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Get(context.Context) (jwt.TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pair, nil
}

func (s *MemoryStore) Set(_ context.Context, pair jwt.TokenPair) error {
	s.mu.Lock()
	s.pair = pair
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	s.pair = jwt.TokenPair{}
	s.mu.Unlock()
	return nil
}

// RedisStore keeps the pair under two keys, <prefix>:access and
// <prefix>:refresh, written in one MULTI/EXEC transaction.
type RedisStore struct {
	redis  redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// NewRedisStore returns a store rooted at prefix ("authgate:session" when
// empty). A positive ttl expires both keys together; it should match the
// refresh token lifetime.
func NewRedisStore(redisClient redis.UniversalClient, prefix string, ttl time.Duration) *RedisStore {
	if prefix == "" {
		prefix = "authgate:session"
	}
	if ttl < 0 {
		ttl = 0
	}
	return &RedisStore{redis: redisClient, prefix: prefix, ttl: ttl}
}

func (s *RedisStore) accessKey() string  { return s.prefix + ":access" }
func (s *RedisStore) refreshKey() string { return s.prefix + ":refresh" }

func (s *RedisStore) Get(ctx context.Context) (jwt.TokenPair, error) {
	vals, err := s.redis.MGet(ctx, s.accessKey(), s.refreshKey()).Result()
	if err != nil {
		return jwt.TokenPair{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	var pair jwt.TokenPair
	if len(vals) == 2 {
		pair.AccessToken, _ = vals[0].(string)
		pair.RefreshToken, _ = vals[1].(string)
	}
	return pair, nil
}

func (s *RedisStore) Set(ctx context.Context, pair jwt.TokenPair) error {
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.accessKey(), pair.AccessToken, s.ttl)
		pipe.Set(ctx, s.refreshKey(), pair.RefreshToken, s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.redis.Del(ctx, s.accessKey(), s.refreshKey()).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}
