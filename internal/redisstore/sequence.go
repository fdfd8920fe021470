package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rpggio/saraban/internal/domain/registry"
	"github.com/rpggio/saraban/internal/repository"
)

// nextScript increments KEYS[1] unless it already reached ARGV[1].
var nextScript = redis.NewScript(`
local current = tonumber(redis.call('GET', KEYS[1]) or '0')
if current >= tonumber(ARGV[1]) then
	return -1
end
return redis.call('INCR', KEYS[1])
`)

// releaseScript decrements KEYS[1] only while it still equals ARGV[1].
var releaseScript = redis.NewScript(`
if tonumber(redis.call('GET', KEYS[1]) or '0') ~= tonumber(ARGV[1]) then
	return 0
end
redis.call('DECR', KEYS[1])
return 1
`)

// SequenceStore implements registry.SequenceStore on Redis.
type SequenceStore struct {
	client redis.UniversalClient
	prefix string
}

// NewSequenceStore creates a store whose keys start with prefix.
func NewSequenceStore(client redis.UniversalClient, prefix string) *SequenceStore {
	if prefix == "" {
		prefix = "saraban"
	}
	return &SequenceStore{client: client, prefix: prefix}
}

// Next atomically advances the counter for key.
func (s *SequenceStore) Next(ctx context.Context, tenantID string, key registry.Key, limit int64) (int64, error) {
	value, err := nextScript.Run(ctx, s.client, []string{s.key(tenantID, key)}, strconv.FormatInt(limit, 10)).Int64()
	if err != nil {
		return 0, fmt.Errorf("redis sequence next: %w", err)
	}
	if value < 0 {
		return 0, repository.ErrExhausted
	}
	return value, nil
}

// Peek returns the last issued value without advancing the counter.
func (s *SequenceStore) Peek(ctx context.Context, tenantID string, key registry.Key) (int64, error) {
	value, err := s.client.Get(ctx, s.key(tenantID, key)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis sequence peek: %w", err)
	}
	return value, nil
}

// Release steps the counter back if value is still the last issued value.
func (s *SequenceStore) Release(ctx context.Context, tenantID string, key registry.Key, value int64) (bool, error) {
	n, err := releaseScript.Run(ctx, s.client, []string{s.key(tenantID, key)}, strconv.FormatInt(value, 10)).Int64()
	if err != nil {
		return false, fmt.Errorf("redis sequence release: %w", err)
	}
	return n == 1, nil
}

func (s *SequenceStore) key(tenantID string, key registry.Key) string {
	return fmt.Sprintf("%s:seq:{%s}:%s:%s", s.prefix, tenantID, key.Category, key.ScopeKey)
}
