package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrSnakeDoc/ideabox/internal/domain"
)

// DefaultCacheTTL bounds how long a cached list may be served.
const DefaultCacheTTL = 60 * time.Second

var errStaleList = errors.New("list version changed")

// Cache stores the full idea list in Redis.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache creates a list cache. A non-positive ttl falls back to DefaultCacheTTL.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		client: client,
		ttl:    ttl,
	}
}

// GetList returns the cached list. ok is false on a cache miss.
func (c *Cache) GetList(ctx context.Context) (ideas []domain.Idea, ok bool, err error) {
	data, err := c.client.Get(ctx, AllIdeasKey()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil // Cache miss
		}
		return nil, false, fmt.Errorf("failed to get cached ideas: %w", err)
	}

	if err := json.Unmarshal(data, &ideas); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached ideas: %w", err)
	}
	return ideas, true, nil
}

// Version returns the current list generation. A missing counter reads as 0.
func (c *Cache) Version(ctx context.Context) (int64, error) {
	v, err := c.client.Get(ctx, ListVersionKey()).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read list version: %w", err)
	}
	return v, nil
}

// SetList caches ideas for the configured TTL, but only while the list
// generation still equals version. stored is false when an invalidation
// happened after version was read, in which case nothing is written.
func (c *Cache) SetList(ctx context.Context, ideas []domain.Idea, version int64) (stored bool, err error) {
	if ideas == nil {
		ideas = []domain.Idea{}
	}
	data, err := json.Marshal(ideas)
	if err != nil {
		return false, fmt.Errorf("failed to marshal ideas: %w", err)
	}

	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, ListVersionKey()).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errStaleList
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, AllIdeasKey(), data, c.ttl)
			return nil
		})
		return err
	}, ListVersionKey())

	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errStaleList), errors.Is(err, redis.TxFailedErr):
		return false, nil
	default:
		return false, fmt.Errorf("failed to cache ideas: %w", err)
	}
}

// Invalidate bumps the list generation and drops the cached list.
func (c *Cache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, ListVersionKey())
		pipe.Del(ctx, AllIdeasKey())
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}

// Ping checks the Redis connection.
func (c *Cache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
