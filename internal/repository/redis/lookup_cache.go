// Package redis caches per-owner read projections in Redis.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "rolodex"

// LookupCache stores JSON projections under a per-owner generation number.
// Invalidate bumps the generation, so every older entry for the owner stops
// being addressed at once and expires on its own TTL.
type LookupCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewLookupCache creates a lookup cache. A non-positive ttl defaults to five minutes.
func NewLookupCache(client *redis.Client, ttl time.Duration) *LookupCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &LookupCache{client: client, ttl: ttl}
}

func generationKey(ownerID string) string {
	return fmt.Sprintf("%s:gen:%s", keyPrefix, ownerID)
}

func entryKey(ownerID string, generation int64, key string) string {
	return fmt.Sprintf("%s:lookup:%s:%d:%s", keyPrefix, ownerID, generation, key)
}

func (c *LookupCache) generation(ctx context.Context, ownerID string) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey(ownerID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cache generation: %w", err)
	}
	return gen, nil
}

// Get decodes the cached value into dest and reports whether it was present
func (c *LookupCache) Get(ctx context.Context, ownerID, key string, dest any) (bool, error) {
	gen, err := c.generation(ctx, ownerID)
	if err != nil {
		return false, err
	}
	data, err := c.client.Get(ctx, entryKey(ownerID, gen, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read cache entry: %w", err)
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to decode cache entry: %w", err)
	}
	return true, nil
}

// Set stores value under the owner's current generation
func (c *LookupCache) Set(ctx context.Context, ownerID, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}
	gen, err := c.generation(ctx, ownerID)
	if err != nil {
		return err
	}
	if err := c.client.Set(ctx, entryKey(ownerID, gen, key), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	return nil
}

// Invalidate drops every cached entry for the owner
func (c *LookupCache) Invalidate(ctx context.Context, ownerID string) error {
	if err := c.client.Incr(ctx, generationKey(ownerID)).Err(); err != nil {
		return fmt.Errorf("failed to invalidate cache: %w", err)
	}
	return nil
}
