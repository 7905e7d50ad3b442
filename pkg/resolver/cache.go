// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package resolver

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache memoizes match results. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns the cached result for key and whether it was found.
	Get(ctx context.Context, key string) (MatchResult, bool, error)

	// Set stores the result under key.
	Set(ctx context.Context, key string, result MatchResult) error
}

// MemoryCache is an in-process match cache. It grows for the life of
// the process, matching the source system's memoization.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]MatchResult
}

// NewMemoryCache creates an empty in-process cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]MatchResult),
	}
}

// Get returns the cached result for key.
func (c *MemoryCache) Get(ctx context.Context, key string) (MatchResult, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result, ok := c.entries[key]
	return result, ok, nil
}

// Set stores the result under key.
func (c *MemoryCache) Set(ctx context.Context, key string, result MatchResult) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = result
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// redisKeyPrefix namespaces match entries in a shared Redis instance.
const redisKeyPrefix = "docflow:match:"

// RedisCache is a Redis-backed match cache for processes sharing
// resolution results.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewRedisCache creates a Redis-backed cache. A zero ttl keeps entries
// until Redis evicts them.
func NewRedisCache(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached result for key.
func (c *RedisCache) Get(ctx context.Context, key string) (MatchResult, bool, error) {
	data, err := c.client.Get(ctx, redisKeyPrefix+key).Result()
	if err == redis.Nil {
		return MatchResult{}, false, nil
	}
	if err != nil {
		return MatchResult{}, false, fmt.Errorf("redis get: %w", err)
	}

	var result MatchResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return MatchResult{}, false, fmt.Errorf("decoding cached match: %w", err)
	}
	return result, true, nil
}

// Set stores the result under key.
func (c *RedisCache) Set(ctx context.Context, key string, result MatchResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encoding match: %w", err)
	}
	if err := c.client.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
