package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cairoware/tourbase/internal/service"
)

// Verify interface compliance
var _ service.ResultCache = (*SearchCache)(nil)

const searchKeyPrefix = "search:hybrid:"

// SearchCache caches hybrid search results in Redis, keyed by a digest of
// the full search filter. Entries expire via Redis TTL; there is no
// explicit invalidation, so the TTL bounds result staleness after writes.
type SearchCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSearchCache creates a Redis-backed SearchCache.
func NewSearchCache(client *redis.Client, ttl time.Duration) *SearchCache {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &SearchCache{client: client, ttl: ttl}
}

// Get returns the cached ranking for the filter, if present. Backend
// failures and corrupt entries are reported as misses.
func (c *SearchCache) Get(ctx context.Context, filter service.SearchFilter) ([]*service.SearchResult, bool) {
	key, err := cacheKey(filter)
	if err != nil {
		return nil, false
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("search cache: get failed: %v", err)
		return nil, false
	}

	var results []*service.SearchResult
	if err := json.Unmarshal(data, &results); err != nil {
		log.Printf("search cache: corrupt entry %s: %v", key, err)
		c.client.Del(ctx, key)
		return nil, false
	}
	return results, true
}

// Set stores the ranking for the filter. Failures are logged and dropped;
// the cache never fails a search.
func (c *SearchCache) Set(ctx context.Context, filter service.SearchFilter, results []*service.SearchResult) {
	key, err := cacheKey(filter)
	if err != nil {
		return
	}

	data, err := json.Marshal(results)
	if err != nil {
		log.Printf("search cache: marshal failed: %v", err)
		return
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		log.Printf("search cache: set failed: %v", err)
	}
}

// cacheKey digests the canonical JSON form of the filter. encoding/json
// sorts map keys, so equal filters always produce the same key.
func cacheKey(filter service.SearchFilter) (string, error) {
	data, err := json.Marshal(filter)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return searchKeyPrefix + hex.EncodeToString(sum[:]), nil
}
