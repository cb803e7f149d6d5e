package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const cacheVersionKeyFmt = "choubo:catalog:%d:version"

// Cache stores classifications in Redis behind a per-organization version
// counter. Invalidation bumps the counter so stale keys simply expire.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache instantiates the cache helper. A nil client disables caching.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func (c *Cache) version(ctx context.Context, orgID int64) (int64, error) {
	key := fmt.Sprintf(cacheVersionKeyFmt, orgID)
	ver, err := c.client.Get(ctx, key).Int64()
	if err == redis.Nil {
		if err := c.client.Set(ctx, key, 1, 0).Err(); err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return ver, nil
}

func (c *Cache) key(ctx context.Context, orgID, accountID int64) (string, error) {
	ver, err := c.version(ctx, orgID)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("choubo:catalog:%d:account:%d:%d", orgID, accountID, ver), nil
}

// Get returns the cached classification when present.
func (c *Cache) Get(ctx context.Context, orgID, accountID int64) (AccountCategory, bool) {
	if c == nil || c.client == nil {
		return AccountCategory{}, false
	}
	key, err := c.key(ctx, orgID, accountID)
	if err != nil {
		return AccountCategory{}, false
	}
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return AccountCategory{}, false
	}
	var cat AccountCategory
	if err := json.Unmarshal(payload, &cat); err != nil {
		return AccountCategory{}, false
	}
	return cat, true
}

// Set stores a classification.
func (c *Cache) Set(ctx context.Context, cat AccountCategory) {
	if c == nil || c.client == nil {
		return
	}
	key, err := c.key(ctx, cat.OrgID, cat.AccountID)
	if err != nil {
		return
	}
	payload, err := json.Marshal(cat)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, key, payload, c.ttl).Err()
}

// Invalidate drops every cached classification of the organization. The
// master-data screens call this whenever an account's categories change.
func (c *Cache) Invalidate(ctx context.Context, orgID int64) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Incr(ctx, fmt.Sprintf(cacheVersionKeyFmt, orgID)).Err()
}
