package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/toko-pos/internal/obs"
)

// Redis stores JSON documents under a key prefix with a fixed TTL. A nil
// Redis or client turns every lookup into a miss.
type Redis struct {
	client redis.Cmdable
	ttl    time.Duration
	prefix string
}

// NewRedis constructs a cache whose keys all start with prefix.
func NewRedis(client redis.Cmdable, ttl time.Duration, prefix string) *Redis {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Redis{client: client, ttl: ttl, prefix: prefix}
}

func (c *Redis) enabled() bool { return c != nil && c.client != nil }

// GetJSON decodes the cached value at key into dst and reports a hit.
// Redis or decode failures are treated as misses.
func (c *Redis) GetJSON(ctx context.Context, kind, key string, dst any) bool {
	if !c.enabled() {
		return false
	}
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil || json.Unmarshal(data, dst) != nil {
		obs.ObserveCache(kind, false)
		return false
	}
	obs.ObserveCache(kind, true)
	return true
}

// SetJSON stores v under key with the cache TTL.
func (c *Redis) SetJSON(ctx context.Context, key string, v any) error {
	if !c.enabled() {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.prefix+key, data, c.ttl).Err()
}

// Delete drops keys.
func (c *Redis) Delete(ctx context.Context, keys ...string) error {
	if !c.enabled() || len(keys) == 0 {
		return nil
	}
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = c.prefix + k
	}
	return c.client.Del(ctx, full...).Err()
}
