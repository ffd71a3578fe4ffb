package zeromev

import (
	"context"
	"encoding/json"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/searcherdash/searcherdb-node/searcherdb"
)

// Cache stores feed responses keyed by block number. Blocks are closed
// history, so entries never need invalidation, only expiry.
type Cache interface {
	Get(ctx context.Context, blockNumber string) ([]searcherdb.MevEvent, bool)
	Set(ctx context.Context, blockNumber string, events []searcherdb.MevEvent)
}

type MemoryCache struct {
	cache *gocache.Cache
}

func NewMemoryCache(expiration time.Duration) *MemoryCache {
	return &MemoryCache{cache: gocache.New(expiration, 10*time.Minute)}
}

func (c *MemoryCache) Get(_ context.Context, blockNumber string) ([]searcherdb.MevEvent, bool) {
	v, ok := c.cache.Get(blockNumber)
	if !ok {
		return nil, false
	}
	events, ok := v.([]searcherdb.MevEvent)
	return events, ok
}

func (c *MemoryCache) Set(_ context.Context, blockNumber string, events []searcherdb.MevEvent) {
	c.cache.SetDefault(blockNumber, events)
}

// RedisCache persists feed responses across runs, so re-analyzing an
// overlapping range does not re-fetch the whole window.
type RedisCache struct {
	client         *redis.Client
	expireDuration time.Duration
	keyPrefix      string
}

func NewRedisCache(client *redis.Client, expireDuration time.Duration, keyPrefix string) *RedisCache {
	return &RedisCache{
		client:         client,
		expireDuration: expireDuration,
		keyPrefix:      keyPrefix,
	}
}

func (c *RedisCache) Get(ctx context.Context, blockNumber string) ([]searcherdb.MevEvent, bool) {
	data, err := c.client.Get(ctx, c.keyPrefix+blockNumber).Bytes()
	if err != nil {
		return nil, false
	}
	var events []searcherdb.MevEvent
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, false
	}
	return events, true
}

func (c *RedisCache) Set(ctx context.Context, blockNumber string, events []searcherdb.MevEvent) {
	data, err := json.Marshal(events)
	if err != nil {
		return
	}
	c.client.Set(ctx, c.keyPrefix+blockNumber, data, c.expireDuration)
}
