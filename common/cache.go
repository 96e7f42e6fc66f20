package common

import (
	"fmt"
	"math"

	lru "github.com/hashicorp/golang-lru"
)

// CacheKey is implemented by types usable as keys in a ShardedCache, such as
// Hash.
type CacheKey interface {
	getShardIndex(shardMask int) int
}

// Cache is the common interface over the LRU-family caches below. The UTXO
// set uses a ShardedCache sized for its working set; an LRUCache can stand
// in for it without changing call sites.
type Cache interface {
	Add(key CacheKey, value interface{}) (evicted bool)
	Get(key CacheKey) (value interface{}, ok bool)
	Contains(key CacheKey) bool
	Remove(key CacheKey)
	Purge()
	Len() int
}

// Config builds a concrete Cache. Passing the config instead of a raw size
// keeps construction declarative at the call site, the way the teacher's
// CacheConfiger does.
type Config interface {
	newCache() (Cache, error)
}

// NewCache builds the Cache described by cfg.
func NewCache(cfg Config) (Cache, error) {
	if cfg == nil {
		return nil, fmt.Errorf("cache config is nil")
	}
	return cfg.newCache()
}

// LRUConfig builds a single, unsharded LRU cache of the given size.
type LRUConfig struct {
	Size int
}

func (c LRUConfig) newCache() (Cache, error) {
	l, err := lru.New(c.Size)
	if err != nil {
		return nil, err
	}
	return &lruCache{lru: l}, nil
}

type lruCache struct {
	lru *lru.Cache
}

func (c *lruCache) Add(key CacheKey, value interface{}) (evicted bool) {
	return c.lru.Add(key, value)
}

func (c *lruCache) Get(key CacheKey) (interface{}, bool) { return c.lru.Get(key) }
func (c *lruCache) Contains(key CacheKey) bool           { return c.lru.Contains(key) }
func (c *lruCache) Remove(key CacheKey)                  { c.lru.Remove(key) }
func (c *lruCache) Purge()                               { c.lru.Purge() }
func (c *lruCache) Len() int                             { return c.lru.Len() }

// ShardedConfig builds a power-of-two sharded LRU cache: one inner LRU per
// shard, selected by CacheKey.getShardIndex, so that independent readers and
// writers rarely contend on the same shard's lock.
type ShardedConfig struct {
	Size      int
	NumShards int
}

const minShardSize = 10

func (c ShardedConfig) newCache() (Cache, error) {
	if c.Size < 1 {
		return nil, fmt.Errorf("cache size must be positive, got %d", c.Size)
	}
	numShards := c.powerOfTwoShardCount()

	shard := &shardedCache{
		shards:         make([]*lru.Cache, numShards),
		shardIndexMask: numShards - 1,
	}
	shardSize := c.Size / numShards
	if shardSize < 1 {
		shardSize = 1
	}
	for i := 0; i < numShards; i++ {
		l, err := lru.New(shardSize)
		if err != nil {
			return nil, err
		}
		shard.shards[i] = l
	}
	return shard, nil
}

// powerOfTwoShardCount clamps NumShards down to the nearest power of two no
// larger than Size/minShardSize, with a floor of 1 shard.
func (c ShardedConfig) powerOfTwoShardCount() int {
	maxShards := int(math.Max(1, float64(c.Size/minShardSize)))
	n := c.NumShards
	if n < 1 {
		n = 1
	}
	if n > maxShards {
		n = maxShards
	}
	// round down to a power of two
	for n&(n-1) != 0 {
		n &= n - 1
	}
	if n < 1 {
		n = 1
	}
	return n
}

type shardedCache struct {
	shards         []*lru.Cache
	shardIndexMask int
}

func (c *shardedCache) shardFor(key CacheKey) *lru.Cache {
	return c.shards[key.getShardIndex(c.shardIndexMask)]
}

func (c *shardedCache) Add(key CacheKey, value interface{}) (evicted bool) {
	return c.shardFor(key).Add(key, value)
}
func (c *shardedCache) Get(key CacheKey) (interface{}, bool) { return c.shardFor(key).Get(key) }
func (c *shardedCache) Contains(key CacheKey) bool           { return c.shardFor(key).Contains(key) }
func (c *shardedCache) Remove(key CacheKey)                  { c.shardFor(key).Remove(key) }
func (c *shardedCache) Purge() {
	for _, s := range c.shards {
		s.Purge()
	}
}
func (c *shardedCache) Len() int {
	n := 0
	for _, s := range c.shards {
		n += s.Len()
	}
	return n
}
