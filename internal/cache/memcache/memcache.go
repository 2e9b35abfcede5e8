// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package memcache is an in-process cache.Cache used by tests and local
// development without a Redis instance. It implements the same fail-open
// read / fail-loud write contract as rediscache, minus the network.
package memcache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gobwas/glob"

	"github.com/fastnoteapp/backend/internal/cache"
)

type entry struct {
	value     []byte
	expiresAt time.Time
}

// Cache is a mutex-guarded in-memory cache.Cache.
type Cache struct {
	mu      sync.Mutex
	prefix  string
	data    map[string]entry
	now     func() time.Time
	stats   cache.Stats
}

// New constructs a Cache with the given key prefix.
func New(prefix string) *Cache {
	return &Cache{
		prefix: prefix,
		data:   make(map[string]entry),
		now:    time.Now,
		stats:  cache.Stats{LastReset: time.Now()},
	}
}

// WithClock overrides the clock, for deterministic expiry tests.
func (c *Cache) WithClock(now func() time.Time) *Cache {
	c.now = now
	return c
}

func (c *Cache) buildKey(namespace cache.Namespace, key string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, namespace, key)
}

func (c *Cache) Get(ctx context.Context, namespace cache.Namespace, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[c.buildKey(namespace, key)]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.data, c.buildKey(namespace, key))
		c.stats.Misses++
		return nil, false
	}
	c.stats.Hits++
	return e.value, true
}

func (c *Cache) Set(ctx context.Context, namespace cache.Namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[c.buildKey(namespace, key)] = entry{value: value, expiresAt: c.now().Add(ttl)}
	c.stats.Sets++
	return nil
}

func (c *Cache) Delete(ctx context.Context, namespace cache.Namespace, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := c.buildKey(namespace, key)
	_, ok := c.data[k]
	if ok {
		delete(c.data, k)
		c.stats.Deletes++
	}
	return ok, nil
}

func (c *Cache) DeletePattern(ctx context.Context, namespace cache.Namespace, pattern string) (int, error) {
	g, err := glob.Compile(pattern)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	prefix := fmt.Sprintf("%s:%s:", c.prefix, namespace)
	n := 0
	for k := range c.data {
		rest := k
		if len(k) >= len(prefix) && k[:len(prefix)] == prefix {
			rest = k[len(prefix):]
		} else {
			continue
		}
		if g.Match(rest) {
			delete(c.data, k)
			n++
		}
	}
	c.stats.Deletes += int64(n)
	return n, nil
}

func (c *Cache) Increment(ctx context.Context, namespace cache.Namespace, key string, delta int64) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	k := c.buildKey(namespace, key)
	e, ok := c.data[k]
	live := ok && !c.now().After(e.expiresAt)
	var current int64
	if live {
		fmt.Sscanf(string(e.value), "%d", &current)
	}
	current += delta
	ttl := cache.DefaultTTL
	if live {
		ttl = e.expiresAt.Sub(c.now())
	}
	c.data[k] = entry{value: []byte(fmt.Sprintf("%d", current)), expiresAt: c.now().Add(ttl)}
	return current, nil
}

func (c *Cache) Exists(ctx context.Context, namespace cache.Namespace, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.data[c.buildKey(namespace, key)]
	if !ok || c.now().After(e.expiresAt) {
		return false, nil
	}
	return true, nil
}

func (c *Cache) FlushAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data = make(map[string]entry)
	return nil
}

func (c *Cache) Stats() cache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	denom := s.Hits + s.Misses
	if denom > 0 {
		s.HitRate = float64(s.Hits) / float64(denom) * 100
	}
	return s
}

func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = cache.Stats{LastReset: c.now()}
}

func (c *Cache) Info(ctx context.Context) (string, error) {
	return "memcache (in-process, development/test only)", nil
}

func (c *Cache) CheckRateLimit(ctx context.Context, tenant, endpoint string, limit int64, window time.Duration) (bool, error) {
	key := fmt.Sprintf("%s:%s", tenant, endpoint)
	c.mu.Lock()
	k := c.buildKey(cache.NamespaceRateLimit, key)
	prev, found := c.data[k]
	existed := found && !c.now().After(prev.expiresAt)
	c.mu.Unlock()
	count, err := c.Increment(ctx, cache.NamespaceRateLimit, key, 1)
	if err != nil {
		return false, err
	}
	if !existed {
		c.mu.Lock()
		e := c.data[k]
		e.expiresAt = c.now().Add(window)
		c.data[k] = e
		c.mu.Unlock()
	}
	return count <= limit, nil
}

func (c *Cache) Close() error { return nil }

var _ cache.Cache = (*Cache)(nil)
