// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package rediscache implements internal/cache.Cache against Redis via
// redis/go-redis/v9. It is the only backend wired in production; memstore
// callers and unit tests that don't need a live Redis use a lighter
// in-process stand-in instead (see internal/cache/memcache for that role).
package rediscache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/fastnoteapp/backend/internal/cache"
	"github.com/fastnoteapp/backend/internal/logging"
)

// Cache is a Redis-backed cache.Cache.
type Cache struct {
	client       *redis.Client
	prefix       string
	compress     bool
	log          logging.Logger
	now          func() time.Time
	mu           sync.Mutex
	stats        cache.Stats
}

// Options configures a Cache.
type Options struct {
	Prefix             string
	EnableCompression  bool
	Logger             logging.Logger
}

// New constructs a Cache around an already-configured *redis.Client.
func New(client *redis.Client, opts Options) *Cache {
	log := opts.Logger
	if log == nil {
		log = logging.FromContext(context.Background())
	}
	return &Cache{
		client:   client,
		prefix:   opts.Prefix,
		compress: opts.EnableCompression,
		log:      log,
		now:      time.Now,
		stats:    cache.Stats{LastReset: time.Now()},
	}
}

func (c *Cache) buildKey(namespace cache.Namespace, key string) string {
	return fmt.Sprintf("%s:%s:%s", c.prefix, namespace, key)
}

func (c *Cache) recordHit()   { c.mu.Lock(); c.stats.Hits++; c.mu.Unlock() }
func (c *Cache) recordMiss()  { c.mu.Lock(); c.stats.Misses++; c.mu.Unlock() }
func (c *Cache) recordSet()   { c.mu.Lock(); c.stats.Sets++; c.mu.Unlock() }
func (c *Cache) recordDelete(n int) {
	if n <= 0 {
		return
	}
	c.mu.Lock()
	c.stats.Deletes += int64(n)
	c.mu.Unlock()
}
func (c *Cache) recordError() { c.mu.Lock(); c.stats.Errors++; c.mu.Unlock() }

// Get is fail-open: any transport error, deserialization failure, or
// expiry degrades to a miss. Errors are logged and counted, never
// returned.
func (c *Cache) Get(ctx context.Context, namespace cache.Namespace, key string) ([]byte, bool) {
	raw, err := c.client.Get(ctx, c.buildKey(namespace, key)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.log.WithFields(logging.Fields{"namespace": string(namespace), "error": err.Error()}).Warn("cache get failed")
			c.recordError()
		}
		c.recordMiss()
		return nil, false
	}
	env, err := decodeEnvelopeExported(raw)
	if err != nil {
		c.log.WithFields(logging.Fields{"namespace": string(namespace), "error": err.Error()}).Warn("cache envelope decode failed")
		c.recordError()
		c.recordMiss()
		return nil, false
	}
	if c.now().After(env.ExpiresAt) {
		c.recordMiss()
		go c.client.Del(context.Background(), c.buildKey(namespace, key))
		return nil, false
	}
	c.recordHit()
	return env.Payload, true
}

// Set is fail-loud: transport errors are returned to the caller.
func (c *Cache) Set(ctx context.Context, namespace cache.Namespace, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = cache.DefaultTTL
	}
	data, err := encodeEnvelopeExported(value, ttl, c.now(), c.compress)
	if err != nil {
		c.recordError()
		return err
	}
	if err := c.client.Set(ctx, c.buildKey(namespace, key), data, ttl).Err(); err != nil {
		c.recordError()
		return fmt.Errorf("cache set: %w", err)
	}
	c.recordSet()
	return nil
}

func (c *Cache) Delete(ctx context.Context, namespace cache.Namespace, key string) (bool, error) {
	n, err := c.client.Del(ctx, c.buildKey(namespace, key)).Result()
	if err != nil {
		c.recordError()
		return false, fmt.Errorf("cache delete: %w", err)
	}
	c.recordDelete(int(n))
	return n > 0, nil
}

// DeletePattern scans for keys under namespace matching glob via SCAN
// (never KEYS, to avoid blocking the server on large keyspaces) and
// deletes them in batches.
func (c *Cache) DeletePattern(ctx context.Context, namespace cache.Namespace, glob string) (int, error) {
	pattern := c.buildKey(namespace, glob)
	var cursor uint64
	var deleted int
	for {
		keys, next, err := c.client.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			c.recordError()
			return deleted, fmt.Errorf("cache scan: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				c.recordError()
				return deleted, fmt.Errorf("cache delete_pattern: %w", err)
			}
			deleted += int(n)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	c.recordDelete(deleted)
	return deleted, nil
}

// Increment stores a plain integer counter (no envelope) so INCRBY stays
// atomic server-side; the first increment on a key stamps DefaultTTL.
func (c *Cache) Increment(ctx context.Context, namespace cache.Namespace, key string, delta int64) (int64, error) {
	k := c.buildKey(namespace, key)
	pipe := c.client.TxPipeline()
	incr := pipe.IncrBy(ctx, k, delta)
	ttl := pipe.TTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		c.recordError()
		return 0, fmt.Errorf("cache increment: %w", err)
	}
	if ttl.Val() < 0 {
		if err := c.client.Expire(ctx, k, cache.DefaultTTL).Err(); err != nil {
			c.recordError()
			return incr.Val(), fmt.Errorf("cache increment expire: %w", err)
		}
	}
	return incr.Val(), nil
}

func (c *Cache) Exists(ctx context.Context, namespace cache.Namespace, key string) (bool, error) {
	n, err := c.client.Exists(ctx, c.buildKey(namespace, key)).Result()
	if err != nil {
		c.recordError()
		return false, fmt.Errorf("cache exists: %w", err)
	}
	return n > 0, nil
}

func (c *Cache) FlushAll(ctx context.Context) error {
	_, err := c.DeletePattern(ctx, "*", "*")
	return err
}

func (c *Cache) Stats() cache.Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	denom := s.Hits + s.Misses
	if denom > 0 {
		s.HitRate = float64(s.Hits) / float64(denom) * 100
	} else {
		s.HitRate = 0
	}
	return s
}

func (c *Cache) ResetStats() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = cache.Stats{LastReset: c.now()}
}

func (c *Cache) Info(ctx context.Context) (string, error) {
	s, err := c.client.Info(ctx).Result()
	if err != nil {
		return "", fmt.Errorf("cache info: %w", err)
	}
	return s, nil
}

func (c *Cache) CheckRateLimit(ctx context.Context, tenant, endpoint string, limit int64, window time.Duration) (bool, error) {
	key := fmt.Sprintf("%s:%s", tenant, endpoint)
	count, err := c.Increment(ctx, cache.NamespaceRateLimit, key, 1)
	if err != nil {
		return false, err
	}
	if count == 1 {
		if err := c.client.Expire(ctx, c.buildKey(cache.NamespaceRateLimit, key), window).Err(); err != nil {
			c.recordError()
			return false, fmt.Errorf("cache rate limit expire: %w", err)
		}
	}
	return count <= limit, nil
}

func (c *Cache) Close() error { return c.client.Close() }

var _ cache.Cache = (*Cache)(nil)
