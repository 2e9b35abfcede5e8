// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package cache defines the namespaced key/value contract that fronts the
// authoritative store: TTL expiry, pattern invalidation, counters, and
// statistics. The cache is never the source of truth — reads fail open
// (a dependency error degrades to a miss) and writes fail loud (errors are
// returned to the caller, who proceeds with the mutation regardless).
package cache

import (
	"context"
	"time"
)

// Namespace groups related keys under one invalidation pattern.
type Namespace string

const (
	NamespaceUsers       Namespace = "users"
	NamespaceNotes       Namespace = "notes"
	NamespaceFolders     Namespace = "folders"
	NamespaceUserNotes   Namespace = "user_notes"
	NamespaceUserFolders Namespace = "user_folders"
	NamespaceSearch      Namespace = "search"
	NamespaceRateLimit   Namespace = "rate_limit"
)

// DefaultTTL is applied to Set and to the first Increment on a key when no
// explicit TTL is supplied.
const DefaultTTL = 3600 * time.Second

// Stats is a point-in-time snapshot of cache activity. HitRate is
// recomputed on every snapshot: hits/(hits+misses)*100, or 0 when the
// denominator is zero.
type Stats struct {
	Hits      int64     `json:"hits"`
	Misses    int64     `json:"misses"`
	Sets      int64     `json:"sets"`
	Deletes   int64     `json:"deletes"`
	Errors    int64     `json:"errors"`
	HitRate   float64   `json:"hit_rate"`
	LastReset time.Time `json:"last_reset"`
}

// Cache is the public contract every backend (redis, or a test double)
// implements. All methods are safe for concurrent use.
type Cache interface {
	// Get returns the stored value and true, or nil and false on a miss —
	// whether from absence, expiry, deserialization failure, or a
	// transport error. Transport errors are logged and counted, never
	// returned to the caller.
	Get(ctx context.Context, namespace Namespace, key string) ([]byte, bool)
	// Set stores value under namespace/key. ttl <= 0 means DefaultTTL.
	Set(ctx context.Context, namespace Namespace, key string, value []byte, ttl time.Duration) error
	// Delete removes a single key, reporting whether it existed.
	Delete(ctx context.Context, namespace Namespace, key string) (bool, error)
	// DeletePattern removes every key under namespace matching a glob
	// pattern (e.g. "*"), returning the number of keys removed.
	DeletePattern(ctx context.Context, namespace Namespace, glob string) (int, error)
	// Increment atomically adds delta to namespace/key (creating it at 0
	// first) and returns the new value. The first increment on a key
	// stamps it with DefaultTTL.
	Increment(ctx context.Context, namespace Namespace, key string, delta int64) (int64, error)
	// Exists reports whether namespace/key holds a live (unexpired) entry.
	Exists(ctx context.Context, namespace Namespace, key string) (bool, error)
	// FlushAll removes every key under the configured prefix.
	FlushAll(ctx context.Context) error
	// Stats returns a snapshot of cumulative counters.
	Stats() Stats
	// ResetStats zeroes the counters and stamps LastReset to now.
	ResetStats()
	// Info returns backend-specific diagnostic text (e.g. redis INFO).
	Info(ctx context.Context) (string, error)

	// CheckRateLimit increments rate_limit:<tenant>:<endpoint>, stamping a
	// TTL of window on the first hit, and reports whether the resulting
	// count is still within limit.
	CheckRateLimit(ctx context.Context, tenant, endpoint string, limit int64, window time.Duration) (bool, error)

	Close() error
}
