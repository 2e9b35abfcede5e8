// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package pipeline is the single chokepoint every mutating API call goes
// through: authorize, validate, verify ownership, CAS, execute against the
// store, invalidate cache keys, emit a realtime event, and return the
// canonical post-image. Steps 6 and 7 (invalidation, emission) are
// best-effort: their failure is logged and counted but never rolls back an
// already-committed mutation or fails the API call, per spec.md §4.5.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-msgpack/v2/codec"

	"github.com/fastnoteapp/backend/internal/apperr"
	"github.com/fastnoteapp/backend/internal/cache"
	"github.com/fastnoteapp/backend/internal/concurrency"
	"github.com/fastnoteapp/backend/internal/hierarchy"
	"github.com/fastnoteapp/backend/internal/logging"
	"github.com/fastnoteapp/backend/internal/metrics"
	"github.com/fastnoteapp/backend/internal/model"
	"github.com/fastnoteapp/backend/internal/realtime"
	"github.com/fastnoteapp/backend/internal/store"
)

// Pipeline wires the Store, Concurrency Controller, Cache, and Realtime
// Hub behind the eight-step sequence spec.md §4.5 names.
type Pipeline struct {
	store     store.Store
	ctrl      *concurrency.Controller
	cache     cache.Cache
	hub       *realtime.Hub
	log       logging.Logger
	metrics   *metrics.Registry
	noteTTL   time.Duration
	searchTTL time.Duration
}

// New constructs a Pipeline. hub may be nil in tests that don't exercise
// realtime emission (step 7 is then a no-op). Cache-aside read TTLs default
// to cache.DefaultTTL until WithTTLs overrides them.
func New(s store.Store, c cache.Cache, hub *realtime.Hub, log logging.Logger, reg *metrics.Registry) *Pipeline {
	return &Pipeline{
		store: s, ctrl: concurrency.New(s), cache: c, hub: hub, log: log, metrics: reg,
		noteTTL: cache.DefaultTTL, searchTTL: cache.DefaultTTL,
	}
}

// WithTTLs overrides the TTLs applied to cache-aside read entries, wiring
// spec.md §6's CACHE_DEFAULT_TTL/SEARCH_TTL the way memcache's WithClock
// wires an injectable clock.
func (p *Pipeline) WithTTLs(defaultTTL, searchTTL time.Duration) *Pipeline {
	p.noteTTL = defaultTTL
	p.searchTTL = searchTTL
	return p
}

var cacheCodec = &codec.MsgpackHandle{}

// encodeCacheValue/decodeCacheValue serialize the domain values that ride
// behind a cache.Cache entry, using the same msgpack codec rediscache's
// envelope wraps around them — the Cache interface only ever sees bytes.
func encodeCacheValue(v interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := codec.NewEncoder(&buf, cacheCodec).Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeCacheValue(data []byte, v interface{}) error {
	return codec.NewDecoder(bytes.NewReader(data), cacheCodec).Decode(v)
}

// cacheSet populates the cache-aside entry after a store read. Encode and
// write failures are logged and swallowed: the caller already has its
// answer from the store, and a failed populate just means the next read
// misses too, per the Cache's fail-loud-on-write/fail-open-on-read contract
// applying one level up.
func (p *Pipeline) cacheSet(ctx context.Context, ns cache.Namespace, key string, v interface{}, ttl time.Duration) {
	raw, err := encodeCacheValue(v)
	if err != nil {
		p.log.WithFields(logging.Fields{"namespace": string(ns), "key": key, "error": err.Error()}).
			Warn("cache encode failed (best-effort)")
		return
	}
	if err := p.cache.Set(ctx, ns, key, raw, ttl); err != nil {
		p.log.WithFields(logging.Fields{"namespace": string(ns), "key": key, "error": err.Error()}).
			Warn("cache populate failed (best-effort)")
	}
}

func (p *Pipeline) invalidate(ctx context.Context, patterns map[cache.Namespace]string) {
	for ns, glob := range patterns {
		start := time.Now()
		_, err := p.cache.DeletePattern(ctx, ns, glob)
		if p.metrics != nil {
			p.metrics.ObservePipelineStep("invalidate", time.Since(start))
		}
		if err != nil {
			p.log.WithFields(logging.Fields{"namespace": string(ns), "glob": glob, "error": err.Error()}).
				Warn("cache invalidation failed (best-effort)")
		}
	}
}

func (p *Pipeline) emit(tenant uuid.UUID, channel realtime.Channel, eventType realtime.EventType, payload interface{}) {
	if p.hub == nil {
		return
	}
	if err := p.hub.Publish(tenant, channel, eventType, payload); err != nil {
		p.log.WithFields(logging.Fields{"tenant": tenant.String(), "event": string(eventType), "error": err.Error()}).
			Warn("realtime emission failed (best-effort)")
	}
}

// --- Notes -----------------------------------------------------------------

// CreateNote runs steps 2 (validate), 5 (execute), 6, 7, 8. Step 1
// (authorize) and 3 (ownership, for the optional folder reference) are the
// caller's and the store's responsibility respectively — the store
// returns NotFound for a cross-tenant folder reference, satisfying the
// "existence-probing" rule in one place.
func (p *Pipeline) CreateNote(ctx context.Context, tenant uuid.UUID, title, content string, folder *uuid.UUID) (model.Note, error) {
	if err := validateNote(title, content); err != nil {
		return model.Note{}, err
	}
	n, err := p.store.CreateNote(ctx, tenant, title, content, folder)
	if err != nil {
		return model.Note{}, err
	}
	p.invalidate(ctx, map[cache.Namespace]string{
		cache.NamespaceNotes:     fmt.Sprintf("%s", n.ID),
		cache.NamespaceUserNotes: fmt.Sprintf("%s:*", tenant),
		cache.NamespaceSearch:    fmt.Sprintf("%s:*", tenant),
	})
	p.emit(tenant, realtime.ChannelNotes, realtime.EventNoteCreated, n.View())
	return n, nil
}

func (p *Pipeline) UpdateNote(ctx context.Context, tenant, id uuid.UUID, title, content string, expectedVersion int64) (model.Note, error) {
	if err := validateNote(title, content); err != nil {
		return model.Note{}, err
	}
	n, err := p.ctrl.UpdateNote(ctx, tenant, id, title, content, expectedVersion)
	if err != nil {
		return model.Note{}, err
	}
	p.invalidateNote(ctx, tenant, n.ID)
	p.emit(tenant, realtime.ChannelNotes, realtime.EventNoteUpdated, n.View())
	return n, nil
}

func (p *Pipeline) MoveNote(ctx context.Context, tenant, id uuid.UUID, newFolder *uuid.UUID, hasNewFolder bool, expectedVersion int64) (model.Note, error) {
	if hasNewFolder && newFolder != nil {
		if _, err := p.store.GetFolder(ctx, tenant, *newFolder); err != nil {
			return model.Note{}, err
		}
	}
	n, err := p.ctrl.MoveNote(ctx, tenant, id, newFolder, hasNewFolder, expectedVersion)
	if err != nil {
		return model.Note{}, err
	}
	p.invalidateNote(ctx, tenant, n.ID)
	p.emit(tenant, realtime.ChannelNotes, realtime.EventNoteMoved, n.View())
	return n, nil
}

func (p *Pipeline) DeleteNote(ctx context.Context, tenant, id uuid.UUID) error {
	if err := p.store.DeleteNote(ctx, tenant, id); err != nil {
		return err
	}
	p.invalidateNote(ctx, tenant, id)
	p.emit(tenant, realtime.ChannelNotes, realtime.EventNoteDeleted, map[string]uuid.UUID{"id": id})
	return nil
}

func (p *Pipeline) invalidateNote(ctx context.Context, tenant, id uuid.UUID) {
	p.invalidate(ctx, map[cache.Namespace]string{
		cache.NamespaceNotes:     id.String(),
		cache.NamespaceUserNotes: fmt.Sprintf("%s:*", tenant),
		cache.NamespaceSearch:    fmt.Sprintf("%s:*", tenant),
	})
}

func validateNote(title, content string) error {
	if len(title) == 0 || len(title) > 255 {
		return apperr.NewInvalid("title", apperr.ReasonInvalidName, "title must be 1..=255 characters")
	}
	if len(content) > 1048576 {
		return apperr.NewInvalid("content", apperr.ReasonInvalidName, "content must be at most 1 MiB")
	}
	return nil
}

// --- Folders -----------------------------------------------------------------

func (p *Pipeline) CreateFolder(ctx context.Context, tenant uuid.UUID, name string, parent *uuid.UUID) (model.Folder, error) {
	f, err := p.store.CreateFolder(ctx, tenant, name, parent)
	if err != nil {
		return model.Folder{}, err
	}
	p.invalidateFolder(ctx, tenant, f.ID)
	p.emit(tenant, realtime.ChannelFolders, realtime.EventFolderCreated, f.View())
	return f, nil
}

func (p *Pipeline) UpdateFolder(ctx context.Context, tenant, id uuid.UUID, newName *string, newParent *uuid.UUID, hasNewParent bool, expectedVersion int64) (model.Folder, error) {
	if newName != nil {
		if _, err := hierarchy.ValidateName(*newName); err != nil {
			return model.Folder{}, err
		}
	}
	f, err := p.ctrl.UpdateFolder(ctx, tenant, id, newName, newParent, hasNewParent, expectedVersion)
	if err != nil {
		return model.Folder{}, err
	}
	p.invalidateFolder(ctx, tenant, f.ID)
	p.emit(tenant, realtime.ChannelFolders, realtime.EventFolderUpdated, f.View())
	return f, nil
}

func (p *Pipeline) DeleteFolder(ctx context.Context, tenant, id uuid.UUID) error {
	if err := p.store.DeleteFolder(ctx, tenant, id); err != nil {
		return err
	}
	p.invalidateFolder(ctx, tenant, id)
	p.emit(tenant, realtime.ChannelFolders, realtime.EventFolderDeleted, map[string]uuid.UUID{"id": id})
	return nil
}

func (p *Pipeline) invalidateFolder(ctx context.Context, tenant, id uuid.UUID) {
	p.invalidate(ctx, map[cache.Namespace]string{
		cache.NamespaceFolders:     id.String(),
		cache.NamespaceUserFolders: tenant.String(),
		cache.NamespaceUserNotes:   fmt.Sprintf("%s:*", tenant),
		cache.NamespaceSearch:      fmt.Sprintf("%s:*", tenant),
	})
}

// --- Accounts ----------------------------------------------------------

// CreateUser registers a new tenant. Email uniqueness is enforced by the
// store (a unique index), surfaced here as Conflict(duplicate_name).
func (p *Pipeline) CreateUser(ctx context.Context, email, passwordHash string) (model.User, error) {
	return p.store.CreateUser(ctx, email, passwordHash)
}

func (p *Pipeline) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	return p.store.FindUserByEmail(ctx, email)
}

// --- Reads (cache-aside, no controller/emission step) ----------------------
//
// Every method here is cache-aside per spec.md §2/§4.2: check the Cache
// first, and on a miss populate it from the Store under the namespace the
// mutating paths above already invalidate. A cache decode failure is
// treated as a miss rather than an error — the Store still has the answer.

func (p *Pipeline) GetNote(ctx context.Context, tenant, id uuid.UUID) (model.Note, error) {
	key := id.String()
	if raw, ok := p.cache.Get(ctx, cache.NamespaceNotes, key); ok {
		var n model.Note
		// cache.NamespaceNotes is keyed by id alone (matching the
		// invalidation pattern every mutation already uses), so a stale or
		// cross-tenant hit must be rejected here rather than trusted — a
		// mismatched TenantID falls through to the authoritative,
		// tenant-scoped store lookup instead of leaking another tenant's
		// note.
		if err := decodeCacheValue(raw, &n); err == nil && n.TenantID == tenant {
			return n, nil
		}
	}
	n, err := p.store.GetNote(ctx, tenant, id)
	if err != nil {
		return model.Note{}, err
	}
	p.cacheSet(ctx, cache.NamespaceNotes, key, n, p.noteTTL)
	return n, nil
}

// noteListCacheValue bundles the page of notes with its total count so a
// single cache entry serves both halves of a paginated response.
type noteListCacheValue struct {
	Notes []model.Note
	Total int
}

func (p *Pipeline) ListNotes(ctx context.Context, tenant uuid.UUID, filter model.NoteFilter) ([]model.Note, int, error) {
	key := fmt.Sprintf("%s:%s", tenant, noteFilterKey(filter))
	if raw, ok := p.cache.Get(ctx, cache.NamespaceUserNotes, key); ok {
		var cached noteListCacheValue
		if err := decodeCacheValue(raw, &cached); err == nil {
			return cached.Notes, cached.Total, nil
		}
	}
	notes, total, err := p.store.ListNotes(ctx, tenant, filter)
	if err != nil {
		return nil, 0, err
	}
	p.cacheSet(ctx, cache.NamespaceUserNotes, key, noteListCacheValue{Notes: notes, Total: total}, p.noteTTL)
	return notes, total, nil
}

type searchCacheValue struct {
	Results []model.SearchResult
	Total   int
}

func (p *Pipeline) SearchNotes(ctx context.Context, tenant uuid.UUID, filter model.NoteFilter) ([]model.SearchResult, int, error) {
	key := fmt.Sprintf("%s:%s", tenant, noteFilterKey(filter))
	if raw, ok := p.cache.Get(ctx, cache.NamespaceSearch, key); ok {
		var cached searchCacheValue
		if err := decodeCacheValue(raw, &cached); err == nil {
			return cached.Results, cached.Total, nil
		}
	}
	results, total, err := p.store.SearchNotes(ctx, tenant, filter)
	if err != nil {
		return nil, 0, err
	}
	p.cacheSet(ctx, cache.NamespaceSearch, key, searchCacheValue{Results: results, Total: total}, p.searchTTL)
	return results, total, nil
}

// noteFilterKey folds every filter dimension that changes a result set into
// one cache key suffix, so distinct queries for the same tenant land in
// distinct entries instead of clobbering each other.
func noteFilterKey(filter model.NoteFilter) string {
	folder := "any"
	switch {
	case filter.FolderID != nil:
		folder = filter.FolderID.String()
	case filter.ScopeRoot:
		folder = "root"
	}
	return fmt.Sprintf("%s:%s:%d:%d", folder, filter.Search, filter.Limit, filter.Offset)
}

func (p *Pipeline) GetFolder(ctx context.Context, tenant, id uuid.UUID) (model.Folder, error) {
	key := id.String()
	if raw, ok := p.cache.Get(ctx, cache.NamespaceFolders, key); ok {
		var f model.Folder
		// Same tenant guard as GetNote: cache.NamespaceFolders is keyed by
		// id alone, so a cross-tenant hit must be rejected rather than
		// trusted.
		if err := decodeCacheValue(raw, &f); err == nil && f.TenantID == tenant {
			return f, nil
		}
	}
	f, err := p.store.GetFolder(ctx, tenant, id)
	if err != nil {
		return model.Folder{}, err
	}
	p.cacheSet(ctx, cache.NamespaceFolders, key, f, p.noteTTL)
	return f, nil
}

type folderListCacheValue struct {
	Folders []model.Folder
}

// ListFolders caches the tenant's whole folder tree under one entry
// (cache.NamespaceUserFolders's key is exactly tenant.String(), matching
// invalidateFolder/DeleteUser's exact-match invalidation of that key) and
// applies the parent filter against the cached slice, rather than keying
// one cache entry per parent and needing a wildcard sweep to invalidate
// them all.
func (p *Pipeline) ListFolders(ctx context.Context, tenant uuid.UUID, parent *uuid.UUID, hasParent bool) ([]model.Folder, error) {
	all, err := p.allFoldersForTenant(ctx, tenant)
	if err != nil {
		return nil, err
	}
	if !hasParent {
		return all, nil
	}
	out := make([]model.Folder, 0, len(all))
	for _, f := range all {
		if sameParent(f.ParentID, parent) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (p *Pipeline) allFoldersForTenant(ctx context.Context, tenant uuid.UUID) ([]model.Folder, error) {
	key := tenant.String()
	if raw, ok := p.cache.Get(ctx, cache.NamespaceUserFolders, key); ok {
		var cached folderListCacheValue
		if err := decodeCacheValue(raw, &cached); err == nil {
			return cached.Folders, nil
		}
	}
	folders, err := p.store.ListFolders(ctx, tenant, nil, false)
	if err != nil {
		return nil, err
	}
	p.cacheSet(ctx, cache.NamespaceUserFolders, key, folderListCacheValue{Folders: folders}, p.noteTTL)
	return folders, nil
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// DeleteUser cascades via the store's foreign-key ON DELETE CASCADE
// (Postgres) or explicit cascade (memstore); the pipeline's job here is
// just the wider invalidation sweep spec.md §4.5's table lists.
func (p *Pipeline) DeleteUser(ctx context.Context, tenant uuid.UUID) error {
	if err := p.store.DeleteUser(ctx, tenant); err != nil {
		return err
	}
	p.invalidate(ctx, map[cache.Namespace]string{
		cache.NamespaceUsers:       tenant.String(),
		cache.NamespaceUserNotes:   fmt.Sprintf("%s:*", tenant),
		cache.NamespaceUserFolders: tenant.String(),
		cache.NamespaceSearch:      fmt.Sprintf("%s:*", tenant),
	})
	return nil
}
