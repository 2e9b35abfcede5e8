// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package memstore is an in-process Store implementation for tests and
// local development without Postgres. It follows the teacher's
// storage/inmem locking discipline: a single writer lock serializes
// mutations while readers take a shared read lock, and every public method
// is a self-contained "transaction" that either commits in full or leaves
// no trace of a partial update.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fastnoteapp/backend/internal/apperr"
	"github.com/fastnoteapp/backend/internal/hierarchy"
	"github.com/fastnoteapp/backend/internal/model"
)

// Store is an in-memory, mutex-guarded implementation of store.Store.
type Store struct {
	mu    sync.RWMutex
	now   func() time.Time
	users map[uuid.UUID]model.User
	// emailIndex enforces unique(email) across all users.
	emailIndex map[string]uuid.UUID
	folders    map[uuid.UUID]model.Folder
	notes      map[uuid.UUID]model.Note
}

// New returns an empty in-memory store.
func New() *Store {
	return &Store{
		now:        time.Now,
		users:      map[uuid.UUID]model.User{},
		emailIndex: map[string]uuid.UUID{},
		folders:    map[uuid.UUID]model.Folder{},
		notes:      map[uuid.UUID]model.Note{},
	}
}

// WithClock overrides the time source, for deterministic tests.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Close() error { return nil }

// --- Users ---------------------------------------------------------------

func (s *Store) CreateUser(_ context.Context, email, passwordHash string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.emailIndex[email]; exists {
		return model.User{}, apperr.NewConflict(apperr.ReasonDuplicateName, "email already registered")
	}
	now := s.now()
	u := model.User{
		ID: uuid.New(), Email: email, PasswordHash: passwordHash,
		CreatedAt: now, UpdatedAt: now,
	}
	s.users[u.ID] = u
	s.emailIndex[email] = u.ID
	return u, nil
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.emailIndex[email]
	if !ok {
		return model.User{}, apperr.NewNotFound("user not found")
	}
	return s.users[id], nil
}

func (s *Store) FindUserByID(_ context.Context, id uuid.UUID) (model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return model.User{}, apperr.NewNotFound("user not found")
	}
	return u, nil
}

func (s *Store) DeleteUser(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return apperr.NewNotFound("user not found")
	}
	delete(s.emailIndex, u.Email)
	delete(s.users, id)
	for fid, f := range s.folders {
		if f.TenantID == id {
			delete(s.folders, fid)
		}
	}
	for nid, n := range s.notes {
		if n.TenantID == id {
			delete(s.notes, nid)
		}
	}
	return nil
}

// --- Folders ---------------------------------------------------------------

func (s *Store) childrenOf(tenant uuid.UUID, parent *uuid.UUID) []model.Folder {
	var out []model.Folder
	for _, f := range s.folders {
		if f.TenantID != tenant {
			continue
		}
		if sameParent(f.ParentID, parent) {
			out = append(out, f)
		}
	}
	return out
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *Store) CreateFolder(_ context.Context, tenant uuid.UUID, name string, parent *uuid.UUID) (model.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	name, err := hierarchy.ValidateName(name)
	if err != nil {
		return model.Folder{}, err
	}

	var path string
	var level int
	if parent != nil {
		p, ok := s.folders[*parent]
		if !ok || p.TenantID != tenant {
			return model.Folder{}, apperr.NewNotFound("parent folder not found")
		}
		level = p.Level + 1
		if err := hierarchy.CheckDepth(level); err != nil {
			return model.Folder{}, err
		}
		path = hierarchy.ChildPath(p.Path, name)
	} else {
		level = 0
		path = hierarchy.RootPath(name)
	}

	for _, sib := range s.childrenOf(tenant, parent) {
		if sib.Name == name {
			return model.Folder{}, apperr.NewConflict(apperr.ReasonDuplicateName, "sibling folder name already exists")
		}
	}

	now := s.now()
	f := model.Folder{
		ID: uuid.New(), TenantID: tenant, Name: name, ParentID: parent,
		Path: path, Level: level, Version: 1, CreatedAt: now, UpdatedAt: now,
	}
	s.folders[f.ID] = f
	return f, nil
}

func (s *Store) descendants(tenant uuid.UUID, path string) []model.Folder {
	var out []model.Folder
	for _, f := range s.folders {
		if f.TenantID == tenant && f.Path != path && strings.HasPrefix(f.Path, path) {
			out = append(out, f)
		}
	}
	return out
}

func (s *Store) UpdateFolder(_ context.Context, tenant, id uuid.UUID, newName *string, newParent *uuid.UUID, hasNewParent bool, expectedVersion int64) (model.Folder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.folders[id]
	if !ok || f.TenantID != tenant {
		return model.Folder{}, apperr.NewNotFound("folder not found")
	}
	if f.Version != expectedVersion {
		return model.Folder{}, apperr.NewConflict(apperr.ReasonVersionMismatch, "folder version mismatch")
	}

	name := f.Name
	if newName != nil {
		n, err := hierarchy.ValidateName(*newName)
		if err != nil {
			return model.Folder{}, err
		}
		name = n
	}

	parent := f.ParentID
	if hasNewParent {
		parent = newParent
	}

	oldPath := f.Path
	oldLevel := f.Level

	var newPath string
	var newLevel int
	if parent != nil {
		if *parent == id {
			return model.Folder{}, apperr.NewConflict(apperr.ReasonCycle, "folder cannot be its own parent")
		}
		p, ok := s.folders[*parent]
		if !ok || p.TenantID != tenant {
			return model.Folder{}, apperr.NewNotFound("parent folder not found")
		}
		if hierarchy.IsAncestorOrSelf(oldPath, p.Path) {
			return model.Folder{}, apperr.NewConflict(apperr.ReasonCycle, "new parent is a descendant of this folder")
		}
		newLevel = p.Level + 1
		newPath = hierarchy.ChildPath(p.Path, name)
	} else {
		newLevel = 0
		newPath = hierarchy.RootPath(name)
	}

	if err := hierarchy.CheckDepth(newLevel); err != nil {
		return model.Folder{}, err
	}

	effectiveParent := parent
	if !hasNewParent {
		effectiveParent = f.ParentID
	}
	for _, sib := range s.childrenOf(tenant, effectiveParent) {
		if sib.ID != id && sib.Name == name {
			return model.Folder{}, apperr.NewConflict(apperr.ReasonDuplicateName, "sibling folder name already exists")
		}
	}

	descendants := s.descendants(tenant, oldPath)
	delta := newLevel - oldLevel
	for _, d := range descendants {
		_, dl := hierarchy.RewriteDescendantPath(d.Path, oldPath, newPath, d.Level, delta)
		if err := hierarchy.CheckDepth(dl); err != nil {
			return model.Folder{}, err
		}
	}

	now := s.now()
	f.Name = name
	f.ParentID = parent
	f.Path = newPath
	f.Level = newLevel
	f.Version++
	f.UpdatedAt = now
	s.folders[id] = f

	for _, d := range descendants {
		dp, dl := hierarchy.RewriteDescendantPath(d.Path, oldPath, newPath, d.Level, delta)
		d.Path = dp
		d.Level = dl
		d.UpdatedAt = now
		s.folders[d.ID] = d
	}

	return f, nil
}

func (s *Store) DeleteFolder(_ context.Context, tenant, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.folders[id]
	if !ok || f.TenantID != tenant {
		return apperr.NewNotFound("folder not found")
	}

	descendants := s.descendants(tenant, f.Path)
	for _, d := range descendants {
		delete(s.folders, d.ID)
	}
	delete(s.folders, id)

	now := s.now()
	for nid, n := range s.notes {
		if n.TenantID == tenant && n.FolderID != nil && *n.FolderID == id {
			n.FolderID = f.ParentID
			n.UpdatedAt = now
			s.notes[nid] = n
		}
	}
	return nil
}

func (s *Store) GetFolder(_ context.Context, tenant, id uuid.UUID) (model.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.folders[id]
	if !ok || f.TenantID != tenant {
		return model.Folder{}, apperr.NewNotFound("folder not found")
	}
	return f, nil
}

func (s *Store) ListFolders(_ context.Context, tenant uuid.UUID, parent *uuid.UUID, hasParent bool) ([]model.Folder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Folder
	for _, f := range s.folders {
		if f.TenantID != tenant {
			continue
		}
		if hasParent && !sameParent(f.ParentID, parent) {
			continue
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Path < out[j].Path
	})
	return out, nil
}

// --- Notes ---------------------------------------------------------------

func (s *Store) CreateNote(_ context.Context, tenant uuid.UUID, title, content string, folder *uuid.UUID) (model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if folder != nil {
		f, ok := s.folders[*folder]
		if !ok || f.TenantID != tenant {
			return model.Note{}, apperr.NewNotFound("folder not found")
		}
	}

	now := s.now()
	n := model.Note{
		ID: uuid.New(), TenantID: tenant, Title: title, Content: content,
		FolderID: folder, Version: 1, CreatedAt: now, UpdatedAt: now,
	}
	s.notes[n.ID] = n
	return n, nil
}

func (s *Store) UpdateNote(_ context.Context, tenant, id uuid.UUID, title, content string, expectedVersion int64) (model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok || n.TenantID != tenant {
		return model.Note{}, apperr.NewNotFound("note not found")
	}
	if n.Version != expectedVersion {
		return model.Note{}, apperr.NewConflict(apperr.ReasonVersionMismatch, "note version mismatch")
	}
	n.Title = title
	n.Content = content
	n.Version++
	n.UpdatedAt = s.now()
	s.notes[id] = n
	return n, nil
}

func (s *Store) MoveNote(_ context.Context, tenant, id uuid.UUID, newFolder *uuid.UUID, hasNewFolder bool, expectedVersion int64) (model.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok || n.TenantID != tenant {
		return model.Note{}, apperr.NewNotFound("note not found")
	}
	if n.Version != expectedVersion {
		return model.Note{}, apperr.NewConflict(apperr.ReasonVersionMismatch, "note version mismatch")
	}
	if hasNewFolder && newFolder != nil {
		f, ok := s.folders[*newFolder]
		if !ok || f.TenantID != tenant {
			return model.Note{}, apperr.NewNotFound("folder not found")
		}
	}
	if hasNewFolder {
		n.FolderID = newFolder
	}
	n.Version++
	n.UpdatedAt = s.now()
	s.notes[id] = n
	return n, nil
}

func (s *Store) DeleteNote(_ context.Context, tenant, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[id]
	if !ok || n.TenantID != tenant {
		return apperr.NewNotFound("note not found")
	}
	delete(s.notes, id)
	return nil
}

func (s *Store) GetNote(_ context.Context, tenant, id uuid.UUID) (model.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok || n.TenantID != tenant {
		return model.Note{}, apperr.NewNotFound("note not found")
	}
	return n, nil
}

func (s *Store) ListNotes(_ context.Context, tenant uuid.UUID, filter model.NoteFilter) ([]model.Note, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.Note
	for _, n := range s.notes {
		if n.TenantID != tenant {
			continue
		}
		if filter.FolderID != nil && (n.FolderID == nil || *n.FolderID != *filter.FolderID) {
			continue
		}
		if filter.FolderID == nil && filter.ScopeRoot && n.FolderID != nil {
			continue
		}
		if filter.Search != "" && !matchesSearch(n, filter.Search) {
			continue
		}
		matched = append(matched, n)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].UpdatedAt.Equal(matched[j].UpdatedAt) {
			return matched[i].UpdatedAt.After(matched[j].UpdatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})

	total := len(matched)
	lo, hi := paginate(filter.Offset, filter.Limit, total)
	return matched[lo:hi], total, nil
}

func matchesSearch(n model.Note, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(n.Title), term) || strings.Contains(strings.ToLower(n.Content), term)
}

func paginate(offset, limit, total int) (int, int) {
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return offset, end
}

func (s *Store) SearchNotes(ctx context.Context, tenant uuid.UUID, filter model.NoteFilter) ([]model.SearchResult, int, error) {
	notes, total, err := s.ListNotes(ctx, tenant, filter)
	if err != nil {
		return nil, 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.SearchResult, 0, len(notes))
	for _, n := range notes {
		out = append(out, model.SearchResult{
			ID:             n.ID,
			Title:          n.Title,
			ContentSnippet: snippet(n.Content, filter.Search),
			FolderID:       n.FolderID,
			FolderName:     s.folderName(tenant, n.FolderID),
			CreatedAt:      n.CreatedAt,
			UpdatedAt:      n.UpdatedAt,
			Rank:           rankOf(n, filter.Search),
		})
	}
	return out, total, nil
}

func (s *Store) folderName(tenant uuid.UUID, id *uuid.UUID) *string {
	if id == nil {
		return nil
	}
	f, ok := s.folders[*id]
	if !ok || f.TenantID != tenant {
		return nil
	}
	name := f.Name
	return &name
}

func snippet(content, term string) string {
	const radius = 60
	lc := strings.ToLower(content)
	idx := strings.Index(lc, strings.ToLower(term))
	if idx < 0 {
		if len(content) > 2*radius {
			return content[:2*radius] + "..."
		}
		return content
	}
	start := idx - radius
	if start < 0 {
		start = 0
	}
	end := idx + len(term) + radius
	if end > len(content) {
		end = len(content)
	}
	prefix, suffix := "", ""
	if start > 0 {
		prefix = "..."
	}
	if end < len(content) {
		suffix = "..."
	}
	return prefix + content[start:end] + suffix
}

func rankOf(n model.Note, term string) float64 {
	term = strings.ToLower(term)
	titleHits := strings.Count(strings.ToLower(n.Title), term)
	bodyHits := strings.Count(strings.ToLower(n.Content), term)
	return float64(titleHits)*2.0 + float64(bodyHits)*0.1
}
