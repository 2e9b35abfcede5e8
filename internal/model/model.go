// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package model defines the domain entities shared by every component of
// the synchronization engine: tenants, folders, notes, and their public
// projections.
package model

import (
	"time"

	"github.com/google/uuid"
)

// DMAX is the maximum folder depth (root is level 0).
const DMAX = 10

// User is a tenant: a stable account that owns all other entities.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserProfile is the public projection of User, omitting PasswordHash.
type UserProfile struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

func (u User) Profile() UserProfile {
	return UserProfile{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

// Folder is a node in a tenant's folder forest.
type Folder struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Name      string
	ParentID  *uuid.UUID
	Path      string
	Level     int
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FolderView is the canonical public shape returned by the API.
type FolderView struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	ParentFolderID *uuid.UUID `json:"parent_folder_id"`
	Path           string     `json:"path"`
	Level          int        `json:"level"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (f Folder) View() FolderView {
	return FolderView{
		ID:             f.ID,
		Name:           f.Name,
		ParentFolderID: f.ParentID,
		Path:           f.Path,
		Level:          f.Level,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// Note is a tenant-owned document, optionally filed under a Folder.
type Note struct {
	ID        uuid.UUID
	TenantID  uuid.UUID
	Title     string
	Content   string
	FolderID  *uuid.UUID
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NoteView is the canonical public shape for a single note.
type NoteView struct {
	ID        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	FolderID  *uuid.UUID `json:"folder_id"`
	Version   int64      `json:"version"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (n Note) View() NoteView {
	return NoteView{
		ID: n.ID, Title: n.Title, Content: n.Content, FolderID: n.FolderID,
		Version: n.Version, CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt,
	}
}

// maxPreviewRunes bounds the content_preview field on list responses.
const maxPreviewRunes = 200

// NoteListItem is the trimmed projection list_notes returns: a preview
// instead of full content, keeping listing payloads small. Grounded on
// original_source's NoteListResponse (content_preview).
type NoteListItem struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	FolderID        *uuid.UUID `json:"folder_id"`
	Version         int64      `json:"version"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	ContentPreview  string     `json:"content_preview"`
}

func (n Note) ListItem() NoteListItem {
	return NoteListItem{
		ID: n.ID, Title: n.Title, FolderID: n.FolderID, Version: n.Version,
		CreatedAt: n.CreatedAt, UpdatedAt: n.UpdatedAt,
		ContentPreview: previewOf(n.Content),
	}
}

func previewOf(content string) string {
	runes := []rune(content)
	if len(runes) <= maxPreviewRunes {
		return content
	}
	return string(runes[:maxPreviewRunes]) + "..."
}

// SearchResult is the ranked projection list_notes returns when a search
// term is supplied. Grounded on original_source's SearchResult
// (content_snippet, folder_name, rank).
type SearchResult struct {
	ID              uuid.UUID  `json:"id"`
	Title           string     `json:"title"`
	ContentSnippet  string     `json:"content_snippet"`
	FolderID        *uuid.UUID `json:"folder_id"`
	FolderName      *string    `json:"folder_name"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Rank            float64    `json:"rank"`
}

// NoteFilter narrows list_notes.
type NoteFilter struct {
	FolderID *uuid.UUID
	// ScopeRoot, when true and FolderID is nil, restricts the listing to
	// root notes (folder_id IS NULL) instead of all notes. The public
	// GET /notes?folder_id=<id> endpoint never sets this; it exists so
	// callers distinguish "no filter" from "root only".
	ScopeRoot bool
	Search    string
	Limit     int
	Offset    int
}
