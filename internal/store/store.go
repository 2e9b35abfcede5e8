// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package store defines the authoritative persistence contract: tenants,
// folders with materialized paths, and versioned notes, all tenant-scoped
// and transactional. Concrete implementations live in postgres (the
// authoritative backend) and memstore (an in-process stand-in for tests
// and local development without a database).
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/fastnoteapp/backend/internal/model"
)

// Store is the transactional, tenant-scoped persistence contract every
// mutation and read in the synchronization engine ultimately goes through.
type Store interface {
	CreateUser(ctx context.Context, email, passwordHash string) (model.User, error)
	FindUserByEmail(ctx context.Context, email string) (model.User, error)
	FindUserByID(ctx context.Context, id uuid.UUID) (model.User, error)
	DeleteUser(ctx context.Context, id uuid.UUID) error

	CreateFolder(ctx context.Context, tenant uuid.UUID, name string, parent *uuid.UUID) (model.Folder, error)
	UpdateFolder(ctx context.Context, tenant, id uuid.UUID, newName *string, newParent *uuid.UUID, hasNewParent bool, expectedVersion int64) (model.Folder, error)
	DeleteFolder(ctx context.Context, tenant, id uuid.UUID) error
	GetFolder(ctx context.Context, tenant, id uuid.UUID) (model.Folder, error)
	ListFolders(ctx context.Context, tenant uuid.UUID, parent *uuid.UUID, hasParent bool) ([]model.Folder, error)

	CreateNote(ctx context.Context, tenant uuid.UUID, title, content string, folder *uuid.UUID) (model.Note, error)
	UpdateNote(ctx context.Context, tenant, id uuid.UUID, title, content string, expectedVersion int64) (model.Note, error)
	MoveNote(ctx context.Context, tenant, id uuid.UUID, newFolder *uuid.UUID, hasNewFolder bool, expectedVersion int64) (model.Note, error)
	DeleteNote(ctx context.Context, tenant, id uuid.UUID) error
	GetNote(ctx context.Context, tenant, id uuid.UUID) (model.Note, error)
	ListNotes(ctx context.Context, tenant uuid.UUID, filter model.NoteFilter) ([]model.Note, int, error)
	SearchNotes(ctx context.Context, tenant uuid.UUID, filter model.NoteFilter) ([]model.SearchResult, int, error)

	Close() error
}

// Clock is overridable in tests; production wires time.Now.
type Clock func() time.Time
