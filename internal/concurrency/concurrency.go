// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package concurrency formalizes the rows-affected protocol spec.md §4.4
// describes: every note mutation carries an expected_version, the store
// executes a conditional update keyed on it, and the result disambiguates
// success from a lost race from a missing row. The store implementations
// already enforce the CAS themselves (it must hold inside their own
// transaction); this package is the named seam the Mutation Pipeline calls
// through, so the protocol has one place to read regardless of which
// store backend is wired.
package concurrency

import (
	"context"

	"github.com/google/uuid"

	"github.com/fastnoteapp/backend/internal/apperr"
	"github.com/fastnoteapp/backend/internal/model"
	"github.com/fastnoteapp/backend/internal/store"
)

// Controller adapts store.Store's CAS-bearing methods into the
// Concurrency Controller component spec.md §2 names separately from
// Store, without duplicating the compare-and-swap logic itself.
type Controller struct {
	store store.Store
}

// New wraps a store.Store.
func New(s store.Store) *Controller {
	return &Controller{store: s}
}

// UpdateNote performs a versioned note update. A Conflict(version_mismatch)
// or NotFound returned here is exactly the store's rows-affected outcome,
// unmodified — this method exists to give that outcome a name at the
// pipeline's CAS step rather than to reinterpret it.
func (c *Controller) UpdateNote(ctx context.Context, tenant, id uuid.UUID, title, content string, expectedVersion int64) (model.Note, error) {
	n, err := c.store.UpdateNote(ctx, tenant, id, title, content, expectedVersion)
	if err != nil {
		return model.Note{}, err
	}
	return n, nil
}

// MoveNote performs a versioned note move.
func (c *Controller) MoveNote(ctx context.Context, tenant, id uuid.UUID, newFolder *uuid.UUID, hasNewFolder bool, expectedVersion int64) (model.Note, error) {
	n, err := c.store.MoveNote(ctx, tenant, id, newFolder, hasNewFolder, expectedVersion)
	if err != nil {
		return model.Note{}, err
	}
	return n, nil
}

// UpdateFolder performs a versioned folder rename/reparent. Folders carry
// the same CAS discipline as notes per DESIGN.md's Open Question decision:
// the public API may omit exposing folder version, but it is always
// enforced server-side.
func (c *Controller) UpdateFolder(ctx context.Context, tenant, id uuid.UUID, newName *string, newParent *uuid.UUID, hasNewParent bool, expectedVersion int64) (model.Folder, error) {
	f, err := c.store.UpdateFolder(ctx, tenant, id, newName, newParent, hasNewParent, expectedVersion)
	if err != nil {
		return model.Folder{}, err
	}
	return f, nil
}

// IsConflict reports whether err is a version-mismatch conflict, the
// outcome the pipeline maps to 409.
func IsConflict(err error) bool {
	ae, ok := err.(*apperr.Error)
	if !ok {
		return false
	}
	return ae.Code == apperr.Conflict && ae.Reason == apperr.ReasonVersionMismatch
}
