// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package concurrency

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastnoteapp/backend/internal/apperr"
	"github.com/fastnoteapp/backend/internal/store/memstore"
)

func TestUpdateNoteSurfacesVersionConflict(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "a@example.com", "hash")
	require.NoError(t, err)
	n, err := s.CreateNote(ctx, u.ID, "T", "C", nil)
	require.NoError(t, err)

	c := New(s)
	_, err = c.UpdateNote(ctx, u.ID, n.ID, "New", "Body", n.Version+1)
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestUpdateNoteSucceedsWithCorrectVersion(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "a@example.com", "hash")
	require.NoError(t, err)
	n, err := s.CreateNote(ctx, u.ID, "T", "C", nil)
	require.NoError(t, err)

	c := New(s)
	updated, err := c.UpdateNote(ctx, u.ID, n.ID, "New", "Body", n.Version)
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, n.Version+1, updated.Version)
}

func TestMoveNoteVersionConflict(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "a@example.com", "hash")
	require.NoError(t, err)
	n, err := s.CreateNote(ctx, u.ID, "T", "C", nil)
	require.NoError(t, err)
	folder, err := s.CreateFolder(ctx, u.ID, "F", nil)
	require.NoError(t, err)

	c := New(s)
	_, err = c.MoveNote(ctx, u.ID, n.ID, &folder.ID, true, n.Version+99)
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestIsConflictDistinguishesFromNotFound(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "a@example.com", "hash")
	require.NoError(t, err)

	c := New(s)
	_, err = c.UpdateNote(ctx, u.ID, u.ID /* not a note id */, "x", "y", 1)
	require.Error(t, err)
	assert.False(t, IsConflict(err))
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestIsConflictRejectsUnrelatedErrors(t *testing.T) {
	assert.False(t, IsConflict(errors.New("boom")))
	assert.False(t, IsConflict(nil))
}
