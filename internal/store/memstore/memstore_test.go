// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package memstore

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastnoteapp/backend/internal/apperr"
	"github.com/fastnoteapp/backend/internal/model"
)

func newTestStore(t *testing.T) (*Store, uuid.UUID) {
	t.Helper()
	s := New()
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "tenant@example.com", "hash")
	require.NoError(t, err)
	return s, u.ID
}

func TestCreateUserDuplicateEmailConflicts(t *testing.T) {
	s := New()
	ctx := context.Background()
	_, err := s.CreateUser(ctx, "dup@example.com", "h1")
	require.NoError(t, err)
	_, err = s.CreateUser(ctx, "dup@example.com", "h2")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.Conflict))
}

func TestNoteVersionConflict(t *testing.T) {
	s, tenant := newTestStore(t)
	ctx := context.Background()

	n, err := s.CreateNote(ctx, tenant, "Title", "Body", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n.Version)

	_, err = s.UpdateNote(ctx, tenant, n.ID, "New Title", "New Body", n.Version)
	require.NoError(t, err)

	// Retry with the now-stale version.
	_, err = s.UpdateNote(ctx, tenant, n.ID, "Another Title", "Another Body", n.Version)
	require.Error(t, err)
	ae, ok := err.(*apperr.Error)
	require.True(t, ok)
	assert.Equal(t, apperr.Conflict, ae.Code)
	assert.Equal(t, apperr.ReasonVersionMismatch, ae.Reason)
}

func TestFolderCyclePrevention(t *testing.T) {
	s, tenant := newTestStore(t)
	ctx := context.Background()

	parent, err := s.CreateFolder(ctx, tenant, "Parent", nil)
	require.NoError(t, err)
	child, err := s.CreateFolder(ctx, tenant, "Child", &parent.ID)
	require.NoError(t, err)

	// Moving parent under its own child must be rejected as a cycle.
	_, err = s.UpdateFolder(ctx, tenant, parent.ID, nil, &child.ID, true, parent.Version)
	require.Error(t, err)
	ae := err.(*apperr.Error)
	assert.Equal(t, apperr.Conflict, ae.Code)
	assert.Equal(t, apperr.ReasonCycle, ae.Reason)

	// A folder cannot become its own parent either.
	_, err = s.UpdateFolder(ctx, tenant, parent.ID, nil, &parent.ID, true, parent.Version)
	require.Error(t, err)
	assert.Equal(t, apperr.ReasonCycle, err.(*apperr.Error).Reason)
}

func TestFolderDepthEnforcement(t *testing.T) {
	s, tenant := newTestStore(t)
	ctx := context.Background()

	var parent *uuid.UUID
	for i := 0; i <= model.DMAX; i++ {
		f, err := s.CreateFolder(ctx, tenant, uuid.NewString(), parent)
		require.NoError(t, err)
		parent = &f.ID
	}
	// One more level would exceed DMAX.
	_, err := s.CreateFolder(ctx, tenant, "TooDeep", parent)
	require.Error(t, err)
	ae := err.(*apperr.Error)
	assert.Equal(t, apperr.ReasonDepthExceeded, ae.Reason)
}

func TestFolderRenameCascadesDescendantPaths(t *testing.T) {
	s, tenant := newTestStore(t)
	ctx := context.Background()

	root, err := s.CreateFolder(ctx, tenant, "Work", nil)
	require.NoError(t, err)
	child, err := s.CreateFolder(ctx, tenant, "2026", &root.ID)
	require.NoError(t, err)
	grandchild, err := s.CreateFolder(ctx, tenant, "Q1", &child.ID)
	require.NoError(t, err)

	newName := "Archive"
	renamed, err := s.UpdateFolder(ctx, tenant, root.ID, &newName, nil, false, root.Version)
	require.NoError(t, err)
	assert.Equal(t, "/Archive/", renamed.Path)

	gotChild, err := s.GetFolder(ctx, tenant, child.ID)
	require.NoError(t, err)
	assert.Equal(t, "/Archive/2026/", gotChild.Path)

	gotGrandchild, err := s.GetFolder(ctx, tenant, grandchild.ID)
	require.NoError(t, err)
	assert.Equal(t, "/Archive/2026/Q1/", gotGrandchild.Path)
	assert.Equal(t, 2, gotGrandchild.Level)
}

func TestFolderReparentCascadesLevel(t *testing.T) {
	s, tenant := newTestStore(t)
	ctx := context.Background()

	a, err := s.CreateFolder(ctx, tenant, "A", nil)
	require.NoError(t, err)
	b, err := s.CreateFolder(ctx, tenant, "B", nil)
	require.NoError(t, err)
	aChild, err := s.CreateFolder(ctx, tenant, "AChild", &a.ID)
	require.NoError(t, err)

	moved, err := s.UpdateFolder(ctx, tenant, a.ID, nil, &b.ID, true, a.Version)
	require.NoError(t, err)
	assert.Equal(t, 1, moved.Level)
	assert.Equal(t, "/B/A/", moved.Path)

	gotAChild, err := s.GetFolder(ctx, tenant, aChild.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, gotAChild.Level)
	assert.Equal(t, "/B/A/AChild/", gotAChild.Path)
}

func TestDeleteFolderReparentsNotesToGrandparent(t *testing.T) {
	s, tenant := newTestStore(t)
	ctx := context.Background()

	root, err := s.CreateFolder(ctx, tenant, "Root", nil)
	require.NoError(t, err)
	mid, err := s.CreateFolder(ctx, tenant, "Mid", &root.ID)
	require.NoError(t, err)

	n, err := s.CreateNote(ctx, tenant, "Note", "Body", &mid.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteFolder(ctx, tenant, mid.ID))

	gotNote, err := s.GetNote(ctx, tenant, n.ID)
	require.NoError(t, err)
	require.NotNil(t, gotNote.FolderID)
	assert.Equal(t, root.ID, *gotNote.FolderID)

	_, err = s.GetFolder(ctx, tenant, mid.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestDeleteRootFolderReparentsNotesToRoot(t *testing.T) {
	s, tenant := newTestStore(t)
	ctx := context.Background()

	root, err := s.CreateFolder(ctx, tenant, "Root", nil)
	require.NoError(t, err)
	n, err := s.CreateNote(ctx, tenant, "Note", "Body", &root.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteFolder(ctx, tenant, root.ID))

	gotNote, err := s.GetNote(ctx, tenant, n.ID)
	require.NoError(t, err)
	assert.Nil(t, gotNote.FolderID)
}

func TestDeleteFolderCascadesDescendantFolders(t *testing.T) {
	s, tenant := newTestStore(t)
	ctx := context.Background()

	root, err := s.CreateFolder(ctx, tenant, "Root", nil)
	require.NoError(t, err)
	child, err := s.CreateFolder(ctx, tenant, "Child", &root.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteFolder(ctx, tenant, root.ID))

	_, err = s.GetFolder(ctx, tenant, child.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestTenantIsolation(t *testing.T) {
	s := New()
	ctx := context.Background()
	u1, err := s.CreateUser(ctx, "one@example.com", "h")
	require.NoError(t, err)
	u2, err := s.CreateUser(ctx, "two@example.com", "h")
	require.NoError(t, err)

	n, err := s.CreateNote(ctx, u1.ID, "Private", "secret", nil)
	require.NoError(t, err)

	_, err = s.GetNote(ctx, u2.ID, n.ID)
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.NotFound))
}

func TestSiblingNameConflict(t *testing.T) {
	s, tenant := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateFolder(ctx, tenant, "Notes", nil)
	require.NoError(t, err)
	_, err = s.CreateFolder(ctx, tenant, "Notes", nil)
	require.Error(t, err)
	assert.Equal(t, apperr.ReasonDuplicateName, err.(*apperr.Error).Reason)
}

func TestListNotesPaginationAndFilter(t *testing.T) {
	s, tenant := newTestStore(t)
	ctx := context.Background()
	folder, err := s.CreateFolder(ctx, tenant, "F", nil)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := s.CreateNote(ctx, tenant, "Note", "Body", &folder.ID)
		require.NoError(t, err)
	}
	for i := 0; i < 3; i++ {
		_, err := s.CreateNote(ctx, tenant, "Root note", "Body", nil)
		require.NoError(t, err)
	}

	notes, total, err := s.ListNotes(ctx, tenant, model.NoteFilter{FolderID: &folder.ID, Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, notes, 5)

	page, total, err := s.ListNotes(ctx, tenant, model.NoteFilter{Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.Equal(t, 8, total)
	assert.Len(t, page, 2)
}

func TestSearchNotesRanksTitleHitsHigher(t *testing.T) {
	s, tenant := newTestStore(t)
	ctx := context.Background()
	_, err := s.CreateNote(ctx, tenant, "apple pie recipe", "flour sugar butter", nil)
	require.NoError(t, err)
	_, err = s.CreateNote(ctx, tenant, "grocery list", "apple apple apple", nil)
	require.NoError(t, err)

	results, total, err := s.SearchNotes(ctx, tenant, model.NoteFilter{Search: "apple", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, results, 2)
	byTitle := map[string]model.SearchResult{}
	for _, r := range results {
		byTitle[r.Title] = r
	}
	require.Contains(t, byTitle, "apple pie recipe")
	require.Contains(t, byTitle, "grocery list")
	assert.Greater(t, byTitle["apple pie recipe"].Rank, byTitle["grocery list"].Rank)
	assert.True(t, strings.Contains(byTitle["grocery list"].ContentSnippet, "apple"))
}

func TestMoveNoteBetweenFolders(t *testing.T) {
	s, tenant := newTestStore(t)
	ctx := context.Background()
	f1, err := s.CreateFolder(ctx, tenant, "F1", nil)
	require.NoError(t, err)
	f2, err := s.CreateFolder(ctx, tenant, "F2", nil)
	require.NoError(t, err)
	n, err := s.CreateNote(ctx, tenant, "Note", "Body", &f1.ID)
	require.NoError(t, err)

	moved, err := s.MoveNote(ctx, tenant, n.ID, &f2.ID, true, n.Version)
	require.NoError(t, err)
	require.NotNil(t, moved.FolderID)
	assert.Equal(t, f2.ID, *moved.FolderID)
	assert.Equal(t, int64(2), moved.Version)
}

func TestDeleteUserCascadesFoldersAndNotes(t *testing.T) {
	s, tenant := newTestStore(t)
	ctx := context.Background()
	f, err := s.CreateFolder(ctx, tenant, "F", nil)
	require.NoError(t, err)
	n, err := s.CreateNote(ctx, tenant, "N", "B", &f.ID)
	require.NoError(t, err)

	require.NoError(t, s.DeleteUser(ctx, tenant))

	_, err = s.GetFolder(ctx, tenant, f.ID)
	require.Error(t, err)
	_, err = s.GetNote(ctx, tenant, n.ID)
	require.Error(t, err)
}
