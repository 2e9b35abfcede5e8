// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package postgres

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	_ "github.com/lib/pq"

	"github.com/fastnoteapp/backend/internal/apperr"
)

// newTestStore connects to the database named by TEST_DATABASE_URL,
// resets it to a clean schema, and returns a Store against it. The
// memstore suite exercises the same store.Store contract without a
// database dependency; this suite only needs to confirm the SQL behind
// each method agrees with it, so it is skipped unless a real Postgres
// instance is available to run against (there is no in-process Postgres
// double in the dependency set, unlike rediscache's miniredis).
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping postgres integration tests")
	}
	db, err := sql.Open("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`DROP SCHEMA public CASCADE; CREATE SCHEMA public;`)
	require.NoError(t, err)
	_, err = db.Exec(Schema)
	require.NoError(t, err)

	return New(db)
}

func TestCreateAndFindUser(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u, err := s.CreateUser(ctx, "ada@example.com", "hash")
	require.NoError(t, err)

	found, err := s.FindUserByEmail(ctx, "ada@example.com")
	require.NoError(t, err)
	require.Equal(t, u.ID, found.ID)
}

func TestNoteVersionConflictSurfacesAsConflict(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "ada@example.com", "hash")
	require.NoError(t, err)

	n, err := s.CreateNote(ctx, u.ID, "Title", "Body", nil)
	require.NoError(t, err)

	_, err = s.UpdateNote(ctx, u.ID, n.ID, "New", "Body", n.Version+1)
	require.Error(t, err)
	require.True(t, apperr.Is(err, apperr.Conflict))
}

func TestFolderRenameCascadesDescendantPaths(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u, err := s.CreateUser(ctx, "ada@example.com", "hash")
	require.NoError(t, err)

	root, err := s.CreateFolder(ctx, u.ID, "Root", nil)
	require.NoError(t, err)
	child, err := s.CreateFolder(ctx, u.ID, "Child", &root.ID)
	require.NoError(t, err)

	newName := "Renamed"
	_, err = s.UpdateFolder(ctx, u.ID, root.ID, &newName, nil, false, root.Version)
	require.NoError(t, err)

	got, err := s.GetFolder(ctx, u.ID, child.ID)
	require.NoError(t, err)
	require.Contains(t, got.Path, "Renamed")
}
