// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package postgres

// Schema is the DDL for the persisted state layout described in spec.md §6:
// tenants, folders (path + level), notes (version), with the indices the
// spec calls for. Applied by migration tooling outside this package's
// scope; kept here so the authoritative shape lives next to the queries
// that depend on it.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
    id            UUID PRIMARY KEY,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS folders (
    id         UUID PRIMARY KEY,
    tenant_id  UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    parent_id  UUID REFERENCES folders(id) ON DELETE CASCADE,
    name       TEXT NOT NULL,
    path       TEXT NOT NULL,
    level      INTEGER NOT NULL,
    version    BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_folders_tenant_parent_name ON folders (tenant_id, COALESCE(parent_id, '00000000-0000-0000-0000-000000000000'), name);
CREATE INDEX IF NOT EXISTS idx_folders_tenant_path ON folders (tenant_id, path);

CREATE TABLE IF NOT EXISTS notes (
    id         UUID PRIMARY KEY,
    tenant_id  UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    folder_id  UUID REFERENCES folders(id) ON DELETE SET NULL,
    title      TEXT NOT NULL,
    content    TEXT NOT NULL,
    version    BIGINT NOT NULL DEFAULT 1,
    created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_notes_tenant_folder ON notes (tenant_id, folder_id);
CREATE INDEX IF NOT EXISTS idx_notes_updated_at ON notes (updated_at DESC);
CREATE INDEX IF NOT EXISTS idx_notes_fts ON notes USING GIN (to_tsvector('english', title || ' ' || content));
`
