// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package postgres is the authoritative Store implementation, backed by
// Postgres through database/sql and lib/pq. Every exported method is one
// transaction: it either commits in full or the caller sees no effect,
// satisfying spec.md §4.1's atomicity requirement — in particular, the
// descendant path/level rewrite triggered by UpdateFolder runs inside the
// same transaction as the subject's own update.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	// Registers the "postgres" database/sql driver.
	_ "github.com/lib/pq"

	"github.com/google/uuid"
	"github.com/huandu/go-sqlbuilder"

	"github.com/fastnoteapp/backend/internal/apperr"
	"github.com/fastnoteapp/backend/internal/hierarchy"
	"github.com/fastnoteapp/backend/internal/model"
)

// Store is a Postgres-backed store.Store.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open connects to Postgres, bounding the pool by maxConns and the
// connect/acquire deadline by connectTimeout, per spec.md §5's shared
// connection-pool resource model.
func Open(dsn string, maxConns int, connectTimeout time.Duration) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, apperr.NewUnavailable("failed to open postgres connection", err)
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(maxConns)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		return nil, apperr.NewUnavailable("failed to reach postgres", err)
	}
	return &Store{db: db, now: time.Now}, nil
}

// New wraps an already-open *sql.DB, useful when the caller manages the
// pool lifecycle itself (e.g. tests against a disposable container).
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error { return s.db.Close() }

func translatePqError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NewNotFound("not found")
	}
	msg := err.Error()
	if strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate key") {
		return apperr.NewConflict(apperr.ReasonDuplicateName, "duplicate entry")
	}
	return apperr.NewInternal("store operation failed", err)
}

// --- Users ---------------------------------------------------------------

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (model.User, error) {
	var u model.User
	u.ID = uuid.New()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (id, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, password_hash, created_at, updated_at
	`, u.ID, email, passwordHash).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, translatePqError(err)
	}
	return u, nil
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at, updated_at FROM users WHERE email = $1
	`, email).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, translatePqError(err)
	}
	return u, nil
}

func (s *Store) FindUserByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	var u model.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at, updated_at FROM users WHERE id = $1
	`, id).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, translatePqError(err)
	}
	return u, nil
}

func (s *Store) DeleteUser(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return translatePqError(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NewNotFound("user not found")
	}
	return nil
}

// --- Folders ---------------------------------------------------------------

func (s *Store) CreateFolder(ctx context.Context, tenant uuid.UUID, name string, parent *uuid.UUID) (model.Folder, error) {
	name, err := hierarchy.ValidateName(name)
	if err != nil {
		return model.Folder{}, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Folder{}, apperr.NewUnavailable("failed to start transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var path string
	var level int
	if parent != nil {
		var pPath string
		var pLevel int
		var pTenant uuid.UUID
		err := tx.QueryRowContext(ctx, `SELECT tenant_id, path, level FROM folders WHERE id = $1 FOR SHARE`, *parent).
			Scan(&pTenant, &pPath, &pLevel)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && pTenant != tenant) {
			return model.Folder{}, apperr.NewNotFound("parent folder not found")
		}
		if err != nil {
			return model.Folder{}, translatePqError(err)
		}
		level = pLevel + 1
		if err := hierarchy.CheckDepth(level); err != nil {
			return model.Folder{}, err
		}
		path = hierarchy.ChildPath(pPath, name)
	} else {
		level = 0
		path = hierarchy.RootPath(name)
	}

	id := uuid.New()
	var f model.Folder
	err = tx.QueryRowContext(ctx, `
		INSERT INTO folders (id, tenant_id, parent_id, name, path, level, version)
		VALUES ($1, $2, $3, $4, $5, $6, 1)
		RETURNING id, tenant_id, parent_id, name, path, level, version, created_at, updated_at
	`, id, tenant, parent, name, path, level).Scan(
		&f.ID, &f.TenantID, &f.ParentID, &f.Name, &f.Path, &f.Level, &f.Version, &f.CreatedAt, &f.UpdatedAt,
	)
	if err != nil {
		return model.Folder{}, translatePqError(err)
	}
	if err := tx.Commit(); err != nil {
		return model.Folder{}, apperr.NewUnavailable("failed to commit transaction", err)
	}
	return f, nil
}

func (s *Store) UpdateFolder(ctx context.Context, tenant, id uuid.UUID, newName *string, newParent *uuid.UUID, hasNewParent bool, expectedVersion int64) (model.Folder, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Folder{}, apperr.NewUnavailable("failed to start transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var f model.Folder
	err = tx.QueryRowContext(ctx, `
		SELECT id, tenant_id, parent_id, name, path, level, version, created_at, updated_at
		FROM folders WHERE id = $1 FOR UPDATE
	`, id).Scan(&f.ID, &f.TenantID, &f.ParentID, &f.Name, &f.Path, &f.Level, &f.Version, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Folder{}, apperr.NewNotFound("folder not found")
	}
	if err != nil {
		return model.Folder{}, translatePqError(err)
	}
	if f.TenantID != tenant {
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

	oldPath, oldLevel := f.Path, f.Level
	var newPath string
	var newLevel int

	if parent != nil {
		if *parent == id {
			return model.Folder{}, apperr.NewConflict(apperr.ReasonCycle, "folder cannot be its own parent")
		}
		var pPath string
		var pLevel int
		var pTenant uuid.UUID
		err := tx.QueryRowContext(ctx, `SELECT tenant_id, path, level FROM folders WHERE id = $1 FOR SHARE`, *parent).
			Scan(&pTenant, &pPath, &pLevel)
		if errors.Is(err, sql.ErrNoRows) || (err == nil && pTenant != tenant) {
			return model.Folder{}, apperr.NewNotFound("parent folder not found")
		}
		if err != nil {
			return model.Folder{}, translatePqError(err)
		}
		if hierarchy.IsAncestorOrSelf(oldPath, pPath) {
			return model.Folder{}, apperr.NewConflict(apperr.ReasonCycle, "new parent is a descendant of this folder")
		}
		newLevel = pLevel + 1
		newPath = hierarchy.ChildPath(pPath, name)
	} else {
		newLevel = 0
		newPath = hierarchy.RootPath(name)
	}
	if err := hierarchy.CheckDepth(newLevel); err != nil {
		return model.Folder{}, err
	}

	var siblingCount int
	err = tx.QueryRowContext(ctx, `
		SELECT count(*) FROM folders
		WHERE tenant_id = $1 AND id != $2 AND name = $3
		  AND parent_id IS NOT DISTINCT FROM $4
	`, tenant, id, name, parent).Scan(&siblingCount)
	if err != nil {
		return model.Folder{}, translatePqError(err)
	}
	if siblingCount > 0 {
		return model.Folder{}, apperr.NewConflict(apperr.ReasonDuplicateName, "sibling folder name already exists")
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, path, level FROM folders WHERE tenant_id = $1 AND path LIKE $2 AND id != $3`,
		tenant, oldPath+"%", id)
	if err != nil {
		return model.Folder{}, translatePqError(err)
	}
	type desc struct {
		id    uuid.UUID
		path  string
		level int
	}
	var descendants []desc
	for rows.Next() {
		var d desc
		if err := rows.Scan(&d.id, &d.path, &d.level); err != nil {
			rows.Close()
			return model.Folder{}, translatePqError(err)
		}
		descendants = append(descendants, d)
	}
	rows.Close()

	delta := newLevel - oldLevel
	for _, d := range descendants {
		_, dl := hierarchy.RewriteDescendantPath(d.path, oldPath, newPath, d.level, delta)
		if err := hierarchy.CheckDepth(dl); err != nil {
			return model.Folder{}, err
		}
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE folders SET name = $1, parent_id = $2, path = $3, level = $4, version = version + 1, updated_at = now()
		WHERE id = $5
	`, name, parent, newPath, newLevel, id); err != nil {
		return model.Folder{}, translatePqError(err)
	}

	for _, d := range descendants {
		dp, dl := hierarchy.RewriteDescendantPath(d.path, oldPath, newPath, d.level, delta)
		if _, err := tx.ExecContext(ctx, `UPDATE folders SET path = $1, level = $2, updated_at = now() WHERE id = $3`, dp, dl, d.id); err != nil {
			return model.Folder{}, translatePqError(err)
		}
	}

	if err := tx.Commit(); err != nil {
		return model.Folder{}, apperr.NewUnavailable("failed to commit transaction", err)
	}
	return s.GetFolder(ctx, tenant, id)
}

func (s *Store) DeleteFolder(ctx context.Context, tenant, id uuid.UUID) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return apperr.NewUnavailable("failed to start transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var path string
	var parentID *uuid.UUID
	var rowTenant uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT tenant_id, path, parent_id FROM folders WHERE id = $1 FOR UPDATE`, id).
		Scan(&rowTenant, &path, &parentID)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NewNotFound("folder not found")
	}
	if err != nil {
		return translatePqError(err)
	}
	if rowTenant != tenant {
		return apperr.NewNotFound("folder not found")
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE notes SET folder_id = $1, updated_at = now() WHERE tenant_id = $2 AND folder_id = $3
	`, parentID, tenant, id); err != nil {
		return translatePqError(err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM folders WHERE tenant_id = $1 AND (path LIKE $2 OR id = $3)`,
		tenant, path+"%", id); err != nil {
		return translatePqError(err)
	}

	if err := tx.Commit(); err != nil {
		return apperr.NewUnavailable("failed to commit transaction", err)
	}
	return nil
}

func (s *Store) GetFolder(ctx context.Context, tenant, id uuid.UUID) (model.Folder, error) {
	var f model.Folder
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, parent_id, name, path, level, version, created_at, updated_at
		FROM folders WHERE id = $1 AND tenant_id = $2
	`, id, tenant).Scan(&f.ID, &f.TenantID, &f.ParentID, &f.Name, &f.Path, &f.Level, &f.Version, &f.CreatedAt, &f.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Folder{}, apperr.NewNotFound("folder not found")
	}
	if err != nil {
		return model.Folder{}, translatePqError(err)
	}
	return f, nil
}

func (s *Store) ListFolders(ctx context.Context, tenant uuid.UUID, parent *uuid.UUID, hasParent bool) ([]model.Folder, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "tenant_id", "parent_id", "name", "path", "level", "version", "created_at", "updated_at").
		From("folders").
		Where(sb.Equal("tenant_id", tenant))
	if hasParent {
		if parent != nil {
			sb.Where(sb.Equal("parent_id", *parent))
		} else {
			sb.Where(sb.IsNull("parent_id"))
		}
	}
	sb.OrderBy("name", "path")
	query, args := sb.BuildWithFlavor(sqlbuilder.PostgreSQL)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translatePqError(err)
	}
	defer rows.Close()

	var out []model.Folder
	for rows.Next() {
		var f model.Folder
		if err := rows.Scan(&f.ID, &f.TenantID, &f.ParentID, &f.Name, &f.Path, &f.Level, &f.Version, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, translatePqError(err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// --- Notes ---------------------------------------------------------------

func (s *Store) CreateNote(ctx context.Context, tenant uuid.UUID, title, content string, folder *uuid.UUID) (model.Note, error) {
	if folder != nil {
		var count int
		if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM folders WHERE id = $1 AND tenant_id = $2`, *folder, tenant).Scan(&count); err != nil {
			return model.Note{}, translatePqError(err)
		}
		if count == 0 {
			return model.Note{}, apperr.NewNotFound("folder not found")
		}
	}
	var n model.Note
	id := uuid.New()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO notes (id, tenant_id, folder_id, title, content, version)
		VALUES ($1, $2, $3, $4, $5, 1)
		RETURNING id, tenant_id, folder_id, title, content, version, created_at, updated_at
	`, id, tenant, folder, title, content).Scan(&n.ID, &n.TenantID, &n.FolderID, &n.Title, &n.Content, &n.Version, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		return model.Note{}, translatePqError(err)
	}
	return n, nil
}

func (s *Store) UpdateNote(ctx context.Context, tenant, id uuid.UUID, title, content string, expectedVersion int64) (model.Note, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notes SET title = $1, content = $2, version = version + 1, updated_at = now()
		WHERE id = $3 AND tenant_id = $4 AND version = $5
	`, title, content, id, tenant, expectedVersion)
	if err != nil {
		return model.Note{}, translatePqError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Note{}, translatePqError(err)
	}
	if n == 1 {
		return s.GetNote(ctx, tenant, id)
	}
	return model.Note{}, s.noteCASFailure(ctx, tenant, id)
}

func (s *Store) MoveNote(ctx context.Context, tenant, id uuid.UUID, newFolder *uuid.UUID, hasNewFolder bool, expectedVersion int64) (model.Note, error) {
	if hasNewFolder && newFolder != nil {
		var count int
		if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM folders WHERE id = $1 AND tenant_id = $2`, *newFolder, tenant).Scan(&count); err != nil {
			return model.Note{}, translatePqError(err)
		}
		if count == 0 {
			return model.Note{}, apperr.NewNotFound("folder not found")
		}
	}

	var res sql.Result
	var err error
	if hasNewFolder {
		res, err = s.db.ExecContext(ctx, `
			UPDATE notes SET folder_id = $1, version = version + 1, updated_at = now()
			WHERE id = $2 AND tenant_id = $3 AND version = $4
		`, newFolder, id, tenant, expectedVersion)
	} else {
		res, err = s.db.ExecContext(ctx, `
			UPDATE notes SET version = version + 1, updated_at = now()
			WHERE id = $1 AND tenant_id = $2 AND version = $3
		`, id, tenant, expectedVersion)
	}
	if err != nil {
		return model.Note{}, translatePqError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Note{}, translatePqError(err)
	}
	if n == 1 {
		return s.GetNote(ctx, tenant, id)
	}
	return model.Note{}, s.noteCASFailure(ctx, tenant, id)
}

// noteCASFailure disambiguates a zero-rows-affected CAS write per spec.md
// §4.4: NotFound if the note does not exist, Conflict(version_mismatch) if
// it exists but the version moved on.
func (s *Store) noteCASFailure(ctx context.Context, tenant, id uuid.UUID) error {
	_, err := s.GetNote(ctx, tenant, id)
	if err != nil {
		return err
	}
	return apperr.NewConflict(apperr.ReasonVersionMismatch, "note version mismatch")
}

func (s *Store) DeleteNote(ctx context.Context, tenant, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND tenant_id = $2`, id, tenant)
	if err != nil {
		return translatePqError(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return apperr.NewNotFound("note not found")
	}
	return nil
}

func (s *Store) GetNote(ctx context.Context, tenant, id uuid.UUID) (model.Note, error) {
	var n model.Note
	err := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, folder_id, title, content, version, created_at, updated_at
		FROM notes WHERE id = $1 AND tenant_id = $2
	`, id, tenant).Scan(&n.ID, &n.TenantID, &n.FolderID, &n.Title, &n.Content, &n.Version, &n.CreatedAt, &n.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Note{}, apperr.NewNotFound("note not found")
	}
	if err != nil {
		return model.Note{}, translatePqError(err)
	}
	return n, nil
}

func noteListQuery(tenant uuid.UUID, filter model.NoteFilter) *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "tenant_id", "folder_id", "title", "content", "version", "created_at", "updated_at").
		From("notes").
		Where(sb.Equal("tenant_id", tenant))
	if filter.FolderID != nil {
		sb.Where(sb.Equal("folder_id", *filter.FolderID))
	} else if filter.ScopeRoot {
		sb.Where(sb.IsNull("folder_id"))
	}
	return sb
}

func (s *Store) ListNotes(ctx context.Context, tenant uuid.UUID, filter model.NoteFilter) ([]model.Note, int, error) {
	sb := noteListQuery(tenant, filter)
	if filter.Search != "" {
		sb.Where(sb.Or(
			sb.ILike("title", "%"+filter.Search+"%"),
			sb.ILike("content", "%"+filter.Search+"%"),
		))
	}

	countSB := sqlbuilder.NewSelectBuilder()
	countQuery, countArgs := cloneAsCount(sb).BuildWithFlavor(sqlbuilder.PostgreSQL)
	_ = countSB
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, translatePqError(err)
	}

	sb.OrderBy("updated_at DESC", "id")
	sb.Limit(filter.Limit).Offset(filter.Offset)
	query, args := sb.BuildWithFlavor(sqlbuilder.PostgreSQL)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translatePqError(err)
	}
	defer rows.Close()

	var out []model.Note
	for rows.Next() {
		var n model.Note
		if err := rows.Scan(&n.ID, &n.TenantID, &n.FolderID, &n.Title, &n.Content, &n.Version, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, 0, translatePqError(err)
		}
		out = append(out, n)
	}
	return out, total, rows.Err()
}

// cloneAsCount rewrites a SelectBuilder's projection to COUNT(*), keeping
// its WHERE clause, so the total-row count reflects the same filter as the
// page being returned.
func cloneAsCount(sb *sqlbuilder.SelectBuilder) *sqlbuilder.SelectBuilder {
	out := *sb
	out.Select("COUNT(*)")
	return &out
}

func (s *Store) SearchNotes(ctx context.Context, tenant uuid.UUID, filter model.NoteFilter) ([]model.SearchResult, int, error) {
	base := noteListQuery(tenant, filter)
	base.Select("id", "title", "content", "folder_id", "created_at", "updated_at")

	tsQuery := "plainto_tsquery('english', " + base.Args.Add(filter.Search) + ")"
	tsVector := "to_tsvector('english', title || ' ' || content)"
	base.Where(fmt.Sprintf("%s @@ %s", tsVector, tsQuery))

	countQuery, countArgs := cloneAsCount(base).BuildWithFlavor(sqlbuilder.PostgreSQL)
	var total int
	if err := s.db.QueryRowContext(ctx, countQuery, countArgs...).Scan(&total); err != nil {
		return nil, 0, translatePqError(err)
	}

	rankExpr := fmt.Sprintf("ts_rank(%s, %s)", tsVector, tsQuery)
	base.SelectMore(rankExpr + " AS rank")
	base.OrderBy("rank DESC", "updated_at DESC")
	base.Limit(filter.Limit).Offset(filter.Offset)
	query, args := base.BuildWithFlavor(sqlbuilder.PostgreSQL)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, translatePqError(err)
	}
	defer rows.Close()

	var out []model.SearchResult
	for rows.Next() {
		var (
			id                   uuid.UUID
			title, content       string
			folderID             *uuid.UUID
			createdAt, updatedAt time.Time
			rank                 float64
		)
		if err := rows.Scan(&id, &title, &content, &folderID, &createdAt, &updatedAt, &rank); err != nil {
			return nil, 0, translatePqError(err)
		}
		r := model.SearchResult{
			ID: id, Title: title, ContentSnippet: content, FolderID: folderID,
			CreatedAt: createdAt, UpdatedAt: updatedAt, Rank: rank,
		}
		if folderID != nil {
			if name, err := s.folderName(ctx, tenant, *folderID); err == nil {
				r.FolderName = &name
			}
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

func (s *Store) folderName(ctx context.Context, tenant, id uuid.UUID) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM folders WHERE id = $1 AND tenant_id = $2`, id, tenant).Scan(&name)
	return name, err
}
