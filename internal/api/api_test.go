// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fastnoteapp/backend/internal/auth"
	"github.com/fastnoteapp/backend/internal/cache/memcache"
	"github.com/fastnoteapp/backend/internal/logging"
	"github.com/fastnoteapp/backend/internal/metrics"
	"github.com/fastnoteapp/backend/internal/model"
	"github.com/fastnoteapp/backend/internal/pipeline"
	"github.com/fastnoteapp/backend/internal/store/memstore"
)

func newTestAPIServer(t *testing.T) *Server {
	t.Helper()
	s := memstore.New()
	c := memcache.New("test")
	log := logging.New(logging.Error, true)
	reg := metrics.New()
	p := pipeline.New(s, c, nil, log, reg)
	issuer := auth.NewIssuer("test-secret")
	return New(p, issuer, nil, log, reg)
}

func doJSON(t *testing.T, srv *Server, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	return w
}

func registerUser(t *testing.T, srv *Server, email string) authResponse {
	t.Helper()
	w := doJSON(t, srv, http.MethodPost, "/api/v1/auth/register", "", registerRequest{Email: email, Password: "hunter2hunter2"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestRegisterAndLogin(t *testing.T) {
	srv := newTestAPIServer(t)
	reg := registerUser(t, srv, "ada@example.com")
	assert.NotEmpty(t, reg.AccessToken)
	assert.Equal(t, "ada@example.com", reg.User.Email)

	w := doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "ada@example.com", Password: "hunter2hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	var login authResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &login))
	assert.NotEmpty(t, login.AccessToken)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	srv := newTestAPIServer(t)
	registerUser(t, srv, "ada@example.com")

	w := doJSON(t, srv, http.MethodPost, "/api/v1/auth/login", "", loginRequest{Email: "ada@example.com", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejectsMissingFields(t *testing.T) {
	srv := newTestAPIServer(t)
	w := doJSON(t, srv, http.MethodPost, "/api/v1/auth/register", "", registerRequest{Email: "", Password: ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotesRequireAuthentication(t *testing.T) {
	srv := newTestAPIServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/v1/notes", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateGetUpdateDeleteNote(t *testing.T) {
	srv := newTestAPIServer(t)
	reg := registerUser(t, srv, "ada@example.com")
	token := reg.AccessToken

	w := doJSON(t, srv, http.MethodPost, "/api/v1/notes", token, createNoteRequest{Title: "Hello", Content: "World"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created model.NoteView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, "Hello", created.Title)
	assert.EqualValues(t, 1, created.Version)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/notes/"+created.ID.String(), token, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, srv, http.MethodPut, "/api/v1/notes/"+created.ID.String(), token,
		updateNoteRequest{Title: "Renamed", Content: "World", Version: created.Version})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var updated model.NoteView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &updated))
	assert.Equal(t, "Renamed", updated.Title)
	assert.EqualValues(t, 2, updated.Version)

	// Stale version now conflicts.
	w = doJSON(t, srv, http.MethodPut, "/api/v1/notes/"+created.ID.String(), token,
		updateNoteRequest{Title: "Stale", Content: "World", Version: created.Version})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/notes/"+created.ID.String(), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/notes/"+created.ID.String(), token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateNoteRejectsEmptyTitle(t *testing.T) {
	srv := newTestAPIServer(t)
	reg := registerUser(t, srv, "ada@example.com")

	w := doJSON(t, srv, http.MethodPost, "/api/v1/notes", reg.AccessToken, createNoteRequest{Title: "", Content: "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestTenantsCannotSeeEachOthersNotes(t *testing.T) {
	srv := newTestAPIServer(t)
	alice := registerUser(t, srv, "alice@example.com")
	bob := registerUser(t, srv, "bob@example.com")

	w := doJSON(t, srv, http.MethodPost, "/api/v1/notes", alice.AccessToken, createNoteRequest{Title: "Secret", Content: "x"})
	require.Equal(t, http.StatusCreated, w.Code)
	var note model.NoteView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &note))

	w = doJSON(t, srv, http.MethodGet, "/api/v1/notes/"+note.ID.String(), bob.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateListAndDeleteFolder(t *testing.T) {
	srv := newTestAPIServer(t)
	reg := registerUser(t, srv, "ada@example.com")
	token := reg.AccessToken

	w := doJSON(t, srv, http.MethodPost, "/api/v1/folders", token, createFolderRequest{Name: "Projects"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var folder model.FolderView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &folder))
	assert.Equal(t, "Projects", folder.Name)

	w = doJSON(t, srv, http.MethodGet, "/api/v1/folders", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list listFoldersResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	assert.Len(t, list.Folders, 1)

	w = doJSON(t, srv, http.MethodDelete, "/api/v1/folders/"+folder.ID.String(), token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestInvalidBearerTokenRejected(t *testing.T) {
	srv := newTestAPIServer(t)
	w := doJSON(t, srv, http.MethodGet, "/api/v1/notes", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetricsEndpointServesExposition(t *testing.T) {
	srv := newTestAPIServer(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
