// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package api

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/fastnoteapp/backend/internal/apperr"
	"github.com/fastnoteapp/backend/internal/model"
)

func folderIDFromPath(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, apperr.NewInvalid("id", apperr.ReasonMalformed, "invalid id")
	}
	return id, nil
}

type listFoldersResponse struct {
	Folders []model.FolderView `json:"folders"`
}

func (s *Server) handleListFolders(w http.ResponseWriter, r *http.Request) {
	tenant, _ := tenantFromContext(r.Context())
	q := r.URL.Query()

	var parent *uuid.UUID
	hasParent := false
	if v := q.Get("parent_id"); v != "" {
		hasParent = true
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, apperr.NewInvalid("parent_id", apperr.ReasonMalformed, "invalid parent_id"))
			return
		}
		parent = &id
	}

	folders, err := s.pipeline.ListFolders(r.Context(), tenant, parent, hasParent)
	if err != nil {
		writeError(w, err)
		return
	}
	views := make([]model.FolderView, len(folders))
	for i, f := range folders {
		views[i] = f.View()
	}
	writeJSON(w, http.StatusOK, listFoldersResponse{Folders: views})
}

type createFolderRequest struct {
	Name           string     `json:"name"`
	ParentFolderID *uuid.UUID `json:"parent_folder_id"`
}

func (s *Server) handleCreateFolder(w http.ResponseWriter, r *http.Request) {
	tenant, _ := tenantFromContext(r.Context())
	var req createFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	f, err := s.pipeline.CreateFolder(r.Context(), tenant, req.Name, req.ParentFolderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, f.View())
}

type updateFolderRequest struct {
	Name           string     `json:"name"`
	ParentFolderID *uuid.UUID `json:"parent_folder_id"`
	Version        int64      `json:"version"`
}

func (s *Server) handleUpdateFolder(w http.ResponseWriter, r *http.Request) {
	tenant, _ := tenantFromContext(r.Context())
	id, err := folderIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateFolderRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	var name *string
	if req.Name != "" {
		name = &req.Name
	}
	f, err := s.pipeline.UpdateFolder(r.Context(), tenant, id, name, req.ParentFolderID, true, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, f.View())
}

func (s *Server) handleDeleteFolder(w http.ResponseWriter, r *http.Request) {
	tenant, _ := tenantFromContext(r.Context())
	id, err := folderIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.pipeline.DeleteFolder(r.Context(), tenant, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
