// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/fastnoteapp/backend/internal/apperr"
	"github.com/fastnoteapp/backend/internal/model"
)

func noteIDFromPath(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, apperr.NewInvalid("id", apperr.ReasonMalformed, "invalid id")
	}
	return id, nil
}

type listNotesResponse struct {
	Notes []model.NoteListItem `json:"notes"`
	Total int                  `json:"total"`
}

type searchNotesResponse struct {
	Notes []model.SearchResult `json:"notes"`
	Total int                  `json:"total"`
}

func (s *Server) handleListNotes(w http.ResponseWriter, r *http.Request) {
	tenant, _ := tenantFromContext(r.Context())
	q := r.URL.Query()

	filter := model.NoteFilter{Search: q.Get("search"), Limit: 50, Offset: 0}
	if v := q.Get("folder_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, apperr.NewInvalid("folder_id", apperr.ReasonMalformed, "invalid folder_id"))
			return
		}
		filter.FolderID = &id
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > 1000 {
			writeError(w, apperr.NewInvalid("limit", apperr.ReasonMalformed, "limit must be in [1, 1000]"))
			return
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, apperr.NewInvalid("offset", apperr.ReasonMalformed, "offset must be >= 0"))
			return
		}
		filter.Offset = n
	}

	if filter.Search != "" {
		results, total, err := s.pipeline.SearchNotes(r.Context(), tenant, filter)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, searchNotesResponse{Notes: results, Total: total})
		return
	}

	notes, total, err := s.pipeline.ListNotes(r.Context(), tenant, filter)
	if err != nil {
		writeError(w, err)
		return
	}
	items := make([]model.NoteListItem, len(notes))
	for i, n := range notes {
		items[i] = n.ListItem()
	}
	writeJSON(w, http.StatusOK, listNotesResponse{Notes: items, Total: total})
}

type createNoteRequest struct {
	Title    string     `json:"title"`
	Content  string     `json:"content"`
	FolderID *uuid.UUID `json:"folder_id"`
}

func (s *Server) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	tenant, _ := tenantFromContext(r.Context())
	var req createNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	n, err := s.pipeline.CreateNote(r.Context(), tenant, req.Title, req.Content, req.FolderID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, n.View())
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	tenant, _ := tenantFromContext(r.Context())
	id, err := noteIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	n, err := s.pipeline.GetNote(r.Context(), tenant, id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n.View())
}

type updateNoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Version int64  `json:"version"`
}

func (s *Server) handleUpdateNote(w http.ResponseWriter, r *http.Request) {
	tenant, _ := tenantFromContext(r.Context())
	id, err := noteIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req updateNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	n, err := s.pipeline.UpdateNote(r.Context(), tenant, id, req.Title, req.Content, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n.View())
}

type moveNoteRequest struct {
	FolderID *uuid.UUID `json:"folder_id"`
	Version  int64      `json:"version"`
}

func (s *Server) handleMoveNote(w http.ResponseWriter, r *http.Request) {
	tenant, _ := tenantFromContext(r.Context())
	id, err := noteIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req moveNoteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	n, err := s.pipeline.MoveNote(r.Context(), tenant, id, req.FolderID, true, req.Version)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n.View())
}

func (s *Server) handleDeleteNote(w http.ResponseWriter, r *http.Request) {
	tenant, _ := tenantFromContext(r.Context())
	id, err := noteIDFromPath(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := s.pipeline.DeleteNote(r.Context(), tenant, id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
