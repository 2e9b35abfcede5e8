// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package api

import (
	"net/http"

	"github.com/fastnoteapp/backend/internal/apperr"
	"github.com/fastnoteapp/backend/internal/auth"
	"github.com/fastnoteapp/backend/internal/model"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authResponse struct {
	AccessToken  string             `json:"access_token"`
	RefreshToken string             `json:"refresh_token"`
	User         model.UserProfile  `json:"user,omitempty"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Email == "" || req.Password == "" {
		writeError(w, apperr.NewInvalid("email", apperr.ReasonInvalidName, "email and password are required"))
		return
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	u, err := s.pipeline.CreateUser(r.Context(), req.Email, hash)
	if err != nil {
		writeError(w, err)
		return
	}
	tokens, err := s.issuer.IssueTokens(u.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, authResponse{
		AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken, User: u.Profile(),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	u, err := s.pipeline.FindUserByEmail(r.Context(), req.Email)
	if err != nil || !auth.VerifyPassword(u.PasswordHash, req.Password) {
		writeError(w, apperr.NewUnauthorized("invalid email or password"))
		return
	}
	tokens, err := s.issuer.IssueTokens(u.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{AccessToken: tokens.AccessToken, RefreshToken: tokens.RefreshToken})
}
