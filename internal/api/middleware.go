// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package api

import (
	"net/http"
	"strings"

	"github.com/fastnoteapp/backend/internal/apperr"
)

// withAuth resolves the tenant from the Authorization: Bearer <token>
// header (step 1 of the mutation pipeline, spec.md §4.5), rejecting with
// 401 before the handler runs if absent or invalid.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(header, prefix) {
			writeError(w, apperr.NewUnauthorized("missing or malformed Authorization header"))
			return
		}
		token := strings.TrimPrefix(header, prefix)
		tenant, err := s.issuer.VerifyAccessToken(token)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r.WithContext(contextWithTenant(r.Context(), tenant)))
	}
}
