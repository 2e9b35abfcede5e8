// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/fastnoteapp/backend/internal/apperr"
)

// errorBody is the stable JSON error shape spec.md §7 requires.
type errorBody struct {
	Error   string      `json:"error"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps an apperr.Error (or any error) to its HTTP status and
// stable error code, per spec.md §7's propagation table.
func writeError(w http.ResponseWriter, err error) {
	ae, ok := err.(*apperr.Error)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal", Message: "internal server error"})
		return
	}
	status := http.StatusInternalServerError
	switch ae.Code {
	case apperr.Unauthorized:
		status = http.StatusUnauthorized
	case apperr.Invalid:
		status = http.StatusBadRequest
	case apperr.NotFound:
		status = http.StatusNotFound
	case apperr.Conflict:
		status = http.StatusConflict
	case apperr.RateLimited:
		status = http.StatusTooManyRequests
	case apperr.Unavailable:
		status = http.StatusServiceUnavailable
	case apperr.Internal:
		status = http.StatusInternalServerError
	}
	var details interface{}
	if ae.Field != "" || ae.Reason != "" {
		details = map[string]string{"field": ae.Field, "reason": string(ae.Reason)}
	}
	writeJSON(w, status, errorBody{Error: ae.Code.String(), Message: ae.Message, Details: details})
}

func decodeJSON(r *http.Request, v interface{}) error {
	if r.Header.Get("Content-Type") != "" && r.Header.Get("Content-Type") != "application/json" {
		return apperr.NewInvalid("", apperr.ReasonMalformed, "Content-Type must be application/json")
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return apperr.NewInvalid("", apperr.ReasonMalformed, "malformed JSON body")
	}
	return nil
}

type ctxTenantKey struct{}

func contextWithTenant(ctx context.Context, tenant uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxTenantKey{}, tenant)
}

func tenantFromContext(ctx context.Context) (uuid.UUID, bool) {
	v, ok := ctx.Value(ctxTenantKey{}).(uuid.UUID)
	return v, ok
}
