// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersWithoutPanicking(t *testing.T) {
	require.NotPanics(t, func() {
		New()
	})
}

func TestMultipleRegistriesDoNotCollide(t *testing.T) {
	// Each New() builds its own prometheus.Registry, so tests (and
	// multiple server instances in-process) never hit a duplicate
	// collector registration panic.
	require.NotPanics(t, func() {
		New()
		New()
	})
}

func TestObserveHTTPAppearsInExposition(t *testing.T) {
	r := New()
	r.ObserveHTTP("GET", "/notes", "200", 150*time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)

	body := w.Body.String()
	assert.Contains(t, body, "fastnoteapp_http_request_duration_seconds")
	assert.Contains(t, body, `method="GET"`)
	assert.Contains(t, body, `path="/notes"`)
}

func TestObservePipelineStepAppearsInExposition(t *testing.T) {
	r := New()
	r.ObservePipelineStep("create_note", 5*time.Millisecond)

	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	r.Handler().ServeHTTP(w, req)

	assert.True(t, strings.Contains(w.Body.String(), `step="create_note"`))
}
