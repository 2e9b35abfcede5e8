// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package hierarchy implements the pure tree algorithms that guard the
// folder-forest invariants from spec.md §3/§4.3: materialized path
// construction, level computation, cycle prevention, and the cascading
// path/level rewrite a rename or reparent triggers across descendants.
// Store implementations call into this package so that Postgres-backed and
// in-memory storage compute paths identically.
package hierarchy

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/fastnoteapp/backend/internal/apperr"
	"github.com/fastnoteapp/backend/internal/model"
)

// ValidateName enforces spec.md §4.3's tie-breaks: leading/trailing
// whitespace is rejected (never trimmed), '/' is forbidden, empty names are
// rejected. The name is returned NFC-canonicalized for uniqueness checks.
func ValidateName(name string) (string, error) {
	if name == "" {
		return "", apperr.NewInvalid("name", apperr.ReasonInvalidName, "name must not be empty")
	}
	if strings.TrimSpace(name) != name {
		return "", apperr.NewInvalid("name", apperr.ReasonInvalidName, "name must not have leading or trailing whitespace")
	}
	if strings.Contains(name, "/") {
		return "", apperr.NewInvalid("name", apperr.ReasonInvalidName, "name must not contain '/'")
	}
	if len(name) > 255 {
		return "", apperr.NewInvalid("name", apperr.ReasonInvalidName, "name must be at most 255 characters")
	}
	return norm.NFC.String(name), nil
}

// RootPath computes the materialized path of a root folder.
func RootPath(name string) string { return "/" + name + "/" }

// ChildPath computes the materialized path of a folder given its parent's
// path: parent.path + name + "/".
func ChildPath(parentPath, name string) string { return parentPath + name + "/" }

// CheckDepth rejects a level beyond DMAX.
func CheckDepth(level int) error {
	if level > model.DMAX {
		return apperr.NewInvalid("", apperr.ReasonDepthExceeded, "folder depth exceeds maximum")
	}
	return nil
}

// RewriteDescendantPath replaces the old ancestor path prefix with the new
// one, preserving everything after it. Level shifts by delta (0 for a pure
// rename, non-zero for a reparent that changes the subject's own level).
func RewriteDescendantPath(descendantPath, oldAncestorPath, newAncestorPath string, oldLevel int, delta int) (string, int) {
	suffix := strings.TrimPrefix(descendantPath, oldAncestorPath)
	return newAncestorPath + suffix, oldLevel + delta
}

// IsAncestorOrSelf reports whether candidatePath is ancestorPath itself or
// a descendant of it — i.e. candidatePath's materialized path begins with
// ancestorPath. Used by the reparent cycle check: a folder cannot become a
// descendant of its own subtree.
func IsAncestorOrSelf(ancestorPath, candidatePath string) bool {
	return candidatePath == ancestorPath || strings.HasPrefix(candidatePath, ancestorPath)
}
