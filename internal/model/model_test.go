// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package model

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestUserProfileOmitsPasswordHash(t *testing.T) {
	u := User{
		ID:           uuid.New(),
		Email:        "ada@example.com",
		PasswordHash: "$2a$10$somethingsecret",
		CreatedAt:    time.Now(),
	}
	p := u.Profile()
	assert.Equal(t, u.ID, p.ID)
	assert.Equal(t, u.Email, p.Email)
}

func TestFolderView(t *testing.T) {
	parent := uuid.New()
	f := Folder{
		ID:       uuid.New(),
		Name:     "Projects",
		ParentID: &parent,
		Path:     "/projects",
		Level:    1,
		Version:  3,
	}
	v := f.View()
	assert.Equal(t, f.ID, v.ID)
	assert.Equal(t, &parent, v.ParentFolderID)
	assert.Equal(t, "/projects", v.Path)
	assert.Equal(t, 1, v.Level)
}

func TestNoteListItemPreviewShortContent(t *testing.T) {
	n := Note{ID: uuid.New(), Title: "short", Content: "hello world"}
	item := n.ListItem()
	assert.Equal(t, "hello world", item.ContentPreview)
}

func TestNoteListItemPreviewTruncatesLongContent(t *testing.T) {
	long := strings.Repeat("a", maxPreviewRunes+50)
	n := Note{ID: uuid.New(), Title: "long", Content: long}
	item := n.ListItem()
	assert.True(t, strings.HasSuffix(item.ContentPreview, "..."))
	assert.Len(t, []rune(strings.TrimSuffix(item.ContentPreview, "...")), maxPreviewRunes)
}

func TestNoteListItemPreviewHandlesMultibyteRunes(t *testing.T) {
	long := strings.Repeat("日", maxPreviewRunes+10)
	n := Note{Content: long}
	item := n.ListItem()
	assert.Len(t, []rune(strings.TrimSuffix(item.ContentPreview, "...")), maxPreviewRunes)
}

func TestNoteView(t *testing.T) {
	folderID := uuid.New()
	n := Note{ID: uuid.New(), Title: "t", Content: "c", FolderID: &folderID, Version: 2}
	v := n.View()
	assert.Equal(t, n.Content, v.Content)
	assert.Equal(t, &folderID, v.FolderID)
	assert.Equal(t, int64(2), v.Version)
}
