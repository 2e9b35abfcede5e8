// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", Debug, false},
		{"DEBUG", Debug, false},
		{"", Info, false},
		{"info", Info, false},
		{"warn", Warn, false},
		{"warning", Warn, false},
		{"error", Error, false},
		{"bogus", Info, true},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		assert.Equal(t, c.want, got)
		if c.wantErr {
			assert.Error(t, err)
		} else {
			assert.NoError(t, err)
		}
	}
}

func TestWithFieldsReturnsIndependentLogger(t *testing.T) {
	base := New(Debug, true)
	scoped := base.WithFields(Fields{"tenant": "abc"})
	assert.NotNil(t, scoped)
	// Neither call should panic regardless of fields attached.
	base.Info("base message")
	scoped.Info("scoped message")
}

func TestContextRoundTrip(t *testing.T) {
	log := New(Debug, false)
	ctx := NewContext(context.Background(), log)
	got := FromContext(ctx)
	assert.Equal(t, log, got)
}

func TestFromContextReturnsNoopWhenUnset(t *testing.T) {
	got := FromContext(context.Background())
	require.NotNil(t, got)
	// noop must tolerate every call without panicking.
	scoped := got.WithFields(Fields{"k": "v"})
	scoped.Debug("x")
	scoped.Info("x")
	scoped.Warn("x")
	scoped.Error("x")
}
