// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	assert.Equal(t, ":8080", d.ListenAddr)
	assert.Equal(t, 3600, d.CacheDefaultTTLSec)
	assert.Equal(t, 10, d.MaxFolderDepth)
	assert.Equal(t, "info", d.LogLevel)
}

func TestDurationAccessors(t *testing.T) {
	c := Config{CacheDefaultTTLSec: 60, SearchTTLSec: 30, ConnectTimeoutSec: 5, WSHeartbeatSec: 20, WSIdleTimeoutSec: 600}
	assert.Equal(t, time.Minute, c.CacheDefaultTTL())
	assert.Equal(t, 30*time.Second, c.SearchTTL())
	assert.Equal(t, 5*time.Second, c.ConnectTimeout())
	assert.Equal(t, 20*time.Second, c.WSHeartbeat())
	assert.Equal(t, 10*time.Minute, c.WSIdleTimeout())
}

func TestLoadEnvOverlaysUnsetFlags(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-value/db")
	t.Setenv("MAX_FOLDER_DEPTH", "7")

	cfg := Defaults()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags, &cfg)
	require.NoError(t, flags.Parse(nil))

	require.NoError(t, LoadEnv(flags))

	assert.Equal(t, "postgres://env-value/db", cfg.DatabaseURL)
	assert.Equal(t, 7, cfg.MaxFolderDepth)
}

func TestLoadEnvNeverOverridesAnExplicitFlag(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-value/db")

	cfg := Defaults()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags, &cfg)
	require.NoError(t, flags.Parse([]string{"--database-url=postgres://flag-value/db"}))

	require.NoError(t, LoadEnv(flags))

	assert.Equal(t, "postgres://flag-value/db", cfg.DatabaseURL)
}

func TestLoadEnvLeavesDefaultWhenNeitherSet(t *testing.T) {
	cfg := Defaults()
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	BindFlags(flags, &cfg)
	require.NoError(t, flags.Parse(nil))

	require.NoError(t, LoadEnv(flags))

	assert.Equal(t, Defaults().ListenAddr, cfg.ListenAddr)
}
