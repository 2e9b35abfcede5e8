// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Package config loads the server's runtime configuration from flags with
// environment-variable overrides, following the teacher's
// cmd/internal/env flag-visiting pattern: each flag listed in envNames binds
// to its one named environment variable (the external contract spec.md §6
// lists, e.g. DATABASE_URL), and an explicit flag always wins over the
// environment. The log-level and log-pretty flags have no environment
// variable.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// envNames maps each flag to the exact environment variable name spec.md §6
// recognizes (DATABASE_URL, not FASTNOTEAPP_DATABASE_URL): these are an
// external interface contract, unlike the teacher's own CLI flags.
var envNames = map[string]string{
	"listen-addr":             "LISTEN_ADDR",
	"database-url":            "DATABASE_URL",
	"redis-url":               "REDIS_URL",
	"jwt-secret":               "JWT_SECRET",
	"key-prefix":               "KEY_PREFIX",
	"cache-default-ttl":        "CACHE_DEFAULT_TTL",
	"search-ttl":               "SEARCH_TTL",
	"max-pool-size":            "MAX_POOL_SIZE",
	"connect-timeout":          "CONNECT_TIMEOUT",
	"enable-compression":       "ENABLE_COMPRESSION",
	"max-folder-depth":         "MAX_FOLDER_DEPTH",
	"max-note-content-bytes":   "MAX_NOTE_CONTENT_BYTES",
	"max-ws-per-tenant":        "MAX_WS_PER_TENANT",
	"ws-heartbeat-sec":         "WS_HEARTBEAT_SEC",
	"ws-idle-timeout-sec":      "WS_IDLE_TIMEOUT_SEC",
}

// Config holds every recognized option from spec.md §6. Durations are
// stored as whole seconds, matching the environment variable contract
// (CACHE_DEFAULT_TTL=3600, not "1h"). MaxFolderDepth and
// MaxNoteContentBytes are parsed but no component reads them: folder depth
// is bounded by the constant model.DMAX (10) and note content by the
// pipeline's fixed 1048576-byte check, whatever these fields hold.
type Config struct {
	ListenAddr             string
	DatabaseURL            string
	RedisURL               string
	JWTSecret              string
	KeyPrefix              string
	CacheDefaultTTLSec     int
	SearchTTLSec           int
	MaxPoolSize            int
	ConnectTimeoutSec      int
	EnableCompression      bool
	MaxFolderDepth         int
	MaxNoteContentBytes    int
	MaxWSPerTenant         int
	WSHeartbeatSec         int
	WSIdleTimeoutSec       int
	LogLevel               string
	LogPretty              bool
}

func (c Config) CacheDefaultTTL() time.Duration { return time.Duration(c.CacheDefaultTTLSec) * time.Second }
func (c Config) SearchTTL() time.Duration       { return time.Duration(c.SearchTTLSec) * time.Second }
func (c Config) ConnectTimeout() time.Duration  { return time.Duration(c.ConnectTimeoutSec) * time.Second }
func (c Config) WSHeartbeat() time.Duration     { return time.Duration(c.WSHeartbeatSec) * time.Second }
func (c Config) WSIdleTimeout() time.Duration   { return time.Duration(c.WSIdleTimeoutSec) * time.Second }

// Defaults returns the configuration with every spec.md §6 default applied.
func Defaults() Config {
	return Config{
		ListenAddr:          ":8080",
		KeyPrefix:           "fastest_note_app",
		CacheDefaultTTLSec:  3600,
		SearchTTLSec:        300,
		MaxPoolSize:         10,
		ConnectTimeoutSec:   5,
		EnableCompression:   false,
		MaxFolderDepth:      10,
		MaxNoteContentBytes: 1048576,
		MaxWSPerTenant:      10,
		WSHeartbeatSec:      30,
		WSIdleTimeoutSec:    600,
		LogLevel:            "info",
	}
}

// BindFlags registers every configuration option on flags, so cobra
// commands and tests can share one definition.
func BindFlags(flags *pflag.FlagSet, cfg *Config) {
	d := Defaults()
	flags.StringVar(&cfg.ListenAddr, "listen-addr", d.ListenAddr, "HTTP/WS listen address")
	flags.StringVar(&cfg.DatabaseURL, "database-url", d.DatabaseURL, "Postgres connection string")
	flags.StringVar(&cfg.RedisURL, "redis-url", d.RedisURL, "Redis connection string")
	flags.StringVar(&cfg.JWTSecret, "jwt-secret", d.JWTSecret, "HMAC secret for JWT signing")
	flags.StringVar(&cfg.KeyPrefix, "key-prefix", d.KeyPrefix, "process-wide cache key prefix")
	flags.IntVar(&cfg.CacheDefaultTTLSec, "cache-default-ttl", d.CacheDefaultTTLSec, "default cache entry TTL, seconds")
	flags.IntVar(&cfg.SearchTTLSec, "search-ttl", d.SearchTTLSec, "search result cache TTL, seconds")
	flags.IntVar(&cfg.MaxPoolSize, "max-pool-size", d.MaxPoolSize, "max store/cache connections")
	flags.IntVar(&cfg.ConnectTimeoutSec, "connect-timeout", d.ConnectTimeoutSec, "connection acquire timeout, seconds")
	flags.BoolVar(&cfg.EnableCompression, "enable-compression", d.EnableCompression, "gzip large cache entries")
	flags.IntVar(&cfg.MaxFolderDepth, "max-folder-depth", d.MaxFolderDepth, "DMAX folder depth")
	flags.IntVar(&cfg.MaxNoteContentBytes, "max-note-content-bytes", d.MaxNoteContentBytes, "max note content size")
	flags.IntVar(&cfg.MaxWSPerTenant, "max-ws-per-tenant", d.MaxWSPerTenant, "per-tenant realtime session cap")
	flags.IntVar(&cfg.WSHeartbeatSec, "ws-heartbeat-sec", d.WSHeartbeatSec, "realtime heartbeat cadence, seconds")
	flags.IntVar(&cfg.WSIdleTimeoutSec, "ws-idle-timeout-sec", d.WSIdleTimeoutSec, "realtime idle eviction timeout, seconds")
	flags.StringVar(&cfg.LogLevel, "log-level", d.LogLevel, "log level: debug|info|warn|error")
	flags.BoolVar(&cfg.LogPretty, "log-pretty", d.LogPretty, "human-readable log formatting")
}

// LoadEnv overlays each flag's mapped environment variable (envNames) onto
// any flag the caller did not set explicitly, mirroring
// cmd/internal/env.CheckEnvironmentVariables's visit-and-overlay shape.
func LoadEnv(flags *pflag.FlagSet) error {
	v := viper.New()
	for flagName, env := range envNames {
		if err := v.BindEnv(flagName, env); err != nil {
			return err
		}
	}

	var errs []string
	flags.VisitAll(func(f *pflag.Flag) {
		if !f.Changed && v.IsSet(f.Name) {
			if err := flags.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name))); err != nil {
				errs = append(errs, err.Error())
			}
		}
	})
	if len(errs) > 0 {
		return fmt.Errorf("error mapping environment variables to flags: %s", strings.Join(errs, "; "))
	}
	return nil
}
