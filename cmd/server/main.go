// Copyright 2026 The Fastnoteapp Authors. All rights reserved.
// Use of this source code is governed by an Apache2
// license that can be found in the LICENSE file.

// Command server is the composition root: it wires config, logging,
// metrics, the store, the cache, the mutation pipeline, the realtime hub
// and the HTTP server, following the teacher's main.go + cmd/run.go
// cobra-root-command shape.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/fastnoteapp/backend/internal/api"
	"github.com/fastnoteapp/backend/internal/auth"
	"github.com/fastnoteapp/backend/internal/cache"
	"github.com/fastnoteapp/backend/internal/cache/rediscache"
	"github.com/fastnoteapp/backend/internal/config"
	"github.com/fastnoteapp/backend/internal/logging"
	"github.com/fastnoteapp/backend/internal/metrics"
	"github.com/fastnoteapp/backend/internal/pipeline"
	"github.com/fastnoteapp/backend/internal/realtime"
	"github.com/fastnoteapp/backend/internal/store"
	"github.com/fastnoteapp/backend/internal/store/postgres"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.Defaults()
	cmd := &cobra.Command{
		Use:   "fastnoteapp-server",
		Short: "Multi-tenant notes backend: HTTP API and realtime push hub",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadEnv(cmd.Flags()); err != nil {
				return err
			}
			return run(cfg)
		},
	}
	config.BindFlags(cmd.Flags(), &cfg)
	return cmd
}

func run(cfg config.Config) error {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	log := logging.New(level, cfg.LogPretty)
	reg := metrics.New()

	pgStore, err := postgres.Open(cfg.DatabaseURL, cfg.MaxPoolSize, cfg.ConnectTimeout())
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	var st store.Store = pgStore
	defer st.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("parse redis url: %w", err)
	}
	redisOpts.PoolSize = cfg.MaxPoolSize
	redisOpts.DialTimeout = cfg.ConnectTimeout()
	redisClient := redis.NewClient(redisOpts)
	var c cache.Cache = rediscache.New(redisClient, rediscache.Options{
		Prefix:            cfg.KeyPrefix,
		EnableCompression: cfg.EnableCompression,
		Logger:            log,
	})
	defer c.Close()

	hubCfg := realtime.DefaultConfig()
	hubCfg.MaxPerTenant = cfg.MaxWSPerTenant
	hubCfg.HeartbeatInterval = cfg.WSHeartbeat()
	hubCfg.IdleTimeout = cfg.WSIdleTimeout()
	hub := realtime.NewHub(hubCfg, log, reg)

	p := pipeline.New(st, c, hub, log, reg).WithTTLs(cfg.CacheDefaultTTL(), cfg.SearchTTL())
	issuer := auth.NewIssuer(cfg.JWTSecret)
	handler := api.New(p, issuer, hub, log, reg)

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(logging.Fields{"addr": cfg.ListenAddr}).Info("listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		log.Info("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), hubCfg.DrainDeadline)
	defer cancel()
	hub.Shutdown()
	return srv.Shutdown(ctx)
}
