// ShopFusion - Hybrid Retail Recommendation Service
// Copyright 2026 Rameshwar (rameshwar8767)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/rameshwar8767/shopfusion

// Package main is the entry point for the ShopFusion server.
//
// ShopFusion is a multi-tenant recommendation service for retail shops.
// It blends collaborative filtering, description similarity and market
// basket analysis into a single feed, with expiring and discounted stock
// boosted so perishable inventory moves before it is wasted.
//
// Startup order:
//
//  1. Configuration: koanf v2 layered defaults, YAML file, environment
//  2. Logging: zerolog, JSON or console per config
//  3. Storage: SQLite with embedded migrations
//  4. Authentication: JWT manager and account service
//  5. Engine: recommendation engine with the category diversity reranker
//  6. Supervision: suture tree running the HTTP server and the
//     training scheduler
//
// The server shuts down gracefully on SIGINT and SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rameshwar8767/shopfusion/internal/api"
	"github.com/rameshwar8767/shopfusion/internal/auth"
	"github.com/rameshwar8767/shopfusion/internal/config"
	"github.com/rameshwar8767/shopfusion/internal/logging"
	"github.com/rameshwar8767/shopfusion/internal/recommend"
	"github.com/rameshwar8767/shopfusion/internal/recommend/algorithms"
	"github.com/rameshwar8767/shopfusion/internal/recommend/reranking"
	"github.com/rameshwar8767/shopfusion/internal/store"
	"github.com/rameshwar8767/shopfusion/internal/supervisor"
	"github.com/rameshwar8767/shopfusion/internal/supervisor/services"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("addr", cfg.Server.Addr()).
		Str("database", cfg.Database.Path).
		Msg("Starting ShopFusion")

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Warn().Err(err).Msg("Closing store failed")
		}
	}()

	jwt, err := auth.NewJWTManager(cfg.Security.JWTSecret, cfg.Security.SessionTimeout)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}
	authSvc := auth.NewService(st, jwt)

	engineCfg := cfg.Recommend.Engine
	engine, err := recommend.NewEngine(&engineCfg, st, algorithms.NewBuilder())
	if err != nil {
		return fmt.Errorf("init engine: %w", err)
	}
	engine.RegisterReranker(reranking.NewCategoryCap(engineCfg.MaxPerCategory))

	handler := api.NewHandler(engine, authSvc, st, &engineCfg)
	mw := api.NewMiddleware(&api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Server.CORSOrigins,
		RateLimitRequests:  cfg.Security.RateLimitReqs,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
	}, authSvc)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, mw).Setup(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	tree.AddAPIService(services.NewHTTPService(server, cfg.Server.ShutdownTimeout))
	tree.AddJobService(services.NewTrainerService(
		engine,
		cfg.Recommend.TrainInterval,
		cfg.Recommend.TrainOnStartup,
	))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", cfg.Server.Addr()).Msg("ShopFusion ready")
	err = tree.Serve(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("supervisor: %w", err)
	}

	if report, rerr := tree.UnstoppedServiceReport(); rerr == nil && len(report) > 0 {
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Service did not stop in time")
		}
	}

	logging.Info().Msg("Shutdown complete")
	return nil
}
