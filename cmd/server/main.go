// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/ordersight/internal/api"
	"github.com/tomtom215/ordersight/internal/config"
	"github.com/tomtom215/ordersight/internal/database"
	"github.com/tomtom215/ordersight/internal/logging"
	"github.com/tomtom215/ordersight/internal/modelstore"
	"github.com/tomtom215/ordersight/internal/supervisor"
	"github.com/tomtom215/ordersight/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("source_table", cfg.Database.SourceTable).
		Str("source_csv", cfg.Database.SourceCSV).
		Str("environment", cfg.Server.Environment).
		Msg("Starting Ordersight with supervisor tree")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

// run wires every component and blocks until the supervisor tree stops.
// Deferred closes run in reverse order, after the tree has drained.
func run(cfg *config.Config) error {
	logger := logging.Logger()

	db, err := database.Open(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initialize database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()

	source := database.NewBreakerSource(db, database.BreakerConfig{
		FailureThreshold: cfg.Models.BreakerFailures,
		Timeout:          cfg.Models.BreakerTimeout,
	}, logger)

	store, err := modelstore.Open(cfg.Models.StoreBackend, cfg.Models.StorePath, logger)
	if err != nil {
		return fmt.Errorf("open model store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing model store")
		}
	}()

	reg, err := initRegistry(cfg, store, source, logger)
	if err != nil {
		return fmt.Errorf("initialize models: %w", err)
	}

	handler := api.NewHandler(reg, store, source, api.HandlerConfig{
		DefaultN:        cfg.Recommend.DefaultN,
		CacheTTL:        cfg.Recommend.CacheTTL,
		RetrainInterval: cfg.Security.RetrainInterval,
	}, logger)

	chiMiddleware := api.NewChiMiddleware(api.ChiMiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		CORSMaxAge:         86400,
		RateLimitRequests:  cfg.Security.RateLimitReqs,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
	})
	if cfg.HasWildcardCORS() {
		logging.Warn().Msg("CORS allows any origin")
	}

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           api.NewRouter(handler, chiMiddleware).Setup(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	tree.AddModelService(services.NewTrainingService(reg, source, services.TrainingServiceConfig{
		TrainOnStartup: cfg.Models.TrainOnStartup,
		TrainInterval:  cfg.Models.TrainInterval,
	}, logger))
	for _, sweeper := range handler.CacheSweepers() {
		tree.AddModelService(sweeper)
	}
	logging.Info().Msg("Training service and cache sweepers added to supervisor tree")

	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second, logger))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var serveErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
		serveErr = <-errCh
	case serveErr = <-errCh:
	}
	if errors.Is(serveErr, context.Canceled) {
		serveErr = nil
	}

	// A manual retrain may still be writing to the store.
	handler.Shutdown()

	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}
	return serveErr
}
