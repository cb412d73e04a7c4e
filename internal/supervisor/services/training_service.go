// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ordersight/internal/database"
	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/logging"
)

// Trainer is the slice of the model registry the training service drives.
type Trainer interface {
	// EnsureAll loads every model from the store, training the missing ones.
	EnsureAll(ctx context.Context) error

	// RefreshAll retrains every model on the given table.
	RefreshAll(ctx context.Context, t *dataset.Table) error
}

// TrainingServiceConfig holds configuration for the training service.
type TrainingServiceConfig struct {
	// TrainOnStartup materializes every model when the service starts.
	TrainOnStartup bool

	// TrainInterval is how often to retrain all models. Zero disables
	// scheduled retraining.
	TrainInterval time.Duration

	// TrainTimeout bounds a single training cycle.
	// Default: 30m
	TrainTimeout time.Duration
}

// TrainingService keeps the models fresh under supervision. On startup it
// loads or trains every model; afterwards it retrains them all on a fixed
// schedule from a fresh copy of the transaction table.
type TrainingService struct {
	trainer Trainer
	source  database.Source
	config  TrainingServiceConfig
	logger  zerolog.Logger
	name    string
}

// NewTrainingService creates a new training service.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewTrainingService(trainer Trainer, source database.Source, cfg TrainingServiceConfig, logger zerolog.Logger) *TrainingService {
	if cfg.TrainTimeout <= 0 {
		cfg.TrainTimeout = 30 * time.Minute
	}
	return &TrainingService{
		trainer: trainer,
		source:  source,
		config:  cfg,
		logger:  logger.With().Str("service", "training").Logger(),
		name:    "training-service",
	}
}

// Serve implements suture.Service.
func (s *TrainingService) Serve(ctx context.Context) error {
	s.logger.Info().
		Bool("train_on_startup", s.config.TrainOnStartup).
		Dur("train_interval", s.config.TrainInterval).
		Msg("Training service starting")

	if s.config.TrainOnStartup {
		if err := s.ensure(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("Some models unavailable after startup (will retry on use)")
		}
	}

	if s.config.TrainInterval <= 0 {
		<-ctx.Done()
		s.logger.Info().Msg("Training service shutting down")
		return ctx.Err()
	}

	ticker := time.NewTicker(s.config.TrainInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("Training service shutting down")
			return ctx.Err()

		case <-ticker.C:
			if err := s.retrain(ctx); err != nil {
				s.logger.Warn().Err(err).Msg("Scheduled training failed")
			}
		}
	}
}

func (s *TrainingService) ensure(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.TrainTimeout)
	defer cancel()
	ctx, runID := logging.ContextWithNewRunID(ctx)

	start := time.Now()
	err := s.trainer.EnsureAll(ctx)
	s.logger.Info().
		Str("run_id", runID).
		Dur("duration", time.Since(start)).
		Bool("complete", err == nil).
		Msg("Startup model load finished")
	return err
}

// retrain runs one scheduled cycle under a fresh run ID.
func (s *TrainingService) retrain(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.TrainTimeout)
	defer cancel()
	ctx, runID := logging.ContextWithNewRunID(ctx)
	logger := s.logger.With().Str("run_id", runID).Logger()

	start := time.Now()
	logger.Info().Msg("Scheduled training started")

	table, err := s.source.LoadTransactions(ctx)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	if err := s.trainer.RefreshAll(ctx, table); err != nil {
		return err
	}

	logger.Info().
		Int("rows", table.Len()).
		Dur("duration", time.Since(start)).
		Msg("Scheduled training complete")
	return nil
}

// String returns the service name for logging.
func (s *TrainingService) String() string {
	return s.name
}
