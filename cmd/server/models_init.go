// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package main

import (
	"github.com/rs/zerolog"

	"github.com/tomtom215/ordersight/internal/config"
	"github.com/tomtom215/ordersight/internal/database"
	"github.com/tomtom215/ordersight/internal/modelstore"
	"github.com/tomtom215/ordersight/internal/pipeline"
	"github.com/tomtom215/ordersight/internal/predict"
	"github.com/tomtom215/ordersight/internal/recommend"
	"github.com/tomtom215/ordersight/internal/registry"
	"github.com/tomtom215/ordersight/internal/segment"
)

// buildModels translates configuration into the untrained model instances.
// Every model config is validated so a bad value fails at startup instead of
// on the first training run.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func buildModels(cfg *config.Config, logger zerolog.Logger) (registry.Models, error) {
	opts := pipeline.Options{
		Seed:         cfg.Models.Seed,
		TestFraction: cfg.Models.TestFraction,
	}
	forest := pipeline.ForestConfig{
		Trees:          cfg.Forest.Trees,
		MaxDepth:       cfg.Forest.MaxDepth,
		MinSamplesLeaf: cfg.Forest.MinSamplesLeaf,
		Seed:           cfg.Models.Seed,
	}

	segCfg := segment.Config{
		Clusters:         cfg.Segmentation.Clusters,
		MaxK:             cfg.Segmentation.MaxK,
		NInit:            cfg.Segmentation.NInit,
		MaxIter:          cfg.Segmentation.MaxIter,
		SilhouetteSample: cfg.Segmentation.SilhouetteSample,
	}
	if err := segCfg.Validate(); err != nil {
		return registry.Models{}, err
	}

	recCfg := recommend.Config{
		DefaultN: cfg.Recommend.DefaultN,
		Workers:  cfg.Recommend.Workers,
	}
	if err := recCfg.Validate(); err != nil {
		return registry.Models{}, err
	}

	churnCfg := predict.ChurnConfig{
		InactiveDays: cfg.Churn.InactiveDays,
		Forest:       forest,
	}
	if err := churnCfg.Validate(); err != nil {
		return registry.Models{}, err
	}

	anomalyCfg := predict.AnomalyConfig{
		Contamination: cfg.Anomaly.Contamination,
		Trees:         cfg.Anomaly.Trees,
		MaxSamples:    cfg.Anomaly.MaxSamples,
	}
	if err := anomalyCfg.Validate(); err != nil {
		return registry.Models{}, err
	}

	return registry.Models{
		Segments:    segment.NewEngine(segCfg, cfg.Models.Seed, logger),
		Recommender: recommend.NewEngine(recCfg, logger),
		Churn:       predict.NewChurnPredictor(churnCfg, opts, logger),
		Delivery:    predict.NewDeliveryPredictor(forest, opts, logger),
		Review:      predict.NewReviewPredictor(forest, opts, logger),
		Anomaly:     predict.NewAnomalyDetector(anomalyCfg, opts, logger),
	}, nil
}

// initRegistry builds the model registry on top of the artifact store.
// Models are trained on a store miss only when startup training is enabled.
//
//nolint:gocritic // hugeParam: logger passed by value for zerolog chaining
func initRegistry(cfg *config.Config, store modelstore.Store, source database.Source, logger zerolog.Logger) (*registry.Registry, error) {
	models, err := buildModels(cfg, logger)
	if err != nil {
		return nil, err
	}

	logger.Info().
		Str("store_backend", cfg.Models.StoreBackend).
		Int("keep_versions", cfg.Models.KeepVersions).
		Int64("seed", cfg.Models.Seed).
		Bool("train_on_startup", cfg.Models.TrainOnStartup).
		Dur("train_interval", cfg.Models.TrainInterval).
		Msg("Initializing model registry")

	return registry.New(models, registry.Options{
		Store:          store,
		Source:         source,
		TrainIfMissing: cfg.Models.TrainOnStartup,
		KeepVersions:   cfg.Models.KeepVersions,
	}, logger), nil
}
