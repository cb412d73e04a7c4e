// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package config provides centralized configuration management for Ordersight.

Configuration is layered with Koanf v2: built-in defaults, then an optional
YAML file (CONFIG_PATH, config.yaml, /etc/ordersight/config.yaml), then
mapped environment variables. The merged result is validated before use.

# Configuration Structure

  - DatabaseConfig: DuckDB file and the merged transaction source
  - ServerConfig: HTTP bind address and timeouts
  - SecurityConfig: CORS, request rate limiting, manual retrain throttle
  - LoggingConfig: zerolog level and format
  - ModelsConfig: artifact store, training schedule, seed, source breaker
  - SegmentationConfig: k-means sweep bounds and restarts
  - RecommendConfig: default list length and similarity workers
  - ChurnConfig, ForestConfig, AnomalyConfig: model hyperparameters

# Environment Variables

Data source:
  - DUCKDB_PATH: database file (default: /data/ordersight.duckdb)
  - SOURCE_TABLE: merged table name (default: transformed_data)
  - SOURCE_CSV: read this CSV with read_csv_auto instead of SOURCE_TABLE

Model lifecycle:
  - MODEL_STORE_BACKEND: file or badger (default: file)
  - MODEL_STORE_PATH: artifact directory (default: /data/models)
  - MODEL_SEED: seed for every randomized step (default: 42)
  - MODEL_TEST_FRACTION: held-out share (default: 0.2)
  - MODEL_TRAIN_INTERVAL: scheduled retrain period, 0 disables (default: 24h)

Models:
  - SEGMENT_CLUSTERS: fixed k, 0 sweeps 2..SEGMENT_MAX_K (default: 0)
  - CHURN_INACTIVE_DAYS: inactivity threshold (default: 90)
  - ANOMALY_CONTAMINATION: expected outlier share (default: 0.01)

# Usage

	cfg, err := config.Load()
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("serving on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
*/
package config
