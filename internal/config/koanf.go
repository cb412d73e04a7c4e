// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/ordersight/config.yaml",
	"/etc/ordersight/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns the built-in defaults. They mirror the parameters the
// analytic models were calibrated with (seed 42, 80/20 split, 100 trees of
// depth 10, k swept over 2..10, 1% contamination, 90 inactive days).
func defaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:         "/data/ordersight.duckdb",
			SourceTable:  "transformed_data",
			SourceCSV:    "",
			MaxMemory:    "2GB",
			Threads:      0,
			QueryTimeout: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8642,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Security: SecurityConfig{
			CORSOrigins:       []string{},
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			RetrainInterval:   10 * time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
		Models: ModelsConfig{
			StoreBackend:    "file",
			StorePath:       "/data/models",
			KeepVersions:    3,
			Seed:            42,
			TestFraction:    0.2,
			TrainOnStartup:  true,
			TrainInterval:   24 * time.Hour,
			BreakerFailures: 3,
			BreakerTimeout:  time.Minute,
		},
		Segmentation: SegmentationConfig{
			Clusters:         0,
			MaxK:             10,
			NInit:            10,
			MaxIter:          300,
			SilhouetteSample: 0,
		},
		Recommend: RecommendConfig{
			DefaultN: 5,
			Workers:  0,
			CacheTTL: 5 * time.Minute,
		},
		Churn: ChurnConfig{
			InactiveDays: 90,
		},
		Forest: ForestConfig{
			Trees:          100,
			MaxDepth:       10,
			MinSamplesLeaf: 1,
		},
		Anomaly: AnomalyConfig{
			Contamination: 0.01,
			Trees:         100,
			MaxSamples:    256,
		},
	}
}

// LoadWithKoanf loads configuration using Koanf v2 with layered sources:
//  1. Defaults
//  2. Config file (optional YAML)
//  3. Environment variables (highest priority)
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first config file found, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed as comma-separated lists when they arrive as strings.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored so unrelated environment does not leak into config.
var envMappings = map[string]string{
	// Database
	"duckdb_path":          "database.path",
	"duckdb_max_memory":    "database.max_memory",
	"duckdb_threads":       "database.threads",
	"source_table":         "database.source_table",
	"source_csv":           "database.source_csv",
	"source_query_timeout": "database.query_timeout",

	// Server
	"http_host":    "server.host",
	"http_port":    "server.port",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	// Security
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"retrain_interval":    "security.retrain_interval",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	// Model lifecycle
	"model_store_backend":    "models.store_backend",
	"model_store_path":       "models.store_path",
	"model_keep_versions":    "models.keep_versions",
	"model_seed":             "models.seed",
	"model_test_fraction":    "models.test_fraction",
	"model_train_on_startup": "models.train_on_startup",
	"model_train_interval":   "models.train_interval",
	"source_breaker_fails":   "models.breaker_failures",
	"source_breaker_timeout": "models.breaker_timeout",

	// Segmentation
	"segment_clusters":          "segmentation.clusters",
	"segment_max_k":             "segmentation.max_k",
	"segment_n_init":            "segmentation.n_init",
	"segment_max_iter":          "segmentation.max_iter",
	"segment_silhouette_sample": "segmentation.silhouette_sample",

	// Recommender
	"recommend_default_n": "recommend.default_n",
	"recommend_workers":   "recommend.workers",
	"recommend_cache_ttl": "recommend.cache_ttl",

	// Supervised models
	"churn_inactive_days":     "churn.inactive_days",
	"forest_trees":            "forest.trees",
	"forest_max_depth":        "forest.max_depth",
	"forest_min_samples_leaf": "forest.min_samples_leaf",

	// Anomaly detection
	"anomaly_contamination": "anomaly.contamination",
	"anomaly_trees":         "anomaly.trees",
	"anomaly_max_samples":   "anomaly.max_samples",
}

// envTransformFunc transforms environment variable names to koanf config paths.
//
// Examples:
//   - DUCKDB_PATH -> database.path
//   - SEGMENT_MAX_K -> segmentation.max_k
//   - ANOMALY_CONTAMINATION -> anomaly.contamination
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}
