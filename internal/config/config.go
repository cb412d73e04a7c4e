// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package config

import (
	"time"
)

// Config holds all application configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in defaults for every setting
//  2. Config File: optional YAML file (config.yaml)
//  3. Environment Variables: override any mapped setting
//
// Configuration Categories:
//
//  1. Data source: Database (DuckDB file, source table or CSV)
//  2. Serving: Server, Security (CORS, rate limiting, retrain throttle)
//  3. Model lifecycle: Models (store backend, schedule, seed, breaker)
//  4. Model tuning: Segmentation, Recommend, Churn, Forest, Anomaly
//  5. Observability: Logging
type Config struct {
	Database     DatabaseConfig     `koanf:"database"`
	Server       ServerConfig       `koanf:"server"`
	Security     SecurityConfig     `koanf:"security"`
	Logging      LoggingConfig      `koanf:"logging"`
	Models       ModelsConfig       `koanf:"models"`
	Segmentation SegmentationConfig `koanf:"segmentation"`
	Recommend    RecommendConfig    `koanf:"recommend"`
	Churn        ChurnConfig        `koanf:"churn"`
	Forest       ForestConfig       `koanf:"forest"`
	Anomaly      AnomalyConfig      `koanf:"anomaly"`
}

// DatabaseConfig configures the DuckDB connection that serves the merged
// transaction table.
type DatabaseConfig struct {
	// Path is the DuckDB database file. Empty opens an in-memory database,
	// which is only useful together with SourceCSV.
	Path string `koanf:"path"`

	// SourceTable is the flat table holding one row per order item.
	// Default: transformed_data
	SourceTable string `koanf:"source_table"`

	// SourceCSV, when set, is read with read_csv_auto instead of SourceTable.
	SourceCSV string `koanf:"source_csv"`

	// MaxMemory is DuckDB's memory limit (e.g. "2GB").
	MaxMemory string `koanf:"max_memory"`

	// Threads is DuckDB's worker count. 0 uses runtime.NumCPU().
	Threads int `koanf:"threads"`

	// QueryTimeout bounds a full table load.
	QueryTimeout time.Duration `koanf:"query_timeout"`
}

// ServerConfig configures the HTTP server used by dashboards.
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// SecurityConfig holds CORS and throttling settings for the HTTP surface.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`

	// RetrainInterval is the minimum spacing between manual retrain requests.
	RetrainInterval time.Duration `koanf:"retrain_interval"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// ModelsConfig controls the shared model lifecycle.
type ModelsConfig struct {
	// StoreBackend selects the artifact store: "file" or "badger".
	StoreBackend string `koanf:"store_backend"`

	// StorePath is the directory holding artifacts (file) or the badger directory.
	StorePath string `koanf:"store_path"`

	// KeepVersions is how many artifact versions survive pruning.
	KeepVersions int `koanf:"keep_versions"`

	// Seed drives every randomized step (split, bootstrap, k-means init).
	Seed int64 `koanf:"seed"`

	// TestFraction is the held-out share for supervised evaluation.
	TestFraction float64 `koanf:"test_fraction"`

	// TrainOnStartup trains any model that has no stored artifact at startup.
	TrainOnStartup bool `koanf:"train_on_startup"`

	// TrainInterval is how often every model is retrained. 0 disables the schedule.
	TrainInterval time.Duration `koanf:"train_interval"`

	// BreakerFailures is the consecutive data-source failures that open the breaker.
	BreakerFailures uint32 `koanf:"breaker_failures"`

	// BreakerTimeout is how long the breaker stays open.
	BreakerTimeout time.Duration `koanf:"breaker_timeout"`
}

// SegmentationConfig tunes the customer segmentation engine.
type SegmentationConfig struct {
	// Clusters fixes k. 0 selects k by silhouette sweep.
	Clusters int `koanf:"clusters"`

	// MaxK is the upper bound of the sweep (inclusive).
	MaxK int `koanf:"max_k"`

	// NInit is the number of k-means restarts per k; the lowest inertia wins.
	NInit int `koanf:"n_init"`

	// MaxIter bounds Lloyd iterations per restart.
	MaxIter int `koanf:"max_iter"`

	// SilhouetteSample caps the points scored per k. 0 scores every customer.
	SilhouetteSample int `koanf:"silhouette_sample"`
}

// RecommendConfig tunes the item-similarity recommender.
type RecommendConfig struct {
	DefaultN int           `koanf:"default_n"`
	Workers  int           `koanf:"workers"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// ChurnConfig tunes churn labelling.
type ChurnConfig struct {
	// InactiveDays is the inactivity after which a customer counts as churned.
	InactiveDays int `koanf:"inactive_days"`
}

// ForestConfig tunes the random forests behind churn, delivery and review models.
type ForestConfig struct {
	Trees          int `koanf:"trees"`
	MaxDepth       int `koanf:"max_depth"`
	MinSamplesLeaf int `koanf:"min_samples_leaf"`
}

// AnomalyConfig tunes the isolation forest.
type AnomalyConfig struct {
	Contamination float64 `koanf:"contamination"`
	Trees         int     `koanf:"trees"`
	MaxSamples    int     `koanf:"max_samples"`
}

// Load reads configuration with Koanf layering (defaults, file, env).
func Load() (*Config, error) {
	return LoadWithKoanf()
}
