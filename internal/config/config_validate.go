// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package config

import (
	"fmt"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	validators := []func() error{
		c.validateDatabase,
		c.validateServer,
		c.validateSecurity,
		c.validateLogging,
		c.validateModels,
		c.validateSegmentation,
		c.validateRecommend,
		c.validateChurn,
		c.validateForest,
		c.validateAnomaly,
	}
	for _, v := range validators {
		if err := v(); err != nil {
			return err
		}
	}
	return nil
}

// validateDatabase requires a data source: a persistent table or a CSV file.
func (c *Config) validateDatabase() error {
	if c.Database.SourceCSV == "" && c.Database.SourceTable == "" {
		return fmt.Errorf("one of SOURCE_TABLE or SOURCE_CSV is required")
	}
	if c.Database.SourceCSV == "" && c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required when reading from SOURCE_TABLE")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be non-negative")
	}
	if c.Database.QueryTimeout <= 0 {
		return fmt.Errorf("SOURCE_QUERY_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

func (c *Config) validateSecurity() error {
	if c.Security.RetrainInterval < 0 {
		return fmt.Errorf("RETRAIN_INTERVAL must be non-negative")
	}
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// HasWildcardCORS reports whether any configured origin is "*".
func (c *Config) HasWildcardCORS() bool {
	for _, origin := range c.Security.CORSOrigins {
		if origin == "*" {
			return true
		}
	}
	return false
}

// IsProduction returns true if the application is running in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

func (c *Config) validateLogging() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "" && !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}

// Store backends accepted by MODEL_STORE_BACKEND.
const (
	StoreBackendFile   = "file"
	StoreBackendBadger = "badger"
)

func (c *Config) validateModels() error {
	switch c.Models.StoreBackend {
	case StoreBackendFile, StoreBackendBadger:
	default:
		return fmt.Errorf("MODEL_STORE_BACKEND must be one of: %s, %s", StoreBackendFile, StoreBackendBadger)
	}
	if c.Models.StorePath == "" {
		return fmt.Errorf("MODEL_STORE_PATH is required")
	}
	if c.Models.KeepVersions < 1 {
		return fmt.Errorf("MODEL_KEEP_VERSIONS must be at least 1")
	}
	if c.Models.TestFraction <= 0 || c.Models.TestFraction >= 1 {
		return fmt.Errorf("MODEL_TEST_FRACTION must be in (0, 1), got %v", c.Models.TestFraction)
	}
	if c.Models.TrainInterval < 0 {
		return fmt.Errorf("MODEL_TRAIN_INTERVAL must be non-negative")
	}
	if c.Models.BreakerFailures == 0 {
		return fmt.Errorf("SOURCE_BREAKER_FAILS must be at least 1")
	}
	if c.Models.BreakerTimeout <= 0 {
		return fmt.Errorf("SOURCE_BREAKER_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateSegmentation() error {
	s := c.Segmentation
	if s.Clusters != 0 && s.Clusters < 2 {
		return fmt.Errorf("SEGMENT_CLUSTERS must be 0 (auto) or at least 2")
	}
	if s.MaxK < 2 {
		return fmt.Errorf("SEGMENT_MAX_K must be at least 2")
	}
	if s.NInit < 1 {
		return fmt.Errorf("SEGMENT_N_INIT must be at least 1")
	}
	if s.MaxIter < 1 {
		return fmt.Errorf("SEGMENT_MAX_ITER must be at least 1")
	}
	if s.SilhouetteSample < 0 {
		return fmt.Errorf("SEGMENT_SILHOUETTE_SAMPLE must be non-negative")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	if c.Recommend.DefaultN < 1 {
		return fmt.Errorf("RECOMMEND_DEFAULT_N must be at least 1")
	}
	if c.Recommend.Workers < 0 {
		return fmt.Errorf("RECOMMEND_WORKERS must be non-negative")
	}
	return nil
}

func (c *Config) validateChurn() error {
	if c.Churn.InactiveDays < 1 {
		return fmt.Errorf("CHURN_INACTIVE_DAYS must be at least 1")
	}
	return nil
}

func (c *Config) validateForest() error {
	if c.Forest.Trees < 1 {
		return fmt.Errorf("FOREST_TREES must be at least 1")
	}
	if c.Forest.MaxDepth < 1 {
		return fmt.Errorf("FOREST_MAX_DEPTH must be at least 1")
	}
	if c.Forest.MinSamplesLeaf < 1 {
		return fmt.Errorf("FOREST_MIN_SAMPLES_LEAF must be at least 1")
	}
	return nil
}

func (c *Config) validateAnomaly() error {
	if c.Anomaly.Contamination <= 0 || c.Anomaly.Contamination > 0.5 {
		return fmt.Errorf("ANOMALY_CONTAMINATION must be in (0, 0.5], got %v", c.Anomaly.Contamination)
	}
	if c.Anomaly.Trees < 1 {
		return fmt.Errorf("ANOMALY_TREES must be at least 1")
	}
	if c.Anomaly.MaxSamples < 2 {
		return fmt.Errorf("ANOMALY_MAX_SAMPLES must be at least 2")
	}
	return nil
}
