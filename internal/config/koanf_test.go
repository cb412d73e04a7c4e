// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// TestDefaultConfig verifies that defaultConfig() returns proper defaults
func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if cfg.Database.SourceTable != "transformed_data" {
		t.Errorf("Database.SourceTable = %q, want transformed_data", cfg.Database.SourceTable)
	}
	if cfg.Server.Port != 8642 {
		t.Errorf("Server.Port = %d, want 8642", cfg.Server.Port)
	}
	if cfg.Models.Seed != 42 {
		t.Errorf("Models.Seed = %d, want 42", cfg.Models.Seed)
	}
	if cfg.Models.TestFraction != 0.2 {
		t.Errorf("Models.TestFraction = %v, want 0.2", cfg.Models.TestFraction)
	}
	if cfg.Models.TrainInterval != 24*time.Hour {
		t.Errorf("Models.TrainInterval = %v, want 24h", cfg.Models.TrainInterval)
	}
	if cfg.Segmentation.MaxK != 10 || cfg.Segmentation.NInit != 10 {
		t.Errorf("Segmentation = %+v, want MaxK 10 and NInit 10", cfg.Segmentation)
	}
	if cfg.Forest.Trees != 100 || cfg.Forest.MaxDepth != 10 {
		t.Errorf("Forest = %+v, want 100 trees of depth 10", cfg.Forest)
	}
	if cfg.Churn.InactiveDays != 90 {
		t.Errorf("Churn.InactiveDays = %d, want 90", cfg.Churn.InactiveDays)
	}
	if cfg.Anomaly.Contamination != 0.01 {
		t.Errorf("Anomaly.Contamination = %v, want 0.01", cfg.Anomaly.Contamination)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
}

func TestEnvTransformFunc(t *testing.T) {
	tests := []struct {
		key  string
		want string
	}{
		{"DUCKDB_PATH", "database.path"},
		{"SOURCE_CSV", "database.source_csv"},
		{"HTTP_PORT", "server.port"},
		{"CORS_ORIGINS", "security.cors_origins"},
		{"MODEL_STORE_BACKEND", "models.store_backend"},
		{"SEGMENT_MAX_K", "segmentation.max_k"},
		{"ANOMALY_CONTAMINATION", "anomaly.contamination"},
		{"log_level", "logging.level"},
		{"PATH", ""},
		{"HOME", ""},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := envTransformFunc(tt.key); got != tt.want {
				t.Errorf("envTransformFunc(%q) = %q, want %q", tt.key, got, tt.want)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	t.Run("no config file exists", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "")
		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})

	t.Run("config.yaml exists", func(t *testing.T) {
		configPath := filepath.Join(tmpDir, "config.yaml")
		if err := os.WriteFile(configPath, []byte("server: {}"), 0o644); err != nil {
			t.Fatalf("Failed to create config file: %v", err)
		}
		defer os.Remove(configPath)

		t.Setenv(ConfigPathEnvVar, "")
		if result := findConfigFile(); result != "config.yaml" {
			t.Errorf("findConfigFile() = %q, want config.yaml", result)
		}
	})

	t.Run("CONFIG_PATH env var takes precedence", func(t *testing.T) {
		customPath := filepath.Join(tmpDir, "custom.yaml")
		if err := os.WriteFile(customPath, []byte("server: {}"), 0o644); err != nil {
			t.Fatalf("Failed to create custom config file: %v", err)
		}
		t.Setenv(ConfigPathEnvVar, customPath)
		if result := findConfigFile(); result != customPath {
			t.Errorf("findConfigFile() = %q, want %q", result, customPath)
		}
	})

	t.Run("CONFIG_PATH with non-existent file falls back", func(t *testing.T) {
		t.Setenv(ConfigPathEnvVar, "/non/existent/config.yaml")
		if result := findConfigFile(); result != "" {
			t.Errorf("findConfigFile() = %q, want empty string", result)
		}
	})
}

func TestLoadWithKoanfEnvVars(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(ConfigPathEnvVar, "")
	t.Setenv("HTTP_PORT", "9000")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SEGMENT_CLUSTERS", "4")
	t.Setenv("MODEL_STORE_BACKEND", "badger")
	t.Setenv("MODEL_TRAIN_INTERVAL", "6h")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Server.Port = %d, want 9000", cfg.Server.Port)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}
	if cfg.Segmentation.Clusters != 4 {
		t.Errorf("Segmentation.Clusters = %d, want 4", cfg.Segmentation.Clusters)
	}
	if cfg.Models.StoreBackend != StoreBackendBadger {
		t.Errorf("Models.StoreBackend = %q, want badger", cfg.Models.StoreBackend)
	}
	if cfg.Models.TrainInterval != 6*time.Hour {
		t.Errorf("Models.TrainInterval = %v, want 6h", cfg.Models.TrainInterval)
	}
	if len(cfg.Security.CORSOrigins) != 2 || cfg.Security.CORSOrigins[1] != "https://b.example" {
		t.Errorf("Security.CORSOrigins = %v, want two trimmed origins", cfg.Security.CORSOrigins)
	}

	if cfg.Server.Host != "0.0.0.0" {
		t.Errorf("Server.Host = %q, want 0.0.0.0 (default)", cfg.Server.Host)
	}
	if cfg.Forest.Trees != 100 {
		t.Errorf("Forest.Trees = %d, want 100 (default)", cfg.Forest.Trees)
	}
}

func TestLoadWithKoanfConfigFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	configContent := `
database:
  source_csv: "/data/transformed_data.csv"
  path: ""

server:
  port: 8888

segmentation:
  max_k: 6

anomaly:
  contamination: 0.05
`
	configPath := filepath.Join(tmpDir, "ordersight.yaml")
	if err := os.WriteFile(configPath, []byte(configContent), 0o644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Database.SourceCSV != "/data/transformed_data.csv" {
		t.Errorf("Database.SourceCSV = %q", cfg.Database.SourceCSV)
	}
	if cfg.Database.Path != "" {
		t.Errorf("Database.Path = %q, want empty (in-memory)", cfg.Database.Path)
	}
	if cfg.Server.Port != 8888 {
		t.Errorf("Server.Port = %d, want 8888", cfg.Server.Port)
	}
	if cfg.Segmentation.MaxK != 6 {
		t.Errorf("Segmentation.MaxK = %d, want 6", cfg.Segmentation.MaxK)
	}
	if cfg.Anomaly.Contamination != 0.05 {
		t.Errorf("Anomaly.Contamination = %v, want 0.05", cfg.Anomaly.Contamination)
	}
	if cfg.Segmentation.NInit != 10 {
		t.Errorf("Segmentation.NInit = %d, want 10 (default)", cfg.Segmentation.NInit)
	}
}

func TestLoadWithKoanfEnvOverridesFile(t *testing.T) {
	tmpDir := t.TempDir()
	t.Chdir(tmpDir)

	configPath := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(configPath, []byte("server:\n  port: 7000\n"), 0o644); err != nil {
		t.Fatalf("Failed to create config file: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, configPath)
	t.Setenv("HTTP_PORT", "7100")

	cfg, err := LoadWithKoanf()
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	if cfg.Server.Port != 7100 {
		t.Errorf("Server.Port = %d, want 7100 (env wins over file)", cfg.Server.Port)
	}
}

func TestLoadWithKoanfValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"invalid port", map[string]string{"HTTP_PORT": "70000"}},
		{"invalid backend", map[string]string{"MODEL_STORE_BACKEND": "s3"}},
		{"contamination out of range", map[string]string{"ANOMALY_CONTAMINATION": "0.9"}},
		{"single cluster", map[string]string{"SEGMENT_CLUSTERS": "1"}},
		{"invalid log level", map[string]string{"LOG_LEVEL": "verbose"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Chdir(t.TempDir())
			t.Setenv(ConfigPathEnvVar, "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			if _, err := LoadWithKoanf(); err == nil {
				t.Errorf("LoadWithKoanf() expected validation error")
			}
		})
	}
}
