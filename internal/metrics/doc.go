// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package metrics provides Prometheus metrics collection and export for observability.

All collectors are registered with the default registry through promauto and
exposed at /metrics by the API router.

# Available Metrics

Data source:
  - duckdb_query_duration_seconds, duckdb_query_errors_total
  - source_rows_loaded

Model lifecycle:
  - model_training_duration_seconds, model_training_total
  - model_training_rows, model_evaluation_score, model_last_trained_timestamp
  - model_prediction_duration_seconds, model_prediction_records_total
  - model_prediction_errors_total, anomaly_records_flagged_total
  - model_store_operations_total, model_store_artifact_bytes
  - model_registry_loads_total, model_registry_invalidations_total

API and resilience:
  - api_requests_total, api_request_duration_seconds, api_active_requests
  - api_rate_limit_hits_total
  - cache_hits_total, cache_misses_total, cache_entries
  - circuit_breaker_state, circuit_breaker_requests_total
  - circuit_breaker_state_transitions_total

# Usage

	start := time.Now()
	art, err := pipeline.Train(ctx, table)
	metrics.RecordTraining("churn_predictor", time.Since(start), art.TrainRows, art.TestRows, art.Evaluation, err)
*/
package metrics
