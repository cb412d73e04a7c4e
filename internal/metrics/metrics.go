// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Data Source Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	SourceRowsLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "source_rows_loaded",
			Help: "Rows returned by the most recent transaction table load",
		},
	)

	// API Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Model Training Metrics
	ModelTrainingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_training_duration_seconds",
			Help:    "Wall time of a single model training run",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"model"},
	)

	ModelTrainingTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_training_total",
			Help: "Training runs by outcome",
		},
		[]string{"model", "result"}, // result: "success", "failure"
	)

	ModelTrainingRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_training_rows",
			Help: "Rows used by the last successful training run",
		},
		[]string{"model", "partition"}, // partition: "train", "test"
	)

	ModelEvaluation = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_evaluation_score",
			Help: "Held-out evaluation metrics from the last successful training run",
		},
		[]string{"model", "metric"}, // metric: "accuracy", "auc", "rmse", "r2", "silhouette"
	)

	ModelLastTrained = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_last_trained_timestamp",
			Help: "Unix timestamp of the last successful training run",
		},
		[]string{"model"},
	)

	// Prediction Metrics
	PredictionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "model_prediction_duration_seconds",
			Help:    "Duration of a batch prediction",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	PredictionRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_prediction_records_total",
			Help: "Records scored by each model",
		},
		[]string{"model"},
	)

	PredictionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_prediction_errors_total",
			Help: "Failed prediction calls by error kind",
		},
		[]string{"model", "error_type"}, // error_type: "not_trained", "schema", "other"
	)

	AnomaliesFlagged = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "anomaly_records_flagged_total",
			Help: "Records scored below the anomaly threshold",
		},
	)

	// Artifact Store Metrics
	ModelStoreOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_store_operations_total",
			Help: "Artifact store operations by backend and outcome",
		},
		[]string{"backend", "operation", "result"}, // operation: "save", "load", "prune"
	)

	ModelStoreBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "model_store_artifact_bytes",
			Help: "Compressed size of the latest stored artifact",
		},
		[]string{"model"},
	)

	// Registry Metrics
	RegistryLoads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_registry_loads_total",
			Help: "Registry handle materializations by source",
		},
		[]string{"model", "source"}, // source: "store", "trained", "error"
	)

	RegistryInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "model_registry_invalidations_total",
			Help: "Registry handle invalidations",
		},
		[]string{"model"},
	)

	// Cache Metrics
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_hits_total",
			Help: "Total number of cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cache_misses_total",
			Help: "Total number of cache misses",
		},
		[]string{"cache_type"},
	)

	CacheSize = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "cache_entries",
			Help: "Current number of cached entries",
		},
		[]string{"cache_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		errorType := err.Error()
		if len(errorType) > 50 {
			errorType = errorType[:50]
		}
		DBQueryErrors.WithLabelValues(operation, table, errorType).Inc()
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordTraining records the outcome of one training run. On success the
// row counts, evaluation metrics and last-trained timestamp are updated; a
// failed run leaves the previous values in place.
func RecordTraining(model string, duration time.Duration, trainRows, testRows int, evaluation map[string]float64, err error) {
	ModelTrainingDuration.WithLabelValues(model).Observe(duration.Seconds())
	if err != nil {
		ModelTrainingTotal.WithLabelValues(model, "failure").Inc()
		return
	}
	ModelTrainingTotal.WithLabelValues(model, "success").Inc()
	ModelTrainingRows.WithLabelValues(model, "train").Set(float64(trainRows))
	ModelTrainingRows.WithLabelValues(model, "test").Set(float64(testRows))
	for metric, value := range evaluation {
		ModelEvaluation.WithLabelValues(model, metric).Set(value)
	}
	ModelLastTrained.WithLabelValues(model).Set(float64(time.Now().Unix()))
}

// RecordPrediction records a batch prediction. errorType is ignored when err is nil.
func RecordPrediction(model string, records int, duration time.Duration, errorType string, err error) {
	PredictionDuration.WithLabelValues(model).Observe(duration.Seconds())
	if err != nil {
		PredictionErrors.WithLabelValues(model, errorType).Inc()
		return
	}
	PredictionRecords.WithLabelValues(model).Add(float64(records))
}

// RecordStoreOperation records an artifact store call.
func RecordStoreOperation(backend, operation string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	ModelStoreOperations.WithLabelValues(backend, operation, result).Inc()
}

// RecordRegistryLoad records where a registry handle came from.
func RecordRegistryLoad(model, source string) {
	RegistryLoads.WithLabelValues(model, source).Inc()
}

// breakerStateValue maps a breaker state name to the gauge encoding.
func breakerStateValue(state string) float64 {
	switch state {
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return 0
	}
}

// RecordBreakerTransition records a circuit breaker state change.
func RecordBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}
