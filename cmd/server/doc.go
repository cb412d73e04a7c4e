// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package main is the entry point for the Ordersight server.

Ordersight trains analytics models over an e-commerce transaction table held
in DuckDB (customer segments, product recommendations, churn, delivery time,
review score and anomaly scoring) and serves them over a REST API for
dashboards.

# Application Architecture

The server runs under a Suture v4 supervisor tree:

	RootSupervisor ("ordersight")
	├── ModelsSupervisor ("models-layer")
	│   ├── Training service (startup load, scheduled retrain)
	│   └── Cache sweepers (recommendation and segment caches)
	└── APISupervisor ("api-layer")
	    └── HTTP Server (chi router)

Component initialization order:

 1. Configuration: Koanf v2 with environment variables and config files
 2. Logging: zerolog with JSON/console output modes
 3. Database: DuckDB holding the merged transaction table
 4. Data source: circuit breaker around the table loader
 5. Model store: versioned artifacts on disk or in BadgerDB
 6. Model registry: lazily loaded, memoized model instances
 7. Supervisor tree and HTTP server

# Configuration

	# Data
	DUCKDB_PATH=/data/ordersight.duckdb
	SOURCE_TABLE=transformed_data   # or SOURCE_CSV=/data/orders.csv

	# Server
	HTTP_PORT=8642
	LOG_LEVEL=info                  # trace, debug, info, warn, error
	LOG_FORMAT=json                 # json or console
	CORS_ORIGINS=https://dash.example.com

	# Models
	MODEL_STORE_BACKEND=file        # file or badger
	MODEL_STORE_PATH=/data/models
	MODEL_TRAIN_ON_STARTUP=true
	MODEL_TRAIN_INTERVAL=24h        # 0 disables scheduled retraining
	MODEL_SEED=42

# Signal Handling

SIGINT and SIGTERM cancel the root context. The HTTP server drains in-flight
requests, the training service abandons any run in progress, and the model
store and database are closed.
*/
package main
