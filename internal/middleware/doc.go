// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package middleware provides the HTTP middleware shared by every API route.

  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request counters and latency keyed by chi route pattern
  - Compression: gzip for clients that accept it

All three use the func(http.Handler) http.Handler shape so they plug into
chi's r.Use directly:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.Compression)
*/
package middleware
