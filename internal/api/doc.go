// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package api exposes the trained models over HTTP using the chi router.

# Endpoints

	GET  /api/v1/health
	GET  /metrics
	GET  /api/v1/segments/profiles
	GET  /api/v1/segments/customers/{customerID}
	GET  /api/v1/recommendations/products/{productID}/similar?n=
	GET  /api/v1/recommendations/customers/{customerID}?n=
	GET  /api/v1/recommendations/categories/{category}?n=
	POST /api/v1/predictions/{model}
	GET  /api/v1/models
	POST /api/v1/models/retrain

Every JSON response uses the same envelope:

	{"status": "success", "data": ..., "metadata": {"timestamp": ...}}
	{"status": "error", "data": null, "metadata": {...}, "error": {"code": ..., "message": ...}}

# Error mapping

	unknown customer, product, category or model   404 NOT_FOUND
	model not trained yet                          409 MODEL_NOT_TRAINED
	input lacks required columns                   422 SCHEMA_ERROR
	bad query parameter or body                    400 VALIDATION_ERROR
	retrain requested too often                    429 TOO_MANY_REQUESTS
	anything else                                  500 INTERNAL_ERROR

# Caching

Recommendation and segment lookups go through TTL caches. The caches are
cleared by registry OnChange listeners whenever the backing model is
swapped, so a cached answer never outlives its model.
*/
package api
