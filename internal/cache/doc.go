// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package cache provides a thread-safe, generic in-memory cache with TTL
expiration.

The API layer caches recommendation and segment lookups, which are pure
functions of the current model. Each cache is cleared when its model is
retrained, so the TTL only bounds memory, never staleness across models.

# Usage

	c := cache.New[[]recommend.Recommendation]("recommendations", 10*time.Minute, 10000)
	key := cache.GenerateKey("similar", map[string]any{"product": id, "n": n})
	recs, err := c.GetOrLoad(key, func() ([]recommend.Recommendation, error) {
	    return engine.SimilarProducts(id, n)
	})

# Metrics

Hits, misses and size are exported per cache name through the
cache_hits_total, cache_misses_total and cache_entries collectors.

# Thread Safety

All methods are safe for concurrent use. Serve runs the background sweep and
is meant to be added to the supervisor tree.
*/
package cache
