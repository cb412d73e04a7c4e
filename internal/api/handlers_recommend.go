// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/ordersight/internal/cache"
	"github.com/tomtom215/ordersight/internal/recommend"
)

// recommendFunc is one of the engine's lookup methods.
type recommendFunc func(e *recommend.Engine, id string, n int) ([]recommend.Recommendation, error)

// serveRecommendations validates the lookup, consults the cache and falls
// back to the engine.
func (h *Handler) serveRecommendations(w http.ResponseWriter, r *http.Request, kind, param string, lookup recommendFunc) {
	start := time.Now()
	req, err := recommendationRequest(r, chi.URLParam(r, param), h.config.DefaultN)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	key := cache.GenerateKey(kind, req)
	if recs, ok := h.recommendations.Get(key); ok {
		respondList(w, r, recs, start, true)
		return
	}

	engine, err := h.registry.Recommender.Get(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	recs, err := lookup(engine, req.ID, req.N)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.recommendations.Set(key, recs)
	respondList(w, r, recs, start, false)
}

// SimilarProducts handles GET /api/v1/recommendations/products/{productID}/similar.
func (h *Handler) SimilarProducts(w http.ResponseWriter, r *http.Request) {
	h.serveRecommendations(w, r, "similar", "productID", (*recommend.Engine).SimilarProducts)
}

// CustomerRecommendations handles GET /api/v1/recommendations/customers/{customerID}.
func (h *Handler) CustomerRecommendations(w http.ResponseWriter, r *http.Request) {
	h.serveRecommendations(w, r, "customer", "customerID", (*recommend.Engine).CustomerRecommendations)
}

// CategoryRecommendations handles GET /api/v1/recommendations/categories/{category}.
func (h *Handler) CategoryRecommendations(w http.ResponseWriter, r *http.Request) {
	h.serveRecommendations(w, r, "category", "category", (*recommend.Engine).CategoryRecommendations)
}
