// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/ordersight/internal/validation"
)

// SegmentProfiles handles GET /api/v1/segments/profiles.
func (h *Handler) SegmentProfiles(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	engine, err := h.registry.Segments.Get(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	profiles, err := engine.Profiles()
	if err != nil {
		respondErr(w, r, err)
		return
	}
	respondList(w, r, profiles, start, false)
}

// CustomerSegment handles GET /api/v1/segments/customers/{customerID}.
func (h *Handler) CustomerSegment(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	req := SegmentRequest{CustomerID: chi.URLParam(r, "customerID")}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondErr(w, r, verr)
		return
	}

	if assignment, ok := h.segments.Get(req.CustomerID); ok {
		respondData(w, r, http.StatusOK, assignment, start, true)
		return
	}

	engine, err := h.registry.Segments.Get(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	assignment, err := engine.CustomerSegment(req.CustomerID)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	h.segments.Set(req.CustomerID, assignment)
	respondData(w, r, http.StatusOK, assignment, start, false)
}
