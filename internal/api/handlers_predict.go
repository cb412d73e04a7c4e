// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/validation"
)

// Prediction targets accepted in the {model} path segment.
const (
	TargetChurn    = "churn"
	TargetDelivery = "delivery"
	TargetReview   = "review"
	TargetAnomaly  = "anomaly"
	TargetSegments = "segments"
)

// predictFunc runs one model over a request table.
type predictFunc func(ctx context.Context, t *dataset.Table, r *http.Request) (interface{}, int, error)

func (h *Handler) predictor(target string) (predictFunc, string, bool) {
	switch target {
	case TargetChurn:
		return func(ctx context.Context, t *dataset.Table, _ *http.Request) (interface{}, int, error) {
			m, err := h.registry.Churn.Get(ctx)
			if err != nil {
				return nil, 0, err
			}
			out, err := m.PredictChurn(ctx, t)
			return out, len(out), err
		}, h.registry.Churn.Name(), true

	case TargetDelivery:
		return func(ctx context.Context, t *dataset.Table, _ *http.Request) (interface{}, int, error) {
			m, err := h.registry.Delivery.Get(ctx)
			if err != nil {
				return nil, 0, err
			}
			out, err := m.PredictDelivery(ctx, t)
			return out, len(out), err
		}, h.registry.Delivery.Name(), true

	case TargetReview:
		return func(ctx context.Context, t *dataset.Table, _ *http.Request) (interface{}, int, error) {
			m, err := h.registry.Review.Get(ctx)
			if err != nil {
				return nil, 0, err
			}
			out, err := m.PredictReview(ctx, t)
			return out, len(out), err
		}, h.registry.Review.Name(), true

	case TargetAnomaly:
		return func(ctx context.Context, t *dataset.Table, r *http.Request) (interface{}, int, error) {
			m, err := h.registry.Anomaly.Get(ctx)
			if err != nil {
				return nil, 0, err
			}
			if details, _ := strconv.ParseBool(r.URL.Query().Get("details")); details {
				out, err := m.Details(ctx, t)
				if err != nil {
					return nil, 0, err
				}
				return out, len(out.Anomalies), nil
			}
			out, err := m.Detect(ctx, t)
			return out, len(out), err
		}, h.registry.Anomaly.Name(), true

	case TargetSegments:
		return func(ctx context.Context, t *dataset.Table, _ *http.Request) (interface{}, int, error) {
			m, err := h.registry.Segments.Get(ctx)
			if err != nil {
				return nil, 0, err
			}
			out, err := m.Assign(ctx, t)
			return out, len(out), err
		}, h.registry.Segments.Name(), true
	}
	return nil, "", false
}

// Predict handles POST /api/v1/predictions/{model}. The body carries the
// records to score; see PredictionRequest. For the anomaly model,
// ?details=true returns the flagged records with feature statistics.
func (h *Handler) Predict(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	target := chi.URLParam(r, "model")
	predict, modelName, ok := h.predictor(target)
	if !ok {
		respondErr(w, r, dataset.NewNotFound("model", target))
		return
	}

	var req PredictionRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		respondErr(w, r, err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondErr(w, r, verr)
		return
	}

	table, err := toTable(modelName, req.Records)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	out, n, err := predict(r.Context(), table, r)
	if err != nil {
		respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "success",
		Data:   out,
		Metadata: Metadata{
			Timestamp:   time.Now(),
			RequestID:   requestID(r),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Count:       &n,
		},
	})
}
