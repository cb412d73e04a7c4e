// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package predict

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/features"
	"github.com/tomtom215/ordersight/internal/pipeline"
)

// ReviewModelName is the review-score model's artifact name.
const ReviewModelName = "review_predictor"

var reviewNumeric = []string{
	dataset.ColPrice,
	dataset.ColFreightValue,
	dataset.ColProductNameLength,
	dataset.ColProductDescriptionLength,
	dataset.ColProductPhotosQty,
	dataset.ColProductWeightG,
	dataset.ColProductLengthCm,
	dataset.ColProductHeightCm,
	dataset.ColProductWidthCm,
	dataset.ColPaymentSequential,
	dataset.ColPaymentInstallments,
	dataset.ColPaymentValue,
	features.ColDeliveryDays,
}

// ReviewPredictor estimates the review score an order item will receive.
type ReviewPredictor struct {
	*pipeline.Pipeline[*pipeline.RandomForest]
}

// NewReviewPredictor returns an untrained review-score model. Records
// without a review score are skipped in training.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewReviewPredictor(forest pipeline.ForestConfig, opts pipeline.Options, logger zerolog.Logger) *ReviewPredictor {
	model := orderRegressor(ReviewModelName, dataset.ColReviewScore, reviewNumeric, forest, opts.Seed)
	return &ReviewPredictor{Pipeline: pipeline.New(model, opts, logger)}
}

// PredictReview returns the expected review score for every record of t.
func (r *ReviewPredictor) PredictReview(ctx context.Context, t *dataset.Table) ([]OrderPrediction, error) {
	return predictOrders(ctx, r.Pipeline, t)
}
