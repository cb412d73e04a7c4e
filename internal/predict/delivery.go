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

// DeliveryModelName is the delivery-time model's artifact name.
const DeliveryModelName = "delivery_predictor"

var deliveryNumeric = []string{
	dataset.ColPrice,
	dataset.ColFreightValue,
	dataset.ColProductWeightG,
	dataset.ColProductLengthCm,
	dataset.ColProductHeightCm,
	dataset.ColProductWidthCm,
	dataset.ColPaymentInstallments,
	dataset.ColPaymentValue,
}

// DeliveryPredictor estimates delivery time in whole days per order item.
// Items without a delivery date are excluded from training.
type DeliveryPredictor struct {
	*pipeline.Pipeline[*pipeline.RandomForest]
}

// NewDeliveryPredictor returns an untrained delivery-time model.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewDeliveryPredictor(forest pipeline.ForestConfig, opts pipeline.Options, logger zerolog.Logger) *DeliveryPredictor {
	model := orderRegressor(DeliveryModelName, features.ColDeliveryTime, deliveryNumeric, forest, opts.Seed)
	return &DeliveryPredictor{Pipeline: pipeline.New(model, opts, logger)}
}

// PredictDelivery returns the expected delivery days for every record of t.
func (d *DeliveryPredictor) PredictDelivery(ctx context.Context, t *dataset.Table) ([]OrderPrediction, error) {
	return predictOrders(ctx, d.Pipeline, t)
}
