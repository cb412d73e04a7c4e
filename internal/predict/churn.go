// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package predict

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/features"
	"github.com/tomtom215/ordersight/internal/pipeline"
	"github.com/tomtom215/ordersight/internal/validation"
)

// ChurnModelName is the churn model's artifact name.
const ChurnModelName = "churn_predictor"

// ChurnConfig tunes churn labelling and the classifier.
type ChurnConfig struct {
	// InactiveDays is the inactivity, counted from the dataset's latest
	// purchase, after which a customer is labelled churned.
	InactiveDays int `validate:"min=1"`
	Forest       pipeline.ForestConfig
}

// Validate checks the labelling window.
func (c *ChurnConfig) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("churn config: %w", verr)
	}
	return nil
}

// DefaultChurnConfig returns 90 inactive days and a 100-tree forest of
// depth 10.
func DefaultChurnConfig() ChurnConfig {
	return ChurnConfig{
		InactiveDays: 90,
		Forest:       pipeline.ForestConfig{Trees: 100, MaxDepth: 10, MinSamplesLeaf: 1, Seed: 42},
	}
}

var churnNumeric = []string{
	features.ColRecency,
	features.ColFrequency,
	features.ColMonetary,
	features.ColSatisfaction,
	features.ColProductDiversity,
	features.ColAvgDeliveryTime,
	features.ColDaysSinceLastOrder,
	features.ColOrderFrequency,
	features.ColAvgOrderValue,
	features.ColDeliveredRate,
}

// ChurnPrediction is one customer's churn estimate.
type ChurnPrediction struct {
	CustomerID  string  `json:"customer_id"`
	Probability float64 `json:"churn_probability"`
	Churned     bool    `json:"churned"`
}

// ChurnPredictor estimates the probability that a customer has churned.
type ChurnPredictor struct {
	*pipeline.Pipeline[*pipeline.RandomForest]
}

// NewChurnPredictor returns an untrained churn model.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewChurnPredictor(cfg ChurnConfig, opts pipeline.Options, logger zerolog.Logger) *ChurnPredictor {
	if cfg.InactiveDays <= 0 {
		cfg.InactiveDays = DefaultChurnConfig().InactiveDays
	}
	forest := cfg.Forest
	forest.Task = pipeline.Classification
	forest.Seed = opts.Seed

	model := pipeline.Model[*pipeline.RandomForest]{
		Name:     ChurnModelName,
		Required: append(append([]string(nil), features.CustomerColumns...), dataset.ColOrderStatus),
		Numeric:  churnNumeric,
		Prepare: func(t *dataset.Table) (*features.Frame, []float64, error) {
			customers, err := features.CustomerRFM(t)
			if err != nil {
				return nil, nil, err
			}
			frame := features.CustomerFrame(customers)
			days := frame.Numeric(features.ColDaysSinceLastOrder)
			labels := make([]float64, len(days))
			for i, d := range days {
				if d > float64(cfg.InactiveDays) {
					labels[i] = 1
				}
			}
			return frame, labels, nil
		},
		NewEstimator: func() *pipeline.RandomForest {
			return pipeline.NewRandomForest(forest)
		},
		Stratify: true,
		Evaluate: func(ev pipeline.Evaluation[*pipeline.RandomForest]) (map[string]float64, map[string]float64, error) {
			probs := ev.Estimator.Predict(ev.XTest)
			auc, err := pipeline.ROCAUC(probs, ev.YTest)
			if err != nil {
				return nil, nil, err
			}
			evaluation := map[string]float64{
				pipeline.MetricAccuracy: pipeline.Accuracy(probs, ev.YTest),
				pipeline.MetricAUC:      auc,
			}
			return evaluation, map[string]float64{"inactive_days": float64(cfg.InactiveDays)}, nil
		},
	}
	return &ChurnPredictor{Pipeline: pipeline.New(model, opts, logger)}
}

// PredictChurn scores every customer in t, in customer id order.
func (c *ChurnPredictor) PredictChurn(ctx context.Context, t *dataset.Table) ([]ChurnPrediction, error) {
	preds, err := c.Predict(ctx, t)
	if err != nil {
		return nil, err
	}
	out := make([]ChurnPrediction, len(preds.Keys))
	for i, id := range preds.Keys {
		p := preds.Values[i]
		out[i] = ChurnPrediction{CustomerID: id, Probability: p, Churned: p >= 0.5}
	}
	return out, nil
}

// PredictCustomer scores a single customer of t.
func (c *ChurnPredictor) PredictCustomer(ctx context.Context, t *dataset.Table, customerID string) (ChurnPrediction, error) {
	all, err := c.PredictChurn(ctx, t)
	if err != nil {
		return ChurnPrediction{}, err
	}
	for _, p := range all {
		if p.CustomerID == customerID {
			return p, nil
		}
	}
	return ChurnPrediction{}, fmt.Errorf("churn prediction: %w", dataset.NewNotFound(dataset.EntityCustomer, customerID))
}
