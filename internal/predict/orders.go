// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package predict

import (
	"context"
	"fmt"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/features"
	"github.com/tomtom215/ordersight/internal/pipeline"
)

// orderCategorical are the one-hot inputs shared by the order-level regressors.
var orderCategorical = []string{
	dataset.ColProductCategory,
	dataset.ColSellerState,
	dataset.ColCustomerState,
	dataset.ColPaymentType,
}

// OrderPrediction is one order item's regression output.
type OrderPrediction struct {
	OrderID string  `json:"order_id"`
	Value   float64 `json:"value"`
}

// requiredColumns joins the source columns of several lists without
// duplicates, keeping first-seen order. Derived columns are skipped.
func requiredColumns(lists ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, list := range lists {
		for _, c := range list {
			if _, ok := seen[c]; ok || dataset.KindOf(c) == dataset.KindUnknown {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// orderTarget derives the order frame and copies one of its columns out as
// the target, so imputation of inputs never touches target values.
func orderTarget(t *dataset.Table, target string) (*features.Frame, []float64, error) {
	frame, err := features.Orders(t)
	if err != nil {
		return nil, nil, err
	}
	col := frame.Numeric(target)
	if col == nil {
		return nil, nil, fmt.Errorf("target column %s not derived", target)
	}
	return frame, append([]float64(nil), col...), nil
}

// orderRegressor builds a forest regression model over the order frame.
func orderRegressor(name, target string, numeric []string, forest pipeline.ForestConfig, seed int64) pipeline.Model[*pipeline.RandomForest] {
	forest.Task = pipeline.Regression
	forest.Seed = seed
	return pipeline.Model[*pipeline.RandomForest]{
		Name:        name,
		Required:    requiredColumns(features.OrderColumns, numeric, orderCategorical),
		Numeric:     numeric,
		Categorical: orderCategorical,
		Prepare: func(t *dataset.Table) (*features.Frame, []float64, error) {
			return orderTarget(t, target)
		},
		NewEstimator: func() *pipeline.RandomForest {
			return pipeline.NewRandomForest(forest)
		},
		Evaluate: func(ev pipeline.Evaluation[*pipeline.RandomForest]) (map[string]float64, map[string]float64, error) {
			return pipeline.RegressionMetrics(ev.Estimator.Predict(ev.XTest), ev.YTest), nil, nil
		},
	}
}

func predictOrders(ctx context.Context, p *pipeline.Pipeline[*pipeline.RandomForest], t *dataset.Table) ([]OrderPrediction, error) {
	preds, err := p.Predict(ctx, t)
	if err != nil {
		return nil, err
	}
	out := make([]OrderPrediction, len(preds.Keys))
	for i, id := range preds.Keys {
		out[i] = OrderPrediction{OrderID: id, Value: preds.Values[i]}
	}
	return out, nil
}
