// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package pipeline

// Estimator is a model fitted on a dense design matrix. Implementations must
// be gob-encodable so that artifacts can be stored, and Predict must be safe
// for concurrent use once Fit has returned.
type Estimator interface {
	// Fit trains on x with targets y. Unsupervised estimators ignore y.
	Fit(x [][]float64, y []float64) error

	// Predict returns one value per row of x.
	Predict(x [][]float64) []float64

	// FeatureImportances returns one non-negative weight per column of x.
	FeatureImportances() []float64
}

var (
	_ Estimator = (*RandomForest)(nil)
	_ Estimator = (*IsolationForest)(nil)
)
