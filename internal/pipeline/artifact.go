// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package pipeline

import (
	"slices"
	"sort"
	"time"
)

// SchemaVersion is bumped whenever the encoded layout of Artifact or of an
// estimator changes incompatibly.
const SchemaVersion = 1

// FeatureSchema records the exact inputs an artifact was trained on.
type FeatureSchema struct {
	Numeric     []string
	Categorical []string
	// Expanded lists the design-matrix columns after one-hot encoding.
	Expanded []string
}

// Equal reports whether two schemas name the same input columns.
func (s FeatureSchema) Equal(o FeatureSchema) bool {
	return slices.Equal(s.Numeric, o.Numeric) && slices.Equal(s.Categorical, o.Categorical)
}

// Importance pairs a design-matrix column with its estimator importance.
type Importance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// RankImportances pairs names with values and sorts them by importance,
// descending, with ties broken by name.
func RankImportances(names []string, values []float64) []Importance {
	n := min(len(names), len(values))
	out := make([]Importance, n)
	for i := 0; i < n; i++ {
		out[i] = Importance{Feature: names[i], Importance: values[i]}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Importance != out[j].Importance {
			return out[i].Importance > out[j].Importance
		}
		return out[i].Feature < out[j].Feature
	})
	return out
}

// Artifact is the immutable bundle produced by one training run: fitted
// estimator, fitted preprocessing and the feature schema, plus evaluation
// results. It is replaced wholesale by a later Train or Load.
type Artifact[E Estimator] struct {
	Name          string
	SchemaVersion int
	Schema        FeatureSchema
	Preprocessor  *Preprocessor
	Estimator     E

	// Metrics holds held-out evaluation results keyed by Metric* names.
	Metrics map[string]float64
	// Params holds values derived during training that prediction needs,
	// such as the anomaly threshold.
	Params map[string]float64

	Importances []Importance
	TrainRows   int
	TestRows    int
	TrainedAt   time.Time
	RunID       string
}
