// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package pipeline

import (
	"context"
	"time"

	"github.com/tomtom215/ordersight/internal/dataset"
)

// Info summarizes a model's current artifact for status endpoints.
type Info struct {
	Name        string             `json:"name"`
	Trained     bool               `json:"trained"`
	TrainedAt   *time.Time         `json:"trained_at,omitempty"`
	RunID       string             `json:"run_id,omitempty"`
	TrainRows   int                `json:"train_rows"`
	TestRows    int                `json:"test_rows"`
	Metrics     map[string]float64 `json:"metrics,omitempty"`
	Params      map[string]float64 `json:"params,omitempty"`
	Features    []string           `json:"features,omitempty"`
	Importances []Importance       `json:"importances,omitempty"`
}

// Info describes the current artifact. An untrained pipeline reports only
// its name.
func (p *Pipeline[E]) Info() Info {
	info := Info{Name: p.model.Name}
	art := p.current.Load()
	if art == nil {
		return info
	}
	trainedAt := art.TrainedAt
	info.Trained = true
	info.TrainedAt = &trainedAt
	info.RunID = art.RunID
	info.TrainRows = art.TrainRows
	info.TestRows = art.TestRows
	info.Metrics = art.Metrics
	info.Params = art.Params
	info.Features = art.Schema.Expanded
	info.Importances = art.Importances
	return info
}

// Retrain runs Train and discards the returned artifact.
func (p *Pipeline[E]) Retrain(ctx context.Context, t *dataset.Table) error {
	_, err := p.Train(ctx, t)
	return err
}
