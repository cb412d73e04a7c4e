// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package registry

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/logging"
	"github.com/tomtom215/ordersight/internal/pipeline"
	"github.com/tomtom215/ordersight/internal/predict"
	"github.com/tomtom215/ordersight/internal/recommend"
	"github.com/tomtom215/ordersight/internal/segment"
)

// Models are the unmemoized model instances handed to New.
type Models struct {
	Segments    *segment.Engine
	Recommender *recommend.Engine
	Churn       *predict.ChurnPredictor
	Delivery    *predict.DeliveryPredictor
	Review      *predict.ReviewPredictor
	Anomaly     *predict.AnomalyDetector
}

// Registry holds the process-wide handle of every model.
type Registry struct {
	Segments    *Entry[*segment.Engine]
	Recommender *Entry[*recommend.Engine]
	Churn       *Entry[*predict.ChurnPredictor]
	Delivery    *Entry[*predict.DeliveryPredictor]
	Review      *Entry[*predict.ReviewPredictor]
	Anomaly     *Entry[*predict.AnomalyDetector]

	handles []Handle
	logger  zerolog.Logger
}

// New wraps every model in an Entry sharing opts.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func New(m Models, opts Options, logger zerolog.Logger) *Registry {
	r := &Registry{
		Segments:    NewEntry(m.Segments, opts, logger),
		Recommender: NewEntry(m.Recommender, opts, logger),
		Churn:       NewEntry(m.Churn, opts, logger),
		Delivery:    NewEntry(m.Delivery, opts, logger),
		Review:      NewEntry(m.Review, opts, logger),
		Anomaly:     NewEntry(m.Anomaly, opts, logger),
		logger:      logger.With().Str("component", "registry").Logger(),
	}
	r.handles = []Handle{r.Segments, r.Recommender, r.Churn, r.Delivery, r.Review, r.Anomaly}
	return r
}

// Handles returns every entry in a fixed order.
func (r *Registry) Handles() []Handle {
	return append([]Handle(nil), r.handles...)
}

// Handle returns the entry for a model name.
func (r *Registry) Handle(name string) (Handle, bool) {
	for _, h := range r.handles {
		if h.Name() == name {
			return h, true
		}
	}
	return nil, false
}

// Infos describes every model.
func (r *Registry) Infos() []pipeline.Info {
	out := make([]pipeline.Info, len(r.handles))
	for i, h := range r.handles {
		out[i] = h.Info()
	}
	return out
}

// EnsureAll materializes every entry and returns the joined errors. Entries
// that fail stay unready and are retried on their next use.
func (r *Registry) EnsureAll(ctx context.Context) error {
	var errs []error
	for _, h := range r.handles {
		if err := ctx.Err(); err != nil {
			return errors.Join(append(errs, err)...)
		}
		if err := h.Ensure(ctx); err != nil {
			r.logger.Warn().Err(err).Str("model", h.Name()).Msg("Model not available")
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RefreshAll retrains every model on t under one run ID. A failing model
// does not stop the others.
func (r *Registry) RefreshAll(ctx context.Context, t *dataset.Table) error {
	if logging.RunIDFromContext(ctx) == "" {
		ctx, _ = logging.ContextWithNewRunID(ctx)
	}
	var errs []error
	for _, h := range r.handles {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := h.Refresh(ctx, t); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
