// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package predict

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/features"
	"github.com/tomtom215/ordersight/internal/metrics"
	"github.com/tomtom215/ordersight/internal/pipeline"
	"github.com/tomtom215/ordersight/internal/validation"
)

// AnomalyModelName is the anomaly model's artifact name.
const AnomalyModelName = "anomaly_detector"

// paramContamination is stored next to the threshold in the artifact params.
const paramContamination = "contamination"

// AnomalyConfig tunes the isolation forest and the flagging rate.
type AnomalyConfig struct {
	// Contamination is the expected share of anomalous records. The
	// threshold is the matching percentile of training scores.
	Contamination float64 `validate:"gt=0,lte=0.5"`
	Trees         int     `validate:"min=1"`
	MaxSamples    int     `validate:"min=2"`
}

// DefaultAnomalyConfig returns 1% contamination, 100 trees and 256 samples per tree.
func DefaultAnomalyConfig() AnomalyConfig {
	return AnomalyConfig{Contamination: 0.01, Trees: 100, MaxSamples: 256}
}

// Validate checks the ranges of every field.
func (c *AnomalyConfig) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("anomaly config: %w", verr)
	}
	return nil
}

var anomalyNumeric = []string{
	dataset.ColPaymentValue,
	dataset.ColFreightValue,
	dataset.ColPaymentInstallments,
	dataset.ColProductWeightG,
	dataset.ColProductLengthCm,
	dataset.ColProductHeightCm,
	dataset.ColProductWidthCm,
	features.ColDeliveryTime,
	features.ColPricePerWeight,
	features.ColPricePerVolume,
	features.ColFreightRatio,
}

// AnomalyResult is one record's anomaly score. Lower scores are more
// anomalous; Flagged is set when the score is below the trained threshold.
type AnomalyResult struct {
	OrderID string  `json:"order_id"`
	Score   float64 `json:"anomaly_score"`
	Flagged bool    `json:"is_anomaly"`
}

// FlaggedOrder is a flagged record with the feature values it was scored on.
type FlaggedOrder struct {
	OrderID    string             `json:"order_id"`
	CustomerID string             `json:"customer_id"`
	ProductID  string             `json:"product_id"`
	Score      float64            `json:"anomaly_score"`
	Features   map[string]float64 `json:"features"`
}

// FeatureStats describes one feature over the flagged records.
type FeatureStats struct {
	Count int     `json:"count"`
	Mean  float64 `json:"mean"`
	Std   float64 `json:"std"`
	Min   float64 `json:"min"`
	P25   float64 `json:"25%"`
	P50   float64 `json:"50%"`
	P75   float64 `json:"75%"`
	Max   float64 `json:"max"`
}

// AnomalyDetails is the detail report over flagged records.
type AnomalyDetails struct {
	Threshold     float64                 `json:"threshold"`
	Anomalies     []FlaggedOrder          `json:"anomalies"`
	Statistics    map[string]FeatureStats `json:"statistics"`
	Contributions []pipeline.Importance   `json:"feature_contributions"`
}

// AnomalyDetector flags outlying order items with an isolation forest.
type AnomalyDetector struct {
	*pipeline.Pipeline[*pipeline.IsolationForest]
}

// NewAnomalyDetector returns an untrained anomaly model.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewAnomalyDetector(cfg AnomalyConfig, opts pipeline.Options, logger zerolog.Logger) *AnomalyDetector {
	def := DefaultAnomalyConfig()
	if cfg.Contamination <= 0 || cfg.Contamination > 0.5 {
		cfg.Contamination = def.Contamination
	}
	forest := pipeline.IsolationConfig{Trees: cfg.Trees, MaxSamples: cfg.MaxSamples, Seed: opts.Seed}

	model := pipeline.Model[*pipeline.IsolationForest]{
		Name:     AnomalyModelName,
		Required: requiredColumns(features.OrderColumns, anomalyNumeric),
		Numeric:  anomalyNumeric,
		Prepare: func(t *dataset.Table) (*features.Frame, []float64, error) {
			frame, err := features.Orders(t)
			return frame, nil, err
		},
		NewEstimator: func() *pipeline.IsolationForest {
			return pipeline.NewIsolationForest(forest)
		},
		Evaluate: func(ev pipeline.Evaluation[*pipeline.IsolationForest]) (map[string]float64, map[string]float64, error) {
			scores := ev.Estimator.Predict(ev.XAll)
			threshold := features.Percentile(scores, cfg.Contamination*100)
			flagged := 0
			for _, s := range scores {
				if s < threshold {
					flagged++
				}
			}
			evaluation := pipeline.ScoreSummary(scores)
			evaluation[pipeline.MetricThreshold] = threshold
			evaluation[pipeline.MetricFlaggedFraction] = float64(flagged) / float64(len(scores))
			params := map[string]float64{
				pipeline.MetricThreshold: threshold,
				paramContamination:       cfg.Contamination,
			}
			return evaluation, params, nil
		},
	}
	return &AnomalyDetector{Pipeline: pipeline.New(model, opts, logger)}
}

// Detect scores every record of t against the trained threshold.
func (d *AnomalyDetector) Detect(ctx context.Context, t *dataset.Table) ([]AnomalyResult, error) {
	preds, err := d.Predict(ctx, t)
	if err != nil {
		return nil, err
	}
	threshold := preds.Params[pipeline.MetricThreshold]
	out := make([]AnomalyResult, len(preds.Keys))
	flagged := 0
	for i, id := range preds.Keys {
		score := preds.Values[i]
		out[i] = AnomalyResult{OrderID: id, Score: score, Flagged: score < threshold}
		if out[i].Flagged {
			flagged++
		}
	}
	metrics.AnomaliesFlagged.Add(float64(flagged))
	return out, nil
}

// Details scores t and reports the flagged records, statistics of every
// feature over those records and the features ranked by how often the
// forest split on them.
func (d *AnomalyDetector) Details(ctx context.Context, t *dataset.Table) (*AnomalyDetails, error) {
	results, err := d.Detect(ctx, t)
	if err != nil {
		return nil, err
	}
	art, err := d.Artifact()
	if err != nil {
		return nil, err
	}
	frame, err := features.Orders(t)
	if err != nil {
		return nil, err
	}
	frame.FillWith(art.Preprocessor.Medians)

	records := t.Records()
	columns := make([][]float64, len(anomalyNumeric))
	for j, name := range anomalyNumeric {
		columns[j] = frame.Numeric(name)
	}

	report := &AnomalyDetails{
		Threshold:     art.Params[pipeline.MetricThreshold],
		Anomalies:     []FlaggedOrder{},
		Statistics:    make(map[string]FeatureStats, len(anomalyNumeric)),
		Contributions: art.Importances,
	}
	flaggedValues := make([][]float64, len(anomalyNumeric))
	for i, res := range results {
		if !res.Flagged {
			continue
		}
		values := make(map[string]float64, len(anomalyNumeric))
		for j, name := range anomalyNumeric {
			values[name] = columns[j][i]
			flaggedValues[j] = append(flaggedValues[j], columns[j][i])
		}
		report.Anomalies = append(report.Anomalies, FlaggedOrder{
			OrderID:    res.OrderID,
			CustomerID: records[i].CustomerID,
			ProductID:  records[i].ProductID,
			Score:      res.Score,
			Features:   values,
		})
	}
	if len(report.Anomalies) > 0 {
		for j, name := range anomalyNumeric {
			report.Statistics[name] = describe(flaggedValues[j])
		}
	}
	return report, nil
}

// describe summarizes a non-empty sample. The standard deviation uses the
// n-1 denominator and is 0 for a single value.
func describe(xs []float64) FeatureStats {
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) < 2 {
		std = 0
	}
	return FeatureStats{
		Count: len(xs),
		Mean:  mean,
		Std:   std,
		Min:   floats.Min(xs),
		P25:   features.Percentile(xs, 25),
		P50:   features.Percentile(xs, 50),
		P75:   features.Percentile(xs, 75),
		Max:   floats.Max(xs),
	}
}
