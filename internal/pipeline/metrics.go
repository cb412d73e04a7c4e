// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package pipeline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/integrate"
	"gonum.org/v1/gonum/stat"
)

// Evaluation metric names shared by logs, artifacts and the metrics package.
const (
	MetricAccuracy        = "accuracy"
	MetricAUC             = "auc"
	MetricMSE             = "mse"
	MetricRMSE            = "rmse"
	MetricR2              = "r2"
	MetricScoreMean       = "score_mean"
	MetricScoreStd        = "score_std"
	MetricScoreMin        = "score_min"
	MetricScoreMax        = "score_max"
	MetricThreshold       = "threshold"
	MetricFlaggedFraction = "flagged_fraction"
)

// Accuracy is the share of probabilities that land on the right side of 0.5.
func Accuracy(probabilities, labels []float64) float64 {
	if len(labels) == 0 {
		return math.NaN()
	}
	correct := 0
	for i, p := range probabilities {
		pred := 0.0
		if p >= 0.5 {
			pred = 1
		}
		if pred == labels[i] {
			correct++
		}
	}
	return float64(correct) / float64(len(labels))
}

// ROCAUC returns the area under the ROC curve of scores against 0/1 labels.
// Both classes must be present.
func ROCAUC(scores, labels []float64) (float64, error) {
	y := append([]float64(nil), scores...)
	classes := make([]bool, len(labels))
	pos := 0
	for i, l := range labels {
		classes[i] = l == 1
		if classes[i] {
			pos++
		}
	}
	if pos == 0 || pos == len(labels) {
		return 0, fmt.Errorf("%w: AUC needs both classes in the held-out set", ErrDegenerateData)
	}
	stat.SortWeightedLabeled(y, classes, nil)
	tpr, fpr, _ := stat.ROC(nil, y, classes, nil)
	return integrate.Trapezoidal(fpr, tpr), nil
}

// MSE returns the mean squared error.
func MSE(predictions, targets []float64) float64 {
	if len(targets) == 0 {
		return math.NaN()
	}
	d := floats.Distance(predictions, targets, 2)
	return d * d / float64(len(targets))
}

// R2 returns the coefficient of determination.
func R2(predictions, targets []float64) float64 {
	return stat.RSquaredFrom(predictions, targets, nil)
}

// RegressionMetrics returns MSE, RMSE and R².
func RegressionMetrics(predictions, targets []float64) map[string]float64 {
	mse := MSE(predictions, targets)
	return map[string]float64{
		MetricMSE:  mse,
		MetricRMSE: math.Sqrt(mse),
		MetricR2:   R2(predictions, targets),
	}
}

// ScoreSummary describes a score distribution.
func ScoreSummary(scores []float64) map[string]float64 {
	mean, std := stat.PopMeanStdDev(scores, nil)
	return map[string]float64{
		MetricScoreMean: mean,
		MetricScoreStd:  std,
		MetricScoreMin:  floats.Min(scores),
		MetricScoreMax:  floats.Max(scores),
	}
}
