// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package pipeline

import (
	"errors"
	"math"
	"testing"
)

func TestAccuracy(t *testing.T) {
	got := Accuracy([]float64{0.9, 0.4, 0.5, 0.1}, []float64{1, 0, 0, 0})
	if got != 0.75 {
		t.Errorf("Accuracy() = %v, want 0.75", got)
	}
}

func TestROCAUC(t *testing.T) {
	tests := []struct {
		name   string
		scores []float64
		labels []float64
		want   float64
	}{
		{"perfect", []float64{0.1, 0.2, 0.8, 0.9}, []float64{0, 0, 1, 1}, 1},
		{"inverted", []float64{0.9, 0.8, 0.2, 0.1}, []float64{0, 0, 1, 1}, 0},
		{"partial", []float64{0, 3, 5, 6, 7.5, 8}, []float64{0, 1, 0, 1, 1, 1}, 0.875},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ROCAUC(tt.scores, tt.labels)
			if err != nil {
				t.Fatalf("ROCAUC() error = %v", err)
			}
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ROCAUC() = %v, want %v", got, tt.want)
			}
		})
	}

	if _, err := ROCAUC([]float64{0.1, 0.9}, []float64{1, 1}); !errors.Is(err, ErrDegenerateData) {
		t.Errorf("ROCAUC() single class error = %v, want ErrDegenerateData", err)
	}
}

func TestRegressionMetrics(t *testing.T) {
	m := RegressionMetrics([]float64{1, 2, 3, 5}, []float64{1, 2, 3, 3})
	if m[MetricMSE] != 1 {
		t.Errorf("mse = %v, want 1", m[MetricMSE])
	}
	if m[MetricRMSE] != 1 {
		t.Errorf("rmse = %v, want 1", m[MetricRMSE])
	}

	perfect := RegressionMetrics([]float64{1, 2, 3}, []float64{1, 2, 3})
	if perfect[MetricR2] != 1 {
		t.Errorf("r2 of exact predictions = %v, want 1", perfect[MetricR2])
	}
}

func TestScoreSummary(t *testing.T) {
	s := ScoreSummary([]float64{-0.6, -0.4, -0.5})
	if math.Abs(s[MetricScoreMean]+0.5) > 1e-12 {
		t.Errorf("mean = %v, want -0.5", s[MetricScoreMean])
	}
	if s[MetricScoreMin] != -0.6 || s[MetricScoreMax] != -0.4 {
		t.Errorf("min/max = %v/%v", s[MetricScoreMin], s[MetricScoreMax])
	}
}
