// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package pipeline

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/ordersight/internal/features"
)

// missingCategory labels an empty categorical value in expanded column names.
const missingCategory = "missing"

// Preprocessor holds the fitted transform from a feature frame to the
// estimator's design matrix: median imputation and standardization for
// numeric columns, one-hot encoding for categorical columns. Once fitted it
// is only ever applied, never refit.
type Preprocessor struct {
	Numeric     []string
	Categorical []string

	// Medians fill missing numeric values at prediction time.
	Medians map[string]float64

	// Means and Scales standardize numeric columns. A zero-variance column
	// keeps a scale of 1.
	Means  []float64
	Scales []float64

	// Categories lists the sorted training values of each categorical column.
	// Values not seen in training encode as all zeros.
	Categories [][]string
}

// FitPreprocessor fits standardization and the category vocabulary on frame,
// which must already be imputed. medians is recorded for later transforms.
func FitPreprocessor(frame *features.Frame, numeric, categorical []string, medians map[string]float64) (*Preprocessor, error) {
	p := &Preprocessor{
		Numeric:     append([]string(nil), numeric...),
		Categorical: append([]string(nil), categorical...),
		Medians:     make(map[string]float64, len(numeric)),
		Means:       make([]float64, len(numeric)),
		Scales:      make([]float64, len(numeric)),
		Categories:  make([][]string, len(categorical)),
	}
	for _, name := range numeric {
		p.Medians[name] = medians[name]
	}

	for j, name := range numeric {
		col := frame.Numeric(name)
		if col == nil {
			return nil, fmt.Errorf("numeric feature %s not in frame", name)
		}
		mean, std := stat.PopMeanStdDev(col, nil)
		if std == 0 {
			std = 1
		}
		p.Means[j] = mean
		p.Scales[j] = std
	}

	for j, name := range categorical {
		col := frame.Categorical(name)
		if col == nil {
			return nil, fmt.Errorf("categorical feature %s not in frame", name)
		}
		seen := make(map[string]struct{})
		for _, v := range col {
			seen[categoryValue(v)] = struct{}{}
		}
		values := make([]string, 0, len(seen))
		for v := range seen {
			values = append(values, v)
		}
		sort.Strings(values)
		p.Categories[j] = values
	}
	return p, nil
}

// OutputNames returns the design-matrix column names: numeric columns as is,
// then one "column=value" entry per category.
func (p *Preprocessor) OutputNames() []string {
	names := append([]string(nil), p.Numeric...)
	for j, col := range p.Categorical {
		for _, v := range p.Categories[j] {
			names = append(names, col+"="+v)
		}
	}
	return names
}

// Width returns the number of design-matrix columns.
func (p *Preprocessor) Width() int {
	w := len(p.Numeric)
	for _, c := range p.Categories {
		w += len(c)
	}
	return w
}

// Transform fills missing numeric values with the recorded medians and
// returns the standardized, one-hot encoded design matrix. frame is modified
// in place by the fill.
func (p *Preprocessor) Transform(frame *features.Frame) ([][]float64, error) {
	frame.FillWith(p.Medians)

	numeric, err := frame.Matrix(p.Numeric)
	if err != nil {
		return nil, err
	}
	cats := make([][]string, len(p.Categorical))
	index := make([]map[string]int, len(p.Categorical))
	offset := len(p.Numeric)
	offsets := make([]int, len(p.Categorical))
	for j, name := range p.Categorical {
		cats[j] = frame.Categorical(name)
		if cats[j] == nil {
			return nil, fmt.Errorf("categorical feature %s not in frame", name)
		}
		index[j] = make(map[string]int, len(p.Categories[j]))
		for k, v := range p.Categories[j] {
			index[j][v] = k
		}
		offsets[j] = offset
		offset += len(p.Categories[j])
	}

	width := p.Width()
	out := make([][]float64, frame.Rows())
	for i := range out {
		row := make([]float64, width)
		for j, v := range numeric[i] {
			row[j] = (v - p.Means[j]) / p.Scales[j]
		}
		for j := range p.Categorical {
			if k, ok := index[j][categoryValue(cats[j][i])]; ok {
				row[offsets[j]+k] = 1
			}
		}
		out[i] = row
	}
	return out, nil
}

func categoryValue(v string) string {
	if v == "" {
		return missingCategory
	}
	return v
}
