// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package features

import (
	"fmt"
	"math"
)

// Frame is a column-oriented feature table. Row i of every column belongs to
// Keys()[i]. Numeric columns use NaN for missing values.
type Frame struct {
	keys        []string
	numNames    []string
	numeric     map[string][]float64
	catNames    []string
	categorical map[string][]string
}

// NewFrame creates an empty frame whose rows are identified by keys.
func NewFrame(keys []string) *Frame {
	return &Frame{
		keys:        keys,
		numeric:     make(map[string][]float64),
		categorical: make(map[string][]string),
	}
}

// Rows returns the number of rows.
func (f *Frame) Rows() int {
	return len(f.keys)
}

// Keys returns the row identifiers.
func (f *Frame) Keys() []string {
	return f.keys
}

// SetNumeric adds or replaces a numeric column. It panics when the length
// does not match the frame, which is always a programming error.
func (f *Frame) SetNumeric(name string, values []float64) {
	if len(values) != len(f.keys) {
		panic(fmt.Sprintf("features: column %s has %d values, frame has %d rows", name, len(values), len(f.keys)))
	}
	if _, ok := f.numeric[name]; !ok {
		f.numNames = append(f.numNames, name)
	}
	f.numeric[name] = values
}

// SetCategorical adds or replaces a categorical column.
func (f *Frame) SetCategorical(name string, values []string) {
	if len(values) != len(f.keys) {
		panic(fmt.Sprintf("features: column %s has %d values, frame has %d rows", name, len(values), len(f.keys)))
	}
	if _, ok := f.categorical[name]; !ok {
		f.catNames = append(f.catNames, name)
	}
	f.categorical[name] = values
}

// Numeric returns a numeric column, or nil when absent.
func (f *Frame) Numeric(name string) []float64 {
	return f.numeric[name]
}

// Categorical returns a categorical column, or nil when absent.
func (f *Frame) Categorical(name string) []string {
	return f.categorical[name]
}

// NumericNames returns numeric column names in insertion order.
func (f *Frame) NumericNames() []string {
	return append([]string(nil), f.numNames...)
}

// CategoricalNames returns categorical column names in insertion order.
func (f *Frame) CategoricalNames() []string {
	return append([]string(nil), f.catNames...)
}

// Take returns a new frame holding the rows at idx, in that order.
func (f *Frame) Take(idx []int) *Frame {
	keys := make([]string, len(idx))
	for i, j := range idx {
		keys[i] = f.keys[j]
	}
	out := NewFrame(keys)
	for _, name := range f.numNames {
		src := f.numeric[name]
		col := make([]float64, len(idx))
		for i, j := range idx {
			col[i] = src[j]
		}
		out.SetNumeric(name, col)
	}
	for _, name := range f.catNames {
		src := f.categorical[name]
		col := make([]string, len(idx))
		for i, j := range idx {
			col[i] = src[j]
		}
		out.SetCategorical(name, col)
	}
	return out
}

// Impute replaces missing and non-finite values of the named numeric columns
// (every numeric column when names is empty) with the column median and
// returns the medians used. A column with no finite value is filled with 0.
func (f *Frame) Impute(names ...string) map[string]float64 {
	if len(names) == 0 {
		names = f.numNames
	}
	medians := make(map[string]float64, len(names))
	for _, name := range names {
		col, ok := f.numeric[name]
		if !ok {
			continue
		}
		m := Median(col)
		if math.IsNaN(m) {
			m = 0
		}
		medians[name] = m
	}
	f.FillWith(medians)
	return medians
}

// FillWith replaces missing and non-finite values using fixed per-column
// values, such as medians captured at training time.
func (f *Frame) FillWith(values map[string]float64) {
	for name, v := range values {
		col, ok := f.numeric[name]
		if !ok {
			continue
		}
		for i, x := range col {
			if !IsFinite(x) {
				col[i] = v
			}
		}
	}
}

// Matrix returns the named numeric columns as a row-major matrix.
func (f *Frame) Matrix(names []string) ([][]float64, error) {
	cols := make([][]float64, len(names))
	for j, name := range names {
		col, ok := f.numeric[name]
		if !ok {
			return nil, fmt.Errorf("unknown feature column %s", name)
		}
		cols[j] = col
	}
	out := make([][]float64, len(f.keys))
	for i := range out {
		row := make([]float64, len(names))
		for j := range names {
			row[j] = cols[j][i]
		}
		out[i] = row
	}
	return out, nil
}

// IsFinite reports whether x is neither NaN nor infinite.
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// finite maps non-finite values to NaN so that they are imputed like
// missing data.
func finite(x float64) float64 {
	if IsFinite(x) {
		return x
	}
	return math.NaN()
}
