// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package pipeline

import "errors"

var (
	// ErrNotTrained is returned by inference calls made before Train or Load.
	ErrNotTrained = errors.New("model not trained")

	// ErrIncompatibleArtifact is returned by Load when the stored bundle was
	// written with another schema version or feature layout.
	ErrIncompatibleArtifact = errors.New("incompatible model artifact")

	// ErrDegenerateData is returned by Train when the input cannot support a
	// fit or an evaluation (too few rows, a single class, no variance).
	ErrDegenerateData = errors.New("degenerate training data")
)
