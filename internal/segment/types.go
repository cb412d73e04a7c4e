// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package segment

import (
	"fmt"
	"math"
	"time"

	"github.com/tomtom215/ordersight/internal/features"
	"github.com/tomtom215/ordersight/internal/pipeline"
	"github.com/tomtom215/ordersight/internal/validation"
)

// ModelName is the segmentation artifact name.
const ModelName = "customer_segmentation"

// Evaluation metric names.
const (
	MetricSilhouette = "silhouette"
	MetricInertia    = "inertia"
)

// Config tunes the segmentation engine.
type Config struct {
	// Clusters fixes k. 0 selects k by silhouette.
	Clusters int `validate:"omitempty,min=2,max=50"`

	// MaxK is the inclusive upper bound of the k sweep.
	MaxK int `validate:"min=2,max=50"`

	NInit   int `validate:"min=1"`
	MaxIter int `validate:"min=1"`

	// SilhouetteSample caps the customers scored per k. 0 scores all.
	SilhouetteSample int `validate:"min=0"`

	// Workers bounds the k values fitted concurrently. 0 uses GOMAXPROCS.
	Workers int `validate:"min=0"`
}

// DefaultConfig sweeps k up to 10 with 10 restarts per k.
func DefaultConfig() Config {
	return Config{MaxK: 10, NInit: 10, MaxIter: 300}
}

// Validate checks the ranges of every field.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("segmentation config: %w", verr)
	}
	return nil
}

// Profile is the mean RFM vector of one segment, rounded to two decimals.
type Profile struct {
	Segment          int     `json:"segment"`
	Size             int     `json:"size"`
	Recency          float64 `json:"recency"`
	Frequency        float64 `json:"frequency"`
	Monetary         float64 `json:"monetary"`
	Satisfaction     float64 `json:"satisfaction"`
	ProductDiversity float64 `json:"product_diversity"`
	AvgDeliveryTime  float64 `json:"avg_delivery_time"`
}

func newProfile(segment, size int, mean []float64) Profile {
	r := func(v float64) float64 { return math.Round(v*100) / 100 }
	return Profile{
		Segment:          segment,
		Size:             size,
		Recency:          r(mean[0]),
		Frequency:        r(mean[1]),
		Monetary:         r(mean[2]),
		Satisfaction:     r(mean[3]),
		ProductDiversity: r(mean[4]),
		AvgDeliveryTime:  r(mean[5]),
	}
}

// Assignment places one customer in a segment.
type Assignment struct {
	CustomerID string `json:"customer_id"`
	Segment    int    `json:"segment"`
}

// Artifact is the persisted segmentation model.
type Artifact struct {
	Name          string
	SchemaVersion int

	// Features names the columns of each centroid, in features.RFMColumns order.
	Features     []string
	Preprocessor *pipeline.Preprocessor
	// Centroids are in standardized space, indexed by segment.
	Centroids [][]float64

	// Customers is sorted; Labels[i] is the segment of Customers[i].
	Customers []string
	Labels    []int
	Profiles  []Profile

	Silhouette float64
	// SilhouetteByK holds the sweep scores. Empty when k was fixed.
	SilhouetteByK map[int]float64
	Inertia       float64

	TrainedAt time.Time
	RunID     string
}

// K returns the number of segments.
func (a *Artifact) K() int {
	return len(a.Centroids)
}

func checkCompatible(art *Artifact) error {
	switch {
	case art.SchemaVersion != pipeline.SchemaVersion:
		return fmt.Errorf("%w: %s has schema version %d, want %d",
			pipeline.ErrIncompatibleArtifact, ModelName, art.SchemaVersion, pipeline.SchemaVersion)
	case art.Name != ModelName:
		return fmt.Errorf("%w: stored artifact is named %q, want %q", pipeline.ErrIncompatibleArtifact, art.Name, ModelName)
	case len(art.Features) != len(features.RFMColumns) || art.Preprocessor == nil:
		return fmt.Errorf("%w: %s feature schema changed", pipeline.ErrIncompatibleArtifact, ModelName)
	case len(art.Labels) != len(art.Customers) || len(art.Profiles) != len(art.Centroids):
		return fmt.Errorf("%w: %s index sizes disagree", pipeline.ErrIncompatibleArtifact, ModelName)
	}
	for i, name := range art.Features {
		if name != features.RFMColumns[i] {
			return fmt.Errorf("%w: %s feature schema changed", pipeline.ErrIncompatibleArtifact, ModelName)
		}
	}
	return nil
}
