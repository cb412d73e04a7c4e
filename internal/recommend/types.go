// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package recommend

import (
	"fmt"
	"time"

	"github.com/tomtom215/ordersight/internal/validation"
)

// ModelName is the recommender's artifact name.
const ModelName = "product_recommender"

// Recommendation is one ranked product.
type Recommendation struct {
	ProductID string  `json:"product_id"`
	Score     float64 `json:"score"`
	Category  string  `json:"category,omitempty"`
}

// Neighbor is a product with a positive similarity to another product.
type Neighbor struct {
	Product int32
	Score   float64
}

// Purchase is one product in a customer's history with the number of times
// they bought it.
type Purchase struct {
	Product int32
	Count   float64
}

// Artifact is the persisted recommender state. Products and Customers are
// sorted by id; every other per-product or per-customer slice is indexed by
// position in them.
type Artifact struct {
	Name          string
	SchemaVersion int

	Products   []string
	Categories []string
	// Counts is the total purchase count of each product.
	Counts []float64
	// Neighbors lists each product's positively similar products, by
	// descending score, ties by product id.
	Neighbors [][]Neighbor

	Customers []string
	// History lists each customer's purchased products with their counts,
	// ascending by product.
	History [][]Purchase

	Interactions int
	TrainedAt    time.Time
	RunID        string
}

// Config tunes the recommender.
type Config struct {
	// DefaultN is used when a query asks for n <= 0.
	DefaultN int `validate:"min=1,max=100"`

	// Workers bounds the goroutines computing similarities. 0 uses GOMAXPROCS.
	Workers int `validate:"min=0"`
}

// DefaultConfig returns five results per query and one worker per CPU.
func DefaultConfig() Config {
	return Config{DefaultN: 5}
}

// Validate checks the ranges of every field.
func (c *Config) Validate() error {
	if verr := validation.ValidateStruct(c); verr != nil {
		return fmt.Errorf("recommend config: %w", verr)
	}
	return nil
}
