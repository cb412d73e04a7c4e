// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package recommend

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/logging"
	"github.com/tomtom215/ordersight/internal/metrics"
	"github.com/tomtom215/ordersight/internal/modelstore"
	"github.com/tomtom215/ordersight/internal/pipeline"
)

// RequiredColumns are the source columns the recommender reads.
var RequiredColumns = []string{
	dataset.ColCustomerID,
	dataset.ColProductID,
	dataset.ColProductCategory,
}

// snapshot is an artifact plus the lookup indexes derived from it.
type snapshot struct {
	art        *Artifact
	products   map[string]int32
	customers  map[string]int32
	byCategory map[string][]int32 // by descending count, ties by id
}

func newSnapshot(art *Artifact) *snapshot {
	s := &snapshot{
		art:        art,
		products:   indexOf(art.Products),
		customers:  indexOf(art.Customers),
		byCategory: make(map[string][]int32),
	}
	for p, cat := range art.Categories {
		if cat != "" {
			s.byCategory[cat] = append(s.byCategory[cat], int32(p))
		}
	}
	for _, ps := range s.byCategory {
		sort.SliceStable(ps, func(a, b int) bool {
			return art.Counts[ps[a]] > art.Counts[ps[b]]
		})
	}
	return s
}

func (s *snapshot) recommendation(p int32, score float64) Recommendation {
	return Recommendation{ProductID: s.art.Products[p], Score: score, Category: s.art.Categories[p]}
}

// Engine trains and serves the item-similarity recommender. It is safe for
// concurrent use.
type Engine struct {
	config  Config
	logger  zerolog.Logger
	current atomic.Pointer[snapshot]
}

// NewEngine returns an untrained engine.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg Config, logger zerolog.Logger) *Engine {
	if cfg.DefaultN <= 0 {
		cfg.DefaultN = DefaultConfig().DefaultN
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		config: cfg,
		logger: logger.With().Str("component", "recommend").Str("model", ModelName).Logger(),
	}
}

// Name returns the artifact name.
func (e *Engine) Name() string {
	return ModelName
}

// Trained reports whether a model is loaded.
func (e *Engine) Trained() bool {
	return e.current.Load() != nil
}

func (e *Engine) snapshot() (*snapshot, error) {
	s := e.current.Load()
	if s == nil {
		return nil, fmt.Errorf("%s: %w", ModelName, pipeline.ErrNotTrained)
	}
	return s, nil
}

// Artifact returns the current artifact or pipeline.ErrNotTrained.
func (e *Engine) Artifact() (*Artifact, error) {
	s, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	return s.art, nil
}

// Train rebuilds the interaction table and similarity matrix from t and
// publishes the result. On error the previous model stays current.
func (e *Engine) Train(ctx context.Context, t *dataset.Table) (art *Artifact, err error) {
	start := time.Now()
	log := logging.Enrich(ctx, e.logger)
	defer func() {
		rows := 0
		if art != nil {
			rows = art.Interactions
		}
		metrics.RecordTraining(ModelName, time.Since(start), rows, 0, nil, err)
		if err != nil {
			log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Training failed")
		}
	}()

	if err := t.Require(ModelName, RequiredColumns...); err != nil {
		return nil, err
	}
	in := buildInteractions(t.Records())
	if len(in.products) == 0 {
		return nil, fmt.Errorf("%w: no customer/product interactions", pipeline.ErrDegenerateData)
	}

	neighbors, err := in.similarities(ctx, e.config.Workers)
	if err != nil {
		return nil, fmt.Errorf("compute similarities: %w", err)
	}

	art = &Artifact{
		Name:          ModelName,
		SchemaVersion: pipeline.SchemaVersion,
		Products:      in.products,
		Categories:    in.categories,
		Counts:        in.productCounts(),
		Neighbors:     neighbors,
		Customers:     in.customers,
		History:       in.history(),
		Interactions:  in.total,
		TrainedAt:     time.Now().UTC(),
		RunID:         logging.RunIDFromContext(ctx),
	}
	e.current.Store(newSnapshot(art))

	pairs := 0
	for _, ns := range neighbors {
		pairs += len(ns)
	}
	log.Info().
		Int("products", len(art.Products)).
		Int("customers", len(art.Customers)).
		Int("interactions", art.Interactions).
		Int("similar_pairs", pairs/2).
		Dur("duration", time.Since(start)).
		Msg("Model trained")
	return art, nil
}

// Retrain runs Train and discards the returned artifact.
func (e *Engine) Retrain(ctx context.Context, t *dataset.Table) error {
	_, err := e.Train(ctx, t)
	return err
}

// Similarity returns sim(a, b), which is zero for products without a
// common customer.
func (e *Engine) Similarity(a, b string) (float64, error) {
	s, err := e.snapshot()
	if err != nil {
		return 0, err
	}
	pa, ok := s.products[a]
	if !ok {
		return 0, dataset.NewNotFound(dataset.EntityProduct, a)
	}
	pb, ok := s.products[b]
	if !ok {
		return 0, dataset.NewNotFound(dataset.EntityProduct, b)
	}
	for _, nb := range s.art.Neighbors[pa] {
		if nb.Product == pb {
			return nb.Score, nil
		}
	}
	return 0, nil
}

func (e *Engine) limit(n int) int {
	if n <= 0 {
		return e.config.DefaultN
	}
	return n
}

// SimilarProducts returns the n products most similar to productID. When
// fewer than n share a customer with it, the rest are filled with
// zero-similarity products. The product itself is never included.
func (e *Engine) SimilarProducts(productID string, n int) ([]Recommendation, error) {
	s, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	p, ok := s.products[productID]
	if !ok {
		return nil, dataset.NewNotFound(dataset.EntityProduct, productID)
	}
	skip := map[int32]struct{}{p: {}}
	return s.fill(s.art.Neighbors[p], skip, e.limit(n)), nil
}

// fill returns the first n of ranked, padded with zero-score products in id
// order when ranked is shorter. Products in skip are never added.
func (s *snapshot) fill(ranked []Neighbor, skip map[int32]struct{}, n int) []Recommendation {
	out := make([]Recommendation, 0, min(n, len(s.art.Products)))
	seen := make(map[int32]struct{}, n)
	for _, nb := range ranked {
		if len(out) == n {
			return out
		}
		out = append(out, s.recommendation(nb.Product, nb.Score))
		seen[nb.Product] = struct{}{}
	}
	for p := range s.art.Products {
		if len(out) == n {
			break
		}
		q := int32(p)
		if _, ok := skip[q]; ok {
			continue
		}
		if _, ok := seen[q]; ok {
			continue
		}
		out = append(out, s.recommendation(q, 0))
	}
	return out
}

// CustomerRecommendations scores every product the customer has not bought
// by its similarity to each product they have bought, counted once per
// purchase, and returns the top n. Zero-score products fill the tail.
func (e *Engine) CustomerRecommendations(customerID string, n int) ([]Recommendation, error) {
	s, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	c, ok := s.customers[customerID]
	if !ok {
		return nil, dataset.NewNotFound(dataset.EntityCustomer, customerID)
	}

	history := s.art.History[c]
	bought := make(map[int32]struct{}, len(history))
	for _, h := range history {
		bought[h.Product] = struct{}{}
	}
	scores := make(map[int32]float64)
	for _, h := range history {
		for _, nb := range s.art.Neighbors[h.Product] {
			if _, ok := bought[nb.Product]; !ok {
				scores[nb.Product] += h.Count * nb.Score
			}
		}
	}

	ranked := make([]Neighbor, 0, len(scores))
	for p, score := range scores {
		ranked = append(ranked, Neighbor{Product: p, Score: score})
	}
	sortNeighbors(ranked)
	return s.fill(ranked, bought, e.limit(n)), nil
}

// CategoryRecommendations returns the category's n most purchased products,
// scored by purchase count.
func (e *Engine) CategoryRecommendations(category string, n int) ([]Recommendation, error) {
	s, err := e.snapshot()
	if err != nil {
		return nil, err
	}
	ps, ok := s.byCategory[category]
	if !ok {
		return nil, dataset.NewNotFound(dataset.EntityCategory, category)
	}
	ps = ps[:min(e.limit(n), len(ps))]
	out := make([]Recommendation, len(ps))
	for i, p := range ps {
		out[i] = s.recommendation(p, s.art.Counts[p])
	}
	return out, nil
}

// Save persists the current artifact.
func (e *Engine) Save(ctx context.Context, store modelstore.Store) (modelstore.Metadata, error) {
	art, err := e.Artifact()
	if err != nil {
		return modelstore.Metadata{}, err
	}
	meta, err := store.Save(ctx, ModelName, art)
	if err != nil {
		return modelstore.Metadata{}, fmt.Errorf("save %s: %w", ModelName, err)
	}
	log := logging.Enrich(ctx, e.logger)
	log.Info().Int("version", meta.Version).Msg("Artifact saved")
	return meta, nil
}

// Load restores the latest stored artifact.
func (e *Engine) Load(ctx context.Context, store modelstore.Store) (modelstore.Metadata, error) {
	var art Artifact
	meta, err := store.Load(ctx, ModelName, &art)
	if err != nil {
		if errors.Is(err, modelstore.ErrArtifactNotFound) {
			return modelstore.Metadata{}, err
		}
		return modelstore.Metadata{}, fmt.Errorf("%w: %s: %w", pipeline.ErrIncompatibleArtifact, ModelName, err)
	}
	if err := checkCompatible(&art); err != nil {
		return modelstore.Metadata{}, err
	}
	e.current.Store(newSnapshot(&art))
	log := logging.Enrich(ctx, e.logger)
	log.Info().
		Int("version", meta.Version).
		Time("trained_at", art.TrainedAt).
		Msg("Artifact loaded")
	return meta, nil
}

func checkCompatible(art *Artifact) error {
	n := len(art.Products)
	switch {
	case art.SchemaVersion != pipeline.SchemaVersion:
		return fmt.Errorf("%w: %s has schema version %d, want %d",
			pipeline.ErrIncompatibleArtifact, ModelName, art.SchemaVersion, pipeline.SchemaVersion)
	case art.Name != ModelName:
		return fmt.Errorf("%w: stored artifact is named %q, want %q", pipeline.ErrIncompatibleArtifact, art.Name, ModelName)
	case len(art.Categories) != n || len(art.Counts) != n || len(art.Neighbors) != n || len(art.History) != len(art.Customers):
		return fmt.Errorf("%w: %s index sizes disagree", pipeline.ErrIncompatibleArtifact, ModelName)
	}
	return nil
}

// Info describes the current model for status endpoints.
func (e *Engine) Info() pipeline.Info {
	info := pipeline.Info{Name: ModelName}
	s := e.current.Load()
	if s == nil {
		return info
	}
	trainedAt := s.art.TrainedAt
	info.Trained = true
	info.TrainedAt = &trainedAt
	info.RunID = s.art.RunID
	info.TrainRows = s.art.Interactions
	info.Params = map[string]float64{
		"products":  float64(len(s.art.Products)),
		"customers": float64(len(s.art.Customers)),
	}
	return info
}
