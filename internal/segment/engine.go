// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package segment

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
	"github.com/tomtom215/ordersight/internal/features"
	"github.com/tomtom215/ordersight/internal/logging"
	"github.com/tomtom215/ordersight/internal/metrics"
	"github.com/tomtom215/ordersight/internal/modelstore"
	"github.com/tomtom215/ordersight/internal/pipeline"
)

// Engine trains and serves customer segments. It is safe for concurrent use;
// a retrain swaps the artifact atomically.
type Engine struct {
	config  Config
	seed    int64
	logger  zerolog.Logger
	current atomic.Pointer[Artifact]
}

// NewEngine returns an untrained engine. seed drives k-means seeding and
// silhouette sampling.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEngine(cfg Config, seed int64, logger zerolog.Logger) *Engine {
	def := DefaultConfig()
	if cfg.MaxK < 2 {
		cfg.MaxK = def.MaxK
	}
	if cfg.NInit < 1 {
		cfg.NInit = def.NInit
	}
	if cfg.MaxIter < 1 {
		cfg.MaxIter = def.MaxIter
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	return &Engine{
		config: cfg,
		seed:   seed,
		logger: logger.With().Str("component", "segment").Str("model", ModelName).Logger(),
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

// Artifact returns the current artifact or pipeline.ErrNotTrained.
func (e *Engine) Artifact() (*Artifact, error) {
	art := e.current.Load()
	if art == nil {
		return nil, fmt.Errorf("%s: %w", ModelName, pipeline.ErrNotTrained)
	}
	return art, nil
}

// candidates returns the k values to try for n customers, of which distinct
// have different standardized features. No k may exceed distinct, or some
// cluster is bound to end up empty.
func (e *Engine) candidates(n, distinct int) ([]int, error) {
	if k := e.config.Clusters; k > 0 {
		if k > n {
			return nil, fmt.Errorf("%w: %d clusters for %d customers", pipeline.ErrDegenerateData, k, n)
		}
		if k > distinct {
			return nil, fmt.Errorf("%w: %d clusters for %d distinct customer profiles", pipeline.ErrDegenerateData, k, distinct)
		}
		return []int{k}, nil
	}
	if n < 3 {
		return nil, fmt.Errorf("%w: choosing k needs at least 3 customers, have %d", pipeline.ErrDegenerateData, n)
	}
	hi := min(e.config.MaxK, n-1, distinct)
	if hi < 2 {
		return nil, fmt.Errorf("%w: choosing k needs at least 2 distinct customer profiles, have %d", pipeline.ErrDegenerateData, distinct)
	}
	ks := make([]int, 0, hi-1)
	for k := 2; k <= hi; k++ {
		ks = append(ks, k)
	}
	return ks, nil
}

// Train segments every customer in t and publishes the result. On error the
// previous model stays current.
func (e *Engine) Train(ctx context.Context, t *dataset.Table) (art *Artifact, err error) {
	start := time.Now()
	log := logging.Enrich(ctx, e.logger)
	defer func() {
		rows := 0
		var evaluation map[string]float64
		if art != nil {
			rows = len(art.Customers)
			evaluation = map[string]float64{MetricSilhouette: art.Silhouette, MetricInertia: art.Inertia}
		}
		metrics.RecordTraining(ModelName, time.Since(start), rows, 0, evaluation, err)
		if err != nil {
			log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Training failed")
		}
	}()

	if err := t.Require(ModelName, features.CustomerColumns...); err != nil {
		return nil, err
	}
	customers, err := features.CustomerRFM(t)
	if err != nil {
		return nil, fmt.Errorf("derive customer features: %w", err)
	}

	frame := features.CustomerFrame(customers)
	medians := frame.Impute(features.RFMColumns...)
	pre, err := pipeline.FitPreprocessor(frame, features.RFMColumns, nil, medians)
	if err != nil {
		return nil, fmt.Errorf("fit standardization: %w", err)
	}
	x, err := pre.Transform(frame)
	if err != nil {
		return nil, fmt.Errorf("standardize features: %w", err)
	}

	ks, err := e.candidates(len(customers), distinctRows(x))
	if err != nil {
		return nil, err
	}

	params := kmeansParams{nInit: e.config.NInit, maxIter: e.config.MaxIter, seed: e.seed}
	sample := sampleIndices(len(x), e.config.SilhouetteSample, e.seed)
	results, err := sweep(ctx, x, ks, params, sample, e.config.Workers)
	if err != nil {
		return nil, err
	}
	results = complete(results)
	if len(results) == 0 {
		return nil, fmt.Errorf("%w: every candidate k left a cluster empty", pipeline.ErrDegenerateData)
	}
	chosen := best(results)

	var byK map[int]float64
	if len(results) > 1 {
		byK = make(map[int]float64, len(results))
		for _, r := range results {
			byK[r.k] = r.silhouette
			log.Debug().Int("k", r.k).Float64("silhouette", r.silhouette).Float64("inertia", r.clustering.inertia).Msg("Fitted candidate")
		}
	}

	centroids, labels, profiles := canonical(chosen.clustering, customers)
	ids := make([]string, len(customers))
	for i := range customers {
		ids[i] = customers[i].CustomerID
	}

	art = &Artifact{
		Name:          ModelName,
		SchemaVersion: pipeline.SchemaVersion,
		Features:      append([]string(nil), features.RFMColumns...),
		Preprocessor:  pre,
		Centroids:     centroids,
		Customers:     ids,
		Labels:        labels,
		Profiles:      profiles,
		Silhouette:    chosen.silhouette,
		SilhouetteByK: byK,
		Inertia:       chosen.clustering.inertia,
		TrainedAt:     time.Now().UTC(),
		RunID:         logging.RunIDFromContext(ctx),
	}
	e.current.Store(art)

	log.Info().
		Int("customers", len(ids)).
		Int("k", art.K()).
		Float64("silhouette", art.Silhouette).
		Dur("duration", time.Since(start)).
		Msg("Model trained")
	return art, nil
}

// canonical renumbers clusters by descending mean monetary value, ties by
// size then original label, and computes each segment's profile.
func canonical(c clustering, customers []features.Customer) ([][]float64, []int, []Profile) {
	k := len(c.centroids)
	dim := len(features.RFMColumns)
	sums := make([][]float64, k)
	for j := range sums {
		sums[j] = make([]float64, dim)
	}
	sizes := make([]int, k)
	for i := range customers {
		l := c.labels[i]
		for f, v := range customers[i].Vector() {
			sums[l][f] += v
		}
		sizes[l]++
	}
	for j := range sums {
		if sizes[j] > 0 {
			for f := range sums[j] {
				sums[j][f] /= float64(sizes[j])
			}
		}
	}

	const monetary = 2
	order := make([]int, k)
	for j := range order {
		order[j] = j
	}
	sort.SliceStable(order, func(a, b int) bool {
		ja, jb := order[a], order[b]
		if sums[ja][monetary] != sums[jb][monetary] {
			return sums[ja][monetary] > sums[jb][monetary]
		}
		return sizes[ja] > sizes[jb]
	})

	relabel := make([]int, k)
	centroids := make([][]float64, k)
	profiles := make([]Profile, k)
	for newLabel, old := range order {
		relabel[old] = newLabel
		centroids[newLabel] = c.centroids[old]
		profiles[newLabel] = newProfile(newLabel, sizes[old], sums[old])
	}
	labels := make([]int, len(c.labels))
	for i, l := range c.labels {
		labels[i] = relabel[l]
	}
	return centroids, labels, profiles
}

// Retrain runs Train and discards the returned artifact.
func (e *Engine) Retrain(ctx context.Context, t *dataset.Table) error {
	_, err := e.Train(ctx, t)
	return err
}

// Profiles returns one profile per segment, in segment order.
func (e *Engine) Profiles() ([]Profile, error) {
	art, err := e.Artifact()
	if err != nil {
		return nil, err
	}
	return append([]Profile(nil), art.Profiles...), nil
}

// CustomerSegment returns the segment a training customer was assigned to.
func (e *Engine) CustomerSegment(customerID string) (Assignment, error) {
	art, err := e.Artifact()
	if err != nil {
		return Assignment{}, err
	}
	i := sort.SearchStrings(art.Customers, customerID)
	if i == len(art.Customers) || art.Customers[i] != customerID {
		return Assignment{}, dataset.NewNotFound(dataset.EntityCustomer, customerID)
	}
	return Assignment{CustomerID: customerID, Segment: art.Labels[i]}, nil
}

// Assign places every customer of t in the nearest segment using the stored
// standardization and centroids. Nothing is refitted.
func (e *Engine) Assign(ctx context.Context, t *dataset.Table) (out []Assignment, err error) {
	start := time.Now()
	errorType := ""
	defer func() {
		metrics.RecordPrediction(ModelName, len(out), time.Since(start), errorType, err)
	}()

	art, err := e.Artifact()
	if err != nil {
		errorType = "not_trained"
		return nil, err
	}
	if err := t.Require(ModelName, features.CustomerColumns...); err != nil {
		errorType = "schema"
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		errorType = "canceled"
		return nil, err
	}

	customers, err := features.CustomerRFM(t)
	if err != nil {
		errorType = "prepare"
		return nil, fmt.Errorf("derive customer features: %w", err)
	}
	x, err := art.Preprocessor.Transform(features.CustomerFrame(customers))
	if err != nil {
		errorType = "transform"
		return nil, fmt.Errorf("standardize features: %w", err)
	}
	out = make([]Assignment, len(customers))
	for i := range customers {
		segment, _ := nearest(x[i], art.Centroids)
		out[i] = Assignment{CustomerID: customers[i].CustomerID, Segment: segment}
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
	e.current.Store(&art)
	log := logging.Enrich(ctx, e.logger)
	log.Info().
		Int("version", meta.Version).
		Int("k", art.K()).
		Time("trained_at", art.TrainedAt).
		Msg("Artifact loaded")
	return meta, nil
}

// Info describes the current model for status endpoints.
func (e *Engine) Info() pipeline.Info {
	info := pipeline.Info{Name: ModelName}
	art := e.current.Load()
	if art == nil {
		return info
	}
	trainedAt := art.TrainedAt
	info.Trained = true
	info.TrainedAt = &trainedAt
	info.RunID = art.RunID
	info.TrainRows = len(art.Customers)
	info.Metrics = map[string]float64{
		MetricSilhouette: art.Silhouette,
		MetricInertia:    art.Inertia,
	}
	info.Params = map[string]float64{"k": float64(art.K())}
	for k, s := range art.SilhouetteByK {
		info.Params[fmt.Sprintf("silhouette_k%d", k)] = s
	}
	info.Features = art.Features
	return info
}
