// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/features"
	"github.com/tomtom215/ordersight/internal/logging"
	"github.com/tomtom215/ordersight/internal/metrics"
	"github.com/tomtom215/ordersight/internal/modelstore"
)

// Model describes one concrete trainable model: which columns it reads, how
// it derives features and targets, which estimator it fits and how the fit is
// evaluated.
type Model[E Estimator] struct {
	// Name is the default artifact name in the model store.
	Name string

	// Required lists the source columns the model reads. Train and Predict
	// fail with a schema error when any is missing.
	Required []string

	// Numeric and Categorical select the frame columns fed to the estimator.
	Numeric     []string
	Categorical []string

	// Prepare derives the feature frame and, for supervised models, one
	// target per row. Rows with a NaN target are dropped before training.
	// Unsupervised models return a nil target and are fitted on every row.
	Prepare func(t *dataset.Table) (*features.Frame, []float64, error)

	// NewEstimator returns an unfitted estimator.
	NewEstimator func() E

	// Stratify splits by target value, for classification targets.
	Stratify bool

	// Evaluate scores the fitted estimator. The returned params are stored
	// in the artifact for use at prediction time.
	Evaluate func(ev Evaluation[E]) (evaluation, params map[string]float64, err error)
}

// Evaluation is handed to Model.Evaluate after the estimator is fitted.
// XAll covers every training-table row, in frame order.
type Evaluation[E Estimator] struct {
	Estimator E
	XTrain    [][]float64
	YTrain    []float64
	XTest     [][]float64
	YTest     []float64
	XAll      [][]float64
}

// Options are the lifecycle settings shared by every model.
type Options struct {
	Seed         int64
	TestFraction float64
}

// DefaultOptions returns seed 42 with an 80/20 split.
func DefaultOptions() Options {
	return Options{Seed: 42, TestFraction: 0.2}
}

// Predictions holds one estimator output per input row together with the
// parameters of the artifact that produced them.
type Predictions struct {
	Keys   []string
	Values []float64
	Params map[string]float64
	RunID  string
}

// Pipeline runs the train, evaluate, predict and persist lifecycle of one
// model. It starts untrained; Train or Load moves it to trained and it never
// goes back. The current artifact is swapped atomically, so Predict and
// Artifact are safe for concurrent use with a running Train.
type Pipeline[E Estimator] struct {
	model   Model[E]
	opts    Options
	logger  zerolog.Logger
	current atomic.Pointer[Artifact[E]]
}

// New returns an untrained pipeline for model.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func New[E Estimator](model Model[E], opts Options, logger zerolog.Logger) *Pipeline[E] {
	if opts.TestFraction <= 0 || opts.TestFraction >= 1 {
		opts.TestFraction = DefaultOptions().TestFraction
	}
	return &Pipeline[E]{
		model:  model,
		opts:   opts,
		logger: logger.With().Str("component", "pipeline").Str("model", model.Name).Logger(),
	}
}

// Name returns the model's artifact name.
func (p *Pipeline[E]) Name() string {
	return p.model.Name
}

// Trained reports whether an artifact is loaded.
func (p *Pipeline[E]) Trained() bool {
	return p.current.Load() != nil
}

// Artifact returns the current artifact or ErrNotTrained.
func (p *Pipeline[E]) Artifact() (*Artifact[E], error) {
	a := p.current.Load()
	if a == nil {
		return nil, fmt.Errorf("%s: %w", p.model.Name, ErrNotTrained)
	}
	return a, nil
}

func (p *Pipeline[E]) schema() FeatureSchema {
	return FeatureSchema{
		Numeric:     append([]string(nil), p.model.Numeric...),
		Categorical: append([]string(nil), p.model.Categorical...),
	}
}

// Train fits a fresh artifact on t and makes it current. On any error the
// previous artifact, if any, stays in place.
func (p *Pipeline[E]) Train(ctx context.Context, t *dataset.Table) (art *Artifact[E], err error) {
	start := time.Now()
	log := logging.Enrich(ctx, p.logger)
	var trainRows, testRows int
	defer func() {
		var evaluation map[string]float64
		if art != nil {
			evaluation = art.Metrics
		}
		metrics.RecordTraining(p.model.Name, time.Since(start), trainRows, testRows, evaluation, err)
		if err != nil {
			log.Error().Err(err).Dur("duration", time.Since(start)).Msg("Training failed")
		}
	}()

	if err := t.Require(p.model.Name, p.model.Required...); err != nil {
		return nil, err
	}

	frame, target, err := p.model.Prepare(t)
	if err != nil {
		return nil, fmt.Errorf("prepare features: %w", err)
	}
	if target != nil {
		frame, target = dropMissingTargets(frame, target)
	}
	if frame.Rows() < 2 {
		return nil, fmt.Errorf("%w: %d usable rows", ErrDegenerateData, frame.Rows())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	medians := frame.Impute(p.model.Numeric...)

	var trainIdx, testIdx []int
	if target == nil {
		// Unsupervised: nothing to hold out, fit on every row.
		trainIdx = make([]int, frame.Rows())
		for i := range trainIdx {
			trainIdx[i] = i
		}
	} else {
		var strata []float64
		if p.model.Stratify {
			strata = target
		}
		trainIdx, testIdx, err = TrainTestSplit(frame.Rows(), p.opts.TestFraction, p.opts.Seed, strata)
		if err != nil {
			return nil, err
		}
	}
	trainRows, testRows = len(trainIdx), len(testIdx)

	trainFrame := frame.Take(trainIdx)
	pre, err := FitPreprocessor(trainFrame, p.model.Numeric, p.model.Categorical, medians)
	if err != nil {
		return nil, fmt.Errorf("fit preprocessing: %w", err)
	}
	xAll, err := pre.Transform(frame)
	if err != nil {
		return nil, fmt.Errorf("transform features: %w", err)
	}
	ev := Evaluation[E]{
		XTrain: pick(xAll, trainIdx),
		XTest:  pick(xAll, testIdx),
		XAll:   xAll,
	}
	if target != nil {
		ev.YTrain = pickValues(target, trainIdx)
		ev.YTest = pickValues(target, testIdx)
	}

	est := p.model.NewEstimator()
	if err := est.Fit(ev.XTrain, ev.YTrain); err != nil {
		return nil, fmt.Errorf("fit estimator: %w", err)
	}
	ev.Estimator = est

	evaluation, params, err := p.model.Evaluate(ev)
	if err != nil {
		return nil, fmt.Errorf("evaluate: %w", err)
	}
	for name, v := range evaluation {
		if math.IsNaN(v) {
			return nil, fmt.Errorf("%w: metric %s is NaN", ErrDegenerateData, name)
		}
	}

	expanded := pre.OutputNames()
	schema := p.schema()
	schema.Expanded = expanded
	art = &Artifact[E]{
		Name:          p.model.Name,
		SchemaVersion: SchemaVersion,
		Schema:        schema,
		Preprocessor:  pre,
		Estimator:     est,
		Metrics:       evaluation,
		Params:        params,
		Importances:   RankImportances(expanded, est.FeatureImportances()),
		TrainRows:     trainRows,
		TestRows:      testRows,
		TrainedAt:     time.Now().UTC(),
		RunID:         logging.RunIDFromContext(ctx),
	}
	p.current.Store(art)

	event := log.Info().
		Int("train_rows", trainRows).
		Int("test_rows", testRows).
		Int("features", len(expanded)).
		Dur("duration", time.Since(start))
	for name, v := range evaluation {
		event = event.Float64(name, v)
	}
	event.Msg("Model trained")
	return art, nil
}

// Predict applies the current artifact's fitted transform and estimator to
// t. It never refits. Missing values are filled with the training medians.
func (p *Pipeline[E]) Predict(ctx context.Context, t *dataset.Table) (out *Predictions, err error) {
	start := time.Now()
	rows := 0
	errorType := ""
	defer func() {
		metrics.RecordPrediction(p.model.Name, rows, time.Since(start), errorType, err)
	}()

	art, err := p.Artifact()
	if err != nil {
		errorType = "not_trained"
		return nil, err
	}
	if err := t.Require(p.model.Name, p.model.Required...); err != nil {
		errorType = "schema"
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		errorType = "canceled"
		return nil, err
	}

	frame, _, err := p.model.Prepare(t)
	if err != nil {
		errorType = "prepare"
		return nil, fmt.Errorf("prepare features: %w", err)
	}
	x, err := art.Preprocessor.Transform(frame)
	if err != nil {
		errorType = "transform"
		return nil, fmt.Errorf("transform features: %w", err)
	}
	rows = len(x)
	return &Predictions{
		Keys:   frame.Keys(),
		Values: art.Estimator.Predict(x),
		Params: art.Params,
		RunID:  art.RunID,
	}, nil
}

// Save persists the current artifact under the model's name.
func (p *Pipeline[E]) Save(ctx context.Context, store modelstore.Store) (modelstore.Metadata, error) {
	art, err := p.Artifact()
	if err != nil {
		return modelstore.Metadata{}, err
	}
	meta, err := store.Save(ctx, p.model.Name, art)
	if err != nil {
		return modelstore.Metadata{}, fmt.Errorf("save %s: %w", p.model.Name, err)
	}
	log := logging.Enrich(ctx, p.logger)
	log.Info().Int("version", meta.Version).Msg("Artifact saved")
	return meta, nil
}

// Load restores the latest stored artifact and makes it current. It fails
// with modelstore.ErrArtifactNotFound when nothing is stored and with
// ErrIncompatibleArtifact when the stored bundle does not match this model.
func (p *Pipeline[E]) Load(ctx context.Context, store modelstore.Store) (modelstore.Metadata, error) {
	var art Artifact[E]
	meta, err := store.Load(ctx, p.model.Name, &art)
	if err != nil {
		if errors.Is(err, modelstore.ErrArtifactNotFound) {
			return modelstore.Metadata{}, err
		}
		return modelstore.Metadata{}, fmt.Errorf("%w: %s: %w", ErrIncompatibleArtifact, p.model.Name, err)
	}
	if err := p.checkCompatible(&art); err != nil {
		return modelstore.Metadata{}, err
	}
	p.current.Store(&art)
	log := logging.Enrich(ctx, p.logger)
	log.Info().
		Int("version", meta.Version).
		Time("trained_at", art.TrainedAt).
		Msg("Artifact loaded")
	return meta, nil
}

func (p *Pipeline[E]) checkCompatible(art *Artifact[E]) error {
	switch {
	case art.SchemaVersion != SchemaVersion:
		return fmt.Errorf("%w: %s has schema version %d, want %d",
			ErrIncompatibleArtifact, p.model.Name, art.SchemaVersion, SchemaVersion)
	case art.Name != p.model.Name:
		return fmt.Errorf("%w: stored artifact is named %q, want %q", ErrIncompatibleArtifact, art.Name, p.model.Name)
	case !art.Schema.Equal(p.schema()):
		return fmt.Errorf("%w: %s feature schema changed", ErrIncompatibleArtifact, p.model.Name)
	case art.Preprocessor == nil:
		return fmt.Errorf("%w: %s has no preprocessing state", ErrIncompatibleArtifact, p.model.Name)
	}
	return nil
}

// dropMissingTargets removes rows whose target is NaN.
func dropMissingTargets(frame *features.Frame, target []float64) (*features.Frame, []float64) {
	keep := make([]int, 0, len(target))
	for i, y := range target {
		if !math.IsNaN(y) {
			keep = append(keep, i)
		}
	}
	if len(keep) == len(target) {
		return frame, target
	}
	return frame.Take(keep), pickValues(target, keep)
}

func pick(x [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}

func pickValues(y []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
