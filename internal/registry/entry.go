// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/ordersight/internal/database"
	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/logging"
	"github.com/tomtom215/ordersight/internal/metrics"
	"github.com/tomtom215/ordersight/internal/modelstore"
	"github.com/tomtom215/ordersight/internal/pipeline"
)

// Registry load sources, as reported by the model_registry_loads_total metric.
const (
	SourceStore   = "store"
	SourceTrained = "trained"
	SourceError   = "error"
)

// Model is the lifecycle shared by every registered model.
type Model interface {
	Name() string
	Trained() bool
	Retrain(ctx context.Context, t *dataset.Table) error
	Save(ctx context.Context, store modelstore.Store) (modelstore.Metadata, error)
	Load(ctx context.Context, store modelstore.Store) (modelstore.Metadata, error)
	Info() pipeline.Info
}

// Options configure every entry of a registry.
type Options struct {
	Store modelstore.Store

	// Source supplies training data when no artifact is stored. Nil disables
	// training on a miss.
	Source database.Source

	// TrainIfMissing trains and persists a model on first use when the store
	// has no compatible artifact for it.
	TrainIfMissing bool

	// KeepVersions is how many artifact versions survive each save.
	KeepVersions int
}

// Handle is the type-erased view of an Entry.
type Handle interface {
	Name() string
	Ready() bool
	Ensure(ctx context.Context) error
	Refresh(ctx context.Context, t *dataset.Table) error
	Invalidate()
	Info() pipeline.Info
	OnChange(fn func())
}

// Entry memoizes one model. The first Get loads the model from the store, or
// trains it when nothing usable is stored, and every later Get returns the
// same instance. Concurrent first calls share a single load.
//
// Only the training service and the retrain endpoint call Refresh or
// Invalidate. Query paths only ever call Get.
type Entry[M Model] struct {
	model  M
	opts   Options
	logger zerolog.Logger
	group  singleflight.Group
	ready  atomic.Bool

	mu        sync.Mutex
	listeners []func()
}

// NewEntry wraps model.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewEntry[M Model](model M, opts Options, logger zerolog.Logger) *Entry[M] {
	if opts.KeepVersions < 1 {
		opts.KeepVersions = 1
	}
	return &Entry[M]{
		model:  model,
		opts:   opts,
		logger: logger.With().Str("component", "registry").Str("model", model.Name()).Logger(),
	}
}

// Name returns the model name.
func (e *Entry[M]) Name() string {
	return e.model.Name()
}

// Ready reports whether Get would return without loading.
func (e *Entry[M]) Ready() bool {
	return e.ready.Load()
}

// Info describes the current model.
func (e *Entry[M]) Info() pipeline.Info {
	return e.model.Info()
}

// OnChange registers fn to run after every load or retrain that replaces the
// model.
func (e *Entry[M]) OnChange(fn func()) {
	e.mu.Lock()
	e.listeners = append(e.listeners, fn)
	e.mu.Unlock()
}

// Get returns the memoized model, materializing it on first use.
func (e *Entry[M]) Get(ctx context.Context) (M, error) {
	if err := e.Ensure(ctx); err != nil {
		var zero M
		return zero, err
	}
	return e.model, nil
}

// Ensure materializes the model if needed. Concurrent callers share one
// load, which keeps running for the others when the caller that started it
// goes away. A caller whose ctx ends returns ctx.Err() without waiting.
func (e *Entry[M]) Ensure(ctx context.Context) error {
	if e.ready.Load() {
		return nil
	}
	ch := e.group.DoChan(e.Name(), func() (any, error) {
		if e.ready.Load() {
			return nil, nil
		}
		return nil, e.materialize(context.WithoutCancel(ctx))
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (e *Entry[M]) materialize(ctx context.Context) error {
	name := e.Name()
	log := logging.Enrich(ctx, e.logger)

	meta, err := e.model.Load(ctx, e.opts.Store)
	if err == nil {
		metrics.RecordRegistryLoad(name, SourceStore)
		log.Info().Int("version", meta.Version).Msg("Model loaded from store")
		e.markReady()
		return nil
	}

	missing := errors.Is(err, modelstore.ErrArtifactNotFound)
	if !missing && !errors.Is(err, pipeline.ErrIncompatibleArtifact) {
		metrics.RecordRegistryLoad(name, SourceError)
		return fmt.Errorf("load %s: %w", name, err)
	}
	if !e.opts.TrainIfMissing || e.opts.Source == nil {
		metrics.RecordRegistryLoad(name, SourceError)
		if missing {
			return fmt.Errorf("%s: %w", name, pipeline.ErrNotTrained)
		}
		return err
	}
	if !missing {
		log.Warn().Err(err).Msg("Stored artifact unusable, retraining")
	}

	if logging.RunIDFromContext(ctx) == "" {
		ctx, _ = logging.ContextWithNewRunID(ctx)
	}
	table, err := e.opts.Source.LoadTransactions(ctx)
	if err != nil {
		metrics.RecordRegistryLoad(name, SourceError)
		return fmt.Errorf("load training data for %s: %w", name, err)
	}
	if err := e.model.Retrain(ctx, table); err != nil {
		metrics.RecordRegistryLoad(name, SourceError)
		return fmt.Errorf("train %s: %w", name, err)
	}
	metrics.RecordRegistryLoad(name, SourceTrained)
	e.markReady()

	// The trained model serves either way; a failed save is retried on the
	// next retrain.
	_ = e.persist(ctx) //nolint:errcheck // logged inside persist
	return nil
}

// Refresh retrains the model on t, swaps it in and persists it. On a
// training error the current model keeps serving.
func (e *Entry[M]) Refresh(ctx context.Context, t *dataset.Table) error {
	if err := e.model.Retrain(ctx, t); err != nil {
		return fmt.Errorf("retrain %s: %w", e.Name(), err)
	}
	e.markReady()
	return e.persist(ctx)
}

// Invalidate forgets the memoized model. The next Get reloads the latest
// stored artifact; until then the current model keeps answering queries
// made through handles obtained earlier.
func (e *Entry[M]) Invalidate() {
	e.ready.Store(false)
	metrics.RegistryInvalidations.WithLabelValues(e.Name()).Inc()
	e.logger.Info().Msg("Registry entry invalidated")
}

func (e *Entry[M]) markReady() {
	e.ready.Store(true)
	e.mu.Lock()
	listeners := append([]func(){}, e.listeners...)
	e.mu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

func (e *Entry[M]) persist(ctx context.Context) error {
	log := logging.Enrich(ctx, e.logger)
	start := time.Now()
	meta, err := e.model.Save(ctx, e.opts.Store)
	if err != nil {
		log.Error().Err(err).Msg("Failed to persist artifact")
		return fmt.Errorf("persist %s: %w", e.Name(), err)
	}
	if err := e.opts.Store.Prune(ctx, e.Name(), e.opts.KeepVersions); err != nil {
		log.Warn().Err(err).Msg("Failed to prune old artifact versions")
	}
	log.Debug().Int("version", meta.Version).Dur("duration", time.Since(start)).Msg("Artifact persisted")
	return nil
}
