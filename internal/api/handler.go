// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package api

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/thejerf/suture/v4"
	"golang.org/x/time/rate"

	"github.com/tomtom215/ordersight/internal/cache"
	"github.com/tomtom215/ordersight/internal/database"
	"github.com/tomtom215/ordersight/internal/modelstore"
	"github.com/tomtom215/ordersight/internal/recommend"
	"github.com/tomtom215/ordersight/internal/registry"
	"github.com/tomtom215/ordersight/internal/segment"
)

// HandlerConfig tunes the handlers.
type HandlerConfig struct {
	// DefaultN is the recommendation count when n is omitted.
	DefaultN int

	// CacheTTL bounds how long a lookup result is reused.
	CacheTTL time.Duration

	// CacheEntries caps each lookup cache. 0 means unbounded.
	CacheEntries int

	// RetrainInterval is the minimum spacing between accepted retrain
	// requests. 0 disables the limit.
	RetrainInterval time.Duration

	// RetrainTimeout bounds one retrain run.
	RetrainTimeout time.Duration
}

// breakerState is implemented by sources that report circuit state.
type breakerState interface {
	State() string
}

// Handler serves every API endpoint.
type Handler struct {
	registry *registry.Registry
	store    modelstore.Store
	source   database.Source
	config   HandlerConfig
	logger   zerolog.Logger

	recommendations *cache.Cache[[]recommend.Recommendation]
	segments        *cache.Cache[segment.Assignment]

	retrainLimiter *rate.Limiter
	retrainMu      sync.Mutex
	retrainRunning bool
	lastRetrain    *RetrainRun
	retrains       sync.WaitGroup
	stopRetrains   context.Context
	cancelRetrains context.CancelFunc

	started time.Time
}

// NewHandler wires the handlers to the registry. The lookup caches are
// cleared whenever their model changes.
//
//nolint:gocritic // logger passed by value is acceptable for zerolog
func NewHandler(reg *registry.Registry, store modelstore.Store, source database.Source, cfg HandlerConfig, logger zerolog.Logger) *Handler {
	if cfg.DefaultN <= 0 {
		cfg.DefaultN = 5
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	if cfg.RetrainTimeout <= 0 {
		cfg.RetrainTimeout = 30 * time.Minute
	}

	limit := rate.Inf
	if cfg.RetrainInterval > 0 {
		limit = rate.Every(cfg.RetrainInterval)
	}

	h := &Handler{
		registry:        reg,
		store:           store,
		source:          source,
		config:          cfg,
		logger:          logger.With().Str("component", "api").Logger(),
		recommendations: cache.New[[]recommend.Recommendation]("recommendations", cfg.CacheTTL, cfg.CacheEntries),
		segments:        cache.New[segment.Assignment]("segments", cfg.CacheTTL, cfg.CacheEntries),
		retrainLimiter:  rate.NewLimiter(limit, 1),
		started:         time.Now(),
	}
	h.stopRetrains, h.cancelRetrains = context.WithCancel(context.Background())

	reg.Recommender.OnChange(h.recommendations.Clear)
	reg.Segments.OnChange(h.segments.Clear)
	return h
}

// CacheSweepers returns the lookup caches as services that sweep expired
// entries. cmd/server runs them in the models layer of the supervisor.
func (h *Handler) CacheSweepers() []suture.Service {
	return []suture.Service{h.recommendations, h.segments}
}

// Shutdown cancels any manual retrain still running and waits for it to
// return. Models already swapped in stay in place.
func (h *Handler) Shutdown() {
	h.cancelRetrains()
	h.retrains.Wait()
}
