// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package database

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/metrics"
)

// BreakerConfig configures BreakerSource.
type BreakerConfig struct {
	Name             string
	FailureThreshold uint32
	Timeout          time.Duration
}

// BreakerSource guards a Source with a circuit breaker. While the breaker is
// open, loads fail fast with gobreaker.ErrOpenState.
type BreakerSource struct {
	source Source
	cb     *gobreaker.CircuitBreaker[*dataset.Table]
}

// NewBreakerSource wraps source. Schema errors and caller cancellation do
// not count as source failures.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBreakerSource(source Source, cfg BreakerConfig, logger zerolog.Logger) *BreakerSource {
	if cfg.Name == "" {
		cfg.Name = "transaction_source"
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 3
	}
	log := logger.With().Str("component", "source_breaker").Logger()

	settings := gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				errors.Is(err, dataset.ErrSchema) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			metrics.RecordBreakerTransition(name, from.String(), to.String())
			log.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Data source circuit breaker changed state")
		},
	}
	metrics.CircuitBreakerState.WithLabelValues(cfg.Name).Set(0)

	return &BreakerSource{
		source: source,
		cb:     gobreaker.NewCircuitBreaker[*dataset.Table](settings),
	}
}

// LoadTransactions loads through the breaker.
func (b *BreakerSource) LoadTransactions(ctx context.Context) (*dataset.Table, error) {
	table, err := b.cb.Execute(func() (*dataset.Table, error) {
		return b.source.LoadTransactions(ctx)
	})
	result := "success"
	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		result = "rejected"
	case err != nil:
		result = "failure"
	}
	metrics.CircuitBreakerRequests.WithLabelValues(b.cb.Name(), result).Inc()
	return table, err
}

// State returns the breaker state name.
func (b *BreakerSource) State() string {
	return b.cb.State().String()
}
