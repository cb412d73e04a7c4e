// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

// Package logging provides the process-wide zerolog logger for Ordersight.
//
// # Quick Start
//
//	logging.Init(logging.Config{Level: "info", Format: "json"})
//	logging.Info().Str("model", "churn_predictor").Msg("artifact loaded")
//
// Components take a zerolog.Logger at construction time, usually one built
// with WithComponent or WithModel, and tests pass zerolog.Nop().
//
// # Context propagation
//
// HTTP requests carry a request ID and training cycles carry a run ID.
// Ctx(ctx) and Enrich(ctx, logger) attach whichever IDs are present:
//
//	ctx, runID := logging.ContextWithNewRunID(ctx)
//	logging.Ctx(ctx).Info().Msg("training cycle started")
//
// # slog bridge
//
// SlogHandler lets slog-only libraries write through zerolog. The supervisor
// tree uses it for the sutureslog event hook.
package logging
