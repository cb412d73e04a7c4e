// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package services provides suture.Service wrappers for the long-running parts
of the server.

  - TrainingService loads every model at startup and retrains them all on a
    schedule, one run ID per cycle.
  - HTTPServerService adapts *http.Server's ListenAndServe/Shutdown pair to
    suture's context-aware Serve.

Every wrapper implements fmt.Stringer so suture can name it in its logs.
*/
package services
