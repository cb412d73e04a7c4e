// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package api

import (
	"net/http"
	"time"
)

// ModelHealth is one model's readiness.
type ModelHealth struct {
	Name  string `json:"name"`
	Ready bool   `json:"ready"`
}

// HealthStatus is the body of GET /api/v1/health.
type HealthStatus struct {
	Status        string        `json:"status"`
	UptimeSeconds float64       `json:"uptime_seconds"`
	Models        []ModelHealth `json:"models"`
	DataSource    string        `json:"data_source_breaker,omitempty"`
}

// Health reports per-model readiness. The server is "healthy" when every
// model is ready and "degraded" otherwise; both answer 200 so that a
// server still training is not restarted by its orchestrator.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := HealthStatus{
		Status:        "healthy",
		UptimeSeconds: time.Since(h.started).Seconds(),
	}
	for _, handle := range h.registry.Handles() {
		ready := handle.Ready()
		if !ready {
			status.Status = "degraded"
		}
		status.Models = append(status.Models, ModelHealth{Name: handle.Name(), Ready: ready})
	}
	if b, ok := h.source.(breakerState); ok {
		status.DataSource = b.State()
	}
	respondData(w, r, http.StatusOK, status, start, false)
}

// HealthLive is the liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	respondData(w, r, http.StatusOK, map[string]string{"status": "alive"}, time.Now(), false)
}
