// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/logging"
	"github.com/tomtom215/ordersight/internal/modelstore"
	"github.com/tomtom215/ordersight/internal/pipeline"
	"github.com/tomtom215/ordersight/internal/registry"
	"github.com/tomtom215/ordersight/internal/validation"
)

// ModelStatus is one entry of GET /api/v1/models.
type ModelStatus struct {
	pipeline.Info
	Ready    bool                 `json:"ready"`
	Artifact *modelstore.Metadata `json:"artifact,omitempty"`
}

// RetrainRun describes a manual retrain.
type RetrainRun struct {
	RunID      string            `json:"run_id"`
	Models     []string          `json:"models"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt *time.Time        `json:"finished_at,omitempty"`
	Results    map[string]string `json:"results,omitempty"`
}

// ModelsResponse is the body of GET /api/v1/models.
type ModelsResponse struct {
	Models      []ModelStatus `json:"models"`
	LastRetrain *RetrainRun   `json:"last_retrain,omitempty"`
}

// Models handles GET /api/v1/models: model summaries joined with the
// latest stored artifact of each.
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	stored, err := h.store.List(r.Context())
	if err != nil {
		respondErr(w, r, err)
		return
	}
	byName := make(map[string]modelstore.Metadata, len(stored))
	for _, m := range stored {
		byName[m.Name] = m
	}

	var resp ModelsResponse
	for _, handle := range h.registry.Handles() {
		status := ModelStatus{Info: handle.Info(), Ready: handle.Ready()}
		if meta, ok := byName[handle.Name()]; ok {
			status.Artifact = &meta
		}
		resp.Models = append(resp.Models, status)
	}

	h.retrainMu.Lock()
	if h.lastRetrain != nil {
		run := *h.lastRetrain
		resp.LastRetrain = &run
	}
	h.retrainMu.Unlock()

	respondData(w, r, http.StatusOK, resp, start, false)
}

// Retrain handles POST /api/v1/models/retrain. The body optionally names
// the models to retrain; without one every model is retrained. Training
// runs in the background under a new run ID, which the 202 response
// returns. At most one retrain runs at a time and accepted requests are
// spaced by RetrainInterval.
func (h *Handler) Retrain(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	var req RetrainRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		respondErr(w, r, err)
		return
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		respondErr(w, r, verr)
		return
	}

	handles, err := h.resolve(req.Models)
	if err != nil {
		respondErr(w, r, err)
		return
	}
	if h.source == nil {
		respondError(w, r, http.StatusServiceUnavailable, &APIError{
			Code:    ErrCodeUnavailable,
			Message: "no training data source configured",
		})
		return
	}

	h.retrainMu.Lock()
	if h.retrainRunning {
		h.retrainMu.Unlock()
		respondError(w, r, http.StatusConflict, &APIError{
			Code:    ErrCodeRetrainRunning,
			Message: "a retrain is already running",
		})
		return
	}
	if !h.retrainLimiter.Allow() {
		h.retrainMu.Unlock()
		respondError(w, r, http.StatusTooManyRequests, &APIError{
			Code:    ErrCodeTooManyRequests,
			Message: "retrain requested too soon after the previous one",
		})
		return
	}

	ctx, runID := logging.ContextWithNewRunID(context.WithoutCancel(r.Context()))
	names := make([]string, len(handles))
	for i, handle := range handles {
		names[i] = handle.Name()
	}
	run := &RetrainRun{RunID: runID, Models: names, StartedAt: time.Now()}
	h.retrainRunning = true
	h.lastRetrain = run
	h.retrains.Add(1)
	accepted := *run
	h.retrainMu.Unlock()

	go h.runRetrain(ctx, handles, run)

	respondData(w, r, http.StatusAccepted, accepted, start, false)
}

// resolve maps requested names to handles. No names means every model.
func (h *Handler) resolve(names []string) ([]registry.Handle, error) {
	if len(names) == 0 {
		return h.registry.Handles(), nil
	}
	seen := make(map[string]bool, len(names))
	handles := make([]registry.Handle, 0, len(names))
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		handle, ok := h.registry.Handle(name)
		if !ok {
			return nil, dataset.NewNotFound("model", name)
		}
		handles = append(handles, handle)
	}
	return handles, nil
}

func (h *Handler) runRetrain(ctx context.Context, handles []registry.Handle, run *RetrainRun) {
	defer h.retrains.Done()
	ctx, cancel := context.WithTimeout(ctx, h.config.RetrainTimeout)
	stop := context.AfterFunc(h.stopRetrains, cancel)
	defer stop()
	defer cancel()

	logger := h.logger.With().Str("run_id", run.RunID).Logger()
	logger.Info().Strs("models", run.Models).Msg("Manual retrain started")

	results := make(map[string]string, len(handles))
	table, err := h.source.LoadTransactions(ctx)
	if err != nil {
		logger.Error().Err(err).Msg("Manual retrain could not load transactions")
		for _, handle := range handles {
			results[handle.Name()] = "failed: " + err.Error()
		}
	} else {
		for _, handle := range handles {
			if err := handle.Refresh(ctx, table); err != nil {
				results[handle.Name()] = "failed: " + err.Error()
				if errors.Is(err, context.DeadlineExceeded) {
					logger.Warn().Str("model", handle.Name()).Msg("Manual retrain timed out")
				}
				continue
			}
			results[handle.Name()] = "trained"
		}
	}

	finished := time.Now()
	h.retrainMu.Lock()
	run.FinishedAt = &finished
	run.Results = results
	h.retrainRunning = false
	h.retrainMu.Unlock()

	logger.Info().
		Dur("duration", finished.Sub(run.StartedAt)).
		Interface("results", results).
		Msg("Manual retrain finished")
}
