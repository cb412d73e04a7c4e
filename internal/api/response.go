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

	"github.com/goccy/go-json"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/logging"
	"github.com/tomtom215/ordersight/internal/pipeline"
	"github.com/tomtom215/ordersight/internal/validation"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata describes how a response was produced.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	RequestID   string    `json:"request_id,omitempty"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
	Count       *int      `json:"count,omitempty"`
}

// APIError is the error part of the envelope.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error codes.
const (
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeNotFound        = "NOT_FOUND"
	ErrCodeNotTrained      = "MODEL_NOT_TRAINED"
	ErrCodeSchema          = "SCHEMA_ERROR"
	ErrCodeDegenerate      = "DEGENERATE_DATA"
	ErrCodeTooManyRequests = "TOO_MANY_REQUESTS"
	ErrCodeRetrainRunning  = "RETRAIN_IN_PROGRESS"
	ErrCodeUnavailable     = "SERVICE_UNAVAILABLE"
	ErrCodeTimeout         = "TIMEOUT"
	ErrCodeInternal        = "INTERNAL_ERROR"
)

func respondJSON(w http.ResponseWriter, status int, response *APIResponse) {
	data, err := json.Marshal(response)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("Failed to write JSON response")
	}
}

// respondData writes a success envelope. start is when the handler began.
func respondData(w http.ResponseWriter, r *http.Request, status int, data interface{}, start time.Time, cached bool) {
	respondJSON(w, status, &APIResponse{
		Status: "success",
		Data:   data,
		Metadata: Metadata{
			Timestamp:   time.Now(),
			RequestID:   requestID(r),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Cached:      cached,
		},
	})
}

// respondList is respondData plus the item count in the metadata.
func respondList[T any](w http.ResponseWriter, r *http.Request, items []T, start time.Time, cached bool) {
	if items == nil {
		items = []T{}
	}
	n := len(items)
	respondJSON(w, http.StatusOK, &APIResponse{
		Status: "success",
		Data:   items,
		Metadata: Metadata{
			Timestamp:   time.Now(),
			RequestID:   requestID(r),
			QueryTimeMS: time.Since(start).Milliseconds(),
			Cached:      cached,
			Count:       &n,
		},
	})
}

func requestID(r *http.Request) string {
	return logging.RequestIDFromContext(r.Context())
}

func respondError(w http.ResponseWriter, r *http.Request, status int, apiErr *APIError) {
	respondJSON(w, status, &APIResponse{
		Status: "error",
		Data:   nil,
		Metadata: Metadata{
			Timestamp: time.Now(),
			RequestID: requestID(r),
		},
		Error: apiErr,
	})
}

// respondErr maps a domain error onto a status code and error envelope.
// Only unexpected errors are logged at error level.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status, apiErr := classify(err)
	logger := logging.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("API request failed")
	} else {
		logger.Debug().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("API request rejected")
	}
	respondError(w, r, status, apiErr)
}

func classify(err error) (int, *APIError) {
	var (
		validationErr *validation.RequestValidationError
		schemaErr     *dataset.SchemaError
		notFoundErr   *dataset.NotFoundError
	)

	switch {
	case errors.As(err, &validationErr):
		v := validationErr.ToAPIError()
		return http.StatusBadRequest, &APIError{Code: ErrCodeValidation, Message: v.Message, Details: v.Details}

	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, &APIError{
			Code:    ErrCodeNotFound,
			Message: notFoundErr.Error(),
			Details: map[string]interface{}{"kind": notFoundErr.Kind, "id": notFoundErr.ID},
		}

	case errors.Is(err, dataset.ErrNotFound):
		return http.StatusNotFound, &APIError{Code: ErrCodeNotFound, Message: err.Error()}

	case errors.Is(err, pipeline.ErrNotTrained):
		return http.StatusConflict, &APIError{Code: ErrCodeNotTrained, Message: err.Error()}

	case errors.As(err, &schemaErr):
		details := map[string]interface{}{}
		if len(schemaErr.Missing) > 0 {
			details["missing"] = schemaErr.Missing
		}
		if len(schemaErr.Mistyped) > 0 {
			details["mistyped"] = schemaErr.Mistyped
		}
		return http.StatusUnprocessableEntity, &APIError{Code: ErrCodeSchema, Message: schemaErr.Error(), Details: details}

	case errors.Is(err, pipeline.ErrDegenerateData):
		return http.StatusUnprocessableEntity, &APIError{Code: ErrCodeDegenerate, Message: err.Error()}

	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, &APIError{Code: ErrCodeTimeout, Message: "request timed out"}

	default:
		return http.StatusInternalServerError, &APIError{Code: ErrCodeInternal, Message: "internal server error"}
	}
}
