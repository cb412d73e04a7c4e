// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package api

import (
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/validation"
)

// maxBodyBytes bounds prediction and retrain request bodies.
const maxBodyBytes = 32 << 20

// RecommendationRequest holds the path ID and the n query parameter of a
// recommendation lookup.
type RecommendationRequest struct {
	ID string `validate:"required,entityid"`
	N  int    `validate:"min=1,max=100"`
}

// SegmentRequest is a single customer segment lookup.
type SegmentRequest struct {
	CustomerID string `validate:"required,entityid"`
}

// PredictionRequest is the body of POST /api/v1/predictions/{model}. Each
// record maps source column names to values. Unknown columns are ignored.
type PredictionRequest struct {
	Records []map[string]interface{} `json:"records" validate:"min=1,max=10000"`
}

// RetrainRequest is the optional body of POST /api/v1/models/retrain. An
// empty Models list retrains every model.
type RetrainRequest struct {
	Models []string `json:"models" validate:"max=16,dive,artifactname"`
}

// recommendationRequest builds and validates a lookup from the path value
// and the n parameter. A missing n means defaultN.
func recommendationRequest(r *http.Request, id string, defaultN int) (RecommendationRequest, error) {
	req := RecommendationRequest{ID: id, N: defaultN}
	if raw := r.URL.Query().Get("n"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			// Out of range so the validator reports it.
			n = 0
		}
		req.N = n
	}
	if verr := validation.ValidateStruct(&req); verr != nil {
		return req, verr
	}
	return req, nil
}

// decodeJSON reads a size-limited JSON body into v. An empty body leaves v
// untouched when allowEmpty is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}, allowEmpty bool) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return invalidBody(err.Error())
	}
	if len(body) == 0 {
		if allowEmpty {
			return nil
		}
		return invalidBody("request body is empty")
	}
	if err := json.Unmarshal(body, v); err != nil {
		return invalidBody("malformed JSON: " + err.Error())
	}
	return nil
}

// invalidBody wraps a body problem as a validation error.
func invalidBody(msg string) error {
	return validation.NewRequestValidationError("body", "json", msg)
}

// timestampLayouts are tried in order for timestamp columns.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// toTable converts request records into a table. The table's columns are
// the known source columns present in at least one record. A value of the
// wrong JSON type is reported as a schema error naming the column.
func toTable(model string, raw []map[string]interface{}) (*dataset.Table, error) {
	present := make(map[string]struct{})
	mistyped := make(map[string]string)
	records := make([]dataset.Record, len(raw))

	for i, row := range raw {
		rec := dataset.NewRecord()
		for col, v := range row {
			kind := dataset.KindOf(col)
			if kind == dataset.KindUnknown {
				continue
			}
			present[col] = struct{}{}
			if v == nil {
				continue
			}
			if observed, ok := assign(&rec, col, kind, v); !ok {
				mistyped[col] = observed
			}
		}
		records[i] = rec
	}

	if len(mistyped) > 0 {
		return nil, &dataset.SchemaError{Model: model, Mistyped: mistyped}
	}

	columns := make([]string, 0, len(present))
	for col := range present {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return dataset.NewTable(records, columns), nil
}

// assign stores v into rec. On a type mismatch it returns the observed JSON
// type and false.
func assign(rec *dataset.Record, col string, kind dataset.Kind, v interface{}) (string, bool) {
	switch kind {
	case dataset.KindText:
		switch x := v.(type) {
		case string:
			rec.SetText(col, x)
		case float64:
			// Numeric IDs are accepted as text.
			rec.SetText(col, strconv.FormatFloat(x, 'f', -1, 64))
		default:
			return jsonType(v), false
		}

	case dataset.KindNumber:
		switch x := v.(type) {
		case float64:
			rec.SetNumber(col, x)
		case string:
			f, err := strconv.ParseFloat(x, 64)
			if err != nil {
				return "string", false
			}
			rec.SetNumber(col, f)
		default:
			return jsonType(v), false
		}

	case dataset.KindTimestamp:
		s, ok := v.(string)
		if !ok {
			return jsonType(v), false
		}
		ts, ok := parseTimestamp(s)
		if !ok {
			return "string (unparseable timestamp)", false
		}
		rec.SetTime(col, ts)
	}
	return "", true
}

func jsonType(v interface{}) string {
	switch v.(type) {
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []interface{}:
		return "array"
	case map[string]interface{}:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
