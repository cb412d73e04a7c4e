// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package dataset

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrSchema is matched by every *SchemaError.
	ErrSchema = errors.New("schema violation")

	// ErrNotFound is matched by every *NotFoundError.
	ErrNotFound = errors.New("entity not found")
)

// Entity kinds reported by NotFoundError.
const (
	EntityCustomer = "customer"
	EntityProduct  = "product"
	EntityCategory = "category"
)

// SchemaError reports the columns a model needs that the input lacks or
// carries with the wrong semantic type.
type SchemaError struct {
	Model    string
	Missing  []string
	Mistyped map[string]string // column -> observed type
}

func (e *SchemaError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing columns: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Mistyped) > 0 {
		cols := make([]string, 0, len(e.Mistyped))
		for c := range e.Mistyped {
			cols = append(cols, c)
		}
		sort.Strings(cols)
		typed := make([]string, len(cols))
		for i, c := range cols {
			typed[i] = fmt.Sprintf("%s (%s, want %s)", c, e.Mistyped[c], KindOf(c))
		}
		parts = append(parts, "mistyped columns: "+strings.Join(typed, ", "))
	}
	model := e.Model
	if model == "" {
		model = "input"
	}
	return fmt.Sprintf("%s: %s", model, strings.Join(parts, "; "))
}

// Is makes errors.Is(err, ErrSchema) true for any SchemaError.
func (e *SchemaError) Is(target error) bool {
	return target == ErrSchema
}

// NotFoundError carries the identifier that could not be resolved.
type NotFoundError struct {
	Kind string
	ID   string
}

// NewNotFound returns a *NotFoundError for kind and id.
func NewNotFound(kind, id string) *NotFoundError {
	return &NotFoundError{Kind: kind, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

// Is makes errors.Is(err, ErrNotFound) true for any NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}
