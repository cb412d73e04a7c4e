// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package dataset defines the merged transaction table every model reads.

A Table is one row per order item with order, customer, product, seller,
payment and review attributes already joined upstream. The set of columns the
source actually provided is recorded alongside the rows so that each model can
check its requirements at the boundary:

	if err := table.Require("churn_predictor", churn.RequiredColumns...); err != nil {
	    return err // *SchemaError listing every missing column
	}

Missing numeric values are NaN and missing timestamps are the zero time.
Nothing in this package imputes or derives; see package features.

# Errors

  - ErrSchema / *SchemaError: a required column is absent or mistyped
  - ErrNotFound / *NotFoundError: an unknown customer, product or category
*/
package dataset
