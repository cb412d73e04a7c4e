// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package features derives engineered columns from the merged transaction table.

Everything here is a pure function of its input table. Two derivations exist:

  - Orders / Derive: one row per order item with the raw numeric columns plus
    delivery_time, price_per_weight, price_per_volume, freight_ratio,
    is_late_delivery, total_order_value and purchase calendar parts.
  - CustomerRFM / CustomerFrame: one row per customer with recency, frequency,
    monetary, satisfaction, product_diversity and avg_delivery_time, plus
    the churn aggregates.

Non-finite results (division by zero and the like) become missing and are
imputed with the column median like any other gap. Recency is anchored at
the latest purchase in the table so that results are reproducible.
*/
package features
