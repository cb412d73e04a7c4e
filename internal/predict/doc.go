// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package predict defines the four models built on the shared training
pipeline:

  - ChurnPredictor: per-customer churn probability (random forest classifier
    over RFM and activity aggregates).
  - DeliveryPredictor: expected delivery time in days per order item (random
    forest regressor).
  - ReviewPredictor: expected review score per order item (random forest
    regressor).
  - AnomalyDetector: isolation forest outlier scores with a contamination
    threshold, plus a detail report over the flagged records.

Each type embeds *pipeline.Pipeline, so Train, Predict, Save, Load and Info
behave identically across models. The type-specific methods only shape the
pipeline's raw outputs into per-entity results.
*/
package predict
