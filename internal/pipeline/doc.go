// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package pipeline implements the train, evaluate, predict and persist
lifecycle shared by the churn, delivery-time, review-score and anomaly
models.

A Model supplies the per-model pieces (required columns, feature and target
derivation, estimator constructor and evaluation); Pipeline runs the shared
steps:

 1. Check required columns (dataset.ErrSchema on failure).
 2. Derive features and drop rows without a target.
 3. Impute numeric gaps with medians over the whole table.
 4. Split into train and held-out partitions with a fixed seed, stratified
    for classifiers. Unsupervised models train on every row.
 5. Fit standardization and one-hot encoding on the train partition only.
 6. Fit the estimator and evaluate it on the held-out partition.
 7. Publish the new Artifact atomically.

A Pipeline is untrained until Train or Load succeeds and never returns to
untrained. Predict before that fails with ErrNotTrained. Failed training
leaves the previous artifact in place.

# Estimators

RandomForest is a bagged CART ensemble for regression and binary
classification. IsolationForest scores outliers by average isolation depth.
Both grow trees in parallel with one seeded generator per tree, so a given
seed always yields the same model.
*/
package pipeline
