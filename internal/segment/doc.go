// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package segment clusters customers by their RFM feature vectors.

Training derives one vector per customer (see features.CustomerRFM),
standardizes every feature and runs k-means with k-means++ seeding. When the
number of clusters is not fixed, every k in 2..max_k is fitted and the one
with the highest mean silhouette wins; ties go to the smaller k.

Segment labels are canonical: segment 0 has the highest mean monetary value,
segment 1 the next and so on. Retraining on similar data therefore keeps the
meaning of a label stable.

The fitted standardization and the centroids live in the artifact, so Assign
can place customers from a new table without refitting.
*/
package segment
