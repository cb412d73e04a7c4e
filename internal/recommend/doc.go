// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package recommend implements the item-similarity product recommender.

Training builds a customer × product interaction table from purchase counts
and computes the cosine similarity between every pair of products that share
at least one customer:

	sim(i, j) = Σ_c n(c,i)·n(c,j) / (‖n(·,i)‖ · ‖n(·,j)‖)

Only positive similarities are stored, as a sparse symmetric neighbor list
per product sorted by score. Products without a common customer have
similarity zero and never appear in results.

# Queries

  - SimilarProducts: the n most similar other products.
  - CustomerRecommendations: similarity summed over the customer's
    purchases, excluding products already bought.
  - CategoryRecommendations: the category's products ranked by total
    purchase count.

# Thread Safety

Engine publishes each trained model through an atomic pointer. Queries read
one consistent snapshot and are safe for concurrent use with a retrain.
*/
package recommend
