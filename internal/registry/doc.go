// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package registry memoizes the process-wide model instances.

Each model sits behind an Entry. The first Get loads the newest artifact from
the model store; when none is stored (or the stored one no longer matches the
model) and training on a miss is enabled, the entry loads the transaction
table, trains, persists and prunes old versions. Concurrent first calls are
collapsed with singleflight, so a model is never loaded or trained twice at
once. The shared load ignores the cancellation of the caller that started
it; a caller that gives up gets its own ctx.Err() and the others still get
the model.

# Invalidation

Only two callers replace or forget a model:

  - the training service, which calls RefreshAll on its schedule;
  - the retrain endpoint, which calls Refresh on one entry.

Refresh swaps the model in place. Invalidate only clears the memo so the next
Get reloads from the store. Listeners registered with OnChange (the API result
caches) run after every swap.
*/
package registry
