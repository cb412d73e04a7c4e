// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package modelstore persists named model artifacts.

An artifact is any gob-encodable value. Each Save writes a new version under
the artifact name; Load returns the latest version. Payloads are gob encoded,
gzip compressed and protected by a SHA-256 checksum of the uncompressed bytes,
so a truncated or corrupted artifact fails to load instead of yielding a
half-decoded model.

# Backends

  - FileStore keeps one file per version ({name}_v{version}.gob.gz) and
    writes through a temporary file plus rename, so readers never observe a
    partially written artifact.
  - BadgerStore keeps versions as keys in a BadgerDB database and writes
    payload and metadata in a single transaction.

Both backends report operations through the metrics package.

# Usage

	store, err := modelstore.NewFileStore("/data/models", logger)
	if err != nil {
	    return err
	}
	meta, err := store.Save(ctx, "churn_predictor", artifact)
	...
	var loaded Artifact
	meta, err = store.Load(ctx, "churn_predictor", &loaded)
	if errors.Is(err, modelstore.ErrArtifactNotFound) {
	    // train instead
	}
*/
package modelstore
