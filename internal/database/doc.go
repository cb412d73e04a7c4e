// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

/*
Package database reads the merged transaction table from DuckDB.

The source is either a table inside the configured DuckDB file
(SOURCE_TABLE, default "transformed_data") or a CSV file read with
read_csv_auto (SOURCE_CSV). Before loading, the source is introspected with
DESCRIBE so that a missing or wrongly typed column fails with a
*dataset.SchemaError naming the column instead of a scan error.

Known source columns are cast to their semantic types on the DuckDB side:

  - text columns to VARCHAR
  - numeric columns to DOUBLE (NULL becomes NaN)
  - timestamp columns with TRY_CAST to TIMESTAMP (unparseable becomes zero time)

Columns the source lacks are simply absent from the returned table; models
check their own requirements with dataset.Table.Require.

# Fault Isolation

BreakerSource wraps a Source with a gobreaker circuit breaker so that a
failing data source stops being hammered by scheduled retraining. State
changes are logged and exported as metrics.
*/
package database
