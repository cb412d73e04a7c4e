// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package database

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/metrics"
)

// Source loads the full transaction table.
type Source interface {
	LoadTransactions(ctx context.Context) (*dataset.Table, error)
}

// sourceModel labels schema errors raised while loading.
const sourceModel = "source"

// sourceExpr returns the FROM expression for the configured source.
func (db *DB) sourceExpr() string {
	if db.cfg.SourceCSV != "" {
		return fmt.Sprintf("read_csv_auto(%s)", quoteLiteral(db.cfg.SourceCSV))
	}
	return quoteIdent(db.cfg.SourceTable)
}

func (db *DB) sourceLabel() string {
	if db.cfg.SourceCSV != "" {
		return "csv:" + db.cfg.SourceCSV
	}
	return db.cfg.SourceTable
}

func quoteIdent(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// numericTypes are the DuckDB type families accepted for numeric columns.
var numericTypes = []string{
	"TINYINT", "SMALLINT", "INTEGER", "BIGINT", "HUGEINT",
	"UTINYINT", "USMALLINT", "UINTEGER", "UBIGINT", "UHUGEINT",
	"FLOAT", "DOUBLE", "DECIMAL", "REAL",
}

// typeMatches reports whether a DuckDB column type can serve kind.
// Timestamps may arrive as text and are parsed with TRY_CAST.
func typeMatches(kind dataset.Kind, duckType string) bool {
	t := strings.ToUpper(duckType)
	switch kind {
	case dataset.KindNumber:
		for _, n := range numericTypes {
			if strings.HasPrefix(t, n) {
				return true
			}
		}
		// An all-NULL CSV column is inferred as VARCHAR or NULL.
		return t == "NULL"
	case dataset.KindTimestamp:
		return strings.HasPrefix(t, "TIMESTAMP") || t == "DATE" || t == "VARCHAR" || t == "NULL"
	default:
		return true
	}
}

// Describe returns the source's column types keyed by column name.
func (db *DB) Describe(ctx context.Context) (map[string]string, error) {
	rows, err := db.conn.QueryContext(ctx, "DESCRIBE SELECT * FROM "+db.sourceExpr())
	if err != nil {
		return nil, fmt.Errorf("describe source %s: %w", db.sourceLabel(), err)
	}
	defer closeQuietly(rows)

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("describe columns: %w", err)
	}
	types := make(map[string]string)
	for rows.Next() {
		// column_name, column_type, null, key, default, extra
		dest := make([]any, len(cols))
		var name, typ sql.NullString
		dest[0], dest[1] = &name, &typ
		for i := 2; i < len(dest); i++ {
			dest[i] = new(any)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan describe row: %w", err)
		}
		types[name.String] = typ.String
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate describe rows: %w", err)
	}
	return types, nil
}

// LoadTransactions reads every row of the source into a dataset.Table whose
// column set is the known columns the source provides.
func (db *DB) LoadTransactions(ctx context.Context) (table *dataset.Table, err error) {
	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("load_transactions", db.sourceLabel(), time.Since(start), err)
	}()

	if db.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.cfg.QueryTimeout)
		defer cancel()
	}

	types, err := db.Describe(ctx)
	if err != nil {
		return nil, err
	}

	var present []string
	mistyped := make(map[string]string)
	for _, col := range dataset.SourceColumns() {
		typ, ok := types[col]
		if !ok {
			continue
		}
		if !typeMatches(dataset.KindOf(col), typ) {
			mistyped[col] = typ
			continue
		}
		present = append(present, col)
	}
	if len(mistyped) > 0 {
		return nil, &dataset.SchemaError{Model: sourceModel, Mistyped: mistyped}
	}
	if len(present) == 0 {
		return nil, &dataset.SchemaError{Model: sourceModel, Missing: dataset.SourceColumns()}
	}

	records, err := db.scanRecords(ctx, present)
	if err != nil {
		return nil, err
	}

	metrics.SourceRowsLoaded.Set(float64(len(records)))
	db.logger.Info().
		Str("source", db.sourceLabel()).
		Int("rows", len(records)).
		Int("columns", len(present)).
		Dur("duration", time.Since(start)).
		Msg("Transactions loaded")
	return dataset.NewTable(records, present), nil
}

func selectExpr(col string) string {
	q := quoteIdent(col)
	switch dataset.KindOf(col) {
	case dataset.KindNumber:
		return fmt.Sprintf("CAST(%s AS DOUBLE)", q)
	case dataset.KindTimestamp:
		return fmt.Sprintf("TRY_CAST(%s AS TIMESTAMP)", q)
	default:
		return fmt.Sprintf("CAST(%s AS VARCHAR)", q)
	}
}

func (db *DB) scanRecords(ctx context.Context, columns []string) ([]dataset.Record, error) {
	exprs := make([]string, len(columns))
	for i, col := range columns {
		exprs[i] = selectExpr(col)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(exprs, ", "), db.sourceExpr())

	rows, err := db.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer closeQuietly(rows)

	kinds := make([]dataset.Kind, len(columns))
	dest := make([]any, len(columns))
	texts := make([]sql.NullString, len(columns))
	nums := make([]sql.NullFloat64, len(columns))
	times := make([]sql.NullTime, len(columns))
	for i, col := range columns {
		kinds[i] = dataset.KindOf(col)
		switch kinds[i] {
		case dataset.KindNumber:
			dest[i] = &nums[i]
		case dataset.KindTimestamp:
			dest[i] = &times[i]
		default:
			dest[i] = &texts[i]
		}
	}

	var records []dataset.Record
	for rows.Next() {
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan transaction row %d: %w", len(records), err)
		}
		r := dataset.NewRecord()
		for i, col := range columns {
			switch kinds[i] {
			case dataset.KindNumber:
				v := math.NaN()
				if nums[i].Valid {
					v = nums[i].Float64
				}
				r.SetNumber(col, v)
			case dataset.KindTimestamp:
				if times[i].Valid {
					r.SetTime(col, times[i].Time.UTC())
				}
			default:
				if texts[i].Valid {
					r.SetText(col, strings.TrimSpace(texts[i].String))
				}
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transaction rows: %w", err)
	}
	return records, nil
}
