// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package database

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/ordersight/internal/config"
	"github.com/tomtom215/ordersight/internal/dataset"
)

func setupTestDB(t *testing.T, cfg config.DatabaseConfig) *DB {
	t.Helper()
	cfg.Path = ""
	cfg.Threads = 1
	cfg.MaxMemory = "512MB"
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	db, err := Open(&cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func exec(t *testing.T, db *DB, query string) {
	t.Helper()
	if _, err := db.Conn().Exec(query); err != nil {
		t.Fatalf("exec %q: %v", query, err)
	}
}

func TestLoadTransactions_Table(t *testing.T) {
	db := setupTestDB(t, config.DatabaseConfig{SourceTable: "transformed_data"})
	exec(t, db, `CREATE TABLE transformed_data (
		order_id VARCHAR,
		customer_id VARCHAR,
		order_purchase_timestamp TIMESTAMP,
		order_delivered_customer_date VARCHAR,
		price DOUBLE,
		review_score INTEGER,
		product_category_name VARCHAR,
		unrelated_column VARCHAR
	)`)
	exec(t, db, `INSERT INTO transformed_data VALUES
		('o1', 'c1', TIMESTAMP '2018-01-01 10:00:00', '2018-01-05 10:00:00', 10.5, 5, ' housewares ', 'x'),
		('o2', 'c2', TIMESTAMP '2018-02-01 10:00:00', NULL, NULL, NULL, NULL, 'y')`)

	table, err := db.LoadTransactions(context.Background())
	if err != nil {
		t.Fatalf("LoadTransactions() error = %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
	if !table.Has(dataset.ColPrice) || table.Has(dataset.ColFreightValue) {
		t.Error("column set does not match the source")
	}

	records := table.Records()
	r := records[0]
	if r.OrderID != "o1" && records[1].OrderID == "o1" {
		r = records[1]
	}
	if r.Price != 10.5 || r.ReviewScore != 5 {
		t.Errorf("numeric values = %v, %v", r.Price, r.ReviewScore)
	}
	if r.ProductCategory != "housewares" {
		t.Errorf("ProductCategory = %q, want trimmed value", r.ProductCategory)
	}
	want := time.Date(2018, 1, 5, 10, 0, 0, 0, time.UTC)
	if !r.DeliveredAt.Equal(want) {
		t.Errorf("DeliveredAt = %v, want %v", r.DeliveredAt, want)
	}

	other := records[1]
	if other.OrderID == "o1" {
		other = records[0]
	}
	if !math.IsNaN(other.Price) || !math.IsNaN(other.ReviewScore) {
		t.Errorf("NULL numerics = %v, %v, want NaN", other.Price, other.ReviewScore)
	}
	if !other.DeliveredAt.IsZero() {
		t.Errorf("NULL timestamp = %v, want zero", other.DeliveredAt)
	}
}

func TestLoadTransactions_CSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "orders.csv")
	csv := "order_id,customer_id,product_id,price,freight_value\n" +
		"o1,c1,p1,100.0,10.0\n" +
		"o2,c1,p2,50.0,5.0\n"
	if err := os.WriteFile(path, []byte(csv), 0o600); err != nil {
		t.Fatal(err)
	}

	db := setupTestDB(t, config.DatabaseConfig{SourceCSV: path})
	table, err := db.LoadTransactions(context.Background())
	if err != nil {
		t.Fatalf("LoadTransactions() error = %v", err)
	}
	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}
	var total float64
	for _, r := range table.Records() {
		total += r.Price + r.FreightValue
	}
	if total != 165 {
		t.Errorf("sum of price and freight = %v, want 165", total)
	}
}

func TestLoadTransactions_Mistyped(t *testing.T) {
	db := setupTestDB(t, config.DatabaseConfig{SourceTable: "orders"})
	exec(t, db, `CREATE TABLE orders (order_id VARCHAR, price VARCHAR)`)
	exec(t, db, `INSERT INTO orders VALUES ('o1', 'cheap')`)

	_, err := db.LoadTransactions(context.Background())
	if !errors.Is(err, dataset.ErrSchema) {
		t.Fatalf("LoadTransactions() error = %v, want ErrSchema", err)
	}
	var schemaErr *dataset.SchemaError
	if !errors.As(err, &schemaErr) || schemaErr.Mistyped[dataset.ColPrice] != "VARCHAR" {
		t.Errorf("SchemaError = %+v, want price mistyped as VARCHAR", schemaErr)
	}
}

func TestLoadTransactions_MissingSource(t *testing.T) {
	db := setupTestDB(t, config.DatabaseConfig{SourceTable: "does_not_exist"})
	if _, err := db.LoadTransactions(context.Background()); err == nil {
		t.Error("LoadTransactions() on a missing table succeeded, want error")
	}
}

func TestQuoting(t *testing.T) {
	if got := quoteIdent(`a"b`); got != `"a""b"` {
		t.Errorf("quoteIdent() = %s", got)
	}
	if got := quoteLiteral("it's.csv"); got != "'it''s.csv'" {
		t.Errorf("quoteLiteral() = %s", got)
	}
}

func TestTypeMatches(t *testing.T) {
	tests := []struct {
		kind dataset.Kind
		typ  string
		want bool
	}{
		{dataset.KindNumber, "DOUBLE", true},
		{dataset.KindNumber, "DECIMAL(10,2)", true},
		{dataset.KindNumber, "BIGINT", true},
		{dataset.KindNumber, "VARCHAR", false},
		{dataset.KindTimestamp, "TIMESTAMP WITH TIME ZONE", true},
		{dataset.KindTimestamp, "VARCHAR", true},
		{dataset.KindTimestamp, "DOUBLE", false},
		{dataset.KindText, "INTEGER", true},
	}
	for _, tt := range tests {
		if got := typeMatches(tt.kind, tt.typ); got != tt.want {
			t.Errorf("typeMatches(%v, %s) = %v, want %v", tt.kind, tt.typ, got, tt.want)
		}
	}
}

type fakeSource struct {
	err   error
	calls int
}

func (f *fakeSource) LoadTransactions(context.Context) (*dataset.Table, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return dataset.NewTable(nil, nil), nil
}

func TestBreakerSource_OpensAfterFailures(t *testing.T) {
	src := &fakeSource{err: errors.New("disk on fire")}
	b := NewBreakerSource(src, BreakerConfig{Name: "test_open", FailureThreshold: 2, Timeout: time.Hour}, zerolog.Nop())

	for i := 0; i < 2; i++ {
		if _, err := b.LoadTransactions(context.Background()); err == nil {
			t.Fatal("LoadTransactions() succeeded, want error")
		}
	}
	if b.State() != "open" {
		t.Fatalf("State() = %s, want open", b.State())
	}
	if _, err := b.LoadTransactions(context.Background()); !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("LoadTransactions() with open breaker error = %v, want ErrOpenState", err)
	}
	if src.calls != 2 {
		t.Errorf("source called %d times, want 2", src.calls)
	}
}

func TestBreakerSource_SchemaErrorsDoNotTrip(t *testing.T) {
	src := &fakeSource{err: &dataset.SchemaError{Model: "source", Missing: []string{"price"}}}
	b := NewBreakerSource(src, BreakerConfig{Name: "test_schema", FailureThreshold: 1, Timeout: time.Hour}, zerolog.Nop())

	for i := 0; i < 3; i++ {
		if _, err := b.LoadTransactions(context.Background()); !errors.Is(err, dataset.ErrSchema) {
			t.Fatalf("LoadTransactions() error = %v, want ErrSchema", err)
		}
	}
	if b.State() != "closed" {
		t.Errorf("State() = %s, want closed", b.State())
	}
}
