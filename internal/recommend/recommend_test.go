// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/modelstore"
	"github.com/tomtom215/ordersight/internal/pipeline"
)

// purchase is a (customer, product, category) row.
type purchase struct {
	customer, product, category string
}

func table(rows []purchase) *dataset.Table {
	records := make([]dataset.Record, len(rows))
	for i, p := range rows {
		r := dataset.NewRecord()
		r.OrderID = fmt.Sprintf("o-%03d", i)
		r.CustomerID = p.customer
		r.ProductID = p.product
		r.ProductCategory = p.category
		records[i] = r
	}
	return dataset.NewTable(records, nil)
}

// basket: c1 bought only P1. P1 is most often bought with P2, once with P3,
// never with P4.
var basket = []purchase{
	{"c1", "P1", "toys"},
	{"c2", "P1", "toys"}, {"c2", "P2", "toys"},
	{"c3", "P1", "toys"}, {"c3", "P2", "toys"},
	{"c4", "P1", "toys"}, {"c4", "P3", "books"},
	{"c5", "P3", "books"}, {"c5", "P4", "books"},
}

func trained(t *testing.T, rows []purchase, cfg Config) *Engine {
	t.Helper()
	e := NewEngine(cfg, zerolog.Nop())
	if _, err := e.Train(context.Background(), table(rows)); err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	return e
}

func ids(recs []Recommendation) []string {
	out := make([]string, len(recs))
	for i, r := range recs {
		out[i] = r.ProductID
	}
	return out
}

func TestEngine_NotTrained(t *testing.T) {
	e := NewEngine(DefaultConfig(), zerolog.Nop())
	if e.Trained() {
		t.Fatal("new engine reports trained")
	}
	if _, err := e.SimilarProducts("P1", 5); !errors.Is(err, pipeline.ErrNotTrained) {
		t.Errorf("SimilarProducts() error = %v, want ErrNotTrained", err)
	}
	if _, err := e.CustomerRecommendations("c1", 5); !errors.Is(err, pipeline.ErrNotTrained) {
		t.Errorf("CustomerRecommendations() error = %v, want ErrNotTrained", err)
	}
	if _, err := e.CategoryRecommendations("toys", 5); !errors.Is(err, pipeline.ErrNotTrained) {
		t.Errorf("CategoryRecommendations() error = %v, want ErrNotTrained", err)
	}
	if info := e.Info(); info.Trained || info.Name != ModelName {
		t.Errorf("Info() = %+v", info)
	}
}

func TestEngine_CustomerRecommendations(t *testing.T) {
	e := trained(t, basket, DefaultConfig())

	recs, err := e.CustomerRecommendations("c1", 5)
	if err != nil {
		t.Fatal(err)
	}
	// P4 shares no customer with P1 and only fills the tail.
	if got, want := ids(recs), []string{"P2", "P3", "P4"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("CustomerRecommendations(c1) = %v, want %v", got, want)
	}
	if recs[2].Score != 0 {
		t.Errorf("P4 score = %v, want 0", recs[2].Score)
	}
	if math.Abs(recs[0].Score-1/math.Sqrt2) > 1e-12 {
		t.Errorf("P2 score = %v, want %v", recs[0].Score, 1/math.Sqrt2)
	}
	if math.Abs(recs[1].Score-1/(2*math.Sqrt2)) > 1e-12 {
		t.Errorf("P3 score = %v, want %v", recs[1].Score, 1/(2*math.Sqrt2))
	}

	recs, err = e.CustomerRecommendations("c1", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].ProductID != "P2" {
		t.Errorf("CustomerRecommendations(c1, 1) = %v", ids(recs))
	}

	// c2 bought P1 and P2; neither may come back.
	recs, err = e.CustomerRecommendations("c2", 10)
	if err != nil {
		t.Fatal(err)
	}
	for _, r := range recs {
		if r.ProductID == "P1" || r.ProductID == "P2" {
			t.Errorf("CustomerRecommendations(c2) recommends purchased %s", r.ProductID)
		}
	}

	if _, err := e.CustomerRecommendations("nobody", 5); !errors.Is(err, dataset.ErrNotFound) {
		t.Errorf("unknown customer error = %v, want ErrNotFound", err)
	}
}

func TestEngine_CustomerRecommendationsCountRepeatPurchases(t *testing.T) {
	// t bought A three times and B once. X is only weakly similar to A and
	// Y is strongly similar to B, but the repeat purchases of A put X first.
	rows := []purchase{
		{"t", "A", "toys"}, {"t", "A", "toys"}, {"t", "A", "toys"}, {"t", "B", "toys"},
		{"u", "A", "toys"}, {"u", "X", "toys"},
		{"v", "B", "toys"}, {"v", "Y", "toys"},
	}
	e := trained(t, rows, DefaultConfig())

	simAX, _ := e.Similarity("A", "X")
	simBY, _ := e.Similarity("B", "Y")
	if simAX >= simBY {
		t.Fatalf("fixture: sim(A, X) = %v should be below sim(B, Y) = %v", simAX, simBY)
	}

	recs, err := e.CustomerRecommendations("t", 2)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ids(recs), []string{"X", "Y"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("CustomerRecommendations(t) = %v, want %v", got, want)
	}
	if want := 3 / math.Sqrt(10); math.Abs(recs[0].Score-want) > 1e-12 {
		t.Errorf("X score = %v, want %v", recs[0].Score, want)
	}
	if want := 1 / math.Sqrt2; math.Abs(recs[1].Score-want) > 1e-12 {
		t.Errorf("Y score = %v, want %v", recs[1].Score, want)
	}
}

func TestEngine_SimilarProducts(t *testing.T) {
	e := trained(t, basket, DefaultConfig())

	recs, err := e.SimilarProducts("P1", 0)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ids(recs), []string{"P2", "P3", "P4"}; !reflect.DeepEqual(got, want) {
		t.Errorf("SimilarProducts(P1) = %v, want %v", got, want)
	}
	if len(recs) == 3 && (recs[2].Score != 0 || recs[2].Category != "books") {
		t.Errorf("padded product = %+v, want P4 with score 0 in books", recs[2])
	}

	recs, err = e.SimilarProducts("P4", 10)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ids(recs), []string{"P3", "P1", "P2"}; !reflect.DeepEqual(got, want) {
		t.Errorf("SimilarProducts(P4, 10) = %v, want %v", got, want)
	}
	for _, r := range recs {
		if r.ProductID == "P1" {
			t.Error("SimilarProducts returned the query product")
		}
	}

	if _, err := e.SimilarProducts("P9", 5); !errors.Is(err, dataset.ErrNotFound) {
		t.Errorf("unknown product error = %v, want ErrNotFound", err)
	}

	sim, err := e.Similarity("P2", "P4")
	if err != nil {
		t.Fatal(err)
	}
	if sim != 0 {
		t.Errorf("Similarity(P2, P4) = %v, want 0", sim)
	}
}

func TestEngine_SimilarityIsSymmetric(t *testing.T) {
	var rows []purchase
	for c := 0; c < 60; c++ {
		for k := 0; k < 1+c%4; k++ {
			p := (c*7 + k*3) % 23
			rows = append(rows, purchase{fmt.Sprintf("c%02d", c), fmt.Sprintf("p%02d", p), "cat"})
		}
	}
	e := trained(t, rows, Config{DefaultN: 5, Workers: 3})
	art, err := e.Artifact()
	if err != nil {
		t.Fatal(err)
	}
	for _, a := range art.Products {
		for _, b := range art.Products {
			ab, err := e.Similarity(a, b)
			if err != nil {
				t.Fatal(err)
			}
			ba, err := e.Similarity(b, a)
			if err != nil {
				t.Fatal(err)
			}
			if ab != ba {
				t.Fatalf("Similarity(%s, %s) = %v but Similarity(%s, %s) = %v", a, b, ab, b, a, ba)
			}
			if ab < 0 || ab > 1+1e-12 {
				t.Fatalf("Similarity(%s, %s) = %v out of [0, 1]", a, b, ab)
			}
		}
	}
}

func TestEngine_Deterministic(t *testing.T) {
	var rows []purchase
	for i := 0; i < 300; i++ {
		rows = append(rows, purchase{
			fmt.Sprintf("c%02d", i%41),
			fmt.Sprintf("p%02d", (i*13)%37),
			[]string{"toys", "books"}[i%2],
		})
	}
	one := trained(t, rows, Config{DefaultN: 5, Workers: 1})
	many := trained(t, rows, Config{DefaultN: 5, Workers: 8})
	a, _ := one.Artifact()
	b, _ := many.Artifact()
	if !reflect.DeepEqual(a.Neighbors, b.Neighbors) {
		t.Error("neighbor lists depend on the worker count")
	}
}

func TestEngine_CategoryRecommendations(t *testing.T) {
	rows := []purchase{
		{"c1", "a", "toys"}, {"c2", "a", "toys"}, {"c3", "a", "toys"},
		{"c1", "b", "toys"},
		{"c2", "c", "toys"}, {"c3", "c", "toys"},
		{"c1", "d", "books"},
		{"c4", "e", ""},
	}
	e := trained(t, rows, DefaultConfig())

	recs, err := e.CategoryRecommendations("toys", 5)
	if err != nil {
		t.Fatal(err)
	}
	if got, want := ids(recs), []string{"a", "c", "b"}; !reflect.DeepEqual(got, want) {
		t.Errorf("CategoryRecommendations(toys) = %v, want %v", got, want)
	}
	if recs[0].Score != 3 || recs[0].Category != "toys" {
		t.Errorf("top recommendation = %+v, want score 3 in toys", recs[0])
	}

	if _, err := e.CategoryRecommendations("garden", 5); !errors.Is(err, dataset.ErrNotFound) {
		t.Errorf("unknown category error = %v, want ErrNotFound", err)
	}
}

func TestEngine_TrainErrors(t *testing.T) {
	e := NewEngine(DefaultConfig(), zerolog.Nop())

	missing := dataset.NewTable(nil, []string{dataset.ColCustomerID})
	_, err := e.Train(context.Background(), missing)
	var schemaErr *dataset.SchemaError
	if !errors.As(err, &schemaErr) {
		t.Fatalf("Train() error = %v, want *SchemaError", err)
	}

	empty := table([]purchase{{"", "P1", "toys"}, {"c1", "", "toys"}})
	if _, err := e.Train(context.Background(), empty); !errors.Is(err, pipeline.ErrDegenerateData) {
		t.Errorf("Train() on empty interactions error = %v, want ErrDegenerateData", err)
	}
	if e.Trained() {
		t.Error("failed training published a model")
	}
}

func TestEngine_SaveAndLoad(t *testing.T) {
	store, err := modelstore.NewFileStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	fresh := NewEngine(DefaultConfig(), zerolog.Nop())
	if _, err := fresh.Load(ctx, store); !errors.Is(err, modelstore.ErrArtifactNotFound) {
		t.Fatalf("Load() from empty store error = %v, want ErrArtifactNotFound", err)
	}

	e := trained(t, basket, DefaultConfig())
	if _, err := e.Save(ctx, store); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := fresh.Load(ctx, store); err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want, _ := e.CustomerRecommendations("c1", 5)
	got, err := fresh.CustomerRecommendations("c1", 5)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("after reload = %+v, want %+v", got, want)
	}
	if info := fresh.Info(); !info.Trained || info.TrainRows != len(basket) {
		t.Errorf("Info() = %+v", info)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"zero n", Config{DefaultN: 0}, true},
		{"n too large", Config{DefaultN: 101}, true},
		{"negative workers", Config{DefaultN: 5, Workers: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
