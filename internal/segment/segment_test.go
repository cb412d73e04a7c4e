// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package segment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/modelstore"
	"github.com/tomtom215/ordersight/internal/pipeline"
)

var anchor = time.Date(2018, 9, 1, 12, 0, 0, 0, time.UTC)

// customer appends orders rows for id, last bought daysAgo days before the
// anchor and spending monetary in total. Every other feature is identical
// across customers.
func customer(records []dataset.Record, id string, orders int, monetary float64, daysAgo int) []dataset.Record {
	for i := 0; i < orders; i++ {
		r := dataset.NewRecord()
		r.OrderID = fmt.Sprintf("%s-o%d", id, i)
		r.OrderStatus = "delivered"
		r.CustomerID = id
		r.ProductCategory = "toys"
		r.PurchasedAt = anchor.AddDate(0, 0, -daysAgo-i)
		r.DeliveredAt = r.PurchasedAt.AddDate(0, 0, 7)
		r.PaymentValue = monetary / float64(orders)
		r.ReviewScore = 5
		records = append(records, r)
	}
	return records
}

// blobs builds three well separated groups of size customers each.
func blobs(size int) *dataset.Table {
	var records []dataset.Record
	groups := []struct {
		orders   int
		monetary float64
		daysAgo  int
	}{
		{1, 100, 200},
		{3, 1000, 60},
		{8, 5000, 0},
	}
	for g, shape := range groups {
		for i := 0; i < size; i++ {
			id := fmt.Sprintf("g%d-c%02d", g, i)
			records = customer(records, id, shape.orders, shape.monetary+float64(i), shape.daysAgo+i%3)
		}
	}
	return dataset.NewTable(records, nil)
}

func TestEngine_NotTrained(t *testing.T) {
	e := NewEngine(DefaultConfig(), 42, zerolog.Nop())
	if _, err := e.Profiles(); !errors.Is(err, pipeline.ErrNotTrained) {
		t.Errorf("Profiles() error = %v, want ErrNotTrained", err)
	}
	if _, err := e.CustomerSegment("c1"); !errors.Is(err, pipeline.ErrNotTrained) {
		t.Errorf("CustomerSegment() error = %v, want ErrNotTrained", err)
	}
	if _, err := e.Assign(context.Background(), blobs(2)); !errors.Is(err, pipeline.ErrNotTrained) {
		t.Errorf("Assign() error = %v, want ErrNotTrained", err)
	}
}

func TestEngine_SeparatesBestCustomer(t *testing.T) {
	var records []dataset.Record
	records = customer(records, "a", 5, 500, 0)
	records = customer(records, "b", 1, 50, 10)
	records = customer(records, "c", 1, 20, 100)

	cfg := DefaultConfig()
	cfg.Clusters = 2
	e := NewEngine(cfg, 42, zerolog.Nop())
	art, err := e.Train(context.Background(), dataset.NewTable(records, nil))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if got, want := art.Labels, []int{0, 1, 1}; !reflect.DeepEqual(got, want) {
		t.Fatalf("labels = %v, want %v", got, want)
	}

	profiles, err := e.Profiles()
	if err != nil {
		t.Fatal(err)
	}
	if profiles[0].Size != 1 || profiles[0].Monetary != 500 || profiles[0].Frequency != 5 {
		t.Errorf("profile 0 = %+v", profiles[0])
	}
	if profiles[1].Size != 2 || profiles[1].Monetary != 35 || profiles[1].Recency != 55 {
		t.Errorf("profile 1 = %+v", profiles[1])
	}

	seg, err := e.CustomerSegment("c")
	if err != nil {
		t.Fatal(err)
	}
	if seg.Segment != 1 {
		t.Errorf("CustomerSegment(c) = %d, want 1", seg.Segment)
	}
	if _, err := e.CustomerSegment("zz"); !errors.Is(err, dataset.ErrNotFound) {
		t.Errorf("unknown customer error = %v, want ErrNotFound", err)
	}
}

func TestEngine_SelectsKBySilhouette(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxK = 6
	e := NewEngine(cfg, 42, zerolog.Nop())
	art, err := e.Train(context.Background(), blobs(20))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if art.K() != 3 {
		t.Fatalf("k = %d, want 3 (scores %v)", art.K(), art.SilhouetteByK)
	}
	if len(art.SilhouetteByK) != 5 {
		t.Errorf("swept %d values of k, want 5", len(art.SilhouetteByK))
	}
	if art.Silhouette < 0.9 {
		t.Errorf("silhouette = %v, want >= 0.9", art.Silhouette)
	}

	seen := make(map[int]bool)
	for _, l := range art.Labels {
		if l < 0 || l >= art.K() {
			t.Fatalf("label %d outside 0..%d", l, art.K()-1)
		}
		seen[l] = true
	}
	if len(seen) != art.K() {
		t.Errorf("labels use %d of %d segments", len(seen), art.K())
	}
	total := 0
	for _, p := range art.Profiles {
		total += p.Size
	}
	if total != len(art.Customers) {
		t.Errorf("profile sizes sum to %d, want %d", total, len(art.Customers))
	}

	// Segment 0 is the biggest spender group.
	seg, err := e.CustomerSegment("g2-c00")
	if err != nil {
		t.Fatal(err)
	}
	if seg.Segment != 0 {
		t.Errorf("CustomerSegment(g2-c00) = %d, want 0", seg.Segment)
	}
	for i := 1; i < len(art.Profiles); i++ {
		if art.Profiles[i].Monetary > art.Profiles[i-1].Monetary {
			t.Errorf("profiles not ordered by monetary: %+v", art.Profiles)
		}
	}
}

func TestEngine_Deterministic(t *testing.T) {
	table := blobs(15)
	one := NewEngine(Config{MaxK: 5, NInit: 4, MaxIter: 100, Workers: 1}, 7, zerolog.Nop())
	many := NewEngine(Config{MaxK: 5, NInit: 4, MaxIter: 100, Workers: 4}, 7, zerolog.Nop())
	a, err := one.Train(context.Background(), table)
	if err != nil {
		t.Fatal(err)
	}
	b, err := many.Train(context.Background(), table)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Labels, b.Labels) || !reflect.DeepEqual(a.Centroids, b.Centroids) {
		t.Error("identical input and seed produced different segmentations")
	}
}

func TestEngine_AssignMatchesTraining(t *testing.T) {
	table := blobs(10)
	e := NewEngine(DefaultConfig(), 42, zerolog.Nop())
	art, err := e.Train(context.Background(), table)
	if err != nil {
		t.Fatal(err)
	}
	got, err := e.Assign(context.Background(), table)
	if err != nil {
		t.Fatal(err)
	}
	for i, a := range got {
		if a.CustomerID != art.Customers[i] || a.Segment != art.Labels[i] {
			t.Fatalf("Assign()[%d] = %+v, trained label %d for %s", i, a, art.Labels[i], art.Customers[i])
		}
	}
}

// identical builds n customers with the same orders, spend and recency.
func identical(n int) *dataset.Table {
	var records []dataset.Record
	for i := 0; i < n; i++ {
		records = customer(records, fmt.Sprintf("c%d", i), 1, 100, 5)
	}
	return dataset.NewTable(records, nil)
}

func TestEngine_DuplicateProfilesFillEveryCluster(t *testing.T) {
	// Six customers but only two distinct profiles: k is capped at 2.
	var records []dataset.Record
	for i := 0; i < 3; i++ {
		records = customer(records, fmt.Sprintf("low%d", i), 1, 100, 200)
		records = customer(records, fmt.Sprintf("high%d", i), 3, 1000, 5)
	}
	e := NewEngine(DefaultConfig(), 42, zerolog.Nop())
	art, err := e.Train(context.Background(), dataset.NewTable(records, nil))
	if err != nil {
		t.Fatalf("Train() error = %v", err)
	}
	if art.K() != 2 {
		t.Fatalf("k = %d, want 2", art.K())
	}
	sizes := make([]int, art.K())
	for _, l := range art.Labels {
		sizes[l]++
	}
	for j, size := range sizes {
		if size != 3 {
			t.Errorf("segment %d has %d customers, want 3", j, size)
		}
	}
	for _, p := range art.Profiles {
		if p.Size == 0 {
			t.Errorf("profile %d is empty", p.Segment)
		}
	}
}

func TestEngine_TrainErrors(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		table   *dataset.Table
		wantErr error
	}{
		{
			name:    "missing column",
			cfg:     DefaultConfig(),
			table:   dataset.NewTable(nil, []string{dataset.ColCustomerID}),
			wantErr: dataset.ErrSchema,
		},
		{
			name:    "too few customers to sweep",
			cfg:     DefaultConfig(),
			table:   dataset.NewTable(customer(customer(nil, "a", 1, 10, 0), "b", 1, 20, 5), nil),
			wantErr: pipeline.ErrDegenerateData,
		},
		{
			name:    "identical customers",
			cfg:     DefaultConfig(),
			table:   identical(4),
			wantErr: pipeline.ErrDegenerateData,
		},
		{
			name:    "fixed clusters over identical customers",
			cfg:     Config{Clusters: 2, MaxK: 10, NInit: 3, MaxIter: 50},
			table:   identical(4),
			wantErr: pipeline.ErrDegenerateData,
		},
		{
			name:    "more clusters than customers",
			cfg:     Config{Clusters: 4, MaxK: 10, NInit: 1, MaxIter: 10},
			table:   dataset.NewTable(customer(customer(nil, "a", 1, 10, 0), "b", 1, 20, 5), nil),
			wantErr: pipeline.ErrDegenerateData,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(tt.cfg, 42, zerolog.Nop())
			if _, err := e.Train(context.Background(), tt.table); !errors.Is(err, tt.wantErr) {
				t.Errorf("Train() error = %v, want %v", err, tt.wantErr)
			}
			if e.Trained() {
				t.Error("failed training published a model")
			}
		})
	}
}

func TestEngine_SaveAndLoad(t *testing.T) {
	store, err := modelstore.NewFileStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	e := NewEngine(DefaultConfig(), 42, zerolog.Nop())
	if _, err := e.Train(ctx, blobs(8)); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Save(ctx, store); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded := NewEngine(DefaultConfig(), 42, zerolog.Nop())
	if _, err := loaded.Load(ctx, store); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	want, _ := e.Profiles()
	got, err := loaded.Profiles()
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("profiles after reload = %+v, want %+v", got, want)
	}
	info := loaded.Info()
	if !info.Trained || info.Params["k"] != float64(len(want)) {
		t.Errorf("Info() = %+v", info)
	}
}

func TestSilhouette(t *testing.T) {
	x := [][]float64{{0, 0}, {0, 1}, {10, 0}, {10, 1}}
	got := silhouette(x, []int{0, 0, 1, 1}, 2, sampleIndices(4, 0, 1))
	// a = 1, b = mean(10, sqrt(101)) for every point.
	b := (10 + math.Sqrt(101)) / 2
	want := (b - 1) / b
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("silhouette = %v, want %v", got, want)
	}

	if got := silhouette(x, []int{0, 1, 2, 3}, 4, sampleIndices(4, 0, 1)); got != 0 {
		t.Errorf("silhouette of singletons = %v, want 0", got)
	}
}

func TestDistinctRows(t *testing.T) {
	x := [][]float64{{1, 2}, {1, 2}, {2, 1}, {1, 2}}
	if got := distinctRows(x); got != 2 {
		t.Errorf("distinctRows() = %d, want 2", got)
	}
	if !nonEmpty([]int{0, 1, 1}, 2) || nonEmpty([]int{0, 0, 0}, 2) {
		t.Error("nonEmpty() misreports cluster coverage")
	}
}

func TestKMeans_SplitsObviousGroups(t *testing.T) {
	x := [][]float64{{0, 0}, {0.1, 0}, {0, 0.1}, {5, 5}, {5.1, 5}, {5, 5.1}}
	c := kmeans(x, kmeansParams{k: 2, nInit: 3, maxIter: 50, seed: 1})
	if c.labels[0] != c.labels[1] || c.labels[1] != c.labels[2] {
		t.Errorf("first group split: %v", c.labels)
	}
	if c.labels[3] != c.labels[4] || c.labels[4] != c.labels[5] || c.labels[0] == c.labels[3] {
		t.Errorf("second group wrong: %v", c.labels)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"fixed k", Config{Clusters: 4, MaxK: 10, NInit: 1, MaxIter: 1}, false},
		{"k of one", Config{Clusters: 1, MaxK: 10, NInit: 1, MaxIter: 1}, true},
		{"max k of one", Config{MaxK: 1, NInit: 1, MaxIter: 1}, true},
		{"no restarts", Config{MaxK: 5, NInit: 0, MaxIter: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
