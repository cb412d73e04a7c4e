// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package registry

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"

	"github.com/tomtom215/ordersight/internal/dataset"
	"github.com/tomtom215/ordersight/internal/metrics"
	"github.com/tomtom215/ordersight/internal/modelstore"
	"github.com/tomtom215/ordersight/internal/pipeline"
	"github.com/tomtom215/ordersight/internal/predict"
	"github.com/tomtom215/ordersight/internal/recommend"
	"github.com/tomtom215/ordersight/internal/segment"
)

type fakeArtifact struct {
	Value int
}

// fakeModel counts lifecycle calls.
type fakeModel struct {
	name      string
	trained   atomic.Bool
	retrains  atomic.Int32
	loads     atomic.Int32
	failTrain error
}

func (m *fakeModel) Name() string  { return m.name }
func (m *fakeModel) Trained() bool { return m.trained.Load() }

func (m *fakeModel) Retrain(ctx context.Context, t *dataset.Table) error {
	m.retrains.Add(1)
	time.Sleep(10 * time.Millisecond)
	if m.failTrain != nil {
		return m.failTrain
	}
	m.trained.Store(true)
	return nil
}

func (m *fakeModel) Save(ctx context.Context, store modelstore.Store) (modelstore.Metadata, error) {
	return store.Save(ctx, m.name, fakeArtifact{Value: int(m.retrains.Load())})
}

func (m *fakeModel) Load(ctx context.Context, store modelstore.Store) (modelstore.Metadata, error) {
	m.loads.Add(1)
	var a fakeArtifact
	meta, err := store.Load(ctx, m.name, &a)
	if err == nil {
		m.trained.Store(true)
	}
	return meta, err
}

func (m *fakeModel) Info() pipeline.Info {
	return pipeline.Info{Name: m.name, Trained: m.trained.Load()}
}

type fakeSource struct {
	calls atomic.Int32
	err   error
}

func (s *fakeSource) LoadTransactions(context.Context) (*dataset.Table, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	return dataset.NewTable(nil, nil), nil
}

// gatedSource blocks LoadTransactions until release is closed or the call's
// context ends.
type gatedSource struct {
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (s *gatedSource) LoadTransactions(ctx context.Context) (*dataset.Table, error) {
	s.once.Do(func() { close(s.started) })
	select {
	case <-s.release:
		return dataset.NewTable(nil, nil), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func newStore(t *testing.T) modelstore.Store {
	t.Helper()
	store, err := modelstore.NewFileStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	return store
}

func TestEntry_TrainsOnceOnMiss(t *testing.T) {
	store := newStore(t)
	source := &fakeSource{}
	model := &fakeModel{name: "train_once"}
	entry := NewEntry(model, Options{Store: store, Source: source, TrainIfMissing: true, KeepVersions: 2}, zerolog.Nop())

	var changes atomic.Int32
	entry.OnChange(func() { changes.Add(1) })

	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = entry.Get(context.Background())
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("Get() #%d error = %v", i, err)
		}
	}
	if got := model.retrains.Load(); got != 1 {
		t.Errorf("trained %d times, want 1", got)
	}
	if got := source.calls.Load(); got != 1 {
		t.Errorf("source loaded %d times, want 1", got)
	}
	if got := changes.Load(); got != 1 {
		t.Errorf("OnChange fired %d times, want 1", got)
	}
	if !entry.Ready() {
		t.Error("entry not ready after Get")
	}

	stored, err := store.List(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(stored) != 1 || stored[0].Name != "train_once" {
		t.Errorf("stored = %+v, want one train_once artifact", stored)
	}
	if got := testutil.ToFloat64(metrics.RegistryLoads.WithLabelValues("train_once", SourceTrained)); got != 1 {
		t.Errorf("registry loads (trained) = %v, want 1", got)
	}
}

func TestEntry_LoadOutlivesFirstCaller(t *testing.T) {
	source := &gatedSource{started: make(chan struct{}), release: make(chan struct{})}
	model := &fakeModel{name: "outlives_caller"}
	entry := NewEntry(model, Options{Store: newStore(t), Source: source, TrainIfMissing: true}, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() { first <- entry.Ensure(ctx) }()
	<-source.started

	second := make(chan error, 1)
	go func() { second <- entry.Ensure(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	cancel()
	time.Sleep(20 * time.Millisecond)
	close(source.release)

	if err := <-first; !errors.Is(err, context.Canceled) {
		t.Errorf("cancelled caller error = %v, want context.Canceled", err)
	}
	if err := <-second; err != nil {
		t.Errorf("waiting caller error = %v, want nil", err)
	}
	if !entry.Ready() {
		t.Error("entry not ready after the shared load finished")
	}
	if got := model.retrains.Load(); got != 1 {
		t.Errorf("trained %d times, want 1", got)
	}
}

func TestEntry_LoadsFromStore(t *testing.T) {
	store := newStore(t)
	if _, err := store.Save(context.Background(), "from_store", fakeArtifact{Value: 7}); err != nil {
		t.Fatal(err)
	}
	source := &fakeSource{}
	model := &fakeModel{name: "from_store"}
	entry := NewEntry(model, Options{Store: store, Source: source, TrainIfMissing: true}, zerolog.Nop())

	if _, err := entry.Get(context.Background()); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if _, err := entry.Get(context.Background()); err != nil {
		t.Fatalf("second Get() error = %v", err)
	}
	if model.loads.Load() != 1 || model.retrains.Load() != 0 || source.calls.Load() != 0 {
		t.Errorf("loads=%d retrains=%d source=%d, want 1/0/0",
			model.loads.Load(), model.retrains.Load(), source.calls.Load())
	}
	if got := testutil.ToFloat64(metrics.RegistryLoads.WithLabelValues("from_store", SourceStore)); got != 1 {
		t.Errorf("registry loads (store) = %v, want 1", got)
	}
}

func TestEntry_MissWithoutTraining(t *testing.T) {
	entry := NewEntry(&fakeModel{name: "no_training"}, Options{Store: newStore(t)}, zerolog.Nop())
	if _, err := entry.Get(context.Background()); !errors.Is(err, pipeline.ErrNotTrained) {
		t.Errorf("Get() error = %v, want ErrNotTrained", err)
	}
	if entry.Ready() {
		t.Error("entry ready without a model")
	}
}

func TestEntry_FailuresAreNotMemoized(t *testing.T) {
	store := newStore(t)
	model := &fakeModel{name: "fails", failTrain: pipeline.ErrDegenerateData}
	source := &fakeSource{}
	entry := NewEntry(model, Options{Store: store, Source: source, TrainIfMissing: true}, zerolog.Nop())

	for i := 0; i < 2; i++ {
		if _, err := entry.Get(context.Background()); !errors.Is(err, pipeline.ErrDegenerateData) {
			t.Fatalf("Get() error = %v, want ErrDegenerateData", err)
		}
	}
	if got := model.retrains.Load(); got != 2 {
		t.Errorf("trained %d times, want a retry per Get", got)
	}
	if stored, _ := store.List(context.Background()); len(stored) != 0 {
		t.Errorf("failed training persisted %+v", stored)
	}

	source.err = errors.New("database down")
	if _, err := entry.Get(context.Background()); err == nil {
		t.Error("Get() succeeded with a failing source")
	}
}

func TestEntry_InvalidateReloads(t *testing.T) {
	store := newStore(t)
	model := &fakeModel{name: "invalidate"}
	entry := NewEntry(model, Options{Store: store, Source: &fakeSource{}, TrainIfMissing: true}, zerolog.Nop())
	if _, err := entry.Get(context.Background()); err != nil {
		t.Fatal(err)
	}

	entry.Invalidate()
	if entry.Ready() {
		t.Fatal("entry still ready after Invalidate")
	}
	if got := testutil.ToFloat64(metrics.RegistryInvalidations.WithLabelValues("invalidate")); got != 1 {
		t.Errorf("invalidations = %v, want 1", got)
	}

	if _, err := entry.Get(context.Background()); err != nil {
		t.Fatal(err)
	}
	// The first Get missed the store, the second found the persisted artifact.
	if model.loads.Load() != 2 || model.retrains.Load() != 1 {
		t.Errorf("loads=%d retrains=%d, want 2/1", model.loads.Load(), model.retrains.Load())
	}
}

func TestEntry_RefreshPrunes(t *testing.T) {
	dir := t.TempDir()
	store, err := modelstore.NewFileStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	model := &fakeModel{name: "refresh"}
	entry := NewEntry(model, Options{Store: store, KeepVersions: 2}, zerolog.Nop())
	table := dataset.NewTable(nil, nil)

	for i := 0; i < 3; i++ {
		if err := entry.Refresh(context.Background(), table); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
	}
	files, err := filepath.Glob(filepath.Join(dir, "refresh_v*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Errorf("kept %v, want 2 versions", files)
	}
	if !entry.Ready() {
		t.Error("entry not ready after Refresh")
	}

	model.failTrain = pipeline.ErrDegenerateData
	if err := entry.Refresh(context.Background(), table); !errors.Is(err, pipeline.ErrDegenerateData) {
		t.Errorf("Refresh() error = %v, want ErrDegenerateData", err)
	}
	if !entry.Ready() {
		t.Error("failed refresh dropped the serving model")
	}
}

func TestRegistry_Handles(t *testing.T) {
	opts := pipeline.DefaultOptions()
	forest := pipeline.ForestConfig{Trees: 5, MaxDepth: 4, MinSamplesLeaf: 1}
	reg := New(Models{
		Segments:    segment.NewEngine(segment.DefaultConfig(), 42, zerolog.Nop()),
		Recommender: recommend.NewEngine(recommend.DefaultConfig(), zerolog.Nop()),
		Churn:       predict.NewChurnPredictor(predict.ChurnConfig{InactiveDays: 90, Forest: forest}, opts, zerolog.Nop()),
		Delivery:    predict.NewDeliveryPredictor(forest, opts, zerolog.Nop()),
		Review:      predict.NewReviewPredictor(forest, opts, zerolog.Nop()),
		Anomaly:     predict.NewAnomalyDetector(predict.DefaultAnomalyConfig(), opts, zerolog.Nop()),
	}, Options{Store: newStore(t)}, zerolog.Nop())

	want := []string{
		segment.ModelName,
		recommend.ModelName,
		predict.ChurnModelName,
		predict.DeliveryModelName,
		predict.ReviewModelName,
		predict.AnomalyModelName,
	}
	infos := reg.Infos()
	if len(infos) != len(want) {
		t.Fatalf("Infos() returned %d models, want %d", len(infos), len(want))
	}
	for i, name := range want {
		if infos[i].Name != name || infos[i].Trained {
			t.Errorf("Infos()[%d] = %+v, want untrained %s", i, infos[i], name)
		}
		if h, ok := reg.Handle(name); !ok || h.Name() != name {
			t.Errorf("Handle(%q) not found", name)
		}
	}
	if _, ok := reg.Handle("nope"); ok {
		t.Error("Handle(nope) found")
	}

	err := reg.EnsureAll(context.Background())
	if !errors.Is(err, pipeline.ErrNotTrained) {
		t.Errorf("EnsureAll() on empty store error = %v, want ErrNotTrained", err)
	}
}
