// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package modelstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
)

type testArtifact struct {
	Name    string
	Weights []float64
	Labels  map[string]int
}

func newTestBadger(t *testing.T) *BadgerStore {
	t.Helper()
	db, err := badger.Open(badger.DefaultOptions("").WithInMemory(true).WithLogger(nil))
	if err != nil {
		t.Fatalf("open in-memory badger: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return NewBadgerStore(db, zerolog.Nop())
}

func newTestFileStore(t *testing.T) *FileStore {
	t.Helper()
	s, err := NewFileStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	return s
}

// backends runs fn against every Store implementation.
func backends(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Helper()
	t.Run(BackendFile, func(t *testing.T) { fn(t, newTestFileStore(t)) })
	t.Run(BackendBadger, func(t *testing.T) { fn(t, newTestBadger(t)) })
}

func TestStore_SaveAndLoad(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		want := testArtifact{
			Name:    "churn",
			Weights: []float64{0.25, 0.5, 0.25},
			Labels:  map[string]int{"a": 0, "b": 1},
		}

		meta, err := s.Save(ctx, "churn_predictor", &want)
		if err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if meta.Version != 1 {
			t.Errorf("Version = %d, want 1", meta.Version)
		}
		if meta.Checksum == "" || meta.SizeBytes == 0 {
			t.Errorf("metadata missing checksum or size: %+v", meta)
		}

		var got testArtifact
		loaded, err := s.Load(ctx, "churn_predictor", &got)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("Load() = %+v, want %+v", got, want)
		}
		if loaded.Version != meta.Version || loaded.Checksum != meta.Checksum {
			t.Errorf("loaded metadata = %+v, saved %+v", loaded, meta)
		}
	})
}

func TestStore_LoadMissing(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		var got testArtifact
		_, err := s.Load(context.Background(), "anomaly_detector", &got)
		if !errors.Is(err, ErrArtifactNotFound) {
			t.Errorf("Load() error = %v, want ErrArtifactNotFound", err)
		}
	})
}

func TestStore_LatestVersionWins(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 1; i <= 3; i++ {
			meta, err := s.Save(ctx, "review_predictor", &testArtifact{Weights: []float64{float64(i)}})
			if err != nil {
				t.Fatalf("Save(%d) error = %v", i, err)
			}
			if meta.Version != i {
				t.Errorf("Save(%d) version = %d", i, meta.Version)
			}
		}

		var got testArtifact
		meta, err := s.Load(ctx, "review_predictor", &got)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if meta.Version != 3 || got.Weights[0] != 3 {
			t.Errorf("Load() version %d weights %v, want version 3", meta.Version, got.Weights)
		}
	})
}

func TestStore_InvalidName(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		for _, name := range []string{"", "Churn", "../etc", "has space", "1model"} {
			if _, err := s.Save(context.Background(), name, &testArtifact{}); err == nil {
				t.Errorf("Save(%q) succeeded, want error", name)
			}
		}
	})
}

func TestStore_ListAndPrune(t *testing.T) {
	backends(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		for i := 0; i < 4; i++ {
			if _, err := s.Save(ctx, "delivery_predictor", &testArtifact{Name: "d"}); err != nil {
				t.Fatalf("Save() error = %v", err)
			}
		}
		if _, err := s.Save(ctx, "churn_predictor", &testArtifact{Name: "c"}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}

		list, err := s.List(ctx)
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(list) != 2 {
			t.Fatalf("List() returned %d entries, want 2", len(list))
		}
		if list[0].Name != "churn_predictor" || list[1].Name != "delivery_predictor" {
			t.Errorf("List() not sorted by name: %+v", list)
		}
		if list[1].Version != 4 {
			t.Errorf("delivery_predictor latest version = %d, want 4", list[1].Version)
		}

		if err := s.Prune(ctx, "delivery_predictor", 2); err != nil {
			t.Fatalf("Prune() error = %v", err)
		}

		var got testArtifact
		meta, err := s.Load(ctx, "delivery_predictor", &got)
		if err != nil {
			t.Fatalf("Load() after prune error = %v", err)
		}
		if meta.Version != 4 {
			t.Errorf("Load() after prune version = %d, want 4", meta.Version)
		}

		// The next save continues the sequence.
		meta, err = s.Save(ctx, "delivery_predictor", &testArtifact{})
		if err != nil {
			t.Fatalf("Save() after prune error = %v", err)
		}
		if meta.Version != 5 {
			t.Errorf("Save() after prune version = %d, want 5", meta.Version)
		}
	})
}

func TestFileStore_PruneRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := NewFileStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := s.Save(ctx, "anomaly_detector", &testArtifact{}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	if err := s.Prune(ctx, "anomaly_detector", 1); err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 || entries[0].Name() != "anomaly_detector_v3.gob.gz" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("remaining files = %v, want [anomaly_detector_v3.gob.gz]", names)
	}
}

func TestFileStore_ReopenFindsVersions(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewFileStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := s.Save(ctx, "product_recommender", &testArtifact{Weights: []float64{float64(i)}}); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
	}
	// Unrelated files are ignored by the scan.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o600); err != nil {
		t.Fatal(err)
	}

	reopened, err := NewFileStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore() reopen error = %v", err)
	}
	var got testArtifact
	meta, err := reopened.Load(ctx, "product_recommender", &got)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if meta.Version != 2 || got.Weights[0] != 1 {
		t.Errorf("Load() = v%d %v, want v2 [1]", meta.Version, got.Weights)
	}
}

func TestFileStore_CorruptArtifact(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	s, err := NewFileStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	if _, err := s.Save(ctx, "churn_predictor", &testArtifact{Name: "x"}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "churn_predictor_v1.gob.gz"), []byte("garbage"), 0o600); err != nil {
		t.Fatal(err)
	}

	var got testArtifact
	if _, err := s.Load(ctx, "churn_predictor", &got); err == nil {
		t.Error("Load() of corrupt artifact succeeded, want error")
	}
}

func TestDecodePayload_ChecksumMismatch(t *testing.T) {
	compressed, _, err := encodePayload(&testArtifact{Name: "x"})
	if err != nil {
		t.Fatalf("encodePayload() error = %v", err)
	}
	var got testArtifact
	if err := decodePayload(compressed, "deadbeef", &got); err == nil {
		t.Error("decodePayload() with wrong checksum succeeded, want error")
	}
}

func TestParseArtifactFilename(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		file    string
		name    string
		version int
		ok      bool
	}{
		{"churn_predictor_v3.gob.gz", "churn_predictor", 3, true},
		{"a_v_v12.gob.gz", "a_v", 12, true},
		{"churn_predictor_v0.gob.gz", "", 0, false},
		{"churn_predictor.gob.gz", "", 0, false},
		{"churn_predictor_v2.json", "", 0, false},
		{".churn_predictor-123.tmp", "", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			if err := os.WriteFile(filepath.Join(dir, tt.file), nil, 0o600); err != nil {
				t.Fatal(err)
			}
			entries, err := os.ReadDir(dir)
			if err != nil {
				t.Fatal(err)
			}
			for _, e := range entries {
				if e.Name() != tt.file {
					continue
				}
				name, version, ok := parseArtifactFilename(e)
				if name != tt.name || version != tt.version || ok != tt.ok {
					t.Errorf("parseArtifactFilename(%q) = (%q, %d, %v), want (%q, %d, %v)",
						tt.file, name, version, ok, tt.name, tt.version, tt.ok)
				}
			}
		})
	}
}

func TestOpen_UnknownBackend(t *testing.T) {
	if _, err := Open("s3", t.TempDir(), zerolog.Nop()); err == nil {
		t.Error("Open(s3) succeeded, want error")
	}
}
