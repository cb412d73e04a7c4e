// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package modelstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/tomtom215/ordersight/internal/metrics"
	"github.com/tomtom215/ordersight/internal/validation"
)

// BackendBadger is the metrics and metadata label of BadgerStore.
const BackendBadger = "badger"

// Key layout:
//
//	artifact:{name}:{version:010d} -> gob(storedFile)
//	latest:{name}                  -> json(Metadata)
//
// Zero-padded versions keep an artifact's keys in version order.
const (
	artifactKeyPrefix = "artifact:"
	latestKeyPrefix   = "latest:"
)

func artifactPrefix(name string) []byte {
	return []byte(artifactKeyPrefix + name + ":")
}

func artifactKey(name string, version int) []byte {
	return []byte(fmt.Sprintf("%s%s:%010d", artifactKeyPrefix, name, version))
}

func latestKey(name string) []byte {
	return []byte(latestKeyPrefix + name)
}

// BadgerStore stores artifact versions in BadgerDB.
type BadgerStore struct {
	db     *badger.DB
	owned  bool
	logger zerolog.Logger
}

// OpenBadgerStore opens a BadgerDB database in dir and owns it; Close closes
// the database.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func OpenBadgerStore(dir string, logger zerolog.Logger) (*BadgerStore, error) {
	db, err := badger.Open(badger.DefaultOptions(dir).WithLogger(nil))
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	s := NewBadgerStore(db, logger)
	s.owned = true
	return s, nil
}

// NewBadgerStore wraps an existing database. The caller keeps ownership.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewBadgerStore(db *badger.DB, logger zerolog.Logger) *BadgerStore {
	return &BadgerStore{
		db:     db,
		logger: logger.With().Str("component", "modelstore").Str("backend", BackendBadger).Logger(),
	}
}

// Save writes the payload and the latest-version pointer in one transaction.
// Badger's optimistic concurrency aborts one of two racing saves of the
// same name with badger.ErrConflict.
func (s *BadgerStore) Save(ctx context.Context, name string, v any) (meta Metadata, err error) {
	defer func() { metrics.RecordStoreOperation(BackendBadger, "save", err) }()

	if !validation.IsArtifactName(name) {
		return Metadata{}, fmt.Errorf("invalid artifact name %q", name)
	}
	if err := checkContext(ctx); err != nil {
		return Metadata{}, err
	}

	compressed, checksum, err := encodePayload(v)
	if err != nil {
		return Metadata{}, err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		prev, err := latestMetadata(txn, name)
		if err != nil && !errors.Is(err, ErrArtifactNotFound) {
			return err
		}
		meta = Metadata{
			Name:      name,
			Version:   prev.Version + 1,
			SavedAt:   time.Now().UTC(),
			Checksum:  checksum,
			SizeBytes: int64(len(compressed)),
			Backend:   BackendBadger,
		}
		data, err := encodeStored(&storedFile{Metadata: meta, CompressedData: compressed})
		if err != nil {
			return err
		}
		metaJSON, err := json.Marshal(meta)
		if err != nil {
			return fmt.Errorf("marshal metadata: %w", err)
		}
		if err := txn.Set(artifactKey(name, meta.Version), data); err != nil {
			return fmt.Errorf("set artifact: %w", err)
		}
		if err := txn.Set(latestKey(name), metaJSON); err != nil {
			return fmt.Errorf("set latest pointer: %w", err)
		}
		return nil
	})
	if err != nil {
		return Metadata{}, err
	}

	metrics.ModelStoreBytes.WithLabelValues(name).Set(float64(meta.SizeBytes))
	s.logger.Debug().
		Str("artifact", name).
		Int("version", meta.Version).
		Int64("size_bytes", meta.SizeBytes).
		Msg("Artifact saved")
	return meta, nil
}

// latestMetadata reads the latest-version pointer of name.
func latestMetadata(txn *badger.Txn, name string) (Metadata, error) {
	var meta Metadata
	item, err := txn.Get(latestKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return meta, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}
	if err != nil {
		return meta, fmt.Errorf("get latest pointer: %w", err)
	}
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &meta)
	})
	if err != nil {
		return meta, fmt.Errorf("unmarshal metadata: %w", err)
	}
	return meta, nil
}

// Load decodes the latest version of name into v.
func (s *BadgerStore) Load(ctx context.Context, name string, v any) (meta Metadata, err error) {
	defer func() {
		if !errors.Is(err, ErrArtifactNotFound) {
			metrics.RecordStoreOperation(BackendBadger, "load", err)
		}
	}()

	if err := checkContext(ctx); err != nil {
		return Metadata{}, err
	}

	var sf *storedFile
	err = s.db.View(func(txn *badger.Txn) error {
		latest, err := latestMetadata(txn, name)
		if err != nil {
			return err
		}
		item, err := txn.Get(artifactKey(name, latest.Version))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s v%d", ErrArtifactNotFound, name, latest.Version)
		}
		if err != nil {
			return fmt.Errorf("get artifact: %w", err)
		}
		data, err := item.ValueCopy(nil)
		if err != nil {
			return fmt.Errorf("copy artifact: %w", err)
		}
		sf, err = decodeStored(bytes.NewReader(data))
		return err
	})
	if err != nil {
		return Metadata{}, err
	}

	if err := decodePayload(sf.CompressedData, sf.Metadata.Checksum, v); err != nil {
		return Metadata{}, fmt.Errorf("load %s v%d: %w", name, sf.Metadata.Version, err)
	}
	return sf.Metadata, nil
}

// List returns the latest metadata of every artifact.
func (s *BadgerStore) List(ctx context.Context) ([]Metadata, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	var out []Metadata
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		prefix := []byte(latestKeyPrefix)
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var meta Metadata
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &meta)
			})
			if err != nil {
				return fmt.Errorf("unmarshal metadata: %w", err)
			}
			out = append(out, meta)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Prune deletes all but the newest keep versions of name.
func (s *BadgerStore) Prune(ctx context.Context, name string, keep int) (err error) {
	defer func() { metrics.RecordStoreOperation(BackendBadger, "prune", err) }()

	if err := checkContext(ctx); err != nil {
		return err
	}
	if keep < 1 {
		keep = 1
	}

	return s.db.Update(func(txn *badger.Txn) error {
		prefix := artifactPrefix(name)
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		it := txn.NewIterator(opts)

		var versions []int
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			v, convErr := strconv.Atoi(strings.TrimPrefix(key, string(prefix)))
			if convErr != nil {
				continue
			}
			versions = append(versions, v)
		}
		it.Close()

		sort.Sort(sort.Reverse(sort.IntSlice(versions)))
		for _, v := range versions[min(keep, len(versions)):] {
			if err := txn.Delete(artifactKey(name, v)); err != nil {
				return fmt.Errorf("delete %s v%d: %w", name, v, err)
			}
			s.logger.Debug().Str("artifact", name).Int("version", v).Msg("Pruned artifact version")
		}
		return nil
	})
}

// Close closes the database when the store opened it.
func (s *BadgerStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.db.Close()
}
