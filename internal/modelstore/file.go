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
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/ordersight/internal/metrics"
	"github.com/tomtom215/ordersight/internal/validation"
)

// BackendFile is the metrics and metadata label of FileStore.
const BackendFile = "file"

const artifactExt = ".gob.gz"

// FileStore stores each artifact version as {name}_v{version}.gob.gz in a
// single directory.
type FileStore struct {
	baseDir string
	logger  zerolog.Logger

	mu sync.RWMutex
	// versions tracks the latest version per artifact name.
	versions map[string]int
}

// NewFileStore opens (creating if needed) a store rooted at baseDir and
// indexes the versions already on disk.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewFileStore(baseDir string, logger zerolog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(baseDir, 0o750); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	s := &FileStore{
		baseDir:  baseDir,
		logger:   logger.With().Str("component", "modelstore").Str("backend", BackendFile).Logger(),
		versions: make(map[string]int),
	}
	if err := s.scan(); err != nil {
		return nil, fmt.Errorf("scan existing artifacts: %w", err)
	}
	return s, nil
}

// scan rebuilds the version index from the directory listing.
func (s *FileStore) scan() error {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		name, version, ok := parseArtifactFilename(entry)
		if !ok {
			continue
		}
		if current, seen := s.versions[name]; !seen || version > current {
			s.versions[name] = version
		}
	}
	return nil
}

// parseArtifactFilename extracts the name and version from "churn_predictor_v3.gob.gz".
func parseArtifactFilename(entry os.DirEntry) (name string, version int, ok bool) {
	if entry.IsDir() {
		return "", 0, false
	}
	base, found := strings.CutSuffix(entry.Name(), artifactExt)
	if !found {
		return "", 0, false
	}
	idx := strings.LastIndex(base, "_v")
	if idx <= 0 {
		return "", 0, false
	}
	if _, err := fmt.Sscanf(base[idx+2:], "%d", &version); err != nil || version < 1 {
		return "", 0, false
	}
	return base[:idx], version, true
}

func (s *FileStore) path(name string, version int) string {
	return filepath.Join(s.baseDir, fmt.Sprintf("%s_v%d%s", name, version, artifactExt))
}

// Save writes v as the next version of name. The file is written under a
// temporary name and renamed into place.
func (s *FileStore) Save(ctx context.Context, name string, v any) (meta Metadata, err error) {
	defer func() { metrics.RecordStoreOperation(BackendFile, "save", err) }()

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

	s.mu.Lock()
	defer s.mu.Unlock()

	meta = Metadata{
		Name:      name,
		Version:   s.versions[name] + 1,
		SavedAt:   time.Now().UTC(),
		Checksum:  checksum,
		SizeBytes: int64(len(compressed)),
		Backend:   BackendFile,
	}
	data, err := encodeStored(&storedFile{Metadata: meta, CompressedData: compressed})
	if err != nil {
		return Metadata{}, err
	}

	tmp, err := os.CreateTemp(s.baseDir, "."+name+"-*.tmp")
	if err != nil {
		return Metadata{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName) //nolint:errcheck // best-effort cleanup after a failed write
		}
	}()
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close() //nolint:errcheck // write error takes precedence
		return Metadata{}, fmt.Errorf("write artifact: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close() //nolint:errcheck // sync error takes precedence
		return Metadata{}, fmt.Errorf("sync artifact: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return Metadata{}, fmt.Errorf("close artifact: %w", err)
	}
	if err = os.Rename(tmpName, s.path(name, meta.Version)); err != nil {
		return Metadata{}, fmt.Errorf("publish artifact: %w", err)
	}

	s.versions[name] = meta.Version
	metrics.ModelStoreBytes.WithLabelValues(name).Set(float64(meta.SizeBytes))
	s.logger.Debug().
		Str("artifact", name).
		Int("version", meta.Version).
		Int64("size_bytes", meta.SizeBytes).
		Msg("Artifact saved")
	return meta, nil
}

// Load decodes the latest version of name into v.
func (s *FileStore) Load(ctx context.Context, name string, v any) (meta Metadata, err error) {
	defer func() {
		if !errors.Is(err, ErrArtifactNotFound) {
			metrics.RecordStoreOperation(BackendFile, "load", err)
		}
	}()

	if err := checkContext(ctx); err != nil {
		return Metadata{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	version, ok := s.versions[name]
	if !ok {
		return Metadata{}, fmt.Errorf("%w: %s", ErrArtifactNotFound, name)
	}
	sf, err := s.readFile(name, version)
	if err != nil {
		return Metadata{}, err
	}
	if err := decodePayload(sf.CompressedData, sf.Metadata.Checksum, v); err != nil {
		return Metadata{}, fmt.Errorf("load %s v%d: %w", name, version, err)
	}
	return sf.Metadata, nil
}

func (s *FileStore) readFile(name string, version int) (*storedFile, error) {
	data, err := os.ReadFile(s.path(name, version))
	if err != nil {
		return nil, fmt.Errorf("open artifact file: %w", err)
	}
	return decodeStored(bytes.NewReader(data))
}

// List returns metadata for the latest version of each artifact.
func (s *FileStore) List(ctx context.Context) ([]Metadata, error) {
	if err := checkContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Metadata, 0, len(s.versions))
	for name, version := range s.versions {
		sf, err := s.readFile(name, version)
		if err != nil {
			s.logger.Warn().Err(err).Str("artifact", name).Int("version", version).Msg("Skipping unreadable artifact")
			continue
		}
		out = append(out, sf.Metadata)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Prune removes all but the newest keep versions of name.
func (s *FileStore) Prune(ctx context.Context, name string, keep int) (err error) {
	defer func() { metrics.RecordStoreOperation(BackendFile, "prune", err) }()

	if err := checkContext(ctx); err != nil {
		return err
	}
	if keep < 1 {
		keep = 1
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return fmt.Errorf("read directory: %w", err)
	}
	var versions []int
	for _, entry := range entries {
		n, v, ok := parseArtifactFilename(entry)
		if ok && n == name {
			versions = append(versions, v)
		}
	}
	sort.Sort(sort.Reverse(sort.IntSlice(versions)))

	for _, v := range versions[min(keep, len(versions)):] {
		if rmErr := os.Remove(s.path(name, v)); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
			return fmt.Errorf("delete %s v%d: %w", name, v, rmErr)
		}
		s.logger.Debug().Str("artifact", name).Int("version", v).Msg("Pruned artifact version")
	}
	return nil
}

// Close is a no-op for the file backend.
func (s *FileStore) Close() error {
	return nil
}
