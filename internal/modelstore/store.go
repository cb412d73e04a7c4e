// Ordersight - E-commerce Order Analytics and Predictive Signals
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/ordersight

package modelstore

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog"
)

// ErrArtifactNotFound is returned by Load when no version of the named
// artifact exists.
var ErrArtifactNotFound = errors.New("artifact not found")

// Metadata describes one stored artifact version.
type Metadata struct {
	// Name is the artifact name (e.g. "churn_predictor").
	Name string `json:"name"`

	// Version increases by one on every save of the same name.
	Version int `json:"version"`

	// SavedAt is when the version was written.
	SavedAt time.Time `json:"saved_at"`

	// Checksum is the SHA-256 of the uncompressed payload.
	Checksum string `json:"checksum"`

	// SizeBytes is the compressed payload size.
	SizeBytes int64 `json:"size_bytes"`

	// Backend names the store that holds the artifact.
	Backend string `json:"backend"`
}

// Store persists versioned artifacts. Implementations are safe for
// concurrent use.
type Store interface {
	// Save encodes v as the next version of name.
	Save(ctx context.Context, name string, v any) (Metadata, error)

	// Load decodes the latest version of name into v, which must be a
	// pointer. It returns ErrArtifactNotFound when name was never saved.
	Load(ctx context.Context, name string, v any) (Metadata, error)

	// List returns metadata for the latest version of every artifact,
	// sorted by name.
	List(ctx context.Context) ([]Metadata, error)

	// Prune deletes all but the newest keep versions of name.
	Prune(ctx context.Context, name string, keep int) error

	// Close releases backend resources.
	Close() error
}

// storedFile is the encoded form of a single version.
type storedFile struct {
	Metadata       Metadata
	CompressedData []byte
}

// encodePayload gob-encodes v and compresses it. It returns the compressed
// bytes and the checksum of the raw encoding.
func encodePayload(v any) (compressed []byte, checksum string, err error) {
	var raw bytes.Buffer
	if err := gob.NewEncoder(&raw).Encode(v); err != nil {
		return nil, "", fmt.Errorf("encode artifact: %w", err)
	}
	hash := sha256.Sum256(raw.Bytes())

	var out bytes.Buffer
	gzw := gzip.NewWriter(&out)
	if _, err := gzw.Write(raw.Bytes()); err != nil {
		return nil, "", fmt.Errorf("compress artifact: %w", err)
	}
	if err := gzw.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize compression: %w", err)
	}
	return out.Bytes(), hex.EncodeToString(hash[:]), nil
}

// decodePayload reverses encodePayload after verifying the checksum.
func decodePayload(compressed []byte, checksum string, v any) error {
	gzr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("decompress artifact: %w", err)
	}
	defer func() { _ = gzr.Close() }() //nolint:errcheck // close after full read is not actionable

	raw, err := io.ReadAll(gzr)
	if err != nil {
		return fmt.Errorf("read decompressed data: %w", err)
	}

	hash := sha256.Sum256(raw)
	if got := hex.EncodeToString(hash[:]); got != checksum {
		return fmt.Errorf("checksum mismatch: expected %s, got %s", checksum, got)
	}

	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(v); err != nil {
		return fmt.Errorf("decode artifact: %w", err)
	}
	return nil
}

// encodeStored wraps a payload and its metadata.
func encodeStored(sf *storedFile) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sf); err != nil {
		return nil, fmt.Errorf("encode stored artifact: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeStored(r io.Reader) (*storedFile, error) {
	var sf storedFile
	if err := gob.NewDecoder(r).Decode(&sf); err != nil {
		return nil, fmt.Errorf("read stored artifact: %w", err)
	}
	return &sf, nil
}

func checkContext(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("model store: %w", err)
	}
	return nil
}

// Open returns the store for backend ("file" or "badger") rooted at path.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func Open(backend, path string, logger zerolog.Logger) (Store, error) {
	switch backend {
	case BackendFile:
		return NewFileStore(path, logger)
	case BackendBadger:
		return OpenBadgerStore(path, logger)
	default:
		return nil, fmt.Errorf("unknown model store backend %q", backend)
	}
}
