// Package evidence re-exports the evidence store contract and provides the
// driver factory plus content-addressing helpers.
package evidence

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"

	"dutyroster/internal/evidence/core"
	"dutyroster/internal/evidence/fs"
	"dutyroster/internal/evidence/memory"
	"dutyroster/internal/evidence/s3"
)

type (
	// Driver identifies an evidence backend driver.
	Driver = core.Driver
	// Info describes stored evidence metadata.
	Info = core.Info
	// Store is the interface for evidence storage backends.
	Store = core.Store
)

const (
	// DriverFilesystem is the local filesystem driver.
	DriverFilesystem = core.DriverFilesystem
	// DriverS3 is the S3-compatible driver.
	DriverS3 = core.DriverS3
	// DriverMemory is the in-memory test driver.
	DriverMemory = core.DriverMemory
)

// Open selects a Store implementation using environment variables.
//
//	DUTYROSTER_EVIDENCE_DRIVER: fs|s3|memory (default fs)
//	DUTYROSTER_EVIDENCE_FS_ROOT: directory root when driver=fs (default ./evidence)
//	(S3 specific variables documented in s3/store.go)
func Open(ctx context.Context) (Store, error) {
	driver := os.Getenv("DUTYROSTER_EVIDENCE_DRIVER")
	if driver == "" {
		driver = string(DriverFilesystem)
	}
	switch Driver(driver) {
	case DriverFilesystem:
		return fs.New(os.Getenv("DUTYROSTER_EVIDENCE_FS_ROOT"))
	case DriverS3:
		return s3.OpenFromEnv(ctx)
	case DriverMemory:
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown evidence driver %s", driver)
	}
}

// KeyFor derives the content address of a photo payload. Identical bytes map
// to the same key, so duplicate uploads are free.
func KeyFor(data []byte) string {
	sum := sha256.Sum256(data)
	return "photos/" + hex.EncodeToString(sum[:])
}

// StorePhoto writes a photo under its content address and returns the key.
func StorePhoto(ctx context.Context, store Store, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("empty evidence payload")
	}
	key := KeyFor(data)
	if _, err := store.Put(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return "", fmt.Errorf("store evidence: %w", err)
	}
	return key, nil
}

// LoadPhoto reads a stored photo back by key.
func LoadPhoto(ctx context.Context, store Store, key string) ([]byte, Info, error) {
	info, rc, err := store.Get(ctx, key)
	if err != nil {
		return nil, Info{}, err
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, Info{}, err
	}
	return data, info, nil
}
