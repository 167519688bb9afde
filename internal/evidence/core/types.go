// Package core defines the evidence storage contract shared by the drivers.
package core

import (
	"context"
	"io"
	"time"
)

// Driver identifies a concrete evidence storage backend.
type Driver string

const (
	DriverFilesystem Driver = "fs"     // local filesystem (default, single host)
	DriverS3         Driver = "s3"     // S3 / MinIO compatible
	DriverMemory     Driver = "memory" // in-memory (tests)
)

// Info describes a stored evidence object.
type Info struct {
	Key          string    `json:"key"`
	Size         int64     `json:"size_bytes"`
	ContentType  string    `json:"content_type,omitempty"`
	LastModified time.Time `json:"last_modified"`
}

// Store holds cleaning-proof photos outside the state document so the
// replicated snapshot stays small. Keys are content addresses, so a Put of
// bytes that already exist is not an error.
type Store interface {
	// Put stores a blob at key. Putting an existing key is a no-op
	// returning the stored info (content-addressed keys make the payload
	// identical by construction).
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
	// Get retrieves contents and metadata.
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	// Head returns metadata only.
	Head(ctx context.Context, key string) (Info, error)
	// Delete removes a blob. Returns (false, nil) if not found.
	Delete(ctx context.Context, key string) (bool, error)
	// List returns blobs under prefix, ordered by key ascending.
	List(ctx context.Context, prefix string) ([]Info, error)
	// Driver reports the configured backend.
	Driver() Driver
}
