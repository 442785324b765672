// Package blobstore abstracts where registry snapshots are stored.
//
// Built-in implementations:
//
//   - MemoryStore: in-memory, for tests
//   - LocalStore: local filesystem with atomic rename on commit
//   - s3.Store: Amazon S3, with an optional DynamoDB commit pointer
//   - minio.Store: MinIO and other S3-compatible object stores
//
// Implementations must be safe for concurrent use.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a blob does not exist.
var ErrNotFound = errors.New("blob not found")

// Store reads and writes named snapshot blobs.
type Store interface {
	// Open opens an existing blob for sequential reading.
	Open(ctx context.Context, name string) (Blob, error)

	// Create creates a blob for streaming writes. The data becomes visible
	// atomically when the returned blob is closed.
	Create(ctx context.Context, name string) (WritableBlob, error)

	// Put writes a complete blob atomically.
	Put(ctx context.Context, name string, data []byte) error

	// Delete removes a blob. Deleting a missing blob is not an error.
	Delete(ctx context.Context, name string) error

	// List returns the names of all blobs with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

// Blob is a read handle to a stored snapshot.
type Blob interface {
	io.ReadCloser

	// Size returns the size of the blob in bytes.
	Size() int64
}

// WritableBlob is a write handle. Close commits the blob; a blob that is
// never closed must not become visible.
type WritableBlob interface {
	io.WriteCloser

	// Sync flushes buffered data to durable storage where the backend
	// supports it.
	Sync() error
}
