// Package storage stores uploaded files (product images) on a local
// directory or an S3-compatible bucket.
//
//	storage.Connect(ctx)
//	err := storage.Default().Put(ctx, "products/abc.jpg", r, "image/jpeg")
//	url := storage.Default().URL("products/abc.jpg")
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrNotFound is returned when a path does not exist on a disk.
var ErrNotFound = errors.New("storage: file not found")

// Disk is the driver interface.
type Disk interface {
	// Put writes r to path, replacing any existing file.
	Put(ctx context.Context, path string, r io.Reader, contentType string) error

	// Get opens the file at path. The caller must close it.
	Get(ctx context.Context, path string) (io.ReadCloser, error)

	Exists(ctx context.Context, path string) (bool, error)

	// Delete removes path. Deleting a missing file is not an error.
	Delete(ctx context.Context, path string) error

	// URL returns the public URL for path.
	URL(path string) string
}
