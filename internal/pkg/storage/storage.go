// Package storage reads and writes small objects in S3, Google Cloud Storage
// or MinIO behind one interface.
package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned by Get when the key does not exist.
var ErrObjectNotFound = errors.New("storage: object not found")

// maxObjectBytes bounds Get so a corrupt object cannot exhaust memory.
const maxObjectBytes = 4 << 20

// Storage defines object storage operations.
type Storage interface {
	io.Closer

	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// Delete removes the object. Deleting a missing object is not an error.
	Delete(ctx context.Context, bucket, key string) error
}

func readAllLimited(r io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(r, maxObjectBytes))
}
