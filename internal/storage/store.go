package storage

import (
	"context"
	"errors"
	"io"
)

// ErrObjectNotFound is returned when a key does not exist in the store
var ErrObjectNotFound = errors.New("object not found")

// ObjectStore abstracts the blob backend holding snapshots and uploads.
// Keys are flat strings; callers own the naming scheme.
type ObjectStore interface {
	// Put stores an object and returns nothing; the key identifies it
	Put(ctx context.Context, key string, reader io.Reader, size int64, contentType string) error

	// Get opens an object for reading; the caller must close it
	Get(ctx context.Context, key string) (io.ReadCloser, error)

	Exists(ctx context.Context, key string) (bool, error)

	// Copy duplicates an object under a new key without round-tripping
	// the bytes through the service
	Copy(ctx context.Context, srcKey, dstKey string) error

	// PublicURL returns the externally reachable URL for a stored object
	PublicURL(key string) string
}
