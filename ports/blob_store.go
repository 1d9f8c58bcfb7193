package ports

import (
	"context"
	"errors"
)

// ErrBlobNotFound is returned by BlobStore.Get for an absent key.
var ErrBlobNotFound = errors.New("blob not found")

// BlobStore is a key/value store for the serialized dataset artifacts.
// Keys are slash-separated paths.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error

	// Provider names the backend for logs and metrics.
	Provider() string
}
