package objectstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a key does not exist in the store. Callers
// must be able to tell a miss from a real storage failure, so every driver
// maps its own not-found condition onto this sentinel.
var ErrNotFound = errors.New("object not found")

// Store is a flat key/value blob store. Keys are slash-separated paths.
type Store interface {
	// Get returns the object bytes, or ErrNotFound if the key is absent.
	Get(ctx context.Context, key string) ([]byte, error)

	// Put writes the object bytes under key, overwriting any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Delete removes the object. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists reports whether the key is present without fetching the body.
	Exists(ctx context.Context, key string) (bool, error)

	// Label identifies the backend ("remote" or "local") for health reporting.
	Label() string
}
