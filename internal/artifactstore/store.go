// Package artifactstore defines where encoded cluster artifacts are kept
// once the registry accepts them.
//
// The registry owns the in-process view of which clusters are live; a Store
// is the byte-level backing behind it. Two implementations exist:
// internal/inmemorystore for tests and single runs, and internal/badgerstore
// for artifacts that should outlive the process.
package artifactstore

import (
	"context"
	"errors"
)

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("artifact store is closed")

// Store is a flat key/value store for encoded artifacts.
//
// Implementations MUST be safe for concurrent use: independent pipeline
// runs register artifacts while another run may be clearing the store from
// its early-exit path.
type Store interface {
	// Put stores data under key, replacing any previous value.
	Put(ctx context.Context, key string, data []byte) error

	// Get returns the data under key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Keys returns every stored key in ascending order.
	Keys(ctx context.Context) ([]string, error)

	// Clear removes every key.
	Clear(ctx context.Context) error

	// Close releases the store's resources.
	Close() error
}
