// Package inmemorystore provides an ephemeral, thread-safe, in-memory
// implementation of the artifactstore.Store interface.
//
// # Concurrency Model
//
// Artifacts are written once per cluster and read rarely, and each key is
// independent, so the store uses sync.Map rather than a single RWMutex:
// concurrent pipeline runs registering different clusters never contend.
//
// # When to Use
//
// This implementation is the default for CLI runs and tests. Use
// internal/badgerstore when artifacts must survive the process.
package inmemorystore

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"

	"github.com/specialistvlad/clusterpass/internal/artifactstore"
)

// Store is an in-memory implementation of artifactstore.Store using sync.Map.
type Store struct {
	data   sync.Map // Key: artifact key string, Value: []byte
	closed atomic.Bool
}

// New creates a new, empty in-memory artifact store.
func New() artifactstore.Store {
	return &Store{}
}

// Put stores a copy of data under key.
func (s *Store) Put(ctx context.Context, key string, data []byte) error {
	if s.closed.Load() {
		return artifactstore.ErrClosed
	}
	s.data.Store(key, append([]byte(nil), data...))
	return nil
}

// Get returns a copy of the data stored under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if s.closed.Load() {
		return nil, false, artifactstore.ErrClosed
	}
	v, ok := s.data.Load(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v.([]byte)...), true, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	if s.closed.Load() {
		return artifactstore.ErrClosed
	}
	s.data.Delete(key)
	return nil
}

// Keys returns the stored keys in ascending order.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	if s.closed.Load() {
		return nil, artifactstore.ErrClosed
	}
	var keys []string
	s.data.Range(func(k, _ any) bool {
		keys = append(keys, k.(string))
		return true
	})
	sort.Strings(keys)
	return keys, nil
}

// Clear removes every key.
func (s *Store) Clear(ctx context.Context) error {
	if s.closed.Load() {
		return artifactstore.ErrClosed
	}
	s.data.Clear()
	return nil
}

// Close marks the store closed. Later calls fail with artifactstore.ErrClosed.
func (s *Store) Close() error {
	s.closed.Store(true)
	return nil
}
