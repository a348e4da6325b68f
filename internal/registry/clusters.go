package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/specialistvlad/clusterpass/internal/artifactstore"
	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/specialistvlad/clusterpass/internal/encapsulate"
	"github.com/specialistvlad/clusterpass/internal/graphio"
)

// ErrAlreadyRegistered is returned when an artifact key is registered twice.
var ErrAlreadyRegistered = errors.New("artifact already registered")

// Clusters is the registration table for encapsulated artifacts.
type Clusters struct {
	mu        sync.RWMutex
	artifacts map[encapsulate.Key]*encapsulate.Artifact
	store     artifactstore.Store
}

// NewClusters creates an empty table. store may be nil, in which case
// artifacts live only in memory.
func NewClusters(store artifactstore.Store) *Clusters {
	return &Clusters{
		artifacts: make(map[encapsulate.Key]*encapsulate.Artifact),
		store:     store,
	}
}

// Register adds an artifact. A store failure leaves the table unchanged.
func (c *Clusters) Register(ctx context.Context, a *encapsulate.Artifact) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.artifacts[a.Key]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyRegistered, a.Key)
	}
	if c.store != nil {
		data, err := graphio.EncodeArtifact(a)
		if err != nil {
			return fmt.Errorf("encode artifact %s: %w", a.Key, err)
		}
		if err := c.store.Put(ctx, a.Key.String(), data); err != nil {
			return fmt.Errorf("persist artifact %s: %w", a.Key, err)
		}
	}
	c.artifacts[a.Key] = a
	ctxlog.FromContext(ctx).Debug("Artifact registered.", "key", a.Key.String(), "name", a.Name)
	return nil
}

// Lookup returns the artifact registered under key.
func (c *Clusters) Lookup(key encapsulate.Key) (*encapsulate.Artifact, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a, ok := c.artifacts[key]
	return a, ok
}

// Evict removes one artifact and reports whether it was present.
func (c *Clusters) Evict(ctx context.Context, key encapsulate.Key) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.artifacts[key]; !ok {
		return false, nil
	}
	if c.store != nil {
		if err := c.store.Delete(ctx, key.String()); err != nil {
			return false, fmt.Errorf("delete artifact %s: %w", key, err)
		}
	}
	delete(c.artifacts, key)
	return true, nil
}

// EvictAll removes every artifact and returns how many were removed.
func (c *Clusters) EvictAll(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.store != nil {
		if err := c.store.Clear(ctx); err != nil {
			return 0, fmt.Errorf("clear artifact store: %w", err)
		}
	}
	n := len(c.artifacts)
	c.artifacts = make(map[encapsulate.Key]*encapsulate.Artifact)
	ctxlog.FromContext(ctx).Debug("Artifact registry cleared.", "evicted", n)
	return n, nil
}

// Len returns the number of registered artifacts.
func (c *Clusters) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.artifacts)
}

// Keys returns the registered keys ordered by run index, then cluster id.
func (c *Clusters) Keys() []encapsulate.Key {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]encapsulate.Key, 0, len(c.artifacts))
	for k := range c.artifacts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].RunIndex != keys[j].RunIndex {
			return keys[i].RunIndex < keys[j].RunIndex
		}
		return keys[i].ClusterID < keys[j].ClusterID
	})
	return keys
}
