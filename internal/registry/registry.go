package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/specialistvlad/clusterpass/internal/mark"
)

// Module is the interface that Go backend modules implement to be registered.
type Module interface {
	Register(b *Backends)
}

// Backends holds the capability table of every known backend.
type Backends struct {
	mu     sync.RWMutex
	byName map[string]*mark.Capabilities
}

// NewBackends creates an empty backend table.
func NewBackends() *Backends {
	return &Backends{byName: make(map[string]*mark.Capabilities)}
}

// RegisterBackend adds a backend. Registering a name twice is a programming
// error and panics.
func (b *Backends) RegisterBackend(caps *mark.Capabilities) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.byName[caps.Backend]; exists {
		panic(fmt.Sprintf("backend with name '%s' already registered", caps.Backend))
	}
	slog.Debug("Registering backend.", "name", caps.Backend, "ops", len(caps.Operations))
	b.byName[caps.Backend] = caps
}

// Backend returns the capability table registered under name.
func (b *Backends) Backend(name string) (*mark.Capabilities, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	caps, ok := b.byName[name]
	return caps, ok
}

// Names returns the registered backend names, sorted.
func (b *Backends) Names() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	names := make([]string, 0, len(b.byName))
	for name := range b.byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
