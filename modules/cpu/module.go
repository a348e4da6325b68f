// Package cpu registers the built-in CPU backend.
package cpu

import (
	"github.com/specialistvlad/clusterpass/internal/mark"
	"github.com/specialistvlad/clusterpass/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register adds the CPU capability table.
func (m *Module) Register(b *registry.Backends) {
	b.RegisterBackend(mark.DefaultCapabilities())
}
