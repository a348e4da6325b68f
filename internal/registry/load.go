package registry

import (
	"context"
	"fmt"

	"github.com/specialistvlad/clusterpass/internal/config"
	"github.com/specialistvlad/clusterpass/internal/ctxlog"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/mark"
)

// LoadBackends registers every backend declared in configuration.
func (b *Backends) LoadBackends(ctx context.Context, defs []*config.Backend) error {
	logger := ctxlog.FromContext(ctx)
	for _, def := range defs {
		if _, exists := b.Backend(def.Name); exists {
			return fmt.Errorf("backend %q is declared in configuration but already registered", def.Name)
		}
		seen := make(map[string]bool, len(def.Ops))
		for _, op := range def.Ops {
			if seen[op] {
				return fmt.Errorf("backend %q lists op %q more than once", def.Name, op)
			}
			seen[op] = true
		}
		types := make([]graph.DataType, len(def.DataTypes))
		for i, t := range def.DataTypes {
			types[i] = graph.DataType(t)
		}
		b.RegisterBackend(mark.NewBackend(def.Name, def.Ops, def.Devices, types))
		logger.Debug("Loaded backend from configuration.", "name", def.Name, "ops", len(def.Ops))
	}
	return nil
}
