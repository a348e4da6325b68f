package app

import (
	"github.com/specialistvlad/clusterpass/internal/registry"
	"github.com/specialistvlad/clusterpass/modules/cpu"
)

// coreModules is the definitive list of all backend modules that are
// compiled into the clusterpass binary.
var coreModules = []registry.Module{
	&cpu.Module{},
}
