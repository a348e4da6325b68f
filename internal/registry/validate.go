package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/specialistvlad/clusterpass/internal/ctxlog"
)

// Validate checks that every backend can accept at least one op and that
// the backend the pipeline is configured for exists.
func (b *Backends) Validate(ctx context.Context, selected string) error {
	var errs []string
	logger := ctxlog.FromContext(ctx)

	for _, name := range b.Names() {
		caps, _ := b.Backend(name)
		if len(caps.Operations) == 0 {
			errs = append(errs, fmt.Sprintf("backend '%s' supports no ops", name))
		}
		if len(caps.Devices) == 0 {
			logger.Warn("Backend accepts any device type. Consider listing devices explicitly.", "backend", name)
		}
		if len(caps.DataTypes) == 0 {
			logger.Warn("Backend accepts any data type. Consider listing data types explicitly.", "backend", name)
		}
	}

	if _, ok := b.Backend(selected); !ok {
		errs = append(errs, fmt.Sprintf("pipeline backend '%s' is not registered (known: %s)", selected, strings.Join(b.Names(), ", ")))
	}

	if len(errs) > 0 {
		return fmt.Errorf("registry validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}
