package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	ConfigPaths []string `validate:"dive,required"`         // hcl files or directories
	Inputs      []string `validate:"required,dive,required"` // graph files or directories
	OutDir      string   `validate:"required"`
	// Format is the output format name. Empty writes each graph in the
	// format it was read in.
	Format string `validate:"omitempty,oneof=hcl json"`

	LogFormat       string `validate:"oneof=text json"`
	LogLevel        string `validate:"oneof=debug info warn error"`
	HealthcheckPort int    `validate:"min=0,max=65535"`
	Workers         int    `validate:"min=1"`
	Trace           bool

	// The remaining fields override the matching settings of the HCL
	// configuration when set.
	DumpDir      string
	DumpPhases   []string `validate:"dive,oneof=preserved marked clustered deassigned encapsulated tracked done"`
	DumpSocketIO string   `validate:"omitempty,url"`
	ArtifactDB   string
	Disable      bool
	DisableOps   []string `validate:"dive,required"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, len(verrs))
			for i, fe := range verrs {
				msgs[i] = fmt.Sprintf("%s: failed '%s' check (value %v)", fe.Namespace(), fe.Tag(), fe.Value())
			}
			return nil, fmt.Errorf("invalid configuration:\n- %s", strings.Join(msgs, "\n- "))
		}
		return nil, err
	}
	return &cfg, nil
}
