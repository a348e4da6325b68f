package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/specialistvlad/clusterpass/internal/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name       string
		args       []string
		want       *app.Config
		shouldExit bool
		wantCode   int
	}{
		{
			name: "defaults",
			args: []string{"graphs"},
			want: &app.Config{
				Inputs:    []string{"graphs"},
				OutDir:    "out",
				LogFormat: "json",
				LogLevel:  "info",
				Workers:   4,
			},
		},
		{
			name: "every flag",
			args: []string{
				"-c", "base.hcl", "-config", "override.hcl,extra",
				"-out", "build", "-format", "JSON",
				"-log-format", "text", "-log-level", "DEBUG",
				"-healthcheck-port", "9090", "-workers", "8", "-trace",
				"-dump-dir", "dumps", "-dump-phases", "marked, done",
				"-dump-socketio", "http://localhost:3000",
				"-artifact-db", "db", "-disable",
				"-disable-ops", "MatMul", "-disable-ops", "Conv2D",
				"a.hcl", "b.json",
			},
			want: &app.Config{
				ConfigPaths:     []string{"base.hcl", "override.hcl", "extra"},
				Inputs:          []string{"a.hcl", "b.json"},
				OutDir:          "build",
				Format:          "json",
				LogFormat:       "text",
				LogLevel:        "debug",
				HealthcheckPort: 9090,
				Workers:         8,
				Trace:           true,
				DumpDir:         "dumps",
				DumpPhases:      []string{"marked", "done"},
				DumpSocketIO:    "http://localhost:3000",
				ArtifactDB:      "db",
				Disable:         true,
				DisableOps:      []string{"MatMul", "Conv2D"},
			},
		},
		{name: "help", args: []string{"-h"}, shouldExit: true},
		{name: "no inputs", args: []string{"-workers", "2"}, shouldExit: true},
		{name: "unknown flag", args: []string{"-nope", "g.hcl"}, wantCode: 2},
		{name: "bad log level", args: []string{"-log-level", "loud", "g.hcl"}, wantCode: 2},
		{name: "bad format", args: []string{"-format", "xml", "g.hcl"}, wantCode: 2},
		{name: "zero workers", args: []string{"-workers", "0", "g.hcl"}, wantCode: 2},
		{name: "unknown dump phase", args: []string{"-dump-phases", "compiled", "g.hcl"}, wantCode: 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := &bytes.Buffer{}
			cfg, shouldExit, err := Parse(tt.args, out)

			if tt.wantCode != 0 {
				var exitErr *ExitError
				require.True(t, errors.As(err, &exitErr), "got %v", err)
				assert.Equal(t, tt.wantCode, exitErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.shouldExit, shouldExit)
			if tt.shouldExit {
				assert.Contains(t, out.String(), "Usage:")
				return
			}
			assert.Equal(t, tt.want, cfg)
		})
	}
}
