package integration_tests

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/clusterpass/internal/app"
	"github.com/specialistvlad/clusterpass/internal/config"
	"github.com/specialistvlad/clusterpass/internal/graphio"
	"github.com/specialistvlad/clusterpass/internal/hcl"
	"github.com/specialistvlad/clusterpass/internal/registry"
	"github.com/stretchr/testify/require"
)

// chainGraph is x -> a -> b -> y with x fed and b fetched.
const chainGraph = `
node "Placeholder" "x" {
  outputs = ["float32"]
}

node "Relu" "a" {
  inputs  = ["x"]
  outputs = ["float32"]
}

node "Neg" "b" {
  inputs  = ["a"]
  outputs = ["float32"]
}

node "Print" "y" {
  inputs  = ["b"]
  outputs = ["float32"]
}

item {
  feed  = ["x"]
  fetch = ["b"]
}
`

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755), "failed to create directory")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600), "failed to write test file")
	return path
}

// writeChains writes n copies of the chain graph into dir.
func writeChains(t *testing.T, dir string, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		writeFile(t, filepath.Join(dir, fmt.Sprintf("graph_%02d.hcl", i)), chainGraph)
	}
}

// runApp builds an app over inputs and runs it once.
func runApp(t *testing.T, cfg app.Config, modules ...registry.Module) []app.FileResult {
	t.Helper()
	if cfg.OutDir == "" {
		cfg.OutDir = filepath.Join(t.TempDir(), "out")
	}
	if cfg.Workers == 0 {
		cfg.Workers = 4
	}
	cfg.LogFormat = "text"
	cfg.LogLevel = "debug"
	validated, err := app.NewConfig(cfg)
	require.NoError(t, err)

	formats := []config.GraphFormat{hcl.NewFormat(), graphio.NewFormat()}
	a, _ := app.SetupAppTest(t, validated, hcl.NewLoader(), formats, modules...)
	results, err := a.Run(context.Background())
	require.NoError(t, err)
	return results
}
