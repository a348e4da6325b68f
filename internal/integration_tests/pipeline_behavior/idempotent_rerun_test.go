package integration_tests

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/clusterpass/internal/app"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/hcl"
	"github.com/specialistvlad/clusterpass/internal/pipeline"
	"github.com/specialistvlad/clusterpass/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readGraph(t *testing.T, path string) *graph.Graph {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	ctx, _ := testutil.Context(t)
	g, _, err := hcl.NewFormat().DecodeGraph(ctx, data, path)
	require.NoError(t, err)
	return g
}

func TestRerunOnOutputIsNoOp(t *testing.T) {
	t.Parallel()

	input := writeFile(t, filepath.Join(t.TempDir(), "g.hcl"), chainGraph)
	first := runApp(t, app.Config{Inputs: []string{input}})
	require.Len(t, first, 1)
	require.Len(t, first[0].Artifacts, 1)

	second := runApp(t, app.Config{Inputs: []string{first[0].Output}})
	require.Len(t, second, 1)
	assert.Equal(t, pipeline.SkipProcessed, second[0].Skipped)
	assert.Empty(t, second[0].Artifacts)

	assert.Empty(t, graph.Diff(readGraph(t, first[0].Output), readGraph(t, second[0].Output)))
}

func TestDisabledPassWritesGraphUnchanged(t *testing.T) {
	t.Parallel()

	input := writeFile(t, filepath.Join(t.TempDir(), "g.hcl"), chainGraph)
	results := runApp(t, app.Config{Inputs: []string{input}, Disable: true})
	require.Len(t, results, 1)
	assert.Equal(t, pipeline.SkipDisabled, results[0].Skipped)

	assert.Empty(t, graph.Diff(readGraph(t, input), readGraph(t, results[0].Output)))
}

// t.Setenv forbids t.Parallel.
func TestEnvironmentOverrideDisablesPass(t *testing.T) {
	t.Setenv(pipeline.DisableEnv, "1")

	input := writeFile(t, filepath.Join(t.TempDir(), "g.hcl"), chainGraph)
	results := runApp(t, app.Config{Inputs: []string{input}})
	require.Len(t, results, 1)
	assert.Equal(t, pipeline.SkipEnv, results[0].Skipped)
	assert.Empty(t, results[0].Artifacts)

}
