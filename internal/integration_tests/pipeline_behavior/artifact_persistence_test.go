package integration_tests

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/specialistvlad/clusterpass/internal/app"
	"github.com/specialistvlad/clusterpass/internal/badgerstore"
	"github.com/specialistvlad/clusterpass/internal/graphio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArtifactsPersistAcrossProcesses(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dbPath := filepath.Join(dir, "db")
	writeChains(t, filepath.Join(dir, "graphs"), 2)

	results := runApp(t, app.Config{Inputs: []string{filepath.Join(dir, "graphs")}, ArtifactDB: dbPath})
	require.Len(t, results, 2)

	// The app closed the database; reopen it as a later process would.
	store, err := badgerstore.Open(badgerstore.DefaultConfig(dbPath))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	ctx := context.Background()
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-0/cluster-0", "run-1/cluster-0"}, keys)

	data, ok, err := store.Get(ctx, "run-1/cluster-0")
	require.NoError(t, err)
	require.True(t, ok)
	artifact, err := graphio.DecodeArtifact(data)
	require.NoError(t, err)
	assert.Equal(t, "cluster_1_0", artifact.Name)
	assert.Equal(t, 2, artifact.Graph.NumNodes()-len(artifact.Inputs)-len(artifact.Outputs), "a and b form the body")
}
