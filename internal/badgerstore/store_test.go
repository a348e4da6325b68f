package badgerstore

import (
	"context"
	"testing"

	"github.com/specialistvlad/clusterpass/internal/artifactstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *Store {
	t.Helper()
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestStore_RoundTrip(t *testing.T) {
	s := openInMemory(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "run-2/cluster-1", []byte(`{"name":"cluster_2_1"}`)))
	require.NoError(t, s.Put(ctx, "run-1/cluster-0", []byte("x")))

	got, ok, err := s.Get(ctx, "run-2/cluster-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `{"name":"cluster_2_1"}`, string(got))

	_, ok, err = s.Get(ctx, "run-9/cluster-9")
	require.NoError(t, err)
	assert.False(t, ok)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-1/cluster-0", "run-2/cluster-1"}, keys)

	require.NoError(t, s.Delete(ctx, "run-1/cluster-0"))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"run-2/cluster-1"}, keys)

	require.NoError(t, s.Clear(ctx))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_Persistent(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(Config{Path: dir})
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, "k", []byte("v")))
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	reopened, err := Open(Config{Path: dir})
	require.NoError(t, err)
	defer reopened.Close()
	got, ok, err := reopened.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)
}

func TestStore_Closed(t *testing.T) {
	s, err := Open(InMemoryConfig())
	require.NoError(t, err)
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Put(context.Background(), "k", nil), artifactstore.ErrClosed)
}
