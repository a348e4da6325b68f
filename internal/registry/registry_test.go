package registry

import (
	"context"
	"sync"
	"testing"

	"github.com/specialistvlad/clusterpass/internal/cluster"
	"github.com/specialistvlad/clusterpass/internal/config"
	"github.com/specialistvlad/clusterpass/internal/encapsulate"
	"github.com/specialistvlad/clusterpass/internal/graph"
	"github.com/specialistvlad/clusterpass/internal/graphio"
	"github.com/specialistvlad/clusterpass/internal/inmemorystore"
	"github.com/specialistvlad/clusterpass/internal/mark"
	"github.com/specialistvlad/clusterpass/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func artifact(run int64, id int) *encapsulate.Artifact {
	k := encapsulate.Key{RunIndex: run, ClusterID: cluster.ID(id)}
	return &encapsulate.Artifact{Key: k, Name: encapsulate.FunctionName(k), Backend: "CPU", Graph: graph.New()}
}

func TestClusters_RegisterLookupEvict(t *testing.T) {
	ctx, _ := testutil.Context(t)
	c := NewClusters(nil)

	require.NoError(t, c.Register(ctx, artifact(2, 0)))
	require.NoError(t, c.Register(ctx, artifact(1, 1)))
	require.NoError(t, c.Register(ctx, artifact(1, 0)))
	assert.ErrorIs(t, c.Register(ctx, artifact(1, 0)), ErrAlreadyRegistered)

	assert.Equal(t, 3, c.Len())
	assert.Equal(t, []encapsulate.Key{
		{RunIndex: 1, ClusterID: 0},
		{RunIndex: 1, ClusterID: 1},
		{RunIndex: 2, ClusterID: 0},
	}, c.Keys())

	a, ok := c.Lookup(encapsulate.Key{RunIndex: 2})
	require.True(t, ok)
	assert.Equal(t, "cluster_2_0", a.Name)

	removed, err := c.Evict(ctx, encapsulate.Key{RunIndex: 2})
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = c.Evict(ctx, encapsulate.Key{RunIndex: 2})
	require.NoError(t, err)
	assert.False(t, removed)

	n, err := c.EvictAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Zero(t, c.Len())
}

func TestClusters_WritesThroughToStore(t *testing.T) {
	ctx, _ := testutil.Context(t)
	store := inmemorystore.New()
	c := NewClusters(store)

	require.NoError(t, c.Register(ctx, artifact(3, 4)))
	data, ok, err := store.Get(ctx, "run-3/cluster-4")
	require.NoError(t, err)
	require.True(t, ok)
	decoded, err := graphio.DecodeArtifact(data)
	require.NoError(t, err)
	assert.Equal(t, "cluster_3_4", decoded.Name)

	_, err = c.EvictAll(ctx)
	require.NoError(t, err)
	keys, err := store.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestClusters_StoreFailureLeavesTableUnchanged(t *testing.T) {
	ctx, _ := testutil.Context(t)
	store := inmemorystore.New()
	require.NoError(t, store.Close())
	c := NewClusters(store)

	assert.Error(t, c.Register(ctx, artifact(1, 0)))
	assert.Zero(t, c.Len())
}

func TestClusters_ConcurrentRegisterAndEvictAll(t *testing.T) {
	ctx, _ := testutil.Context(t)
	c := NewClusters(inmemorystore.New())

	var wg sync.WaitGroup
	for run := int64(0); run < 20; run++ {
		wg.Add(2)
		go func(run int64) {
			defer wg.Done()
			for id := 0; id < 5; id++ {
				assert.NoError(t, c.Register(ctx, artifact(run, id)))
			}
		}(run)
		go func() {
			defer wg.Done()
			_, err := c.EvictAll(ctx)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, len(c.Keys()), c.Len())
}

func TestBackends(t *testing.T) {
	ctx, _ := testutil.Context(t)
	b := NewBackends()
	b.RegisterBackend(mark.DefaultCapabilities())

	assert.Panics(t, func() { b.RegisterBackend(mark.DefaultCapabilities()) })

	err := b.LoadBackends(ctx, []*config.Backend{
		{Name: "GPU", Ops: []string{"MatMul", "Relu"}, Devices: []string{"gpu"}, DataTypes: []string{"float32"}},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"CPU", "GPU"}, b.Names())

	gpu, ok := b.Backend("GPU")
	require.True(t, ok)
	assert.True(t, gpu.Supports("MatMul"))
	assert.True(t, gpu.AcceptsDevice("/device:GPU:0"))

	err = b.LoadBackends(ctx, []*config.Backend{{Name: "GPU", Ops: []string{"Relu"}}})
	assert.Error(t, err)
}

func TestBackends_LoadBackendsRepeatedOp(t *testing.T) {
	b := NewBackends()
	def := &config.Backend{Name: "TPU", Ops: []string{"MatMul", "Relu", "MatMul"}}

	var err error
	require.NotPanics(t, func() { err = b.LoadBackends(ctxWithLogger(t), []*config.Backend{def}) })
	require.Error(t, err)
	assert.Contains(t, err.Error(), `backend "TPU" lists op "MatMul" more than once`)

	_, ok := b.Backend("TPU")
	assert.False(t, ok)
}

func TestBackends_Validate(t *testing.T) {
	tests := []struct {
		name     string
		backends []*mark.Capabilities
		selected string
		wantErr  string
	}{
		{name: "valid", backends: []*mark.Capabilities{mark.DefaultCapabilities()}, selected: "CPU"},
		{name: "unknown selection", backends: []*mark.Capabilities{mark.DefaultCapabilities()}, selected: "TPU", wantErr: "pipeline backend 'TPU' is not registered"},
		{name: "no ops", backends: []*mark.Capabilities{mark.NewCapabilities("EMPTY")}, selected: "EMPTY", wantErr: "backend 'EMPTY' supports no ops"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBackends()
			for _, caps := range tt.backends {
				b.RegisterBackend(caps)
			}
			err := b.Validate(ctxWithLogger(t), tt.selected)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func ctxWithLogger(t *testing.T) context.Context {
	ctx, _ := testutil.Context(t)
	return ctx
}
