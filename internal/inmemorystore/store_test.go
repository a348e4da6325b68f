package inmemorystore

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/specialistvlad/clusterpass/internal/artifactstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_PutGet(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "run-1/cluster-0", []byte("body")))

	got, ok, err := s.Get(ctx, "run-1/cluster-0")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("body"), got)

	_, ok, err = s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := New()
	ctx := context.Background()

	data := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", data))
	data[0] = 'x'

	got, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), got)
	got[1] = 'y'

	again, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), again)
}

func TestStore_KeysDeleteClear(t *testing.T) {
	s := New()
	ctx := context.Background()

	for _, k := range []string{"b", "c", "a"} {
		require.NoError(t, s.Put(ctx, k, []byte(k)))
	}
	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, keys)

	require.NoError(t, s.Delete(ctx, "b"))
	require.NoError(t, s.Delete(ctx, "never-there"))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, keys)

	require.NoError(t, s.Clear(ctx))
	keys, err = s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestStore_Closed(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Put(ctx, "k", nil), artifactstore.ErrClosed)
	_, _, err := s.Get(ctx, "k")
	assert.ErrorIs(t, err, artifactstore.ErrClosed)
	_, err = s.Keys(ctx)
	assert.ErrorIs(t, err, artifactstore.ErrClosed)
}

func TestStore_Concurrent(t *testing.T) {
	s := New()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%02d", i)
			assert.NoError(t, s.Put(ctx, key, []byte(key)))
			_, ok, err := s.Get(ctx, key)
			assert.NoError(t, err)
			assert.True(t, ok)
		}(i)
	}
	wg.Wait()

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Len(t, keys, 50)
}
