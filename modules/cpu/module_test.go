package cpu

import (
	"testing"

	"github.com/specialistvlad/clusterpass/internal/config"
	"github.com/specialistvlad/clusterpass/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	b := registry.NewBackends()
	(&Module{}).Register(b)

	caps, ok := b.Backend(config.DefaultBackend)
	require.True(t, ok)
	assert.True(t, caps.Supports("MatMul"))
	assert.True(t, caps.AcceptsDevice("/job:worker/device:CPU:0"))
	assert.False(t, caps.AcceptsDevice("/device:GPU:0"))
}
