package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefault(t *testing.T) {
	m := Default()
	assert.True(t, m.Pipeline.Enabled)
	assert.Equal(t, DefaultBackend, m.Pipeline.Backend)
	assert.Equal(t, 2, m.Deassign.MinClusterSize)
	assert.Equal(t, 1, m.Deassign.MinNontrivialOps)
	assert.Empty(t, m.Backends)
}

func TestDisabledOpSet(t *testing.T) {
	p := Pipeline{DisabledOps: []string{"MatMul", "Conv2D", "MatMul"}}
	assert.Equal(t, map[string]bool{"MatMul": true, "Conv2D": true}, p.DisabledOpSet())
	assert.Empty(t, Pipeline{}.DisabledOpSet())
}
