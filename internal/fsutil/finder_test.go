package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindFilesByExtension(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"b.hcl", "a.json", "nested/c.hcl", "notes.txt"} {
		path := filepath.Join(root, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	}

	files, err := FindFilesByExtension(root, ".hcl", ".json")
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(root, "a.json"),
		filepath.Join(root, "b.hcl"),
		filepath.Join(root, "nested", "c.hcl"),
	}, files)

	files, err = FindFilesByExtension(root, ".hcl")
	require.NoError(t, err)
	assert.Len(t, files, 2)
}

func TestFindFilesByExtensionPanicsWithoutExtension(t *testing.T) {
	assert.Panics(t, func() { _, _ = FindFilesByExtension(t.TempDir()) })
	assert.Panics(t, func() { _, _ = FindFilesByExtension(t.TempDir(), "") })
}
