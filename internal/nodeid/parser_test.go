// internal/nodeid/parser_test.go
package nodeid

import (
	"testing"

	"github.com/specialistvlad/clusterpass/internal/passerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name        string
		raw         string
		expectErr   bool
		expectedRef Ref
	}{
		{
			name:        "bare name",
			raw:         "conv1",
			expectedRef: NewRef("conv1", 0),
		},
		{
			name:        "name with output",
			raw:         "split:2",
			expectedRef: NewRef("split", 2),
		},
		{
			name:        "scoped name",
			raw:         "layer_1/weights/read:0",
			expectedRef: NewRef("layer_1/weights/read", 0),
		},
		{
			name:        "control dependency",
			raw:         "^init",
			expectedRef: NewControlRef("init"),
		},
		{
			name:      "error - empty string",
			raw:       "",
			expectErr: true,
		},
		{
			name:      "error - non numeric output",
			raw:       "a:x",
			expectErr: true,
		},
		{
			name:      "error - control with output",
			raw:       "^a:1",
			expectErr: true,
		},
		{
			name:      "error - just dot",
			raw:       ".",
			expectErr: true,
		},
		{
			name:      "error - leading slash",
			raw:       "/a",
			expectErr: true,
		},
		{
			name:      "error - whitespace",
			raw:       "a b",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ref, err := Parse(tc.raw)

			if tc.expectErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, passerr.ErrGraphConstruction)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tc.expectedRef, ref)
		})
	}
}

func TestRefString(t *testing.T) {
	assert.Equal(t, "a", NewRef("a", 0).String())
	assert.Equal(t, "a:3", NewRef("a", 3).String())
	assert.Equal(t, "^a", NewControlRef("a").String())

	for _, raw := range []string{"a", "a:3", "^a"} {
		ref, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, ref.String())
	}
}

func TestNodeName(t *testing.T) {
	assert.Equal(t, "a", NodeName("a"))
	assert.Equal(t, "a", NodeName("a:0"))
	assert.Equal(t, "scope/a", NodeName("scope/a:12"))
	assert.Equal(t, "b", NodeName("^b"))
	assert.Equal(t, "c:x", NodeName("c:x"))
}
