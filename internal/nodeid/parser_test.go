// internal/nodeid/parser_test.go
package nodeid

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	testCases := []struct {
		name        string
		raw         string
		expectErr   bool
		expectedKey Key
	}{
		{
			name:        "simple key",
			raw:         "OBCube/transform/local",
			expectedKey: New("OBCube", "transform", "local"),
		},
		{
			name:        "indexed op",
			raw:         "OBCube/modifier/array[2]",
			expectedKey: NewIndexed("OBCube", "modifier", "array", 2),
		},
		{
			name:        "zero index",
			raw:         "MEMesh/geometry/eval[0]",
			expectedKey: NewIndexed("MEMesh", "geometry", "eval", 0),
		},
		{
			name:        "dots and colons are allowed in names",
			raw:         "OB.001/shading:eevee/sync",
			expectedKey: New("OB.001", "shading:eevee", "sync"),
		},
		{
			name:      "error - empty string",
			raw:       "",
			expectErr: true,
		},
		{
			name:      "error - too few segments",
			raw:       "OBCube/transform",
			expectErr: true,
		},
		{
			name:      "error - empty element",
			raw:       "/transform/local",
			expectErr: true,
		},
		{
			name:      "error - invalid index",
			raw:       "OBCube/modifier/array[x]",
			expectErr: true,
		},
		{
			name:      "error - invalid name",
			raw:       "OBCube/../local",
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := Parse(tc.raw)
			if tc.expectErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectedKey, key)
		})
	}
}

func TestStringRoundTrip(t *testing.T) {
	for _, raw := range []string{"OBCube/transform/local", "OBCube/modifier/array[12]"} {
		key, err := Parse(raw)
		require.NoError(t, err)
		assert.Equal(t, raw, key.String())
	}
}

func TestLess(t *testing.T) {
	a := New("A", "transform", "local")
	b := New("B", "transform", "local")
	a1 := NewIndexed("A", "transform", "local", 1)

	assert.True(t, a.Less(b))
	assert.False(t, b.Less(a))
	assert.True(t, a.Less(a1))
}

func TestMustParsePanics(t *testing.T) {
	assert.Panics(t, func() { MustParse("nope") })
	assert.False(t, MustParse("A/b/c").IsZero())
	assert.True(t, Key{}.IsZero())
}
