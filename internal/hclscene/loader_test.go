package hclscene

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/zclconf/go-cty/cty"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		p := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

const cubeScene = `
element "OB" "Empty" {
  operation "transform" "local" {
    kind           = "noop"
    time_dependent = true
  }
}

element "OB" "Cube" {
  name = "Cube Object"

  operation "geometry" "eval" {
    kind = "print"

    arguments {
      message = "cube ${reason.geometry}"
      count   = 3
    }

    relation "Empty/transform/local" {
      triggers = [reason.transform, "geometry"]
      no_flush = true
      name     = "parent"
    }
  }

  operation "modifier" "array" {
    kind  = "noop"
    index = 1

    relation "Cube/geometry/eval" {}
  }
}
`

func TestLoadScene(t *testing.T) {
	dir := writeFiles(t, map[string]string{"scene.hcl": cubeScene})

	scene, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	require.Len(t, scene.Elements, 2)

	empty := scene.Elements[0]
	assert.Equal(t, "Empty", empty.ID)
	assert.Equal(t, "Empty", empty.Name)
	assert.True(t, empty.Operations[0].TimeDependent)

	cube := scene.Elements[1]
	assert.Equal(t, "OB", cube.Type)
	assert.Equal(t, "Cube Object", cube.Name)
	require.Len(t, cube.Operations, 2)

	geom := cube.Operations[0]
	assert.Equal(t, "print", geom.Kind)
	assert.Nil(t, geom.Index)
	assert.Equal(t, cty.StringVal("cube 2"), geom.Arguments["message"])
	assert.True(t, geom.Arguments["count"].Equals(cty.NumberIntVal(3)).True())
	require.Len(t, geom.Relations, 1)
	assert.Equal(t, "Empty/transform/local", geom.Relations[0].From)
	assert.Equal(t, recalc.Transform|recalc.Geometry, geom.Relations[0].Triggers)
	assert.True(t, geom.Relations[0].NoFlush)
	assert.Equal(t, "parent", geom.Relations[0].Name)

	arr := cube.Operations[1]
	require.NotNil(t, arr.Index)
	assert.Equal(t, 1, *arr.Index)
	assert.Zero(t, arr.Relations[0].Triggers, "a relation without triggers is unconditional")

	d, err := scene.Description()
	require.NoError(t, err)
	assert.Len(t, d.Nodes, 3)
	assert.Len(t, d.Relations, 2)
}

func TestLoadMergesFilesAndGlobs(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"a/one.hcl":   `element "OB" "A" {}`,
		"a/b/two.hcl": `element "OB" "B" {}`,
		"notes.txt":   `not a scene`,
	})

	scene, err := NewLoader().Load(context.Background(), dir)
	require.NoError(t, err)
	assert.Len(t, scene.Elements, 2)

	scene, err = NewLoader().Load(context.Background(), filepath.Join(dir, "**", "two.hcl"))
	require.NoError(t, err)
	require.Len(t, scene.Elements, 1)
	assert.Equal(t, "B", scene.Elements[0].ID)

	// A missing path next to an existing one is skipped.
	scene, err = NewLoader().Load(context.Background(), filepath.Join(dir, "missing"), filepath.Join(dir, "a", "one.hcl"))
	require.NoError(t, err)
	assert.Len(t, scene.Elements, 1)
}

func TestLoadFailsWithoutSceneFiles(t *testing.T) {
	dir := writeFiles(t, map[string]string{"notes.txt": `not a scene`})
	for _, paths := range [][]string{
		{filepath.Join(dir, "missing")},
		{filepath.Join(dir, "missing"), filepath.Join(dir, "**", "*.hcl")},
		{dir},
	} {
		_, err := NewLoader().Load(context.Background(), paths...)
		assert.ErrorContains(t, err, "no scene files found", "paths %v", paths)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		files   map[string]string
		wantErr string
	}{
		{
			name:    "syntax error",
			files:   map[string]string{"bad.hcl": `element "OB" "A" {`},
			wantErr: "failed to parse HCL file",
		},
		{
			name:    "missing kind",
			files: map[string]string{"bad.hcl": `
element "OB" "A" {
  operation "c" "o" {}
}`},
			wantErr: "failed to decode HCL file",
		},
		{
			name: "unknown reason",
			files: map[string]string{"bad.hcl": `
element "OB" "A" {
  operation "c" "o" {
    kind = "noop"
    relation "B/c/o" { triggers = ["bogus"] }
  }
}`},
			wantErr: "unknown recalc reason",
		},
		{
			name: "empty triggers",
			files: map[string]string{"bad.hcl": `
element "OB" "A" {
  operation "c" "o" {
    kind = "noop"
    relation "B/c/o" { triggers = [] }
  }
}`},
			wantErr: "at least one reason",
		},
		{
			name: "duplicate element across files",
			files: map[string]string{
				"one.hcl": `element "OB" "A" {}`,
				"two.hcl": `element "ME" "A" {}`,
			},
			wantErr: "defined more than once",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := writeFiles(t, tc.files)
			_, err := NewLoader().Load(context.Background(), dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
