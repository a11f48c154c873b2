package flush

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/depsgraph/internal/document"
	"github.com/vk/depsgraph/internal/evalerr"
	"github.com/vk/depsgraph/internal/recalc"
)

func TestBackupRestoreRoundTrip(t *testing.T) {
	tbl := NewTable()
	tbl.Tag("Cube", recalc.Transform)
	tbl.Tag("Cube", recalc.Geometry)
	tbl.Tag("Lamp", recalc.Shading)
	before := tbl.Snapshot()

	tbl.Clear(true)
	assert.Empty(t, tbl.Snapshot())

	require.NoError(t, tbl.Restore())
	assert.Equal(t, before, tbl.Snapshot())

	err := tbl.Restore()
	require.Error(t, err)
	assert.True(t, errors.Is(err, evalerr.ErrNoBackup))
	assert.Equal(t, before, tbl.Snapshot(), "a failed restore changes nothing")
}

func TestClearWithoutBackup(t *testing.T) {
	tbl := NewTable()
	tbl.Tag("Cube", recalc.Transform)
	tbl.Clear(false)
	assert.Zero(t, tbl.Get("Cube"))
	assert.ErrorIs(t, tbl.Restore(), evalerr.ErrNoBackup)
}

func TestTagZeroIsIgnored(t *testing.T) {
	tbl := NewTable()
	tbl.Tag("Cube", 0)
	assert.Empty(t, tbl.Snapshot())
}

func TestNotifyOrderAndAnyChanged(t *testing.T) {
	var elements []document.ID
	var graphs []GraphUpdate
	cb := Callbacks{
		Element: func(_ context.Context, u ElementUpdate) { elements = append(elements, u.Element) },
		Graph:   func(_ context.Context, u GraphUpdate) { graphs = append(graphs, u) },
	}
	ctx := context.Background()

	changed := Notify(ctx, cb, "viewport", 3, map[document.ID]recalc.Flag{"b": recalc.Transform, "a": recalc.Geometry, "z": 0}, false)
	assert.True(t, changed)
	assert.Equal(t, []document.ID{"a", "b"}, elements)
	require.Len(t, graphs, 1)
	assert.Equal(t, GraphUpdate{Instance: "viewport", Time: 3, AnyChanged: true}, graphs[0])

	assert.False(t, Notify(ctx, cb, "viewport", 3, nil, false))
	assert.True(t, Notify(ctx, cb, "viewport", 3, nil, true))
	assert.Len(t, graphs, 3)
}

func TestChain(t *testing.T) {
	var calls []string
	a := Callbacks{Element: func(context.Context, ElementUpdate) { calls = append(calls, "a") }}
	b := Callbacks{
		Element: func(context.Context, ElementUpdate) { calls = append(calls, "b") },
		Graph:   func(context.Context, GraphUpdate) { calls = append(calls, "g") },
	}
	cb := Chain(a, Callbacks{}, b)
	Notify(context.Background(), cb, "x", 0, map[document.ID]recalc.Flag{"e": recalc.All}, false)
	assert.Equal(t, []string{"a", "b", "g"}, calls)
	assert.Nil(t, Chain().Element)
}
