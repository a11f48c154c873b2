package inmemorytopology

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/nodeid"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/vk/depsgraph/internal/topologystore"
)

func addNode(t *testing.T, s *Store, element, op string) topologystore.Handle {
	t.Helper()
	h, err := s.AddNode(context.Background(), node.New(nodeid.New(element, "main", op), "noop", nil, 0))
	require.NoError(t, err)
	return h
}

func TestAddAndLookupNode(t *testing.T) {
	s := New()
	h := addNode(t, s, "Cube", "eval")

	got, ok := s.Lookup(nodeid.New("Cube", "main", "eval"))
	require.True(t, ok)
	assert.Equal(t, h, got)

	n, ok := s.Node(h)
	require.True(t, ok)
	assert.Equal(t, uint64(1), n.Order)
	assert.Equal(t, 1, s.Len())
}

func TestAddDuplicateNode(t *testing.T) {
	s := New()
	addNode(t, s, "Cube", "eval")
	_, err := s.AddNode(context.Background(), node.New(nodeid.New("Cube", "main", "eval"), "noop", nil, 0))
	assert.Error(t, err)
}

func TestRelationValidation(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := addNode(t, s, "A", "eval")
	b := addNode(t, s, "B", "eval")

	require.NoError(t, s.AddRelation(ctx, topologystore.Relation{From: a, To: b}))
	assert.Error(t, s.AddRelation(ctx, topologystore.Relation{From: a, To: b}), "duplicate pair")
	assert.Error(t, s.AddRelation(ctx, topologystore.Relation{From: a, To: a}), "self relation")
	assert.Error(t, s.AddRelation(ctx, topologystore.Relation{From: a, To: topologystore.Handle{Index: 9, Gen: 1}}))
}

func TestRemoveNodeTombstonesRelationsAndBumpsGeneration(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := addNode(t, s, "A", "eval")
	b := addNode(t, s, "B", "eval")
	c := addNode(t, s, "C", "eval")
	require.NoError(t, s.AddRelation(ctx, topologystore.Relation{From: a, To: b}))
	require.NoError(t, s.AddRelation(ctx, topologystore.Relation{From: b, To: c}))

	require.NoError(t, s.RemoveNode(ctx, b))
	assert.Equal(t, 0, s.RelationCount())
	assert.Equal(t, 2, s.Tombstones())
	assert.Empty(t, s.Outgoing(a))
	assert.Empty(t, s.Incoming(c))

	_, ok := s.Node(b)
	assert.False(t, ok, "stale handle must not resolve")
	assert.Error(t, s.RemoveNode(ctx, b))

	// The freed slot is reused with a new generation.
	d := addNode(t, s, "D", "eval")
	assert.Equal(t, b.Index, d.Index)
	assert.NotEqual(t, b.Gen, d.Gen)
	_, ok = s.Node(b)
	assert.False(t, ok)
	assert.Empty(t, s.NodesOf("B"))
}

func TestOrderingFollowsCreation(t *testing.T) {
	ctx := context.Background()
	s := New()
	src := addNode(t, s, "Src", "eval")
	z := addNode(t, s, "Z", "eval")
	y := addNode(t, s, "Y", "eval")
	x := addNode(t, s, "X", "eval")
	for _, to := range []topologystore.Handle{x, z, y} {
		require.NoError(t, s.AddRelation(ctx, topologystore.Relation{From: src, To: to}))
	}

	var got []topologystore.Handle
	for _, r := range s.Outgoing(src) {
		got = append(got, r.To)
	}
	assert.Equal(t, []topologystore.Handle{z, y, x}, got)
	assert.Equal(t, []topologystore.Handle{src, z, y, x}, s.Nodes())
}

func TestCompact(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := addNode(t, s, "A", "eval")
	b := addNode(t, s, "B", "eval")
	c := addNode(t, s, "C", "eval")
	require.NoError(t, s.AddRelation(ctx, topologystore.Relation{From: a, To: b}))
	require.NoError(t, s.AddRelation(ctx, topologystore.Relation{From: a, To: c, Kind: topologystore.Conditional, Triggers: recalc.Geometry}))
	require.NoError(t, s.AddRelation(ctx, topologystore.Relation{From: b, To: c}))

	assert.True(t, s.RemoveRelation(ctx, a, b))
	assert.False(t, s.RemoveRelation(ctx, a, b))
	assert.Equal(t, 1, s.Tombstones())

	s.Compact()
	assert.Equal(t, 0, s.Tombstones())
	assert.Equal(t, 2, s.RelationCount())
	rel, ok := s.Relation(a, c)
	require.True(t, ok)
	assert.Equal(t, recalc.Geometry, rel.Triggers)
	assert.Len(t, s.Incoming(c), 2)
}

func TestAutomaticCompaction(t *testing.T) {
	ctx := context.Background()
	s := New()
	hub := addNode(t, s, "Hub", "eval")
	var leaves []topologystore.Handle
	for i := 0; i < 2*minCompaction; i++ {
		h := addNode(t, s, fmt.Sprintf("L%d", i), "eval")
		leaves = append(leaves, h)
		require.NoError(t, s.AddRelation(ctx, topologystore.Relation{From: hub, To: h}))
	}
	for _, h := range leaves[:minCompaction+1] {
		require.True(t, s.RemoveRelation(ctx, hub, h))
	}
	assert.Equal(t, 0, s.Tombstones())
	assert.Equal(t, minCompaction-1, s.RelationCount())
	assert.Len(t, s.Outgoing(hub), minCompaction-1)
}

func TestCloneIsIndependent(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := addNode(t, s, "A", "eval")
	b := addNode(t, s, "B", "eval")
	require.NoError(t, s.AddRelation(ctx, topologystore.Relation{From: a, To: b}))

	c := s.Clone()
	require.NoError(t, c.RemoveNode(ctx, b))
	_, err := c.AddNode(ctx, node.New(nodeid.New("C", "main", "eval"), "noop", nil, 0))
	require.NoError(t, err)

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, 1, s.RelationCount())
	_, ok := s.Node(b)
	assert.True(t, ok)
	_, ok = s.Lookup(nodeid.New("C", "main", "eval"))
	assert.False(t, ok)
	assert.Equal(t, 2, c.Len())
}

func TestRelationFires(t *testing.T) {
	cond := topologystore.Relation{Kind: topologystore.Conditional, Triggers: recalc.Geometry}
	assert.True(t, cond.Fires(recalc.Geometry|recalc.Transform))
	assert.False(t, cond.Fires(recalc.Transform))
	assert.True(t, cond.Fires(recalc.All))
	assert.True(t, topologystore.Relation{}.Fires(recalc.Selection))
}
