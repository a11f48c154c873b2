package depsgraph

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/depsgraph/internal/builder"
	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/document"
	"github.com/vk/depsgraph/internal/evalerr"
	"github.com/vk/depsgraph/internal/flush"
	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/nodeid"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/vk/depsgraph/internal/registry"
	"github.com/vk/depsgraph/internal/testutil"
	"github.com/vk/depsgraph/internal/topologystore"
)

type harness struct {
	engine *Engine
	doc    *document.Document
	rec    *testutil.Recorder
	mu     sync.Mutex
	bodies map[string]func(*node.EvalContext) error

	elements []flush.ElementUpdate
	graphs   []flush.GraphUpdate
}

func newHarness(t *testing.T, workers int) *harness {
	t.Helper()
	h := &harness{doc: document.New("scene.hcl"), rec: testutil.NewRecorder(), bodies: make(map[string]func(*node.EvalContext) error)}
	reg := registry.New()
	reg.Register(&registry.Kind{
		Name: "rec",
		New: func(spec registry.Spec) (node.Operation, error) {
			el := spec.Key.Element
			return h.rec.Op(func(ec *node.EvalContext) error {
				h.mu.Lock()
				body := h.bodies[el]
				h.mu.Unlock()
				if body != nil {
					return body(ec)
				}
				return nil
			}), nil
		},
	})
	h.engine = NewEngine(Config{
		Registry: reg,
		Workers:  workers,
		Callbacks: flush.Callbacks{
			Element: func(_ context.Context, u flush.ElementUpdate) {
				h.mu.Lock()
				defer h.mu.Unlock()
				h.elements = append(h.elements, u)
			},
			Graph: func(_ context.Context, u flush.GraphUpdate) {
				h.mu.Lock()
				defer h.mu.Unlock()
				h.graphs = append(h.graphs, u)
			},
		},
	})
	return h
}

func (h *harness) body(el string, f func(*node.EvalContext) error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bodies[el] = f
}

func (h *harness) notified() []document.ID {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []document.ID
	for _, u := range h.elements {
		out = append(out, u.Element)
	}
	return out
}

func key(el string) nodeid.Key { return nodeid.New(el, "main", "eval") }

func describe(names []string, edges [][2]string) builder.Description {
	var d builder.Description
	for _, n := range names {
		d.Nodes = append(d.Nodes, builder.NodeSpec{Key: key(n), Kind: "rec"})
	}
	for _, e := range edges {
		d.Relations = append(d.Relations, builder.RelationSpec{From: key(e[0]), To: key(e[1])})
	}
	return d
}

// settle builds the graph, evaluates it once and clears all bookkeeping so
// the test starts from a clean, fully evaluated graph.
func (h *harness) settle(t *testing.T, inst *Instance, d builder.Description) {
	t.Helper()
	ctx := context.Background()
	_, err := inst.Build(ctx, d)
	require.NoError(t, err)
	require.NoError(t, inst.EvaluateOnRefresh(ctx))
	inst.ClearRecalc(false)
	h.rec.Reset()
	h.mu.Lock()
	h.elements, h.graphs = nil, nil
	h.mu.Unlock()
}

func dirty(t *testing.T, inst *Instance, el string) bool {
	t.Helper()
	d, err := inst.IsDirty(key(el))
	require.NoError(t, err)
	return d
}

func TestConcreteScenario(t *testing.T) {
	for _, workers := range []int{1, 4} {
		h := newHarness(t, workers)
		inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
		h.settle(t, inst, describe([]string{"A", "B", "C", "D"}, [][2]string{{"A", "C"}, {"B", "C"}, {"C", "D"}}))
		ctx := context.Background()

		require.NoError(t, inst.TagElement(ctx, "A", recalc.Transform))
		assert.True(t, dirty(t, inst, "A"))
		assert.False(t, dirty(t, inst, "B"))
		assert.True(t, dirty(t, inst, "C"))
		assert.True(t, dirty(t, inst, "D"))

		require.NoError(t, inst.EvaluateOnRefresh(ctx))
		if diff := cmp.Diff([]string{"A", "C", "D"}, h.rec.Order()); diff != "" {
			t.Errorf("workers=%d: evaluation order mismatch (-want +got):\n%s", workers, diff)
		}
		assert.Equal(t, 0, h.rec.Count("B"))
		for _, el := range []string{"A", "B", "C", "D"} {
			assert.False(t, dirty(t, inst, el), el)
		}
		assert.Equal(t, []document.ID{"A", "C", "D"}, h.notified())
	}
}

func TestMinimalReEvaluation(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	h.settle(t, inst, describe([]string{"A", "B", "C"}, [][2]string{{"A", "B"}}))
	ctx := context.Background()

	require.NoError(t, inst.EvaluateOnRefresh(ctx))
	assert.Empty(t, h.rec.Order(), "nothing is dirty")

	require.NoError(t, inst.TagElement(ctx, "C", recalc.Shading))
	require.NoError(t, inst.EvaluateOnRefresh(ctx))
	assert.Equal(t, []string{"C"}, h.rec.Order())
	assert.Equal(t, uint32(recalc.Shading), h.rec.LastMask("C"))
}

func TestConditionalRelationThroughInstance(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	d := describe([]string{"A", "B"}, nil)
	d.Relations = []builder.RelationSpec{{From: key("A"), To: key("B"), Kind: topologystore.Conditional, Triggers: recalc.Geometry}}
	h.settle(t, inst, d)
	ctx := context.Background()

	require.NoError(t, inst.TagElement(ctx, "A", recalc.Selection))
	require.NoError(t, inst.EvaluateOnRefresh(ctx))
	assert.Equal(t, []string{"A"}, h.rec.Order())
}

func TestBuildRejectsCycle(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	h.settle(t, inst, describe([]string{"A", "B"}, [][2]string{{"A", "B"}}))
	before := inst.Stats()

	_, err := inst.Build(context.Background(), describe([]string{"A", "B"}, [][2]string{{"A", "B"}, {"B", "A"}}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, evalerr.ErrGraphInconsistency))

	after := inst.Stats()
	assert.Equal(t, before.Nodes, after.Nodes)
	assert.Equal(t, before.Relations, after.Relations)
	require.NoError(t, inst.EvaluateOnRefresh(context.Background()))
}

func TestReentrancyGuard(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	h.settle(t, inst, describe([]string{"A", "B"}, [][2]string{{"A", "B"}}))
	ctx := context.Background()

	var nested error
	h.body("A", func(ec *node.EvalContext) error {
		assert.True(t, inst.IsEvaluating())
		nested = inst.EvaluateOnRefresh(ec.Context())
		_, buildErr := inst.Build(ec.Context(), describe([]string{"A"}, nil))
		assert.True(t, errors.Is(buildErr, evalerr.ErrAlreadyEvaluating))
		return nil
	})
	require.NoError(t, inst.TagElement(ctx, "A", recalc.Transform))
	require.NoError(t, inst.EvaluateOnRefresh(ctx))

	require.Error(t, nested)
	assert.True(t, errors.Is(nested, evalerr.ErrAlreadyEvaluating))
	assert.Equal(t, []string{"A", "B"}, h.rec.Order(), "the outer pass completed normally")
	assert.False(t, inst.IsEvaluating())
	assert.Equal(t, 2, inst.Stats().Nodes)
}

func TestTagDuringPassIsDeferred(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	h.settle(t, inst, describe([]string{"A", "B", "C"}, [][2]string{{"A", "B"}}))
	ctx := context.Background()

	h.body("A", func(ec *node.EvalContext) error {
		return inst.TagElement(ec.Context(), "C", recalc.Geometry)
	})
	require.NoError(t, inst.TagElement(ctx, "A", recalc.Transform))
	require.NoError(t, inst.EvaluateOnRefresh(ctx))
	assert.Equal(t, []string{"A", "B"}, h.rec.Order())
	assert.False(t, dirty(t, inst, "C"), "deferred tags wait for the next pass")

	h.body("A", nil)
	h.rec.Reset()
	require.NoError(t, inst.EvaluateOnRefresh(ctx))
	assert.Equal(t, []string{"C"}, h.rec.Order())
}

func TestBackupRestoreThroughInstance(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	h.settle(t, inst, describe([]string{"A", "B"}, [][2]string{{"A", "B"}}))
	ctx := context.Background()

	require.NoError(t, inst.TagElement(ctx, "A", recalc.Geometry))
	require.NoError(t, inst.EvaluateOnRefresh(ctx))
	assert.Equal(t, recalc.Geometry, inst.RecalcMask("B"))

	inst.ClearRecalc(true)
	assert.Zero(t, inst.RecalcMask("A"))
	require.NoError(t, inst.RestoreRecalc())
	assert.Equal(t, recalc.Geometry, inst.RecalcMask("A"))
	assert.Equal(t, recalc.Geometry, inst.RecalcMask("B"))
	assert.ErrorIs(t, inst.RestoreRecalc(), evalerr.ErrNoBackup)
}

func TestRenderInstanceSkipsEditorCallbacks(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Render)
	assert.False(t, inst.EditorsUpdateEnabled())
	h.settle(t, inst, describe([]string{"A"}, nil))

	require.NoError(t, inst.TagElement(context.Background(), "A", recalc.Transform))
	require.NoError(t, inst.EvaluateOnRefresh(context.Background()))
	assert.Empty(t, h.notified())

	inst.EnableEditorsUpdate()
	assert.True(t, inst.EditorsUpdate(context.Background(), false))
	assert.Equal(t, []document.ID{"A"}, h.notified())
}

func TestGraphCallbackAnyChanged(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	h.settle(t, inst, describe([]string{"A"}, nil))

	require.NoError(t, inst.EvaluateOnRefresh(context.Background()))
	require.NoError(t, inst.TagType("OB"))
	assert.True(t, inst.TypeUpdated("OB"))
	require.NoError(t, inst.EvaluateOnRefresh(context.Background()))

	require.Len(t, h.graphs, 2)
	assert.False(t, h.graphs[0].AnyChanged)
	assert.True(t, h.graphs[1].AnyChanged)

	inst.ClearRecalc(false)
	assert.False(t, inst.TypeUpdated("OB"))
}

func TestFrameChange(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	d := describe([]string{"Clock", "Mesh", "Static"}, [][2]string{{"Clock", "Mesh"}})
	d.Nodes[0].Flags = node.TimeDependent
	h.settle(t, inst, d)

	var seen float64
	h.body("Mesh", func(ec *node.EvalContext) error {
		seen = ec.Time()
		return nil
	})
	require.NoError(t, inst.EvaluateOnFrameChange(context.Background(), 42))
	assert.Equal(t, []string{"Clock", "Mesh"}, h.rec.Order())
	assert.Equal(t, 42.0, seen)
	assert.Equal(t, 42.0, inst.Time())
	assert.Equal(t, recalc.Time, inst.RecalcMask("Mesh"))
}

func TestEngineTagsEveryInstanceAndQueuesWithoutOne(t *testing.T) {
	h := newHarness(t, 1)
	ctx := context.Background()
	require.NoError(t, h.doc.AddElement(document.Element{ID: "A", Type: "OB"}))

	// No instance yet: the tag waits on the document.
	h.engine.TagElement(ctx, h.doc, "A", recalc.Geometry)

	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	_, err := inst.Build(ctx, describe([]string{"A"}, nil))
	require.NoError(t, err)
	// The queued tag ORs into the mask the build gives a new element.
	assert.Equal(t, recalc.All|recalc.Geometry, inst.RecalcMask("A"))
	assert.Empty(t, h.doc.DrainPending())
	assert.True(t, inst.TypeUpdated("OB"))

	render := h.engine.NewInstance(h.doc, "view", "Scene", Render)
	_, err = render.Build(ctx, describe([]string{"A"}, nil))
	require.NoError(t, err)
	require.NoError(t, inst.EvaluateOnRefresh(ctx))
	require.NoError(t, render.EvaluateOnRefresh(ctx))

	h.engine.TagElement(ctx, h.doc, "A", recalc.Transform)
	assert.True(t, dirty(t, inst, "A"))
	assert.True(t, dirty(t, render, "A"))
}

func TestMakeActive(t *testing.T) {
	h := newHarness(t, 1)
	a := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	b := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	other := h.engine.NewInstance(h.doc, "other", "Scene", Viewport)

	a.MakeActive()
	other.MakeActive()
	b.MakeActive()
	assert.False(t, a.IsActive())
	assert.True(t, b.IsActive())
	assert.True(t, other.IsActive())
	assert.Same(t, b, h.engine.Active(h.doc, "view"))

	b.MakeInactive()
	assert.Nil(t, h.engine.Active(h.doc, "view"))
}

func TestFreedInstance(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	h.engine.Free(inst)
	assert.Empty(t, h.engine.Instances())
	assert.ErrorIs(t, inst.EvaluateOnRefresh(context.Background()), evalerr.ErrFreed)
	assert.ErrorIs(t, inst.TagElement(context.Background(), "A", 0), evalerr.ErrFreed)
	assert.ErrorIs(t, inst.TagType("OB"), evalerr.ErrFreed)
}

func TestEngineLogsTagsRacingFree(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	// Freed but not yet unregistered, as when Free runs concurrently.
	inst.freed.Store(true)

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ctx := ctxlog.WithLogger(context.Background(), logger)

	h.engine.TagElement(ctx, h.doc, "A", recalc.Geometry)
	h.engine.TagTimeChanged(ctx)
	h.engine.TagDocumentType(ctx, h.doc, "OB")

	out := buf.String()
	assert.Contains(t, out, "Instance not tagged.")
	assert.Contains(t, out, "Instance not tagged for time change.")
	assert.Contains(t, out, "Instance not tagged for type.")
	assert.Contains(t, out, inst.ID())
	assert.Empty(t, h.doc.DrainPending())
}

func TestRequestEvalFlags(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	h.settle(t, inst, describe([]string{"Curve"}, nil))

	var got node.EvalFlags
	h.body("Curve", func(ec *node.EvalContext) error {
		got = ec.EvalFlags()
		return nil
	})
	require.NoError(t, inst.RequestEvalFlags(key("Curve"), node.NeedCurvePath))
	require.NoError(t, inst.TagElement(context.Background(), "Curve", recalc.Geometry))
	require.NoError(t, inst.EvaluateOnRefresh(context.Background()))
	assert.Equal(t, node.NeedCurvePath, got)

	assert.Error(t, inst.RequestEvalFlags(key("Ghost"), node.NeedCurvePath))
}

func TestFailedPassKeepsNodesDirtyAndSkipsFlush(t *testing.T) {
	h := newHarness(t, 2)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	h.settle(t, inst, describe([]string{"A", "B", "X"}, [][2]string{{"A", "B"}}))
	ctx := context.Background()

	h.body("A", func(*node.EvalContext) error { return errors.New("bad mesh") })
	require.NoError(t, inst.TagElement(ctx, "A", recalc.Geometry))
	require.NoError(t, inst.TagElement(ctx, "X", recalc.Geometry))

	err := inst.EvaluateOnRefresh(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, evalerr.ErrOperationFailed))
	assert.True(t, dirty(t, inst, "A"))
	assert.True(t, dirty(t, inst, "B"))
	assert.False(t, dirty(t, inst, "X"))
	assert.Empty(t, h.notified())

	stats := inst.Stats()
	assert.Equal(t, 1, stats.LastPass.Failed)
	assert.Equal(t, 1, stats.LastPass.Skipped)
	assert.Equal(t, 2, stats.Dirty)
	require.Len(t, stats.Failures, 1)
	assert.Equal(t, "A/main/eval", stats.Failures[0].Key)
	assert.ErrorContains(t, stats.Failures[0].Err, "bad mesh")
	// Settling ran A, B and X; X ran again.
	assert.Equal(t, uint64(4), stats.Evaluations)

	h.body("A", nil)
	require.NoError(t, inst.EvaluateOnRefresh(ctx))
	stats = inst.Stats()
	assert.Equal(t, 0, stats.Dirty)
	assert.Empty(t, stats.Failures)
	assert.Equal(t, uint64(6), stats.Evaluations)
}

func TestDifferentInstancesEvaluateConcurrently(t *testing.T) {
	h := newHarness(t, 2)
	a := h.engine.NewInstance(h.doc, "left", "Scene", Viewport)
	b := h.engine.NewInstance(h.doc, "right", "Scene", Viewport)
	ctx := context.Background()
	for _, inst := range []*Instance{a, b} {
		_, err := inst.Build(ctx, describe([]string{"A", "B"}, [][2]string{{"A", "B"}}))
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for idx, inst := range []*Instance{a, b} {
		wg.Add(1)
		go func(idx int, inst *Instance) {
			defer wg.Done()
			errs[idx] = inst.EvaluateOnRefresh(ctx)
		}(idx, inst)
	}
	wg.Wait()
	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, 2, h.rec.Count("A"))
}

func TestRebuildFromSource(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	_, err := inst.Rebuild(context.Background())
	assert.Error(t, err)

	names := []string{"A"}
	inst.SetSource(SourceFunc(func(context.Context) (builder.Description, error) {
		return describe(names, nil), nil
	}))
	res, err := inst.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Added, 1)

	res, err = inst.Rebuild(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Unchanged)

	names = []string{"A", "B"}
	res, err = inst.Rebuild(context.Background())
	require.NoError(t, err)
	assert.Len(t, res.Added, 1)
	assert.Equal(t, 2, inst.Stats().Nodes)
}

func TestRebuildReevaluatesDependents(t *testing.T) {
	timeDependent := func(d builder.Description, el string) builder.Description {
		for i := range d.Nodes {
			if d.Nodes[i].Key.Element == el {
				d.Nodes[i].Flags |= node.TimeDependent
			}
		}
		return d
	}
	tests := []struct {
		name     string
		settled  builder.Description
		rebuilt  builder.Description
		want     []string
		notified []document.ID
	}{
		{
			name:     "replaced node",
			settled:  describe([]string{"A", "B"}, [][2]string{{"A", "B"}}),
			rebuilt:  timeDependent(describe([]string{"A", "B"}, [][2]string{{"A", "B"}}), "A"),
			want:     []string{"A", "B"},
			notified: []document.ID{"A", "B"},
		},
		{
			name:     "added upstream node",
			settled:  describe([]string{"B"}, nil),
			rebuilt:  describe([]string{"B", "C"}, [][2]string{{"C", "B"}}),
			want:     []string{"C", "B"},
			notified: []document.ID{"B", "C"},
		},
		{
			name:     "added relation between existing nodes",
			settled:  describe([]string{"A", "B", "C"}, [][2]string{{"B", "C"}}),
			rebuilt:  describe([]string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}}),
			want:     []string{"B", "C"},
			notified: []document.ID{"B", "C"},
		},
		{
			name:     "removed relation",
			settled:  describe([]string{"A", "B", "C"}, [][2]string{{"A", "B"}, {"B", "C"}}),
			rebuilt:  describe([]string{"A", "B", "C"}, [][2]string{{"B", "C"}}),
			want:     []string{"B", "C"},
			notified: []document.ID{"B", "C"},
		},
		{
			name:     "removed upstream node",
			settled:  describe([]string{"A", "B"}, [][2]string{{"A", "B"}}),
			rebuilt:  describe([]string{"B"}, nil),
			want:     []string{"B"},
			notified: []document.ID{"A", "B"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, 1)
			inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
			h.settle(t, inst, tt.settled)
			ctx := context.Background()

			_, err := inst.Build(ctx, tt.rebuilt)
			require.NoError(t, err)
			require.NoError(t, inst.EvaluateOnRefresh(ctx))
			if diff := cmp.Diff(tt.want, h.rec.Order()); diff != "" {
				t.Errorf("evaluation order mismatch (-want +got):\n%s", diff)
			}
			if diff := cmp.Diff(tt.notified, h.notified()); diff != "" {
				t.Errorf("notified elements mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestReplaceOwners(t *testing.T) {
	h := newHarness(t, 1)
	inst := h.engine.NewInstance(h.doc, "view", "Scene", Viewport)
	h.settle(t, inst, describe([]string{"A"}, nil))

	next := document.New("other.hcl")
	require.NoError(t, inst.ReplaceOwners(next, "view2", "Scene.001"))
	assert.Same(t, next, inst.Document())
	assert.Equal(t, document.View("view2"), inst.View())
	assert.Equal(t, "Scene.001", inst.Scene())
	assert.Equal(t, 1, inst.Stats().Nodes)
}
