package depsgraph

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vk/depsgraph/internal/builder"
	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/document"
	"github.com/vk/depsgraph/internal/evalerr"
	"github.com/vk/depsgraph/internal/flush"
	"github.com/vk/depsgraph/internal/graph"
	"github.com/vk/depsgraph/internal/recalc"
)

// Source produces the description an instance is built from.
type Source interface {
	Describe(ctx context.Context) (builder.Description, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (builder.Description, error)

func (f SourceFunc) Describe(ctx context.Context) (builder.Description, error) { return f(ctx) }

type deferredKind uint8

const (
	deferElement deferredKind = iota
	deferTime
)

type deferredTag struct {
	kind    deferredKind
	element document.ID
	mask    recalc.Flag
}

// Instance is one operation graph bound to a document, a view and a mode.
type Instance struct {
	id     uuid.UUID
	engine *Engine
	mode   Mode

	ownersMu sync.RWMutex
	doc      *document.Document
	view     document.View
	scene    string

	// structMu guards the fields below and the topology of graph.
	structMu    sync.Mutex
	graph       *graph.Manager
	builder     *builder.Builder
	source      Source
	time        float64
	types       map[document.Type]bool
	timeChanged bool
	deferred    []deferredTag

	evalMu     sync.Mutex
	evaluating atomic.Bool

	table         *flush.Table
	active        atomic.Bool
	editorsUpdate atomic.Bool
	freed         atomic.Bool

	statsMu sync.Mutex
	last    PassStats
	passes  uint64
}

// ID returns the instance's unique identifier.
func (i *Instance) ID() string { return i.id.String() }

// Mode returns the evaluation mode.
func (i *Instance) Mode() Mode { return i.mode }

func (i *Instance) String() string {
	return fmt.Sprintf("%s/%s (%s)", i.Document().Name(), i.View(), i.mode)
}

// Document returns the owning document.
func (i *Instance) Document() *document.Document {
	i.ownersMu.RLock()
	defer i.ownersMu.RUnlock()
	return i.doc
}

// View returns the owning view.
func (i *Instance) View() document.View {
	i.ownersMu.RLock()
	defer i.ownersMu.RUnlock()
	return i.view
}

// Scene returns the owning scene name.
func (i *Instance) Scene() string {
	i.ownersMu.RLock()
	defer i.ownersMu.RUnlock()
	return i.scene
}

// ReplaceOwners rebinds the instance to a new document context. The graph,
// dirty state and recalc masks are kept; a rebuild is up to the caller.
func (i *Instance) ReplaceOwners(doc *document.Document, view document.View, scene string) error {
	i.structMu.Lock()
	defer i.structMu.Unlock()
	if err := i.usable("replace owners"); err != nil {
		return err
	}
	i.ownersMu.Lock()
	i.doc, i.view, i.scene = doc, view, scene
	i.ownersMu.Unlock()
	return nil
}

// usable rejects calls on freed instances and structural changes during a
// pass. Callers hold structMu.
func (i *Instance) usable(op string) error {
	if i.freed.Load() {
		return &evalerr.Error{Kind: evalerr.ErrFreed, Op: op, Msg: i.ID()}
	}
	if i.evaluating.Load() {
		return &evalerr.Error{Kind: evalerr.ErrAlreadyEvaluating, Op: op, Msg: i.ID()}
	}
	return nil
}

func (i *Instance) logContext(ctx context.Context) context.Context {
	return ctxlog.With(ctx, "instance", i.ID(), "mode", i.mode.String())
}

// SetSource sets what Rebuild describes the graph from.
func (i *Instance) SetSource(src Source) {
	i.structMu.Lock()
	defer i.structMu.Unlock()
	i.source = src
}

// Build applies a description to the graph. On error the previous graph is
// kept unchanged.
func (i *Instance) Build(ctx context.Context, d builder.Description) (*builder.Result, error) {
	ctx = i.logContext(ctx)
	i.structMu.Lock()
	defer i.structMu.Unlock()
	if err := i.usable("build"); err != nil {
		return nil, err
	}
	return i.buildLocked(ctx, d)
}

// Rebuild describes the graph again from the instance's Source.
func (i *Instance) Rebuild(ctx context.Context) (*builder.Result, error) {
	ctx = i.logContext(ctx)
	i.structMu.Lock()
	defer i.structMu.Unlock()
	if err := i.usable("rebuild"); err != nil {
		return nil, err
	}
	if i.source == nil {
		return nil, fmt.Errorf("rebuild %s: no source configured", i)
	}
	d, err := i.source.Describe(ctx)
	if err != nil {
		return nil, fmt.Errorf("rebuild %s: describing graph: %w", i, err)
	}
	return i.buildLocked(ctx, d)
}

func (i *Instance) buildLocked(ctx context.Context, d builder.Description) (*builder.Result, error) {
	res, err := i.builder.Apply(ctx, i.graph, d)
	i.engine.cfg.Metrics.ObserveBuild(res != nil && res.Unchanged, err)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", i, err)
	}
	for _, el := range res.Touched {
		i.table.Tag(document.ID(el), recalc.All)
	}
	for el, mask := range res.Elements {
		i.table.Tag(document.ID(el), mask)
	}
	i.applyPendingLocked(ctx)
	return res, nil
}

// applyPendingLocked folds in tags queued on the document before this
// instance existed.
func (i *Instance) applyPendingLocked(ctx context.Context) {
	for _, p := range i.Document().DrainPending() {
		i.tagElementLocked(ctx, p.Element, p.Mask)
	}
}

// PassStats describes the last evaluation pass.
type PassStats struct {
	Planned    int
	Evaluated  int
	Failed     int
	Skipped    int
	Duration   time.Duration
	AnyChanged bool
	Err        error
}

// NodeFailure is the error left by a node's last failed evaluation.
type NodeFailure struct {
	Key string
	Err error
}

// Stats is a snapshot of an instance.
type Stats struct {
	Nodes      int
	Relations  int
	Tombstones int
	Dirty      int
	// Evaluations counts successful evaluations of the live nodes.
	Evaluations uint64
	// Failures lists nodes whose last evaluation failed, in creation order.
	Failures []NodeFailure
	Passes   uint64
	LastPass PassStats
}

// Stats returns a snapshot of the instance's size and last pass.
func (i *Instance) Stats() Stats {
	i.structMu.Lock()
	ts := i.graph.Topology()
	s := Stats{
		Nodes:      ts.Len(),
		Relations:  ts.RelationCount(),
		Tombstones: ts.Tombstones(),
		Dirty:      len(i.graph.DirtyNodes()),
	}
	for _, h := range i.graph.AllNodes() {
		s.Evaluations += i.graph.Evaluations(h)
		if err := i.graph.NodeError(h); err != nil {
			n, _ := i.graph.Node(h)
			s.Failures = append(s.Failures, NodeFailure{Key: n.Key.String(), Err: err})
		}
	}
	i.structMu.Unlock()

	i.statsMu.Lock()
	s.Passes = i.passes
	s.LastPass = i.last
	i.statsMu.Unlock()
	return s
}
