package depsgraph

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/vk/depsgraph/internal/builder"
	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/document"
	"github.com/vk/depsgraph/internal/flush"
	"github.com/vk/depsgraph/internal/graph"
	"github.com/vk/depsgraph/internal/inmemorystore"
	"github.com/vk/depsgraph/internal/inmemorytopology"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/vk/depsgraph/internal/registry"
	"github.com/vk/depsgraph/internal/trace"
)

// Engine owns the live instances and their shared configuration.
type Engine struct {
	cfg Config

	mu        sync.Mutex
	instances []*Instance
}

// NewEngine creates an engine. A nil registry is replaced by an empty one.
func NewEngine(cfg Config) *Engine {
	if cfg.Registry == nil {
		cfg.Registry = registry.New()
	}
	if cfg.Sink == nil {
		cfg.Sink = trace.Nop{}
	}
	return &Engine{cfg: cfg}
}

// NewInstance creates an empty graph instance for doc. Render instances start
// with editor updates disabled.
func (e *Engine) NewInstance(doc *document.Document, view document.View, scene string, mode Mode) *Instance {
	inst := &Instance{
		id:      uuid.New(),
		engine:  e,
		doc:     doc,
		view:    view,
		scene:   scene,
		mode:    mode,
		graph:   graph.New(inmemorytopology.New(), inmemorystore.New()),
		builder: builder.New(e.cfg.Registry),
		table:   flush.NewTable(),
		types:   make(map[document.Type]bool),
	}
	inst.editorsUpdate.Store(mode != Render)

	e.mu.Lock()
	e.instances = append(e.instances, inst)
	e.mu.Unlock()
	e.cfg.Metrics.InstanceAdded()
	return inst
}

// Free detaches inst from the engine. Further calls on inst fail with
// evalerr.ErrFreed. Freeing waits for an in-flight pass of inst to finish.
func (e *Engine) Free(inst *Instance) {
	inst.evalMu.Lock()
	inst.structMu.Lock()
	already := inst.freed.Swap(true)
	inst.structMu.Unlock()
	inst.evalMu.Unlock()
	if already {
		return
	}

	e.mu.Lock()
	for i, other := range e.instances {
		if other == inst {
			e.instances = append(e.instances[:i:i], e.instances[i+1:]...)
			break
		}
	}
	e.mu.Unlock()
	e.cfg.Metrics.InstanceRemoved(inst.ID())
}

// Instances returns the live instances in creation order.
func (e *Engine) Instances() []*Instance {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Instance(nil), e.instances...)
}

func (e *Engine) instancesOf(doc *document.Document) []*Instance {
	var out []*Instance
	for _, inst := range e.Instances() {
		if inst.Document() == doc {
			out = append(out, inst)
		}
	}
	return out
}

// TagElement tags an element in every instance built for doc. When no
// instance exists yet the tag is kept on the document and applied by the
// first instance that builds or evaluates.
func (e *Engine) TagElement(ctx context.Context, doc *document.Document, id document.ID, mask recalc.Flag) {
	instances := e.instancesOf(doc)
	if len(instances) == 0 {
		ctxlog.FromContext(ctx).Debug("No instance for document, queueing tag.", "document", doc.Name(), "element", id, "reasons", recalc.Normalize(mask))
		doc.QueueTag(id, mask)
		return
	}
	for _, inst := range instances {
		if err := inst.TagElement(ctx, id, mask); err != nil {
			ctxlog.FromContext(ctx).Debug("Instance not tagged.", "instance", inst.ID(), "element", id, "error", err)
		}
	}
}

// TagTimeChanged tags the time-dependent nodes of every instance.
func (e *Engine) TagTimeChanged(ctx context.Context) {
	for _, inst := range e.Instances() {
		if err := inst.TagTimeChanged(ctx); err != nil {
			ctxlog.FromContext(ctx).Debug("Instance not tagged for time change.", "instance", inst.ID(), "error", err)
		}
	}
}

// TagDocumentType marks type t as updated in every instance of doc.
func (e *Engine) TagDocumentType(ctx context.Context, doc *document.Document, t document.Type) {
	for _, inst := range e.instancesOf(doc) {
		if err := inst.TagType(t); err != nil {
			ctxlog.FromContext(ctx).Debug("Instance not tagged for type.", "instance", inst.ID(), "type", t, "error", err)
		}
	}
}

// Active returns the active instance of a document and view, if any.
func (e *Engine) Active(doc *document.Document, view document.View) *Instance {
	for _, inst := range e.Instances() {
		if inst.IsActive() && inst.Document() == doc && inst.View() == view {
			return inst
		}
	}
	return nil
}
