// Package flush owns the per-element recalc masks of an instance and the
// editor notification step that runs after a successful evaluation pass.
package flush

import (
	"context"
	"sort"
	"sync"

	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/document"
	"github.com/vk/depsgraph/internal/evalerr"
	"github.com/vk/depsgraph/internal/recalc"
)

// ElementUpdate is passed to the per-element callback.
type ElementUpdate struct {
	Instance string
	Element  document.ID
	Mask     recalc.Flag
}

// GraphUpdate is passed to the per-pass callback.
type GraphUpdate struct {
	Instance   string
	Time       float64
	AnyChanged bool
}

// Callbacks receive editor notifications. Either may be nil.
type Callbacks struct {
	Element func(ctx context.Context, u ElementUpdate)
	Graph   func(ctx context.Context, u GraphUpdate)
}

// Chain returns callbacks invoking every non-nil callback of each entry in
// turn.
func Chain(all ...Callbacks) Callbacks {
	var out Callbacks
	var elements []func(context.Context, ElementUpdate)
	var graphs []func(context.Context, GraphUpdate)
	for _, cb := range all {
		if cb.Element != nil {
			elements = append(elements, cb.Element)
		}
		if cb.Graph != nil {
			graphs = append(graphs, cb.Graph)
		}
	}
	if len(elements) > 0 {
		out.Element = func(ctx context.Context, u ElementUpdate) {
			for _, f := range elements {
				f(ctx, u)
			}
		}
	}
	if len(graphs) > 0 {
		out.Graph = func(ctx context.Context, u GraphUpdate) {
			for _, f := range graphs {
				f(ctx, u)
			}
		}
	}
	return out
}

// Table holds the recalc masks of one instance and its tag backup.
type Table struct {
	mu        sync.Mutex
	masks     map[document.ID]recalc.Flag
	backup    map[document.ID]recalc.Flag
	hasBackup bool
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{masks: make(map[document.ID]recalc.Flag)}
}

// Tag ORs mask into the element's recalc mask.
func (t *Table) Tag(id document.ID, mask recalc.Flag) {
	if mask == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.masks[id] |= mask
}

// Get returns the recalc mask of an element.
func (t *Table) Get(id document.ID) recalc.Flag {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.masks[id]
}

// Snapshot returns a copy of every non-zero mask.
func (t *Table) Snapshot() map[document.ID]recalc.Flag {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[document.ID]recalc.Flag, len(t.masks))
	for id, m := range t.masks {
		if m != 0 {
			out[id] = m
		}
	}
	return out
}

// Clear zeroes every mask. With backup the previous masks are kept for one
// Restore, replacing any earlier backup.
func (t *Table) Clear(backup bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if backup {
		t.backup = t.masks
		t.hasBackup = true
	}
	t.masks = make(map[document.ID]recalc.Flag)
}

// Restore puts the backed up masks back and discards the backup.
func (t *Table) Restore() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.hasBackup {
		return &evalerr.Error{Kind: evalerr.ErrNoBackup, Op: "restore recalc"}
	}
	t.masks = t.backup
	t.backup = nil
	t.hasBackup = false
	return nil
}

// Forget drops the mask of a removed element.
func (t *Table) Forget(id document.ID) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.masks, id)
}

// Notify invokes cb for every element of masks in ID order, then once for
// the whole pass. It returns whether anything changed.
func Notify(ctx context.Context, cb Callbacks, instance string, t float64, masks map[document.ID]recalc.Flag, extraChanged bool) bool {
	ids := make([]document.ID, 0, len(masks))
	for id, m := range masks {
		if m != 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	if cb.Element != nil {
		for _, id := range ids {
			cb.Element(ctx, ElementUpdate{Instance: instance, Element: id, Mask: masks[id]})
		}
	}
	anyChanged := len(ids) > 0 || extraChanged
	if cb.Graph != nil {
		cb.Graph(ctx, GraphUpdate{Instance: instance, Time: t, AnyChanged: anyChanged})
	}
	ctxlog.FromContext(ctx).Debug("Editors notified.", "instance", instance, "elements", len(ids), "any_changed", anyChanged)
	return anyChanged
}
