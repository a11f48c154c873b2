package depsgraph

import (
	"context"
	"fmt"

	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/document"
	"github.com/vk/depsgraph/internal/evalerr"
	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/nodeid"
	"github.com/vk/depsgraph/internal/propagate"
	"github.com/vk/depsgraph/internal/recalc"
)

// TagElement records that an element changed for the given reasons and marks
// every dependent operation dirty. A zero mask means recalc.All. While a pass
// is in flight the tag is queued for the next pass.
func (i *Instance) TagElement(ctx context.Context, id document.ID, mask recalc.Flag) error {
	ctx = i.logContext(ctx)
	i.structMu.Lock()
	defer i.structMu.Unlock()
	if i.freed.Load() {
		return &evalerr.Error{Kind: evalerr.ErrFreed, Op: "tag", Msg: i.ID()}
	}
	if i.evaluating.Load() {
		ctxlog.FromContext(ctx).Debug("Pass in flight, deferring tag.", "element", id, "reasons", recalc.Normalize(mask))
		i.deferred = append(i.deferred, deferredTag{kind: deferElement, element: id, mask: mask})
		return nil
	}
	i.tagElementLocked(ctx, id, mask)
	return nil
}

func (i *Instance) tagElementLocked(ctx context.Context, id document.ID, mask recalc.Flag) {
	mask = recalc.Normalize(mask)
	res := propagate.Elements(ctx, i.graph, propagate.Root{Element: string(id), Mask: mask})
	for el, m := range res.Elements {
		i.table.Tag(document.ID(el), m)
	}
	if el, ok := i.Document().Element(id); ok {
		i.types[el.Type] = true
	}
	ctxlog.FromContext(ctx).Debug("Element tagged.", "element", id, "reasons", mask, "newly_dirty", len(res.Dirtied))
}

// TagTimeChanged marks every time-dependent operation dirty.
func (i *Instance) TagTimeChanged(ctx context.Context) error {
	ctx = i.logContext(ctx)
	i.structMu.Lock()
	defer i.structMu.Unlock()
	if i.freed.Load() {
		return &evalerr.Error{Kind: evalerr.ErrFreed, Op: "tag time", Msg: i.ID()}
	}
	if i.evaluating.Load() {
		i.deferred = append(i.deferred, deferredTag{kind: deferTime})
		return nil
	}
	i.tagTimeLocked(ctx)
	return nil
}

func (i *Instance) tagTimeLocked(ctx context.Context) {
	res := propagate.Time(ctx, i.graph)
	for el, m := range res.Elements {
		i.table.Tag(document.ID(el), m)
	}
	i.timeChanged = true
	ctxlog.FromContext(ctx).Debug("Time change tagged.", "newly_dirty", len(res.Dirtied))
}

// TagType marks that some element of type t changed. Consumers that cannot
// address individual elements query it with TypeUpdated.
func (i *Instance) TagType(t document.Type) error {
	i.structMu.Lock()
	defer i.structMu.Unlock()
	if i.freed.Load() {
		return &evalerr.Error{Kind: evalerr.ErrFreed, Op: "tag type", Msg: i.ID()}
	}
	i.types[t] = true
	return nil
}

// TypeUpdated reports whether type t was tagged since the last ClearRecalc.
func (i *Instance) TypeUpdated(t document.Type) bool {
	i.structMu.Lock()
	defer i.structMu.Unlock()
	return i.types[t]
}

// OnVisibleUpdate tags every element of the document after the set of
// visible elements changed. With doTime the time sources are tagged too.
func (i *Instance) OnVisibleUpdate(ctx context.Context, doTime bool) error {
	for _, el := range i.Document().Elements() {
		if err := i.TagElement(ctx, el.ID, recalc.Visibility); err != nil {
			return err
		}
	}
	if doTime {
		return i.TagTimeChanged(ctx)
	}
	return nil
}

// IsDirty reports whether the node with the given key awaits evaluation.
func (i *Instance) IsDirty(key nodeid.Key) (bool, error) {
	i.structMu.Lock()
	defer i.structMu.Unlock()
	h, ok := i.graph.Lookup(key)
	if !ok {
		return false, fmt.Errorf("is dirty: no node %s in %s", key, i)
	}
	return i.graph.IsDirty(h), nil
}

// RequestEvalFlags asks a node to compute optional data on its next
// evaluation.
func (i *Instance) RequestEvalFlags(key nodeid.Key, flags node.EvalFlags) error {
	i.structMu.Lock()
	defer i.structMu.Unlock()
	h, ok := i.graph.Lookup(key)
	if !ok {
		return fmt.Errorf("request eval flags: no node %s in %s", key, i)
	}
	n, _ := i.graph.Node(h)
	n.RequestEvalFlags(flags)
	return nil
}

// RecalcMask returns the accumulated recalc mask of an element.
func (i *Instance) RecalcMask(id document.ID) recalc.Flag {
	return i.table.Get(id)
}

// ClearRecalc zeroes the recalc masks and type tags of the instance. With
// backup the masks can be brought back once with RestoreRecalc.
func (i *Instance) ClearRecalc(backup bool) {
	i.structMu.Lock()
	defer i.structMu.Unlock()
	i.table.Clear(backup)
	clear(i.types)
	i.timeChanged = false
}

// RestoreRecalc restores the masks saved by ClearRecalc(true). It fails with
// evalerr.ErrNoBackup when there is nothing to restore.
func (i *Instance) RestoreRecalc() error {
	return i.table.Restore()
}
