// Package propagate spreads invalidation from tagged elements through the
// operation graph.
//
// Propagation is a breadth-first walk with an explicit queue. A relation is
// followed when it is unconditional or when its trigger reasons intersect the
// reasons carried along the path. A node is expanded again only when a later
// path brings reason bits it has not carried yet, so diamonds and repeated
// tags terminate after at most one expansion per reason bit.
package propagate

import (
	"context"
	"sort"

	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/graph"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/vk/depsgraph/internal/topologystore"
)

// Root tags every node owned by an element.
type Root struct {
	Element string
	Mask    recalc.Flag
}

// Seed tags a single node.
type Seed struct {
	Node topologystore.Handle
	Mask recalc.Flag
}

// Result is the outcome of one propagation.
type Result struct {
	// Dirtied holds nodes that were clean before, in creation order.
	Dirtied []topologystore.Handle
	// Reached holds every node the walk marked, in creation order.
	Reached []topologystore.Handle
	// Elements maps each element that should be flushed to the reasons that
	// reached it. Elements reached only through NoFlush relations are absent.
	Elements map[string]recalc.Flag
}

type item struct {
	h     topologystore.Handle
	mask  recalc.Flag
	flush bool
}

// Elements propagates from element roots. A zero mask means recalc.All.
func Elements(ctx context.Context, g graph.Graph, roots ...Root) *Result {
	var seeds []item
	for _, r := range roots {
		mask := recalc.Normalize(r.Mask)
		for _, h := range g.NodesOf(r.Element) {
			seeds = append(seeds, item{h: h, mask: mask, flush: true})
		}
	}
	res := run(ctx, g, seeds)
	for _, r := range roots {
		// A tagged element is reported even when it owns no nodes yet.
		res.Elements[r.Element] |= recalc.Normalize(r.Mask)
	}
	return res
}

// Nodes propagates from individual nodes.
func Nodes(ctx context.Context, g graph.Graph, seeds ...Seed) *Result {
	items := make([]item, 0, len(seeds))
	for _, s := range seeds {
		items = append(items, item{h: s.Node, mask: recalc.Normalize(s.Mask), flush: true})
	}
	return run(ctx, g, items)
}

// Time propagates a time change from every time-dependent node of g.
func Time(ctx context.Context, g graph.Graph) *Result {
	var items []item
	for _, h := range g.AllNodes() {
		if n, ok := g.Node(h); ok && n.IsTimeDependent() {
			items = append(items, item{h: h, mask: recalc.Time, flush: true})
		}
	}
	return run(ctx, g, items)
}

func run(ctx context.Context, g graph.Graph, seeds []item) *Result {
	res := &Result{Elements: make(map[string]recalc.Flag)}
	visited := make(map[topologystore.Handle]recalc.Flag)
	flushed := make(map[topologystore.Handle]recalc.Flag)
	order := make(map[topologystore.Handle]uint64)

	queue := append([]item(nil), seeds...)
	for len(queue) > 0 {
		it := queue[0]
		queue = queue[1:]

		n, ok := g.Node(it.h)
		if !ok {
			continue
		}
		if it.flush {
			res.Elements[n.Key.Element] |= it.mask
		}

		// Flushing paths are tracked separately so that a flushing path
		// arriving after a NoFlush one still reports downstream elements.
		var fresh recalc.Flag
		if it.flush {
			fresh = it.mask &^ flushed[it.h]
		} else {
			fresh = it.mask &^ visited[it.h]
		}
		if fresh == 0 {
			continue
		}
		_, seen := visited[it.h]
		visited[it.h] |= it.mask
		if it.flush {
			flushed[it.h] |= it.mask
		}

		if !seen {
			order[it.h] = n.Order
			res.Reached = append(res.Reached, it.h)
			if !g.IsDirty(it.h) {
				res.Dirtied = append(res.Dirtied, it.h)
			}
		}
		g.MarkDirty(it.h, fresh)

		for _, rel := range g.Successors(it.h) {
			if !rel.Fires(fresh) {
				continue
			}
			queue = append(queue, item{h: rel.To, mask: fresh, flush: it.flush && !rel.NoFlush()})
		}
	}

	byOrder := func(hs []topologystore.Handle) {
		sort.Slice(hs, func(i, j int) bool { return order[hs[i]] < order[hs[j]] })
	}
	byOrder(res.Dirtied)
	byOrder(res.Reached)

	ctxlog.FromContext(ctx).Debug("Propagation complete.", "seeds", len(seeds), "reached", len(res.Reached), "newly_dirty", len(res.Dirtied))
	return res
}
