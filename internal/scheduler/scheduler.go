package scheduler

import (
	"container/heap"
	"context"
	"sort"

	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/graph"
	"github.com/vk/depsgraph/internal/topologystore"
)

type entry struct {
	order      uint64
	indegree   int
	dependents []topologystore.Handle
	inflight   bool
}

// Plan is the default Scheduler.
type Plan struct {
	nodes     map[topologystore.Handle]*entry
	ready     readyQueue
	inflight  int
	remaining int
	size      int
}

var _ Scheduler = (*Plan)(nil)

// New builds a plan over the dirty nodes of g and marks them pending.
func New(ctx context.Context, g graph.Graph) *Plan {
	dirty := g.DirtyNodes()
	p := &Plan{
		nodes:     make(map[topologystore.Handle]*entry, len(dirty)),
		remaining: len(dirty),
		size:      len(dirty),
	}
	for _, h := range dirty {
		n, _ := g.Node(h)
		p.nodes[h] = &entry{order: n.Order}
	}
	for _, h := range dirty {
		e := p.nodes[h]
		for _, rel := range g.Predecessors(h) {
			pred, ok := p.nodes[rel.From]
			if !ok {
				continue
			}
			e.indegree++
			pred.dependents = append(pred.dependents, h)
		}
	}
	for _, h := range dirty {
		g.MarkPending(h)
		if p.nodes[h].indegree == 0 {
			heap.Push(&p.ready, readyItem{h: h, order: p.nodes[h].order})
		}
	}
	ctxlog.FromContext(ctx).Debug("Scheduler: Plan created.", "nodes", p.size, "ready", p.ready.Len())
	return p
}

// Next implements Scheduler.
func (p *Plan) Next() (topologystore.Handle, bool) {
	for p.ready.Len() > 0 {
		it := heap.Pop(&p.ready).(readyItem)
		e, ok := p.nodes[it.h]
		if !ok {
			continue
		}
		e.inflight = true
		p.inflight++
		return it.h, true
	}
	return topologystore.Handle{}, false
}

// Complete implements Scheduler.
func (p *Plan) Complete(h topologystore.Handle) []topologystore.Handle {
	e := p.finish(h)
	if e == nil {
		return nil
	}
	var ready []topologystore.Handle
	for _, d := range e.dependents {
		de, ok := p.nodes[d]
		if !ok {
			continue
		}
		de.indegree--
		if de.indegree == 0 {
			heap.Push(&p.ready, readyItem{h: d, order: de.order})
			ready = append(ready, d)
		}
	}
	p.sort(ready)
	return ready
}

// Fail implements Scheduler.
func (p *Plan) Fail(h topologystore.Handle) []topologystore.Handle {
	e := p.finish(h)
	if e == nil {
		return nil
	}
	var skipped []topologystore.Handle
	orders := make(map[topologystore.Handle]uint64)
	stack := append([]topologystore.Handle(nil), e.dependents...)
	for len(stack) > 0 {
		d := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		de, ok := p.nodes[d]
		if !ok || de.inflight {
			// In-flight nodes cannot depend on an unfinished node.
			continue
		}
		delete(p.nodes, d)
		p.remaining--
		orders[d] = de.order
		skipped = append(skipped, d)
		stack = append(stack, de.dependents...)
	}
	sort.Slice(skipped, func(i, j int) bool { return orders[skipped[i]] < orders[skipped[j]] })
	return skipped
}

func (p *Plan) finish(h topologystore.Handle) *entry {
	e, ok := p.nodes[h]
	if !ok || !e.inflight {
		return nil
	}
	delete(p.nodes, h)
	p.inflight--
	p.remaining--
	return e
}

func (p *Plan) sort(hs []topologystore.Handle) {
	// Entries of ready handles are still in the map.
	sort.Slice(hs, func(i, j int) bool { return p.nodes[hs[i]].order < p.nodes[hs[j]].order })
}

// Done implements Scheduler.
func (p *Plan) Done() bool { return p.remaining == 0 }

// Stalled implements Scheduler.
func (p *Plan) Stalled() bool {
	return p.remaining > 0 && p.inflight == 0 && p.ready.Len() == 0
}

// InFlight is the number of nodes handed out and not yet finished.
func (p *Plan) InFlight() int { return p.inflight }

// Remaining implements Scheduler.
func (p *Plan) Remaining() []topologystore.Handle {
	out := make([]topologystore.Handle, 0, len(p.nodes))
	for h := range p.nodes {
		out = append(out, h)
	}
	p.sort(out)
	return out
}

// Len implements Scheduler.
func (p *Plan) Len() int { return p.size }
