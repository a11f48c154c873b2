package graph

import (
	"github.com/vk/depsgraph/internal/evalerr"
	"github.com/vk/depsgraph/internal/topologystore"
)

// FindCycle looks for a cycle in ts and returns it as a closed path (the
// first handle repeated at the end), or nil when the topology is acyclic.
//
// It is a depth-first search with temporary and permanent marks, run with an
// explicit stack so that long dependency chains cannot overflow the goroutine
// stack.
func FindCycle(ts topologystore.Store) []topologystore.Handle {
	const (
		unvisited = iota
		temporary
		permanent
	)
	type frame struct {
		h    topologystore.Handle
		next []topologystore.Relation
	}

	mark := make(map[topologystore.Handle]int, ts.Len())
	for _, root := range ts.Nodes() {
		if mark[root] != unvisited {
			continue
		}
		stack := []frame{{h: root, next: ts.Outgoing(root)}}
		mark[root] = temporary
		for len(stack) > 0 {
			top := &stack[len(stack)-1]
			if len(top.next) == 0 {
				mark[top.h] = permanent
				stack = stack[:len(stack)-1]
				continue
			}
			to := top.next[0].To
			top.next = top.next[1:]
			switch mark[to] {
			case permanent:
				continue
			case temporary:
				var path []topologystore.Handle
				for i := len(stack) - 1; i >= 0; i-- {
					if stack[i].h == to {
						for _, f := range stack[i:] {
							path = append(path, f.h)
						}
						break
					}
				}
				return append(path, to)
			}
			mark[to] = temporary
			stack = append(stack, frame{h: to, next: ts.Outgoing(to)})
		}
	}
	return nil
}

// Validate returns an ErrGraphInconsistency error when ts has a cycle.
func Validate(op string, ts topologystore.Store) error {
	cycle := FindCycle(ts)
	if cycle == nil {
		return nil
	}
	names := make([]string, 0, len(cycle))
	for _, h := range cycle {
		if n, ok := ts.Node(h); ok {
			names = append(names, n.Key.String())
		}
	}
	return evalerr.Cycle(op, names)
}
