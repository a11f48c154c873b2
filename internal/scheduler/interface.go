package scheduler

import "github.com/vk/depsgraph/internal/topologystore"

// Scheduler hands out ready nodes and tracks completion of one pass.
type Scheduler interface {
	// Next pops the earliest-created ready node and counts it as in flight.
	Next() (topologystore.Handle, bool)

	// Complete finishes an in-flight node and returns the dependents that
	// became ready, in creation order.
	Complete(h topologystore.Handle) []topologystore.Handle

	// Fail finishes an in-flight node unsuccessfully and returns every
	// transitive dependent that was dropped from the plan, in creation order.
	Fail(h topologystore.Handle) []topologystore.Handle

	// Done reports whether every node of the plan finished or was dropped.
	Done() bool

	// Stalled reports that nodes remain but none is ready or in flight.
	Stalled() bool

	// Remaining returns the nodes that have not finished, in creation order.
	Remaining() []topologystore.Handle

	// Len is the number of nodes the plan started with.
	Len() int
}
