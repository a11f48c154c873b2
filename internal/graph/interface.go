package graph

import (
	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/nodeid"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/vk/depsgraph/internal/topologystore"
)

// Graph is the interface for querying and updating one operation graph.
type Graph interface {
	// Topology returns the live topology.
	Topology() topologystore.Store

	// Node resolves a handle to its node.
	Node(h topologystore.Handle) (*node.Node, bool)

	// Lookup finds a node by key.
	Lookup(key nodeid.Key) (topologystore.Handle, bool)

	// NodesOf returns the nodes owned by an element, in creation order.
	NodesOf(element string) []topologystore.Handle

	// AllNodes returns every node in creation order.
	AllNodes() []topologystore.Handle

	// Successors returns the relations leaving h.
	Successors(h topologystore.Handle) []topologystore.Relation

	// Predecessors returns the relations entering h.
	Predecessors(h topologystore.Handle) []topologystore.Relation

	// MarkDirty flags a node for evaluation, accumulating mask.
	MarkDirty(h topologystore.Handle, mask recalc.Flag) bool

	// IsDirty reports whether a node awaits evaluation.
	IsDirty(h topologystore.Handle) bool

	// Mask returns the accumulated mask of a dirty node.
	Mask(h topologystore.Handle) recalc.Flag

	// DirtyNodes returns every live dirty node in creation order.
	DirtyNodes() []topologystore.Handle

	// NodeStatus returns the node's status in the current pass.
	NodeStatus(h topologystore.Handle) node.Status

	// NodeError returns the error of the node's last failed evaluation.
	NodeError(h topologystore.Handle) error

	// Evaluations returns how often the node evaluated successfully.
	Evaluations(h topologystore.Handle) uint64

	// MarkPending moves a node into the current pass.
	MarkPending(h topologystore.Handle)

	// MarkRunning records that a worker picked the node up.
	MarkRunning(h topologystore.Handle)

	// MarkCompleted records success and clears the dirty flag.
	MarkCompleted(h topologystore.Handle)

	// MarkFailed records a failure. The node stays dirty.
	MarkFailed(h topologystore.Handle, err error)

	// MarkSkipped records that a failed predecessor kept the node from
	// running. The node stays dirty.
	MarkSkipped(h topologystore.Handle)

	// ResetPass returns every node to Idle.
	ResetPass()
}
