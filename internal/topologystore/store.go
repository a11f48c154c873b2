// Package topologystore defines the interface for storing and retrieving the
// structure of an operation graph: its nodes and the relations between them.
//
// # Why Topology Store Exists
//
// The topology store separates the **graph structure** (operation nodes and
// relations) from the **evaluation state** (dirty flags, recalc masks,
// statuses) that nodestore manages. Propagation and scheduling read the
// structure heavily while evaluation writes state on every node, so the two
// live behind different locks.
//
// # Handles and Tombstones
//
// Nodes are addressed by a Handle: an arena slot index plus a generation.
// Removing a node leaves a tombstone in its slot and bumps the generation, so
// a Handle held across a rebuild can never resolve to a different node.
// Relations are stored in a flat table and removed relations are tombstoned
// too; Compact rewrites the table without them.
//
// # Lifecycle and Usage
//
// The store is:
//  1. **Cloned** by the builder at the start of every rebuild
//  2. **Mutated** on the clone only (nodes and relations added or removed)
//  3. **Validated** for cycles and then swapped in as the live topology
//  4. **Read-only** while an evaluation pass runs
//
// A failed rebuild throws the clone away, which leaves the live topology
// exactly as it was.
package topologystore

import (
	"context"

	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/nodeid"
	"github.com/vk/depsgraph/internal/recalc"
)

// Handle is a stable reference to a node slot in the arena.
type Handle struct {
	Index uint32
	Gen   uint32
}

// IsZero reports whether the handle was never assigned. Generations start at 1.
func (h Handle) IsZero() bool { return h.Gen == 0 }

// RelationKind distinguishes relations that always propagate from ones that
// only propagate for some recalc bits.
type RelationKind uint8

const (
	Unconditional RelationKind = iota
	Conditional
)

func (k RelationKind) String() string {
	if k == Conditional {
		return "conditional"
	}
	return "unconditional"
}

// RelationFlags modify how a relation behaves during propagation.
type RelationFlags uint8

const (
	// NoFlush relations still order evaluation and propagate dirtiness to
	// nodes, but the owner of the target does not get a flush notification
	// from changes arriving through this relation alone.
	NoFlush RelationFlags = 1 << iota
)

// Relation is a directed edge: To depends on From.
type Relation struct {
	From     Handle
	To       Handle
	Kind     RelationKind
	Triggers recalc.Flag
	Flags    RelationFlags
	// Name is an optional human readable description.
	Name string
}

// Fires reports whether a change carrying mask propagates across r.
func (r Relation) Fires(mask recalc.Flag) bool {
	if r.Kind == Unconditional {
		return true
	}
	return r.Triggers.Intersects(mask)
}

// NoFlush reports whether the relation suppresses flush notification.
func (r Relation) NoFlush() bool { return r.Flags&NoFlush != 0 }

// Store is the interface for managing operation graph topology.
//
// This interface does NOT manage evaluation state. That responsibility
// belongs to nodestore.Store.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent reads. Writes happen only on a
// private clone during a rebuild, but implementations must still tolerate a
// write racing with reads.
//
// # Ordering
//
// Every method that returns several nodes or relations returns them in a
// deterministic order: node creation order, and for relations the creation
// order of the other endpoint.
type Store interface {
	// AddNode stores n, stamps its creation Order and returns its handle.
	// A node with the same key must not already exist.
	AddNode(ctx context.Context, n *node.Node) (Handle, error)

	// RemoveNode tombstones the node and every relation touching it.
	RemoveNode(ctx context.Context, h Handle) error

	// AddRelation stores rel. Both endpoints must be live and distinct, and at
	// most one relation may exist per ordered pair.
	AddRelation(ctx context.Context, rel Relation) error

	// RemoveRelation tombstones the relation from -> to, reporting whether
	// one existed.
	RemoveRelation(ctx context.Context, from, to Handle) bool

	// Node resolves a handle. Stale handles resolve to nothing.
	Node(h Handle) (*node.Node, bool)

	// Lookup finds the handle of the node with the given key.
	Lookup(key nodeid.Key) (Handle, bool)

	// NodesOf returns the handles of all nodes owned by element.
	NodesOf(element string) []Handle

	// Nodes returns every live handle.
	Nodes() []Handle

	// Relation returns the relation from -> to.
	Relation(from, to Handle) (Relation, bool)

	// Outgoing returns the relations whose From is h.
	Outgoing(h Handle) []Relation

	// Incoming returns the relations whose To is h.
	Incoming(h Handle) []Relation

	// Relations returns every live relation.
	Relations() []Relation

	// Len is the number of live nodes.
	Len() int

	// RelationCount is the number of live relations.
	RelationCount() int

	// Tombstones is the number of dead relation slots awaiting compaction.
	Tombstones() int

	// Compact rewrites the relation table without tombstones.
	Compact()

	// Clone returns an independent copy sharing the immutable nodes.
	Clone() Store
}
