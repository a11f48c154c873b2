// Package nodestore defines the interface for the mutable evaluation state of
// operation nodes.
//
// # Why Node Store Exists
//
// The node store keeps **evaluation state** (dirty flags, accumulated recalc
// masks, statuses, errors) apart from the **graph structure** that
// topologystore owns. Propagation and the executor write this state on every
// pass, while the structure only changes on a rebuild.
//
// # Lifecycle and Usage
//
// A node store lives as long as its instance:
//  1. **Marked** by tagging and propagation (MarkDirty with a mask)
//  2. **Updated** by the executor as nodes run (SetStatus, SetError)
//  3. **Cleared** when a node completes successfully (ClearDirty)
//  4. **Forgotten** per node when a rebuild removes it
//
// # State Transitions
//
// Within one pass a node moves:
//
//	Idle → Pending → Running → Done | Failed
//	Idle → Pending → Skipped
//
// and returns to Idle at the start of the next pass.
package nodestore

import (
	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/vk/depsgraph/internal/topologystore"
)

// Store is the interface for managing per-node evaluation state.
//
// # Thread-Safety Requirements
//
// Implementations MUST be safe for concurrent use: workers update statuses of
// different nodes in parallel while tagging may read dirty flags.
type Store interface {
	// MarkDirty sets the dirty flag and ORs mask into the node's accumulated
	// mask. It reports whether the call changed anything.
	MarkDirty(h topologystore.Handle, mask recalc.Flag) bool

	// ClearDirty resets the dirty flag and the accumulated mask.
	ClearDirty(h topologystore.Handle)

	// IsDirty reports whether the node awaits evaluation.
	IsDirty(h topologystore.Handle) bool

	// Mask returns the accumulated recalc mask of a dirty node.
	Mask(h topologystore.Handle) recalc.Flag

	// Dirty returns every dirty handle, in no particular order.
	Dirty() []topologystore.Handle

	// SetStatus records the node's status for the current pass.
	SetStatus(h topologystore.Handle, s node.Status)

	// Status returns the last recorded status, Idle when none.
	Status(h topologystore.Handle) node.Status

	// SetError records the failure of the node's last evaluation. A nil error
	// clears it.
	SetError(h topologystore.Handle, err error)

	// Error returns the failure of the node's last evaluation.
	Error(h topologystore.Handle) error

	// RecordEvaluation counts one successful evaluation.
	RecordEvaluation(h topologystore.Handle)

	// Evaluations returns how many times the node evaluated successfully.
	Evaluations(h topologystore.Handle) uint64

	// ResetStatuses returns every node to Idle.
	ResetStatuses()

	// Forget drops all state of a removed node.
	Forget(h topologystore.Handle)
}
