// Package graph provides a unified facade over the operation graph of one
// instance, combining the topology (nodes and relations) with the evaluation
// state (dirty flags, masks, statuses).
//
// # Architecture: The Facade Pattern
//
//	┌─────────────────────────────────────┐
//	│           Graph Facade              │
//	│  (propagation, scheduler and        │
//	│   executor query & update here)     │
//	└──────────┬────────────┬─────────────┘
//	           │            │
//	           ▼            ▼
//	  ┌────────────┐  ┌────────────┐
//	  │  Topology  │  │ Node State │
//	  │   Store    │  │   Store    │
//	  │ (Structure)│  │  (Dirty)   │
//	  └────────────┘  └────────────┘
//
// **Topology Store** (topologystore.Store) holds nodes and relations. The
// builder never mutates the live topology: it edits a clone and hands the
// result to Manager.Replace once the clone passed validation.
//
// **Node Store** (nodestore.Store) holds per-node evaluation state and is
// updated on every pass.
//
// # Thread-Safety
//
// All Graph methods are thread-safe. Replace must not run concurrently with
// an evaluation pass; the instance guarantees that with its locks.
package graph
