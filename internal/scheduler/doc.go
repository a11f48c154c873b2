// Package scheduler decides which dirty nodes can be evaluated next.
//
// # How It Works
//
// A Plan is built from the dirty nodes of a graph at the start of a pass:
//  1. Every dirty node joins the plan and gets an in-degree: the number of
//     its predecessors that are dirty too. Clean predecessors are already
//     satisfied.
//  2. Nodes with in-degree zero are ready. Ready nodes come out in creation
//     order, which makes serial evaluation deterministic.
//  3. Complete decrements the in-degree of the node's dependents and returns
//     the ones that became ready.
//  4. Fail removes every transitive dependent from the plan. They are
//     reported as skipped and never become ready.
//
// When nothing is ready, nothing is in flight and nodes remain, the plan is
// Stalled: those nodes can never run.
//
// # Thread-Safety
//
// A Plan is owned by one goroutine. The executor's coordinator is the only
// caller, workers never touch it.
package scheduler
