// Package depsgraph is the public face of the evaluation engine.
//
// An Engine holds process-scoped configuration (operation registry, editor
// callbacks, trace sink, metrics) and the set of live graph Instances. Each
// Instance is one operation graph bound to a document, a view and an
// evaluation mode. Hosts build it from a description, tag changed elements,
// evaluate, and read back what changed through the flush callbacks or
// ClearRecalc/RestoreRecalc.
//
// # Locking
//
// Every Instance has two mutexes. The structural one covers tagging and
// rebuilding; the evaluation one covers a whole pass. A pass holds the
// structural lock only while it folds pending tags in and plans the dirty
// subgraph, and releases it before any operation runs. Tags that arrive
// while a pass is in flight are queued and folded into the next pass.
//
// A pass also holds its document's evaluation lock in shared mode, so
// destructive document edits wait for passes of every instance to finish.
package depsgraph
