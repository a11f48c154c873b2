// Package executor runs the operation bodies of a scheduled pass.
//
// With one worker (or fewer) nodes run serially on the calling goroutine in the
// order the scheduler hands them out, which is deterministic. With more
// workers a coordinator, running on the calling goroutine, owns the plan and
// feeds ready nodes to a fixed pool through a channel. Workers report back on
// a second channel; only the coordinator touches the plan.
//
// A failing or panicking operation fails its node. Every transitive dependent
// is skipped and both stay dirty, while unrelated nodes keep running.
package executor
