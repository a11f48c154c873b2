package node

// Status is the lifecycle state of a node within one evaluation pass.
type Status int32

const (
	// Idle nodes are not part of the current pass.
	Idle Status = iota
	// Pending nodes are scheduled and waiting on predecessors.
	Pending
	// Running nodes have been handed to a worker.
	Running
	// Done nodes completed successfully.
	Done
	// Failed nodes returned an error or panicked.
	Failed
	// Skipped nodes were not run because a predecessor failed.
	Skipped
)

func (s Status) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pending:
		return "pending"
	case Running:
		return "running"
	case Done:
		return "done"
	case Failed:
		return "failed"
	case Skipped:
		return "skipped"
	}
	return "unknown"
}
