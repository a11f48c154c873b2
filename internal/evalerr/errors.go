// Package evalerr holds the error taxonomy shared by the graph store, the
// scheduler and the instance API. Callers match kinds with errors.Is.
package evalerr

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrGraphInconsistency: the relation set has a cycle or references a node
	// outside the instance. Raised at build time; the previous topology stays.
	ErrGraphInconsistency = errors.New("graph inconsistency")
	// ErrSchedulingDeadlock: dirty nodes remain but none is ready.
	ErrSchedulingDeadlock = errors.New("scheduling deadlock")
	// ErrAlreadyEvaluating: re-entrant evaluation of the same instance.
	ErrAlreadyEvaluating = errors.New("already evaluating")
	// ErrOperationFailed: one or more operation bodies returned an error.
	ErrOperationFailed = errors.New("operation failed")
	// ErrNoBackup: RestoreRecalc without a preceding ClearRecalc(backup=true).
	ErrNoBackup = errors.New("no recalc backup")
	// ErrFreed: the instance was freed by its owner.
	ErrFreed = errors.New("instance freed")
)

// Error is a classified engine failure.
type Error struct {
	Kind  error
	Op    string
	Msg   string
	Nodes []string
	// Err is the underlying cause, if any.
	Err error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	var sb strings.Builder
	if e.Op != "" {
		sb.WriteString(e.Op)
		sb.WriteString(": ")
	}
	sb.WriteString(e.Kind.Error())
	if e.Msg != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Msg)
	}
	if len(e.Nodes) > 0 {
		sb.WriteString(" [")
		sb.WriteString(strings.Join(e.Nodes, ", "))
		sb.WriteString("]")
	}
	return sb.String()
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Inconsistent builds an ErrGraphInconsistency error.
func Inconsistent(op, format string, args ...any) error {
	return &Error{Kind: ErrGraphInconsistency, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Cycle builds an ErrGraphInconsistency error carrying the cycle path.
func Cycle(op string, path []string) error {
	return &Error{Kind: ErrGraphInconsistency, Op: op, Msg: "cycle detected", Nodes: path}
}

// Deadlock builds an ErrSchedulingDeadlock error listing the stuck nodes.
func Deadlock(op string, stuck []string) error {
	return &Error{Kind: ErrSchedulingDeadlock, Op: op, Msg: fmt.Sprintf("%d dirty node(s) can never become ready", len(stuck)), Nodes: stuck}
}

// Failed builds an ErrOperationFailed error around the first root cause.
func Failed(op string, cause error, failed []string) error {
	return &Error{Kind: ErrOperationFailed, Op: op, Msg: cause.Error(), Nodes: failed, Err: cause}
}
