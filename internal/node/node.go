package node

import (
	"context"
	"log/slog"
	"sync/atomic"

	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/document"
	"github.com/vk/depsgraph/internal/nodeid"
	"github.com/vk/depsgraph/internal/trace"
)

// Flags are static properties of an operation node.
type Flags uint8

const (
	// TimeDependent nodes are dirtied whenever the instance time changes.
	TimeDependent Flags = 1 << iota
)

// EvalFlags are optional computations that consumers can request from a node.
type EvalFlags uint32

const (
	NeedCurvePath EvalFlags = 1 << iota
	NeedShrinkwrapBoundary
)

// Operation is the unit of work carried by a node. Implementations must not
// touch graph topology.
type Operation interface {
	Run(ec *EvalContext) error
}

// Func adapts an ordinary function to an Operation.
type Func func(ec *EvalContext) error

func (f Func) Run(ec *EvalContext) error { return f(ec) }

// Node is a single vertex in the operation graph.
type Node struct {
	// Key is the unique identifier of the node within a graph.
	Key nodeid.Key
	// Owner is the element this node computes part of.
	Owner document.ID
	// Kind names the registered operation type, e.g. "print".
	Kind string
	// Op is invoked when the node is evaluated.
	Op    Operation
	Flags Flags
	// Order is the creation sequence number, assigned by the topology store.
	// It breaks ties wherever the engine needs a deterministic order.
	Order uint64

	custom atomic.Uint32
}

// New creates a node owned by the element named in the key.
func New(key nodeid.Key, kind string, op Operation, flags Flags) *Node {
	return &Node{
		Key:   key,
		Owner: document.ID(key.Element),
		Kind:  kind,
		Op:    op,
		Flags: flags,
	}
}

// IsTimeDependent reports whether the node is a time source.
func (n *Node) IsTimeDependent() bool { return n.Flags&TimeDependent != 0 }

// RequestEvalFlags adds custom evaluation flags. It is safe to call while the
// instance is evaluating; new bits are seen by the next evaluation of the node.
func (n *Node) RequestEvalFlags(f EvalFlags) {
	for {
		old := n.custom.Load()
		if n.custom.CompareAndSwap(old, old|uint32(f)) {
			return
		}
	}
}

// EvalFlags returns the custom flags requested so far.
func (n *Node) EvalFlags() EvalFlags { return EvalFlags(n.custom.Load()) }

func (n *Node) String() string { return n.Key.String() }

// EvalContext is what an Operation sees while it runs.
type EvalContext struct {
	ctx     context.Context
	node    *Node
	time    float64
	mode    string
	mask    uint32
	printer *trace.Printer
}

// NewEvalContext is used by executors to build the context for one node.
func NewEvalContext(ctx context.Context, n *Node, t float64, mode string, mask uint32, p *trace.Printer) *EvalContext {
	return &EvalContext{ctx: ctx, node: n, time: t, mode: mode, mask: mask, printer: p}
}

func (ec *EvalContext) Context() context.Context { return ec.ctx }
func (ec *EvalContext) Node() *Node              { return ec.node }
func (ec *EvalContext) Key() nodeid.Key          { return ec.node.Key }

// Time is the instance time of the current pass.
func (ec *EvalContext) Time() float64 { return ec.time }

// Mode is "viewport" or "render".
func (ec *EvalContext) Mode() string { return ec.mode }

// Mask is the raw recalc mask the node was dirtied with.
func (ec *EvalContext) Mask() uint32 { return ec.mask }

// EvalFlags are the custom flags requested for this node.
func (ec *EvalContext) EvalFlags() EvalFlags { return ec.node.EvalFlags() }

// Trace returns the debug printer bound to this node. It is never nil.
func (ec *EvalContext) Trace() *trace.Printer {
	if ec.printer == nil {
		ec.printer = trace.NewPrinter(ec.ctx, trace.Nop{}, "", ec.node.Key.String(), false)
	}
	return ec.printer
}

// Logger returns the logger carried by the context, annotated with the node key.
func (ec *EvalContext) Logger() *slog.Logger {
	return ctxlog.FromContext(ec.ctx).With("node", ec.node.Key.String())
}
