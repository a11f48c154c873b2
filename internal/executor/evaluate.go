package executor

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/topologystore"
	"github.com/vk/depsgraph/internal/trace"
)

// evaluate runs the operation of one node. Panics become errors.
func (e *Executor) evaluate(ctx context.Context, h topologystore.Handle) (err error) {
	n, ok := e.g.Node(h)
	if !ok {
		return fmt.Errorf("node %v vanished during evaluation", h)
	}
	key := n.Key.String()

	ev := trace.Event{Instance: e.opts.Instance, Function: n.Kind, Object: string(n.Owner), Address: key}
	if n.IsTimeDependent() {
		t := e.opts.Time
		ev.Time = &t
	}
	if e.opts.Timestamps {
		ev.At = time.Now()
	}
	e.opts.Sink.Eval(ctx, ev)

	if n.Op == nil {
		e.observe(n, 0, nil)
		return nil
	}

	printer := trace.NewPrinter(ctx, e.opts.Sink, e.opts.Instance, key, e.opts.Timestamps)
	ec := node.NewEvalContext(ctx, n, e.opts.Time, e.opts.Mode, uint32(e.g.Mask(h)), printer)

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			ctxlog.FromContext(ctx).Error("Operation panicked.", "node", key, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("operation %s panicked: %v", key, r)
		}
		e.observe(n, time.Since(start), err)
	}()

	if err := n.Op.Run(ec); err != nil {
		return fmt.Errorf("operation %s: %w", key, err)
	}
	return nil
}

func (e *Executor) observe(n *node.Node, d time.Duration, err error) {
	if e.opts.Observer != nil {
		e.opts.Observer(n, d, err)
	}
}
