package executor

import (
	"context"
	"time"

	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/evalerr"
	"github.com/vk/depsgraph/internal/graph"
	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/scheduler"
	"github.com/vk/depsgraph/internal/topologystore"
	"github.com/vk/depsgraph/internal/trace"
)

const op = "evaluate"

// Observer is told about every node evaluation.
type Observer func(n *node.Node, d time.Duration, err error)

// Options configure an Executor.
type Options struct {
	Workers    int
	Instance   string
	Mode       string
	Time       float64
	Sink       trace.Sink
	Timestamps bool
	Observer   Observer
}

// Result lists what happened to the nodes of a pass.
type Result struct {
	Evaluated []topologystore.Handle
	Failed    []topologystore.Handle
	Skipped   []topologystore.Handle
}

// Executor evaluates the nodes of one graph.
type Executor struct {
	g    graph.Graph
	opts Options
}

// New creates an executor over g.
func New(g graph.Graph, opts Options) *Executor {
	if opts.Sink == nil {
		opts.Sink = trace.Nop{}
	}
	return &Executor{g: g, opts: opts}
}

// Run evaluates every node of plan. It returns an error wrapping
// evalerr.ErrOperationFailed when a node failed and
// evalerr.ErrSchedulingDeadlock when the plan could not finish.
func (e *Executor) Run(ctx context.Context, plan scheduler.Scheduler) (*Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Executor starting.", "nodes", plan.Len(), "workers", e.opts.Workers)

	var (
		res      *Result
		firstErr error
	)
	if e.opts.Workers <= 1 {
		res, firstErr = e.runSerial(ctx, plan)
	} else {
		res, firstErr = e.runPool(ctx, plan)
	}

	if !plan.Done() {
		stuck := e.keys(plan.Remaining())
		logger.Error("Executor stalled with dirty nodes left.", "stuck", stuck)
		return res, evalerr.Deadlock(op, stuck)
	}
	if firstErr != nil {
		return res, evalerr.Failed(op, firstErr, e.keys(res.Failed))
	}
	logger.Debug("Executor finished.", "evaluated", len(res.Evaluated))
	return res, nil
}

func (e *Executor) runSerial(ctx context.Context, plan scheduler.Scheduler) (*Result, error) {
	res := &Result{}
	var firstErr error
	for {
		h, ok := plan.Next()
		if !ok {
			return res, firstErr
		}
		e.g.MarkRunning(h)
		err := e.evaluate(ctx, h)
		if err := e.settle(ctx, plan, res, h, err); err != nil && firstErr == nil {
			firstErr = err
		}
	}
}

// settle records the outcome of one node on the graph and the plan.
func (e *Executor) settle(ctx context.Context, plan scheduler.Scheduler, res *Result, h topologystore.Handle, err error) error {
	if err == nil {
		e.g.MarkCompleted(h)
		plan.Complete(h)
		res.Evaluated = append(res.Evaluated, h)
		return nil
	}
	n, _ := e.g.Node(h)
	ctxlog.FromContext(ctx).Error("Node evaluation failed.", "node", n.Key.String(), "error", err)
	e.g.MarkFailed(h, err)
	res.Failed = append(res.Failed, h)
	for _, s := range plan.Fail(h) {
		e.g.MarkSkipped(s)
		res.Skipped = append(res.Skipped, s)
	}
	return err
}

func (e *Executor) keys(hs []topologystore.Handle) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		if n, ok := e.g.Node(h); ok {
			out = append(out, n.Key.String())
		}
	}
	return out
}
