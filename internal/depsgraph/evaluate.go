package depsgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/evalerr"
	"github.com/vk/depsgraph/internal/executor"
	"github.com/vk/depsgraph/internal/flush"
	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/scheduler"
	"github.com/vk/depsgraph/internal/trace"
)

// EvaluateOnFrameChange moves the instance to time t, tags its time sources
// and evaluates everything dirty.
func (i *Instance) EvaluateOnFrameChange(ctx context.Context, t float64) error {
	return i.evaluate(ctx, &t)
}

// EvaluateOnRefresh evaluates everything dirty at the current time.
func (i *Instance) EvaluateOnRefresh(ctx context.Context) error {
	return i.evaluate(ctx, nil)
}

func (i *Instance) evaluate(ctx context.Context, frame *float64) (err error) {
	const op = "evaluate"
	if i.freed.Load() {
		return &evalerr.Error{Kind: evalerr.ErrFreed, Op: op, Msg: i.ID()}
	}
	if !i.evaluating.CompareAndSwap(false, true) {
		return &evalerr.Error{Kind: evalerr.ErrAlreadyEvaluating, Op: op, Msg: i.ID()}
	}
	defer i.evaluating.Store(false)

	i.evalMu.Lock()
	defer i.evalMu.Unlock()

	ctx = i.logContext(ctx)
	logger := ctxlog.FromContext(ctx)
	release := i.Document().BeginEvaluation()
	defer release()
	start := time.Now()

	i.structMu.Lock()
	if i.freed.Load() {
		i.structMu.Unlock()
		return &evalerr.Error{Kind: evalerr.ErrFreed, Op: op, Msg: i.ID()}
	}
	i.applyPendingLocked(ctx)
	i.applyDeferredLocked(ctx)
	if frame != nil {
		i.time = *frame
		i.tagTimeLocked(ctx)
	}
	i.graph.ResetPass()
	plan := scheduler.New(ctx, i.graph)
	now := i.time
	i.structMu.Unlock()

	cfg := i.engine.cfg
	pass := trace.Pass{Instance: i.ID(), Mode: i.mode.String(), Time: now, Dirty: plan.Len()}
	ctx = cfg.Sink.Begin(ctx, pass)
	logger.Debug("Evaluation pass starting.", "dirty", plan.Len(), "time", now)

	exec := executor.New(i.graph, executor.Options{
		Workers:    cfg.Workers,
		Instance:   i.ID(),
		Mode:       i.mode.String(),
		Time:       now,
		Sink:       cfg.Sink,
		Timestamps: cfg.Timestamps,
		Observer: func(n *node.Node, d time.Duration, err error) {
			cfg.Metrics.ObserveNode(n.Kind, d, err)
		},
	})
	res, runErr := exec.Run(ctx, plan)
	cfg.Sink.End(ctx, pass, runErr)

	stats := PassStats{Planned: plan.Len(), Duration: time.Since(start), Err: runErr}
	if res != nil {
		stats.Evaluated = len(res.Evaluated)
		stats.Failed = len(res.Failed)
		stats.Skipped = len(res.Skipped)
	}
	defer func() {
		i.statsMu.Lock()
		i.passes++
		i.last = stats
		i.statsMu.Unlock()
		cfg.Metrics.ObservePass(i.mode.String(), stats.Duration, err)
		cfg.Metrics.SetDirty(i.ID(), len(i.graph.DirtyNodes()))
	}()

	if runErr != nil {
		logger.Error("Evaluation pass failed.", "error", runErr, "evaluated", stats.Evaluated, "failed", stats.Failed, "skipped", stats.Skipped)
		return fmt.Errorf("evaluate %s: %w", i, runErr)
	}
	logger.Info("Evaluation pass finished.", "evaluated", stats.Evaluated, "duration", stats.Duration)

	if i.editorsUpdate.Load() {
		stats.AnyChanged = i.notify(ctx, false)
	}
	return nil
}

// applyDeferredLocked folds in tags that arrived during the previous pass.
func (i *Instance) applyDeferredLocked(ctx context.Context) {
	deferred := i.deferred
	i.deferred = nil
	for _, d := range deferred {
		switch d.kind {
		case deferElement:
			i.tagElementLocked(ctx, d.element, d.mask)
		case deferTime:
			i.tagTimeLocked(ctx)
		}
	}
	if len(deferred) > 0 {
		ctxlog.FromContext(ctx).Debug("Deferred tags applied.", "count", len(deferred))
	}
}

func (i *Instance) notify(ctx context.Context, forceTime bool) bool {
	i.structMu.Lock()
	extra := forceTime || i.timeChanged || len(i.types) > 0
	t := i.time
	i.structMu.Unlock()
	return flush.Notify(ctx, i.engine.cfg.Callbacks, i.ID(), t, i.table.Snapshot(), extra)
}

// EditorsUpdate runs the editor notification step without evaluating. With
// timeChanged the per-pass callback reports a change even when no element
// changed.
func (i *Instance) EditorsUpdate(ctx context.Context, timeChanged bool) bool {
	if !i.editorsUpdate.Load() {
		return false
	}
	return i.notify(i.logContext(ctx), timeChanged)
}
