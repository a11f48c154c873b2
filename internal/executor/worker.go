package executor

import (
	"context"

	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/scheduler"
	"github.com/vk/depsgraph/internal/topologystore"
	"golang.org/x/sync/errgroup"
)

type outcome struct {
	h   topologystore.Handle
	err error
}

func (e *Executor) runPool(ctx context.Context, plan scheduler.Scheduler) (*Result, error) {
	readyChan := make(chan topologystore.Handle, plan.Len())
	doneChan := make(chan outcome, plan.Len())

	var workers errgroup.Group
	for i := 0; i < e.opts.Workers; i++ {
		workerID := i
		workers.Go(func() error {
			e.worker(ctx, readyChan, doneChan, workerID)
			return nil
		})
	}

	res := &Result{}
	var firstErr error
	inflight := 0
	for {
		for {
			h, ok := plan.Next()
			if !ok {
				break
			}
			inflight++
			readyChan <- h
		}
		if inflight == 0 {
			// Either everything finished or the plan stalled.
			break
		}
		o := <-doneChan
		inflight--
		if err := e.settle(ctx, plan, res, o.h, o.err); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	close(readyChan)
	_ = workers.Wait()
	return res, firstErr
}

// worker is the processing loop of one pool worker.
func (e *Executor) worker(ctx context.Context, readyChan <-chan topologystore.Handle, doneChan chan<- outcome, workerID int) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Worker started.", "workerID", workerID)
	for h := range readyChan {
		e.g.MarkRunning(h)
		doneChan <- outcome{h: h, err: e.evaluate(ctx, h)}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
