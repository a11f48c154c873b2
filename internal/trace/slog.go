package trace

import (
	"context"
	"log/slog"

	"github.com/vk/depsgraph/internal/ctxlog"
)

// SlogSink writes trace records to the logger carried by the context.
type SlogSink struct {
	Level slog.Level
}

// NewSlogSink returns a sink logging at debug level.
func NewSlogSink() *SlogSink {
	return &SlogSink{Level: slog.LevelDebug}
}

func (s *SlogSink) Begin(ctx context.Context, p Pass) context.Context {
	ctxlog.FromContext(ctx).Log(ctx, s.Level, "Evaluation pass started.", "instance", p.Instance, "mode", p.Mode, "time", p.Time, "dirty", p.Dirty)
	return ctx
}

func (s *SlogSink) Eval(ctx context.Context, ev Event) {
	attrs := []any{"instance", ev.Instance, "function", ev.Function, "object", ev.Object}
	if ev.Address != "" {
		attrs = append(attrs, "address", ev.Address)
	}
	if ev.Subdata != nil {
		attrs = append(attrs, "subdata_comment", ev.Subdata.Comment, "subdata", ev.Subdata.Name)
		if ev.Subdata.Index >= 0 {
			attrs = append(attrs, "subdata_index", ev.Subdata.Index)
		}
	}
	if ev.Parent != nil {
		attrs = append(attrs, "parent_comment", ev.Parent.Comment, "parent", ev.Parent.Name)
	}
	if ev.Time != nil {
		attrs = append(attrs, "time", *ev.Time)
	}
	if !ev.At.IsZero() {
		attrs = append(attrs, "at", ev.At)
	}
	ctxlog.FromContext(ctx).Log(ctx, s.Level, "Evaluating operation.", attrs...)
}

func (s *SlogSink) End(ctx context.Context, p Pass, err error) {
	if err != nil {
		ctxlog.FromContext(ctx).Log(ctx, s.Level, "Evaluation pass failed.", "instance", p.Instance, "error", err)
		return
	}
	ctxlog.FromContext(ctx).Log(ctx, s.Level, "Evaluation pass finished.", "instance", p.Instance)
}
