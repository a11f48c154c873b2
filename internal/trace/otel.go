package trace

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// OTelSink records one span per evaluation pass and one span event per node.
type OTelSink struct {
	tracer oteltrace.Tracer
}

// NewOTelSink uses the given tracer, or the global provider when nil.
func NewOTelSink(tracer oteltrace.Tracer) *OTelSink {
	if tracer == nil {
		tracer = otel.Tracer("depsgraph")
	}
	return &OTelSink{tracer: tracer}
}

func (s *OTelSink) Begin(ctx context.Context, p Pass) context.Context {
	ctx, _ = s.tracer.Start(ctx, "depsgraph.Evaluate",
		oteltrace.WithAttributes(
			attribute.String("instance", p.Instance),
			attribute.String("mode", p.Mode),
			attribute.Float64("time", p.Time),
			attribute.Int("dirty_nodes", p.Dirty),
		),
	)
	return ctx
}

func (s *OTelSink) Eval(ctx context.Context, ev Event) {
	span := oteltrace.SpanFromContext(ctx)
	attrs := []attribute.KeyValue{
		attribute.String("function", ev.Function),
		attribute.String("object", ev.Object),
		attribute.String("address", ev.Address),
	}
	if ev.Subdata != nil {
		attrs = append(attrs,
			attribute.String("subdata.comment", ev.Subdata.Comment),
			attribute.String("subdata.name", ev.Subdata.Name),
			attribute.Int("subdata.index", ev.Subdata.Index),
		)
	}
	if ev.Parent != nil {
		attrs = append(attrs,
			attribute.String("parent.comment", ev.Parent.Comment),
			attribute.String("parent.name", ev.Parent.Name),
		)
	}
	if ev.Time != nil {
		attrs = append(attrs, attribute.Float64("time", *ev.Time))
	}
	opts := []oteltrace.EventOption{oteltrace.WithAttributes(attrs...)}
	if !ev.At.IsZero() {
		opts = append(opts, oteltrace.WithTimestamp(ev.At))
	}
	span.AddEvent("eval", opts...)
}

func (s *OTelSink) End(ctx context.Context, p Pass, err error) {
	span := oteltrace.SpanFromContext(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "evaluation failed")
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
