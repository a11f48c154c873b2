package trace

import (
	"context"
	"time"
)

// Pass describes one evaluation pass.
type Pass struct {
	Instance string
	Mode     string
	Time     float64
	Dirty    int
}

// Subdata locates an event inside a piece of an element, e.g. one modifier.
type Subdata struct {
	Comment string
	Name    string
	Index   int // -1 when not indexed.
}

// Parent names the typed parent an operation evaluated against.
type Parent struct {
	Comment string
	Name    string
}

// Event is a single per-node trace record.
type Event struct {
	Instance string
	Function string
	Object   string
	Address  string
	Subdata  *Subdata
	Parent   *Parent
	Time     *float64
	At       time.Time
}

// Sink consumes trace records. Begin may return a derived context that is
// passed back to Eval and End for the same pass.
type Sink interface {
	Begin(ctx context.Context, p Pass) context.Context
	Eval(ctx context.Context, ev Event)
	End(ctx context.Context, p Pass, err error)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Begin(ctx context.Context, _ Pass) context.Context { return ctx }
func (Nop) Eval(context.Context, Event)                        {}
func (Nop) End(context.Context, Pass, error)                   {}

// Multi fans records out to several sinks.
func Multi(sinks ...Sink) Sink {
	out := make(multi, 0, len(sinks))
	for _, s := range sinks {
		if s == nil {
			continue
		}
		if _, nop := s.(Nop); nop {
			continue
		}
		out = append(out, s)
	}
	switch len(out) {
	case 0:
		return Nop{}
	case 1:
		return out[0]
	}
	return out
}

type multi []Sink

func (m multi) Begin(ctx context.Context, p Pass) context.Context {
	for _, s := range m {
		ctx = s.Begin(ctx, p)
	}
	return ctx
}

func (m multi) Eval(ctx context.Context, ev Event) {
	for _, s := range m {
		s.Eval(ctx, ev)
	}
}

func (m multi) End(ctx context.Context, p Pass, err error) {
	for i := len(m) - 1; i >= 0; i-- {
		m[i].End(ctx, p, err)
	}
}
