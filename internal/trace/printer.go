package trace

import (
	"context"
	"time"
)

// Printer is handed to operation bodies so they can report what they
// evaluate. A nil Printer is valid and does nothing.
type Printer struct {
	ctx        context.Context
	sink       Sink
	instance   string
	address    string
	timestamps bool
}

// NewPrinter binds a sink to one node of one instance.
func NewPrinter(ctx context.Context, sink Sink, instance, address string, timestamps bool) *Printer {
	if sink == nil {
		sink = Nop{}
	}
	return &Printer{ctx: ctx, sink: sink, instance: instance, address: address, timestamps: timestamps}
}

func (p *Printer) emit(ev Event) {
	if p == nil {
		return
	}
	ev.Instance = p.instance
	if ev.Address == "" {
		ev.Address = p.address
	}
	if p.timestamps {
		ev.At = time.Now()
	}
	p.sink.Eval(p.ctx, ev)
}

// Eval reports that function evaluated object.
func (p *Printer) Eval(function, object string) {
	p.emit(Event{Function: function, Object: object})
}

// EvalSubdata reports evaluation of a named piece of object.
func (p *Printer) EvalSubdata(function, object, comment, name string) {
	p.emit(Event{Function: function, Object: object, Subdata: &Subdata{Comment: comment, Name: name, Index: -1}})
}

// EvalSubdataIndex reports evaluation of the index-th piece of object.
func (p *Printer) EvalSubdataIndex(function, object, comment, name string, index int) {
	p.emit(Event{Function: function, Object: object, Subdata: &Subdata{Comment: comment, Name: name, Index: index}})
}

// EvalParentTyped reports evaluation of object against its typed parent.
func (p *Printer) EvalParentTyped(function, object, comment, parent string) {
	p.emit(Event{Function: function, Object: object, Parent: &Parent{Comment: comment, Name: parent}})
}

// EvalTime reports a time-dependent evaluation.
func (p *Printer) EvalTime(function, object string, t float64) {
	p.emit(Event{Function: function, Object: object, Time: &t})
}
