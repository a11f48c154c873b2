package testutil

import (
	"sync"
	"sync/atomic"

	"github.com/vk/depsgraph/internal/node"
)

// Span is the start and end tick of one recorded evaluation.
type Span struct {
	Start, End int64
}

// Recorder builds operations that record their evaluations. Ticks come from a
// shared counter, so spans of different nodes can be compared to check
// ordering across goroutines.
type Recorder struct {
	mu    sync.Mutex
	clock atomic.Int64
	order []string
	spans map[string][]Span
	masks map[string][]uint32
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{spans: make(map[string][]Span), masks: make(map[string][]uint32)}
}

// Op returns an operation recording under the node's element name and then
// calling body, if any.
func (r *Recorder) Op(body func(ec *node.EvalContext) error) node.Operation {
	return node.Func(func(ec *node.EvalContext) error {
		name := ec.Key().Element
		start := r.clock.Add(1)
		var err error
		if body != nil {
			err = body(ec)
		}
		end := r.clock.Add(1)

		r.mu.Lock()
		r.order = append(r.order, name)
		r.spans[name] = append(r.spans[name], Span{Start: start, End: end})
		r.masks[name] = append(r.masks[name], ec.Mask())
		r.mu.Unlock()
		return err
	})
}

// Order returns element names in the order their evaluations finished.
func (r *Recorder) Order() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Count returns how often name was evaluated.
func (r *Recorder) Count(name string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.spans[name])
}

// Spans returns the recorded spans of name.
func (r *Recorder) Spans(name string) []Span {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Span(nil), r.spans[name]...)
}

// LastMask returns the mask name saw on its latest evaluation.
func (r *Recorder) LastMask(name string) uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	m := r.masks[name]
	if len(m) == 0 {
		return 0
	}
	return m[len(m)-1]
}

// Reset forgets everything recorded so far.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.order = nil
	r.spans = make(map[string][]Span)
	r.masks = make(map[string][]uint32)
}
