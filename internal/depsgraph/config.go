package depsgraph

import (
	"github.com/vk/depsgraph/internal/flush"
	"github.com/vk/depsgraph/internal/metrics"
	"github.com/vk/depsgraph/internal/registry"
	"github.com/vk/depsgraph/internal/trace"
)

// Mode selects the evaluation rules of an instance.
type Mode int

const (
	Viewport Mode = iota
	Render
)

func (m Mode) String() string {
	if m == Render {
		return "render"
	}
	return "viewport"
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, bool) {
	switch s {
	case "viewport":
		return Viewport, true
	case "render":
		return Render, true
	}
	return Viewport, false
}

// Config is the process-scoped configuration shared by every instance of an
// Engine. It is read at instance construction and must not change afterwards.
type Config struct {
	// Registry resolves operation kinds during builds. Required.
	Registry *registry.Registry
	// Callbacks receive editor notifications after successful passes.
	Callbacks flush.Callbacks
	// Workers is the number of evaluation workers per pass. Values below 2
	// evaluate serially.
	Workers int
	// Sink receives debug/trace records. Defaults to trace.Nop.
	Sink trace.Sink
	// Timestamps adds wall-clock times to trace records.
	Timestamps bool
	// Metrics may be nil.
	Metrics *metrics.Metrics
}
