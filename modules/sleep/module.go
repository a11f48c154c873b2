package sleep

import (
	"fmt"
	"time"

	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the "sleep" kind, an operation that takes a fixed time.
// It is handy for exercising the worker pool.
func (Module) Register(r *registry.Registry) {
	r.Register(&registry.Kind{
		Name: "sleep",
		Args: map[string]registry.Arg{
			"duration": {Type: cty.String, Required: true},
		},
		New: newOperation,
	})
}

func newOperation(spec registry.Spec) (node.Operation, error) {
	var raw string
	if err := spec.DecodeArg("duration", &raw); err != nil {
		return nil, err
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse duration: %w", err)
	}
	if d < 0 {
		return nil, fmt.Errorf("duration must not be negative, got %s", d)
	}
	return node.Func(func(ec *node.EvalContext) error {
		ec.Logger().Debug("Sleeping.", "duration", d)
		select {
		case <-time.After(d):
			return nil
		case <-ec.Context().Done():
			return ec.Context().Err()
		}
	}), nil
}
