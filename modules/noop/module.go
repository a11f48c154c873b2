package noop

import (
	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/registry"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the "noop" kind, an operation that only orders its
// dependents.
func (Module) Register(r *registry.Registry) {
	r.Register(&registry.Kind{
		Name: "noop",
		New: func(registry.Spec) (node.Operation, error) {
			return node.Func(func(ec *node.EvalContext) error {
				ec.Trace().Eval("noop", ec.Key().Element)
				return nil
			}), nil
		},
	})
}
