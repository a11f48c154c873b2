package fail

import (
	"errors"

	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct{}

// Register registers the "fail" kind, an operation that always fails. With
// panic = true it panics instead of returning an error.
func (Module) Register(r *registry.Registry) {
	r.Register(&registry.Kind{
		Name: "fail",
		Args: map[string]registry.Arg{
			"message": {Type: cty.String},
			"panic":   {Type: cty.Bool},
		},
		New: newOperation,
	})
}

func newOperation(spec registry.Spec) (node.Operation, error) {
	message := "operation failed"
	var doPanic bool
	if err := spec.DecodeArg("message", &message); err != nil {
		return nil, err
	}
	if err := spec.DecodeArg("panic", &doPanic); err != nil {
		return nil, err
	}
	return node.Func(func(*node.EvalContext) error {
		if doPanic {
			panic(message)
		}
		return errors.New(message)
	}), nil
}
