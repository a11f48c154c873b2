package print

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/vk/depsgraph/internal/registry"
	"github.com/zclconf/go-cty/cty"
)

// Module implements the registry.Module interface for this package.
type Module struct {
	// Out receives the printed lines. Defaults to os.Stdout.
	Out io.Writer

	mu sync.Mutex
}

// Input defines the arguments of the print operation.
type Input struct {
	Message string
}

// Register registers the "print" kind.
func (m *Module) Register(r *registry.Registry) {
	r.Register(&registry.Kind{
		Name: "print",
		Args: map[string]registry.Arg{
			"message": {Type: cty.String},
		},
		New: m.newOperation,
	})
}

func (m *Module) newOperation(spec registry.Spec) (node.Operation, error) {
	var in Input
	if err := spec.DecodeArg("message", &in.Message); err != nil {
		return nil, err
	}
	return node.Func(func(ec *node.EvalContext) error {
		return m.run(ec, &in)
	}), nil
}

func (m *Module) run(ec *node.EvalContext, in *Input) error {
	ec.Logger().Info("Printing message.")
	ec.Trace().EvalTime("print", ec.Key().Element, ec.Time())

	out := m.Out
	if out == nil {
		out = os.Stdout
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	reasons := recalc.Flag(ec.Mask()).String()
	if in.Message == "" {
		_, err := fmt.Fprintf(out, "      %s (%s)\n", ec.Key(), reasons)
		return err
	}
	_, err := fmt.Fprintf(out, "      %s (%s) = %q\n", ec.Key(), reasons, in.Message)
	return err
}
