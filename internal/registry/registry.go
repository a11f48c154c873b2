package registry

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/vk/depsgraph/internal/node"
	"github.com/vk/depsgraph/internal/nodeid"
	"github.com/zclconf/go-cty/cty"
)

// Module is the interface that all operation modules implement to be
// registered.
type Module interface {
	Register(r *Registry)
}

// Spec is what a factory receives for one node.
type Spec struct {
	Key  nodeid.Key
	Args map[string]cty.Value
}

// Factory builds the operation body of one node.
type Factory func(spec Spec) (node.Operation, error)

// Arg declares one argument of a kind.
type Arg struct {
	Type     cty.Type
	Required bool
}

// Kind is a registered operation kind.
type Kind struct {
	Name string
	Args map[string]Arg
	New  Factory
}

// Registry holds all registered operation kinds.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]*Kind
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{kinds: make(map[string]*Kind)}
}

// NewWithModules creates a registry and registers every module.
func NewWithModules(mods ...Module) *Registry {
	r := New()
	for _, m := range mods {
		m.Register(r)
	}
	return r
}

// Register adds a kind. Registering the same name twice is a programming
// error and panics.
func (r *Registry) Register(k *Kind) {
	if k == nil || k.Name == "" || k.New == nil {
		panic("registry: kind needs a name and a factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.kinds[k.Name]; exists {
		panic(fmt.Sprintf("operation kind '%s' already registered", k.Name))
	}
	slog.Debug("Registering operation kind.", "kind", k.Name)
	r.kinds[k.Name] = k
}

// Lookup returns the kind registered under name.
func (r *Registry) Lookup(name string) (*Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[name]
	return k, ok
}

// Kinds returns the sorted names of all registered kinds.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.kinds))
	for name := range r.kinds {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Build validates args against the kind's declaration and calls its factory.
func (r *Registry) Build(kind string, spec Spec) (node.Operation, error) {
	k, ok := r.Lookup(kind)
	if !ok {
		return nil, fmt.Errorf("node %s: unknown operation kind '%s'", spec.Key, kind)
	}
	args, err := k.Validate(spec.Args)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", spec.Key, err)
	}
	spec.Args = args
	op, err := k.New(spec)
	if err != nil {
		return nil, fmt.Errorf("node %s: building '%s' operation: %w", spec.Key, kind, err)
	}
	return op, nil
}
