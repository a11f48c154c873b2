// internal/nodeid/types.go
package nodeid

// NoIndex marks a key without an `[index]` suffix.
const NoIndex = -1

// Key is the structured identity of an operation node.
type Key struct {
	Element   string
	Component string
	Op        string
	Index     int // NoIndex when absent.
}

// New creates a key without an index.
func New(element, component, op string) Key {
	return Key{Element: element, Component: component, Op: op, Index: NoIndex}
}

// NewIndexed creates a key for the index-th instance of an operation, e.g. the
// third modifier of a stack.
func NewIndexed(element, component, op string, index int) Key {
	return Key{Element: element, Component: component, Op: op, Index: index}
}

// HasIndex returns true if the key has an explicit index.
func (k Key) HasIndex() bool {
	return k.Index != NoIndex
}

// IsZero reports whether k is the zero key.
func (k Key) IsZero() bool {
	return k.Element == "" && k.Component == "" && k.Op == ""
}
