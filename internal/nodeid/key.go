// internal/nodeid/key.go
package nodeid

import (
	"strconv"
	"strings"
)

// String serializes the key into its canonical representation.
func (k Key) String() string {
	var sb strings.Builder
	sb.WriteString(k.Element)
	sb.WriteByte('/')
	sb.WriteString(k.Component)
	sb.WriteByte('/')
	sb.WriteString(k.Op)
	if k.HasIndex() {
		sb.WriteByte('[')
		sb.WriteString(strconv.Itoa(k.Index))
		sb.WriteByte(']')
	}
	return sb.String()
}

// Less orders keys by element, component, op and index.
func (k Key) Less(other Key) bool {
	if k.Element != other.Element {
		return k.Element < other.Element
	}
	if k.Component != other.Component {
		return k.Component < other.Component
	}
	if k.Op != other.Op {
		return k.Op < other.Op
	}
	return k.Index < other.Index
}
