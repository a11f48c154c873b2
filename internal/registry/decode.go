package registry

import (
	"fmt"

	"github.com/zclconf/go-cty/cty/gocty"
)

// DecodeArg decodes the named argument into target. A missing or null
// argument leaves target untouched.
func (s Spec) DecodeArg(name string, target any) error {
	v, ok := s.Args[name]
	if !ok || v.IsNull() {
		return nil
	}
	if err := gocty.FromCtyValue(v, target); err != nil {
		return fmt.Errorf("argument '%s': %w", name, err)
	}
	return nil
}
