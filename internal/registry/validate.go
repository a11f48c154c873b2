package registry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Validate checks args against the declared arguments of k and returns them
// converted to the declared types. Undeclared arguments, missing required
// ones and values that cannot convert are all reported together.
func (k *Kind) Validate(args map[string]cty.Value) (map[string]cty.Value, error) {
	var errs []string
	out := make(map[string]cty.Value, len(args))

	names := make([]string, 0, len(args))
	for name := range args {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		decl, ok := k.Args[name]
		if !ok {
			errs = append(errs, fmt.Sprintf("kind '%s' does not declare argument '%s'", k.Name, name))
			continue
		}
		v := args[name]
		if decl.Type == cty.NilType || decl.Type.Equals(cty.DynamicPseudoType) {
			out[name] = v
			continue
		}
		cv, err := convert.Convert(v, decl.Type)
		if err != nil {
			errs = append(errs, fmt.Sprintf("argument '%s' of kind '%s': %s", name, k.Name, err))
			continue
		}
		out[name] = cv
	}

	required := make([]string, 0)
	for name, decl := range k.Args {
		if _, ok := args[name]; decl.Required && !ok {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	for _, name := range required {
		errs = append(errs, fmt.Sprintf("kind '%s' requires argument '%s'", k.Name, name))
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid arguments:\n- %s", strings.Join(errs, "\n- "))
	}
	return out, nil
}
