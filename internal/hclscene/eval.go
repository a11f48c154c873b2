package hclscene

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/depsgraph/internal/ctxlog"
	"github.com/vk/depsgraph/internal/recalc"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// evalContext exposes the recalc reasons as `reason.<name>` numbers.
func evalContext() *hcl.EvalContext {
	reasons := make(map[string]cty.Value)
	for _, name := range recalc.Names() {
		f, _ := recalc.Parse(name)
		reasons[name] = cty.NumberUIntVal(uint64(f))
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{"reason": cty.ObjectVal(reasons)},
	}
}

// isExprDefined checks if an HCL expression was actually present in the
// source. The decoder fills omitted optional attributes with zero-width
// placeholder expressions, so a nil check is not enough.
func isExprDefined(ctx context.Context, expr hcl.Expression, attrName string) bool {
	if expr == nil {
		return false
	}
	r := expr.Range()
	defined := r.End.Byte > r.Start.Byte
	ctxlog.FromContext(ctx).Debug("Checking if HCL attribute was explicitly defined.", "attribute", attrName, "hcl_range", r.String(), "is_defined", defined)
	return defined
}

// decodeTriggers evaluates a triggers expression. It accepts a single reason
// or a list of reasons, each either a `reason.*` number or a reason name.
func decodeTriggers(expr hcl.Expression, evalCtx *hcl.EvalContext) (recalc.Flag, error) {
	val, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return 0, diags
	}
	if val.IsNull() || !val.IsKnown() {
		return 0, nil
	}
	ty := val.Type()
	if ty.IsListType() || ty.IsTupleType() || ty.IsSetType() {
		var f recalc.Flag
		for it := val.ElementIterator(); it.Next(); {
			_, v := it.Element()
			bit, err := decodeReason(v)
			if err != nil {
				return 0, err
			}
			f |= bit
		}
		return f, nil
	}
	return decodeReason(val)
}

func decodeReason(v cty.Value) (recalc.Flag, error) {
	switch v.Type() {
	case cty.Number:
		var n uint32
		if err := gocty.FromCtyValue(v, &n); err != nil {
			return 0, fmt.Errorf("invalid reason: %w", err)
		}
		return recalc.Flag(n), nil
	case cty.String:
		return recalc.Parse(v.AsString())
	default:
		return 0, fmt.Errorf("invalid reason of type %s", v.Type().FriendlyName())
	}
}

// decodeArguments evaluates every attribute of an arguments block.
func decodeArguments(block *argumentsBlock, evalCtx *hcl.EvalContext) (map[string]cty.Value, error) {
	if block == nil || block.Body == nil {
		return nil, nil
	}
	attrs, diags := block.Body.JustAttributes()
	if diags.HasErrors() {
		return nil, diags
	}
	out := make(map[string]cty.Value, len(attrs))
	for name, attr := range attrs {
		val, diags := attr.Expr.Value(evalCtx)
		if diags.HasErrors() {
			return nil, diags
		}
		out[name] = val
	}
	return out, nil
}
