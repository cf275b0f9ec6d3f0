package includer

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
)

// Capability is a caller-supplied callable visible to inline expressions.
// Capabilities may block on I/O; they receive the evaluation context and
// must honor its cancellation.
type Capability func(ctx context.Context, args []cty.Value) (cty.Value, error)

// Table is the capability table - the expression evaluator's only visible
// namespace besides the data tree. Resolution never mutates it.
type Table map[string]Capability

// Evaluate parses expressionText as a single expression and evaluates it in
// a restricted interpreter: the only names in scope are the capability table
// (as functions) and the data tree (as the "data" variable). The call blocks
// until every invoked capability settles.
func Evaluate(ctx context.Context, expressionText string, caps Table, data cty.Value) (cty.Value, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(expressionText), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("parse: %w", diags)
	}

	funcs := make(map[string]function.Function, len(caps))
	for name, capability := range caps {
		funcs[name] = wrapCapability(ctx, capability)
	}

	if data == cty.NilVal {
		data = cty.EmptyObjectVal
	}
	v, diags := expr.Value(&hcl.EvalContext{
		Variables: map[string]cty.Value{"data": data},
		Functions: funcs,
	})
	if diags.HasErrors() {
		return cty.NilVal, fmt.Errorf("evaluate: %w", diags)
	}
	return v, nil
}

// wrapCapability binds the evaluation context into a cty function so a
// capability can be invoked from expression syntax.
func wrapCapability(ctx context.Context, capability Capability) function.Function {
	return function.New(&function.Spec{
		VarParam: &function.Parameter{
			Name:             "args",
			Type:             cty.DynamicPseudoType,
			AllowNull:        true,
			AllowDynamicType: true,
		},
		Type: func([]cty.Value) (cty.Type, error) {
			return cty.DynamicPseudoType, nil
		},
		Impl: func(args []cty.Value, _ cty.Type) (cty.Value, error) {
			if err := ctx.Err(); err != nil {
				return cty.NilVal, err
			}
			return capability(ctx, args)
		},
	})
}
