package formula

import (
	"errors"
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
)

func parse(source string) (hclsyntax.Expression, error) {
	expr, diags := hclsyntax.ParseExpression([]byte(source), "formula", hcl.Pos{Line: 1, Column: 1})
	if diags.HasErrors() {
		return nil, &EvaluationError{Expression: source, Cause: diags}
	}
	return expr, nil
}

// Evaluate parses source as an HCL expression and evaluates it against fctx.
// Every variable is resolved through fctx.ResolveReference, and errors
// returned from it are passed back unchanged.
func Evaluate(fctx Context, source string) (cty.Value, error) {
	expr, err := parse(source)
	if err != nil {
		return cty.NilVal, err
	}
	if err := checkOperators(expr, fctx.OperatorFactory(), source); err != nil {
		return cty.NilVal, err
	}

	vars := make(map[string]cty.Value)
	rowVals := make(map[string]cty.Value)
	for _, t := range expr.Variables() {
		field, viaRow, err := traversalField(t)
		if err != nil {
			return cty.NilVal, &EvaluationError{Expression: source, Cause: err}
		}
		v, err := fctx.ResolveReference(t)
		if err != nil {
			return cty.NilVal, err
		}
		if viaRow {
			rowVals[field] = v
		} else {
			vars[field] = v
		}
	}
	if len(rowVals) > 0 {
		vars[RowVariable] = cty.ObjectVal(rowVals)
	}

	evalCtx := &hcl.EvalContext{
		Variables: vars,
		Functions: fctx.FunctionRegistry().Functions(),
	}
	v, diags := expr.Value(evalCtx)
	if diags.HasErrors() {
		return cty.NilVal, &EvaluationError{Expression: source, Cause: diags}
	}
	return v, nil
}

// EvaluateBool evaluates source and requires a known, non-null bool result.
func EvaluateBool(fctx Context, source string) (bool, error) {
	v, err := Evaluate(fctx, source)
	if err != nil {
		return false, err
	}
	v, err = fctx.TypeRegistry().Convert(v, cty.Bool)
	if err != nil {
		return false, &EvaluationError{Expression: source, Cause: err}
	}
	if v.IsNull() || !v.IsKnown() {
		return false, &EvaluationError{Expression: source, Cause: errors.New("condition is null or unknown")}
	}
	return v.True(), nil
}

// References lists the row fields source refers to, sorted and de-duplicated.
func References(source string) ([]string, error) {
	expr, err := parse(source)
	if err != nil {
		return nil, err
	}
	var fields []string
	for _, t := range expr.Variables() {
		field, _, err := traversalField(t)
		if err != nil {
			return nil, &EvaluationError{Expression: source, Cause: err}
		}
		fields = append(fields, field)
	}
	slices.Sort(fields)
	return slices.Compact(fields), nil
}

func checkOperators(expr hclsyntax.Expression, ops OperatorFactory, source string) error {
	var unsupported error
	hclsyntax.VisitAll(expr, func(n hclsyntax.Node) hcl.Diagnostics {
		if unsupported != nil {
			return nil
		}
		var op *hclsyntax.Operation
		switch e := n.(type) {
		case *hclsyntax.BinaryOpExpr:
			op = e.Op
		case *hclsyntax.UnaryOpExpr:
			op = e.Op
		default:
			return nil
		}
		if !ops.Supports(op) {
			unsupported = &EvaluationError{
				Expression: source,
				Cause:      fmt.Errorf("operator at %s is not allowed", n.Range()),
			}
		}
		return nil
	})
	return unsupported
}
