package formula

import (
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
)

// CalledFunctions lists the functions source calls, sorted and de-duplicated.
func CalledFunctions(source string) ([]string, error) {
	expr, err := parse(source)
	if err != nil {
		return nil, err
	}
	return calledFunctions(expr), nil
}

func calledFunctions(expr hclsyntax.Expression) []string {
	var names []string
	hclsyntax.VisitAll(expr, func(n hclsyntax.Node) hcl.Diagnostics {
		if call, ok := n.(*hclsyntax.FunctionCallExpr); ok {
			names = append(names, call.Name)
		}
		return nil
	})
	slices.Sort(names)
	return slices.Compact(names)
}

// Check validates source against fctx without resolving any reference: the
// expression must parse, use only supported operators, call only registered
// functions, and refer to row fields by plain names.
func Check(fctx Context, source string) error {
	expr, err := parse(source)
	if err != nil {
		return err
	}
	if err := checkOperators(expr, fctx.OperatorFactory(), source); err != nil {
		return err
	}
	for _, name := range calledFunctions(expr) {
		if _, ok := fctx.FunctionRegistry().Function(name); !ok {
			return &EvaluationError{Expression: source, Cause: fmt.Errorf("unknown function %q", name)}
		}
	}
	for _, t := range expr.Variables() {
		if _, _, err := traversalField(t); err != nil {
			return &EvaluationError{Expression: source, Cause: err}
		}
	}
	return nil
}
