package formula

import (
	"maps"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

type functionRegistry map[string]function.Function

func (r functionRegistry) Function(name string) (function.Function, bool) {
	f, ok := r[name]
	return f, ok
}

func (r functionRegistry) Functions() map[string]function.Function {
	return maps.Clone(r)
}

// NewFunctionRegistry returns the standard formula functions. Locale-aware
// functions format according to loc.
func NewFunctionRegistry(loc LocalizationContext) FunctionRegistry {
	return functionRegistry{
		"abs":          stdlib.AbsoluteFunc,
		"ceil":         stdlib.CeilFunc,
		"floor":        stdlib.FloorFunc,
		"max":          stdlib.MaxFunc,
		"min":          stdlib.MinFunc,
		"upper":        stdlib.UpperFunc,
		"lower":        stdlib.LowerFunc,
		"title":        stdlib.TitleFunc,
		"trimspace":    stdlib.TrimSpaceFunc,
		"strlen":       stdlib.StrlenFunc,
		"substr":       stdlib.SubstrFunc,
		"join":         stdlib.JoinFunc,
		"format":       stdlib.FormatFunc,
		"formatdate":   stdlib.FormatDateFunc,
		"coalesce":     stdlib.CoalesceFunc,
		"length":       stdlib.LengthFunc,
		"formatnumber": makeFormatNumberFunc(loc),
	}
}

// makeFormatNumberFunc returns formatnumber(n, decimals), rendering n with
// the grouping and decimal separators of the locale.
func makeFormatNumberFunc(loc LocalizationContext) function.Function {
	return function.New(&function.Spec{
		Params: []function.Parameter{
			{Name: "num", Type: cty.Number},
			{Name: "decimals", Type: cty.Number},
		},
		Type: function.StaticReturnType(cty.String),
		Impl: func(args []cty.Value, retType cty.Type) (cty.Value, error) {
			f, _ := args[0].AsBigFloat().Float64()
			d, _ := args[1].AsBigFloat().Int64()
			p := message.NewPrinter(loc.Locale())
			s := p.Sprint(number.Decimal(f, number.MinFractionDigits(int(d)), number.MaxFractionDigits(int(d))))
			return cty.StringVal(s), nil
		},
	})
}

type operatorFactory map[string]*hclsyntax.Operation

var allOperators = map[string]*hclsyntax.Operation{
	"||":  hclsyntax.OpLogicalOr,
	"&&":  hclsyntax.OpLogicalAnd,
	"!":   hclsyntax.OpLogicalNot,
	"==":  hclsyntax.OpEqual,
	"!=":  hclsyntax.OpNotEqual,
	">":   hclsyntax.OpGreaterThan,
	">=":  hclsyntax.OpGreaterThanOrEqual,
	"<":   hclsyntax.OpLessThan,
	"<=":  hclsyntax.OpLessThanOrEqual,
	"+":   hclsyntax.OpAdd,
	"-":   hclsyntax.OpSubtract,
	"*":   hclsyntax.OpMultiply,
	"/":   hclsyntax.OpDivide,
	"%":   hclsyntax.OpModulo,
	"neg": hclsyntax.OpNegate,
}

// NewOperatorFactory allows the given operator symbols; with no symbols every
// operator is allowed. Unary minus is "neg".
func NewOperatorFactory(symbols ...string) OperatorFactory {
	if len(symbols) == 0 {
		return operatorFactory(maps.Clone(allOperators))
	}
	f := make(operatorFactory, len(symbols))
	for _, s := range symbols {
		if op, ok := allOperators[s]; ok {
			f[s] = op
		}
	}
	return f
}

func (f operatorFactory) Operator(symbol string) (*hclsyntax.Operation, bool) {
	op, ok := f[symbol]
	return op, ok
}

func (f operatorFactory) Supports(op *hclsyntax.Operation) bool {
	for _, known := range f {
		if known == op {
			return true
		}
	}
	return false
}

type typeRegistry struct{}

// NewTypeRegistry returns the cty-based type registry.
func NewTypeRegistry() TypeRegistry { return typeRegistry{} }

func (typeRegistry) TypeOf(v cty.Value) cty.Type {
	return v.Type()
}

func (typeRegistry) Convert(v cty.Value, want cty.Type) (cty.Value, error) {
	return convert.Convert(v, want)
}
