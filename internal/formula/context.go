// Package formula is the evaluation side of the layout engine. It defines the
// Context contract a backend evaluation machinery must satisfy, the Adapter
// that lets a report run substitute its own configuration while reusing a
// shared backend, a row-backed backend built on HCL expressions and cty
// values, and Evaluate, which runs a formula against any Context.
package formula

import (
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"golang.org/x/text/language"
)

var (
	// ErrInvalidArgument marks caller contract violations, such as a missing reference name.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrEvaluation is the root of every backend evaluation failure.
	ErrEvaluation = errors.New("context evaluation failed")
)

// EvaluationError is a backend failure while resolving a reference or
// evaluating an expression.
type EvaluationError struct {
	Reference  string
	Expression string
	Cause      error
}

func (e *EvaluationError) Error() string {
	subject := "reference '" + e.Reference + "'"
	if e.Expression != "" {
		subject = "expression '" + e.Expression + "'"
	}
	if e.Cause != nil {
		return fmt.Sprintf("evaluation error for %s: %v", subject, e.Cause)
	}
	return "evaluation error for " + subject
}

func (e *EvaluationError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrEvaluation) match every EvaluationError.
func (e *EvaluationError) Is(target error) bool { return target == ErrEvaluation }

// Configuration exposes string properties to formulas and to the engine.
type Configuration interface {
	Property(key string) (string, bool)
}

// MapConfiguration is a Configuration backed by a plain map.
type MapConfiguration map[string]string

func (m MapConfiguration) Property(key string) (string, bool) {
	v, ok := m[key]
	return v, ok
}

// LocalizationContext carries locale-dependent settings.
type LocalizationContext interface {
	Locale() language.Tag
	Location() *time.Location
}

// FunctionRegistry resolves function names used in formulas.
type FunctionRegistry interface {
	Function(name string) (function.Function, bool)
	Functions() map[string]function.Function
}

// OperatorFactory decides which operators formulas may use.
type OperatorFactory interface {
	Operator(symbol string) (*hclsyntax.Operation, bool)
	Supports(op *hclsyntax.Operation) bool
}

// TypeRegistry answers type questions about formula values.
type TypeRegistry interface {
	TypeOf(v cty.Value) cty.Type
	Convert(v cty.Value, want cty.Type) (cty.Value, error)
}

// Context is the evaluation context a formula runs against. Reference names
// are strings ("row.amount" or "amount") or hcl.Traversal values.
type Context interface {
	LocalizationContext() LocalizationContext
	Configuration() Configuration
	FunctionRegistry() FunctionRegistry
	OperatorFactory() OperatorFactory
	TypeRegistry() TypeRegistry

	ResolveReferenceType(name any) (cty.Type, error)
	ResolveReference(name any) (cty.Value, error)
	IsReferenceDirty(name any) (bool, error)
}
