package formula

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/vk/reportflow/internal/datarow"
	"github.com/zclconf/go-cty/cty"
)

// RowVariable is the root name under which formulas address row fields, as in "row.amount".
const RowVariable = "row"

// RowBackend is a Context whose references are the fields of a data row.
type RowBackend struct {
	row       datarow.DataRow
	loc       LocalizationContext
	functions FunctionRegistry
	operators OperatorFactory
	types     TypeRegistry
	config    Configuration
}

var _ Context = (*RowBackend)(nil)

// BackendOption customizes a RowBackend.
type BackendOption func(*RowBackend)

// WithFunctions replaces the function registry.
func WithFunctions(r FunctionRegistry) BackendOption {
	return func(b *RowBackend) { b.functions = r }
}

// WithOperators replaces the operator factory.
func WithOperators(f OperatorFactory) BackendOption {
	return func(b *RowBackend) { b.operators = f }
}

// WithBackendConfiguration sets the backend's own configuration.
func WithBackendConfiguration(c Configuration) BackendOption {
	return func(b *RowBackend) { b.config = c }
}

// NewRowBackend creates a backend over row. A nil loc selects DefaultLocalization.
func NewRowBackend(row datarow.DataRow, loc LocalizationContext, opts ...BackendOption) *RowBackend {
	if loc == nil {
		loc = DefaultLocalization()
	}
	b := &RowBackend{
		row:    row,
		loc:    loc,
		types:  NewTypeRegistry(),
		config: MapConfiguration{},
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.functions == nil {
		b.functions = NewFunctionRegistry(loc)
	}
	if b.operators == nil {
		b.operators = NewOperatorFactory()
	}
	return b
}

func (b *RowBackend) LocalizationContext() LocalizationContext { return b.loc }
func (b *RowBackend) Configuration() Configuration             { return b.config }
func (b *RowBackend) FunctionRegistry() FunctionRegistry       { return b.functions }
func (b *RowBackend) OperatorFactory() OperatorFactory         { return b.operators }
func (b *RowBackend) TypeRegistry() TypeRegistry               { return b.types }

func (b *RowBackend) ResolveReferenceType(name any) (cty.Type, error) {
	v, err := b.ResolveReference(name)
	if err != nil {
		return cty.NilType, err
	}
	return b.types.TypeOf(v), nil
}

func (b *RowBackend) ResolveReference(name any) (cty.Value, error) {
	flags, err := b.flags(name)
	if err != nil {
		return cty.NilVal, err
	}
	return flags.Value, nil
}

func (b *RowBackend) IsReferenceDirty(name any) (bool, error) {
	flags, err := b.flags(name)
	if err != nil {
		return false, err
	}
	return flags.Changed, nil
}

func (b *RowBackend) flags(name any) (datarow.Flags, error) {
	field, err := FieldName(name)
	if err != nil {
		return datarow.Flags{}, &EvaluationError{Reference: fmt.Sprint(name), Cause: err}
	}
	if b.row == nil {
		return datarow.Flags{}, &EvaluationError{Reference: field, Cause: fmt.Errorf("no active row")}
	}
	flags, err := b.row.Flags(field)
	if err != nil {
		return datarow.Flags{}, &EvaluationError{Reference: field, Cause: err}
	}
	return flags, nil
}

// FieldName maps a reference name to the row field it addresses. Accepted
// forms are "field", "row.field" and traversals row.field, row["field"] or field.
func FieldName(name any) (string, error) {
	switch n := name.(type) {
	case string:
		field := strings.TrimPrefix(n, RowVariable+".")
		if field == "" || field == RowVariable {
			return "", fmt.Errorf("%w: empty reference name", ErrInvalidArgument)
		}
		return field, nil
	case hcl.Traversal:
		field, _, err := traversalField(n)
		return field, err
	case nil:
		return "", fmt.Errorf("%w: name is nil", ErrInvalidArgument)
	default:
		return "", fmt.Errorf("%w: unsupported reference type %T", ErrInvalidArgument, name)
	}
}

// traversalField returns the field a traversal addresses and whether it goes
// through the row variable.
func traversalField(t hcl.Traversal) (string, bool, error) {
	if len(t) == 0 || t.IsRelative() {
		return "", false, fmt.Errorf("%w: relative or empty traversal", ErrInvalidArgument)
	}
	root := t.RootName()
	if root != RowVariable {
		return root, false, nil
	}
	if len(t) < 2 {
		return "", true, fmt.Errorf("%w: '%s' needs a field name", ErrInvalidArgument, RowVariable)
	}
	switch step := t[1].(type) {
	case hcl.TraverseAttr:
		return step.Name, true, nil
	case hcl.TraverseIndex:
		if step.Key.Type() == cty.String && step.Key.IsKnown() && !step.Key.IsNull() {
			return step.Key.AsString(), true, nil
		}
	}
	return "", true, fmt.Errorf("%w: unsupported row traversal", ErrInvalidArgument)
}
