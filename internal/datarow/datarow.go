// Package datarow provides the row-oriented view of a tabular data source:
// per field values and a "changed since previous row" flag for the row a flow
// controller currently points at.
package datarow

import (
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
)

// ErrDataSource is the root of every field or value lookup failure.
var ErrDataSource = errors.New("data source error")

// FieldError reports a failed lookup of a single field.
type FieldError struct {
	Field string
	Cause error
}

func (e *FieldError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("data source error for field '%s': %v", e.Field, e.Cause)
	}
	return fmt.Sprintf("data source error for field '%s'", e.Field)
}

func (e *FieldError) Unwrap() error { return e.Cause }

// Is lets errors.Is(err, ErrDataSource) match every FieldError.
func (e *FieldError) Is(target error) bool { return target == ErrDataSource }

// Flags is the state of a single field in the active row.
type Flags struct {
	Value   cty.Value
	Changed bool
}

// DataRow is the global view of the active row.
type DataRow interface {
	// Flags returns the value and dirtiness of name, or a FieldError.
	Flags(name string) (Flags, error)
	// Names lists the available fields in column order.
	Names() []string
}
