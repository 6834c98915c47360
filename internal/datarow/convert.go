package datarow

import (
	"fmt"
	"time"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// ToCtyValue converts a native Go value, as produced by a database/sql scan,
// into its cty.Value. nil becomes a null of dynamic type.
func ToCtyValue(v any) (cty.Value, error) {
	switch t := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType), nil
	case cty.Value:
		return t, nil
	case []byte:
		return cty.StringVal(string(t)), nil
	case time.Time:
		return cty.StringVal(t.Format(time.RFC3339)), nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
