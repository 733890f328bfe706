package render

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// Coerce converts v to the declared type. Java style names are accepted
// next to Go ones; unknown types pass the value through unchanged.
func Coerce(typ string, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	var (
		out any
		err error
	)
	switch strings.TrimSpace(typ) {
	case "", "any", "Object", "interface{}":
		return v, nil
	case "string", "String":
		out, err = cast.ToStringE(v)
	case "int", "Integer", "short", "Short":
		out, err = cast.ToIntE(v)
	case "int64", "long", "Long":
		out, err = cast.ToInt64E(v)
	case "float64", "double", "Double", "float", "Float":
		out, err = cast.ToFloat64E(v)
	case "bool", "boolean", "Boolean":
		out, err = cast.ToBoolE(v)
	default:
		return v, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cannot convert %v (%T) to %s: %w", v, v, typ, err)
	}
	return out, nil
}
