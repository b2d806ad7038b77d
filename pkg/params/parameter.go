// Package params holds the named hyperparameters and filter selections that
// overlays depend on, with typed domains, change tokens and snapshots.
package params

import (
	"fmt"
	"math"
	"reflect"

	"github.com/raykavin/chartsync/pkg/core"
	"github.com/samber/lo"
)

// Type defines the data type of a parameter
type Type string

const (
	// TypeInt represents integer parameters
	TypeInt Type = "int"
	// TypeFloat represents floating-point parameters
	TypeFloat Type = "float"
	// TypeBool represents boolean parameters
	TypeBool Type = "bool"
	// TypeString represents free-form string parameters
	TypeString Type = "string"
	// TypeCategorical represents parameters restricted to Options
	TypeCategorical Type = "categorical"
)

// Parameter declares a named value and its valid domain. Min and Max bound
// numeric parameters when set; Options enumerate categorical ones.
type Parameter struct {
	Name        string
	Description string
	Type        Type
	Default     any
	Min         any
	Max         any
	Options     []any
}

// Int declares an integer parameter bounded by [lower, upper].
func Int(name string, def, lower, upper int) Parameter {
	return Parameter{Name: name, Type: TypeInt, Default: def, Min: lower, Max: upper}
}

// Float declares a float parameter bounded by [lower, upper].
func Float(name string, def, lower, upper float64) Parameter {
	return Parameter{Name: name, Type: TypeFloat, Default: def, Min: lower, Max: upper}
}

func Bool(name string, def bool) Parameter {
	return Parameter{Name: name, Type: TypeBool, Default: def}
}

// Categorical declares a parameter whose value must be one of options.
func Categorical(name string, def any, options ...any) Parameter {
	return Parameter{Name: name, Type: TypeCategorical, Default: def, Options: options}
}

// normalize checks value against the parameter's domain and converts it to
// the canonical Go type for the parameter type: int, float64, bool or string.
func (p Parameter) normalize(value any) (any, error) {
	switch p.Type {
	case TypeInt:
		n, ok := asInt(value)
		if !ok {
			return nil, p.domainErr(value, "must be an integer")
		}
		if err := p.checkBounds(value, float64(n)); err != nil {
			return nil, err
		}
		return n, nil

	case TypeFloat:
		f, ok := asFloat(value)
		if !ok || math.IsNaN(f) {
			return nil, p.domainErr(value, "must be a number")
		}
		if err := p.checkBounds(value, f); err != nil {
			return nil, err
		}
		return f, nil

	case TypeBool:
		b, ok := value.(bool)
		if !ok {
			return nil, p.domainErr(value, "must be a boolean")
		}
		return b, nil

	case TypeString:
		s, ok := value.(string)
		if !ok {
			return nil, p.domainErr(value, "must be a string")
		}
		if len(p.Options) > 0 && !lo.Contains(p.Options, any(s)) {
			return nil, p.domainErr(value, fmt.Sprintf("must be one of %v", p.Options))
		}
		return s, nil

	case TypeCategorical:
		if !lo.Contains(p.Options, value) {
			return nil, p.domainErr(value, fmt.Sprintf("must be one of %v", p.Options))
		}
		return value, nil
	}

	return nil, p.domainErr(value, fmt.Sprintf("unsupported parameter type %q", p.Type))
}

func (p Parameter) checkBounds(raw any, v float64) error {
	if lower, ok := asFloat(p.Min); ok && v < lower {
		return p.domainErr(raw, fmt.Sprintf("below minimum %v", p.Min))
	}
	if upper, ok := asFloat(p.Max); ok && v > upper {
		return p.domainErr(raw, fmt.Sprintf("above maximum %v", p.Max))
	}
	return nil
}

func (p Parameter) domainErr(value any, reason string) error {
	return &core.DomainError{Name: p.Name, Value: value, Reason: reason}
}

func asInt(v any) (int, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return int(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return int(f), true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	if v == nil {
		return 0, false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
