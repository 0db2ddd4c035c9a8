// Package params describes the shape a command line is bound to: named and
// positional parameters grouped into parameter sets.
//
// Sets are immutable once built. NewParameterSet and SetBuilder.Build check
// every structural rule up front so that resolving never has to.
package params

import (
	"reflect"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// Switch is a flag parameter. A bare -Name sets it; -Name:$false clears it.
// Only boolean values convert to a Switch.
type Switch bool

// IsPresent reports whether the switch was set.
func (s Switch) IsPresent() bool {
	return bool(s)
}

// SwitchType is the reflect.Type of Switch.
var SwitchType = reflect.TypeFor[Switch]()

// Validator checks a bound value after schema constraints passed.
type Validator interface {
	Validate(value any) error
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(value any) error

func (f ValidatorFunc) Validate(value any) error { return f(value) }

// Constraints restrict a bound value. They compile to a JSON Schema; for
// slice and array parameters the value constraints apply to each element
// and MinLength/MaxLength bound the element count.
type Constraints struct {
	Minimum   *float64
	Maximum   *float64
	MinLength *int
	MaxLength *int
	Pattern   *string
	Enum      []any
	Format    *Format
}

// IsZero reports whether no constraint is set.
func (c Constraints) IsZero() bool {
	return c.Minimum == nil && c.Maximum == nil && c.MinLength == nil && c.MaxLength == nil &&
		c.Pattern == nil && len(c.Enum) == 0 && c.Format == nil
}

// Parameter describes one bindable parameter.
type Parameter struct {
	Name        string
	Description string
	Position    *int // nil for named-only parameters
	Required    bool

	// Default is a native value converted to Type when the parameter is
	// not given. DefaultExpr is command-line text (e.g. "@{}") parsed and
	// bound the same way as an argument. At most one of them is set.
	Default     any
	DefaultExpr string

	Type  reflect.Type
	Field string // struct field or map key on the target; defaults to Name

	Constraints Constraints
	Validators  []Validator
}

// Key returns the name the value is stored under on the target instance.
func (p *Parameter) Key() string {
	if p.Field != "" {
		return p.Field
	}
	return p.Name
}

// IsPositional reports whether the parameter may be given by position.
func (p *Parameter) IsPositional() bool {
	return p.Position != nil
}

// IsSwitch reports whether the parameter is a flag.
func (p *Parameter) IsSwitch() bool {
	return p.Type == SwitchType
}

// HasDefault reports whether a default value or expression is set.
func (p *Parameter) HasDefault() bool {
	return p.Default != nil || p.DefaultExpr != ""
}

func (p *Parameter) String() string {
	return "-" + p.Name
}

var (
	durationType = reflect.TypeFor[time.Duration]()
	decimalType  = reflect.TypeFor[apd.Decimal]()
)
