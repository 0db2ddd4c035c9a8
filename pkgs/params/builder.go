package params

import (
	"reflect"
	"time"
)

// SetBuilder provides a fluent API for building a ParameterSet.
type SetBuilder struct {
	set ParameterSet
}

// NewSet starts building a parameter set called name.
func NewSet(name string) *SetBuilder {
	return &SetBuilder{set: ParameterSet{Name: name}}
}

// Command sets the leading command word.
func (b *SetBuilder) Command(command string) *SetBuilder {
	b.set.Command = command
	return b
}

// Target sets the struct type the set binds into. Without a target the
// set binds into a map[string]any.
func (b *SetBuilder) Target(t reflect.Type) *SetBuilder {
	b.set.Target = t
	return b
}

// Build validates the set. See NewParameterSet.
func (b *SetBuilder) Build() (*ParameterSet, error) {
	return NewParameterSet(b.set.Name, b.set.Command, b.set.Target, b.set.Parameters...)
}

// MustBuild is Build for package-level definitions; it panics on error.
func (b *SetBuilder) MustBuild() *ParameterSet {
	set, err := b.Build()
	if err != nil {
		panic(err)
	}
	return set
}

// Param starts a parameter of type t.
func (b *SetBuilder) Param(name string, t reflect.Type, description string) *ParamBuilder {
	return &ParamBuilder{
		parent: b,
		param: Parameter{
			Name:        name,
			Type:        t,
			Description: description,
		},
	}
}

// ParamString starts a string parameter.
func (b *SetBuilder) ParamString(name, description string) *ParamBuilder {
	return b.Param(name, reflect.TypeFor[string](), description)
}

// ParamInt starts an int parameter.
func (b *SetBuilder) ParamInt(name, description string) *ParamBuilder {
	return b.Param(name, reflect.TypeFor[int](), description)
}

// ParamFloat starts a float64 parameter.
func (b *SetBuilder) ParamFloat(name, description string) *ParamBuilder {
	return b.Param(name, reflect.TypeFor[float64](), description)
}

// ParamBool starts a bool parameter. Unlike a switch it always takes a value.
func (b *SetBuilder) ParamBool(name, description string) *ParamBuilder {
	return b.Param(name, reflect.TypeFor[bool](), description)
}

// ParamDuration starts a time.Duration parameter.
func (b *SetBuilder) ParamDuration(name, description string) *ParamBuilder {
	return b.Param(name, reflect.TypeFor[time.Duration](), description)
}

// ParamSwitch starts a Switch parameter.
func (b *SetBuilder) ParamSwitch(name, description string) *ParamBuilder {
	return b.Param(name, SwitchType, description)
}

// ParamBuilder configures one parameter and returns to the SetBuilder
// when Done is called.
type ParamBuilder struct {
	parent *SetBuilder
	param  Parameter
}

// Required marks the parameter as required.
func (pb *ParamBuilder) Required() *ParamBuilder {
	pb.param.Required = true
	return pb
}

// Position makes the parameter positional at index n.
func (pb *ParamBuilder) Position(n int) *ParamBuilder {
	pb.param.Position = &n
	return pb
}

// Default sets a native default value, converted to the parameter type.
func (pb *ParamBuilder) Default(value any) *ParamBuilder {
	pb.param.Default = value
	return pb
}

// DefaultExpr sets a default written as command-line text, e.g. "@{}".
func (pb *ParamBuilder) DefaultExpr(expr string) *ParamBuilder {
	pb.param.DefaultExpr = expr
	return pb
}

// Field stores the value under a different field or key than the name.
func (pb *ParamBuilder) Field(name string) *ParamBuilder {
	pb.param.Field = name
	return pb
}

// Min sets the minimum value constraint (for numeric types).
func (pb *ParamBuilder) Min(minVal float64) *ParamBuilder {
	pb.param.Constraints.Minimum = &minVal
	return pb
}

// Max sets the maximum value constraint (for numeric types).
func (pb *ParamBuilder) Max(maxVal float64) *ParamBuilder {
	pb.param.Constraints.Maximum = &maxVal
	return pb
}

// MinLength sets the minimum length (strings) or element count (slices).
func (pb *ParamBuilder) MinLength(n int) *ParamBuilder {
	pb.param.Constraints.MinLength = &n
	return pb
}

// MaxLength sets the maximum length (strings) or element count (slices).
func (pb *ParamBuilder) MaxLength(n int) *ParamBuilder {
	pb.param.Constraints.MaxLength = &n
	return pb
}

// Pattern sets a regex pattern constraint (for strings).
func (pb *ParamBuilder) Pattern(regex string) *ParamBuilder {
	pb.param.Constraints.Pattern = &regex
	return pb
}

// Format sets a typed format constraint (for strings).
func (pb *ParamBuilder) Format(format Format) *ParamBuilder {
	pb.param.Constraints.Format = &format
	return pb
}

// Enum restricts the value to one of values.
func (pb *ParamBuilder) Enum(values ...any) *ParamBuilder {
	pb.param.Constraints.Enum = values
	return pb
}

// Validate adds a custom validator, run after the constraints.
func (pb *ParamBuilder) Validate(v Validator) *ParamBuilder {
	pb.param.Validators = append(pb.param.Validators, v)
	return pb
}

// Done adds the parameter to the set. Problems surface from Build.
func (pb *ParamBuilder) Done() *SetBuilder {
	p := pb.param
	pb.parent.set.Parameters = append(pb.parent.set.Parameters, &p)
	return pb.parent
}
