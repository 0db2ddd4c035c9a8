package resolver

import (
	"fmt"
	"reflect"

	"github.com/aledsdavies/argbind/pkgs/params"
)

// Instance receives the bound values of one candidate.
type Instance interface {
	// Set stores the value bound for p.
	Set(p *params.Parameter, value reflect.Value) error
	// Value returns the populated target.
	Value() any
}

// Activator creates the target instance for a parameter set.
type Activator interface {
	Activate(set *params.ParameterSet) (Instance, error)
}

// ActivatorFunc adapts a function to Activator.
type ActivatorFunc func(set *params.ParameterSet) (Instance, error)

func (f ActivatorFunc) Activate(set *params.ParameterSet) (Instance, error) { return f(set) }

// DefaultActivator builds a zero struct for sets with a Target and a
// map[string]any keyed by Parameter.Key otherwise.
var DefaultActivator Activator = ActivatorFunc(activate)

func activate(set *params.ParameterSet) (Instance, error) {
	if set.Target == nil {
		return mapInstance{}, nil
	}

	t := set.Target
	pointer := t.Kind() == reflect.Pointer
	if pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, fmt.Errorf("cannot activate %s: not a struct", set.Target)
	}
	return &structInstance{ptr: reflect.New(t), pointer: pointer}, nil
}

type mapInstance map[string]any

func (m mapInstance) Set(p *params.Parameter, value reflect.Value) error {
	if !value.IsValid() {
		m[p.Key()] = nil
		return nil
	}
	m[p.Key()] = value.Interface()
	return nil
}

func (m mapInstance) Value() any {
	return map[string]any(m)
}

type structInstance struct {
	ptr     reflect.Value
	pointer bool
}

func (s *structInstance) Set(p *params.Parameter, value reflect.Value) error {
	field, ok := params.FieldByKey(s.ptr.Type(), p.Key())
	if !ok {
		return fmt.Errorf("%s has no field for %q", s.ptr.Type().Elem(), p.Key())
	}
	dst := s.ptr.Elem().FieldByIndex(field.Index)
	if !value.IsValid() {
		dst.SetZero()
		return nil
	}
	if !value.Type().AssignableTo(dst.Type()) {
		return fmt.Errorf("cannot store %s in field %s (%s)", value.Type(), field.Name, dst.Type())
	}
	dst.Set(value)
	return nil
}

func (s *structInstance) Value() any {
	if s.pointer {
		return s.ptr.Interface()
	}
	return s.ptr.Elem().Interface()
}
