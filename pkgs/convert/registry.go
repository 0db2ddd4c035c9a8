// Package convert turns natural values into declared target types.
//
// A natural value is the Go value a literal parses to on its own: a string,
// a bool, or the first numeric type from NumericTypes that holds it.
// Registry.Convert moves it to the target type through a fixed ladder:
//
//	(a) assignability
//	(b) converters registered for the target type
//	(c) converters registered for the source type
//	(d) numeric and same-kind primitive conversion, range checked
//	(e) a text round trip: Render, then ParseText
//	(f) registered one-argument constructors, whose argument is converted
//	    recursively
//	(g) registered Parse-style factories, taking the natural type or a string
//
// A pointer target whose element is reachable is the last resort.
package convert

import (
	"fmt"
	"net/url"
	"reflect"
	"sync"
	"time"

	"github.com/aledsdavies/argbind/core/invariant"
)

// Converter converts values between the type pairs it accepts.
type Converter interface {
	CanConvert(from, to reflect.Type) bool
	Convert(v reflect.Value, to reflect.Type) (reflect.Value, error)
}

// Func adapts a typed conversion function into a Converter.
func Func[S, T any](fn func(S) (T, error)) Converter {
	return funcConverter[S, T]{fn: fn}
}

type funcConverter[S, T any] struct {
	fn func(S) (T, error)
}

func (c funcConverter[S, T]) CanConvert(from, to reflect.Type) bool {
	return from.AssignableTo(reflect.TypeFor[S]()) && reflect.TypeFor[T]().AssignableTo(to)
}

func (c funcConverter[S, T]) Convert(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	s, ok := v.Interface().(S)
	if !ok {
		return reflect.Value{}, fmt.Errorf("%s is not %s", v.Type(), reflect.TypeFor[S]())
	}
	t, err := c.fn(s)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(&t).Elem(), nil
}

// Registry holds the pluggable parts of the conversion ladder. It is safe
// for concurrent use; registration is expected to finish before the first
// conversion.
type Registry struct {
	mu           sync.RWMutex
	to           map[reflect.Type][]Converter
	from         map[reflect.Type][]Converter
	text         map[reflect.Type]func(string) (reflect.Value, error)
	constructors map[reflect.Type][]reflect.Value
	factories    map[reflect.Type][]reflect.Value
	pairs        map[reflect.Type][]reflect.Value
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		to:           make(map[reflect.Type][]Converter),
		from:         make(map[reflect.Type][]Converter),
		text:         make(map[reflect.Type]func(string) (reflect.Value, error)),
		constructors: make(map[reflect.Type][]reflect.Value),
		factories:    make(map[reflect.Type][]reflect.Value),
		pairs:        make(map[reflect.Type][]reflect.Value),
	}
}

// Default returns a registry with the standard library types that have no
// TextUnmarshaler of their own: time.Duration and *url.URL.
func Default() *Registry {
	r := NewRegistry()
	RegisterText(r, time.ParseDuration)
	r.RegisterFactory(url.Parse)
	return r
}

// RegisterTo adds a converter tried for conversions into to.
func (r *Registry) RegisterTo(to reflect.Type, c Converter) {
	invariant.NotNil(c, "converter")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.to[to] = append(r.to[to], c)
}

// RegisterFrom adds a converter tried for conversions out of from.
func (r *Registry) RegisterFrom(from reflect.Type, c Converter) {
	invariant.NotNil(c, "converter")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.from[from] = append(r.from[from], c)
}

// RegisterText installs the text parser for T, replacing any previous one.
func RegisterText[T any](r *Registry, parse func(string) (T, error)) {
	invariant.NotNil(parse, "parse")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text[reflect.TypeFor[T]()] = func(text string) (reflect.Value, error) {
		v, err := parse(text)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(&v).Elem(), nil
	}
}

// RegisterConstructor adds a one-argument constructor, func(P) T or
// func(P) (T, error), used by step (f) for targets of type T.
func (r *Registry) RegisterConstructor(fn any) {
	v := checkFunc(fn, 1)
	r.mu.Lock()
	defer r.mu.Unlock()
	out := v.Type().Out(0)
	r.constructors[out] = append(r.constructors[out], v)
}

// RegisterFactory adds a Parse-style factory, func(P) (T, error) or
// func(P) T, used by step (g) for targets of type T. P is normally string.
func (r *Registry) RegisterFactory(fn any) {
	v := checkFunc(fn, 1)
	r.mu.Lock()
	defer r.mu.Unlock()
	out := v.Type().Out(0)
	r.factories[out] = append(r.factories[out], v)
}

// RegisterPairConstructor adds a two-argument constructor, func(K, V) T or
// func(K, V) (T, error), that builds a key/value pair of type T.
func (r *Registry) RegisterPairConstructor(fn any) {
	v := checkFunc(fn, 2)
	r.mu.Lock()
	defer r.mu.Unlock()
	out := v.Type().Out(0)
	r.pairs[out] = append(r.pairs[out], v)
}

// PairConstructors returns the registered pair constructors for t.
func (r *Registry) PairConstructors(t reflect.Type) []reflect.Value {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]reflect.Value(nil), r.pairs[t]...)
}

func checkFunc(fn any, in int) reflect.Value {
	v := reflect.ValueOf(fn)
	invariant.Precondition(v.Kind() == reflect.Func, "expected a function, got %T", fn)
	t := v.Type()
	invariant.Precondition(t.NumIn() == in && !t.IsVariadic(), "%s must take exactly %d argument(s)", t, in)
	invariant.Precondition(t.NumOut() == 1 || (t.NumOut() == 2 && t.Out(1) == errorType),
		"%s must return T or (T, error)", t)
	return v
}

// Invoke calls fn, turning a trailing non-nil error result or a panic into
// an error. The first result is returned.
func Invoke(fn reflect.Value, args ...reflect.Value) (out reflect.Value, err error) {
	defer func() {
		if p := recover(); p != nil {
			out = reflect.Value{}
			err = fmt.Errorf("%w: %v", ErrPanic, p)
		}
	}()

	results := fn.Call(args)
	if n := len(results); n > 0 && results[n-1].Type() == errorType {
		if e := results[n-1].Interface(); e != nil {
			return reflect.Value{}, e.(error)
		}
		results = results[:n-1]
	}
	if len(results) == 0 {
		return reflect.Value{}, nil
	}
	return results[0], nil
}

// step is one rung of the ladder. ok=false with a nil error means the step
// did not apply.
type step func(v reflect.Value, to reflect.Type, visiting map[reflect.Type]bool) (reflect.Value, bool, error)

// Convert converts the natural value v to type to.
func (r *Registry) Convert(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	invariant.NotNil(to, "target type")
	if !v.IsValid() {
		return reflect.Value{}, &Error{To: to, Cause: ErrNilValue}
	}
	return r.convert(v, to, make(map[reflect.Type]bool))
}

func (r *Registry) convert(v reflect.Value, to reflect.Type, visiting map[reflect.Type]bool) (reflect.Value, error) {
	if v.Type().AssignableTo(to) {
		return assign(v, to), nil
	}

	steps := []step{
		r.registeredTo,
		r.registeredFrom,
		primitive,
		r.viaText,
		r.viaConstructor,
		r.viaFactory,
		r.viaPointer,
	}

	// the earliest failure is the most specific one
	var cause error
	for _, s := range steps {
		out, ok, err := s(v, to, visiting)
		if ok {
			return assign(out, to), nil
		}
		if err != nil && cause == nil {
			cause = err
		}
	}
	if cause == nil {
		cause = ErrNoConversion
	}

	e := &Error{From: v.Type(), To: to, Cause: cause}
	if v.CanInterface() {
		e.Value = v.Interface()
	}
	return reflect.Value{}, e
}

// assign returns v as a value of exactly type to.
func assign(v reflect.Value, to reflect.Type) reflect.Value {
	if v.Type() == to {
		return v
	}
	out := reflect.New(to).Elem()
	out.Set(v)
	return out
}

func (r *Registry) registeredTo(v reflect.Value, to reflect.Type, _ map[reflect.Type]bool) (reflect.Value, bool, error) {
	r.mu.RLock()
	converters := r.to[to]
	r.mu.RUnlock()
	return tryConverters(converters, v, to)
}

func (r *Registry) registeredFrom(v reflect.Value, to reflect.Type, _ map[reflect.Type]bool) (reflect.Value, bool, error) {
	r.mu.RLock()
	converters := r.from[v.Type()]
	r.mu.RUnlock()
	return tryConverters(converters, v, to)
}

func tryConverters(converters []Converter, v reflect.Value, to reflect.Type) (reflect.Value, bool, error) {
	var last error
	for _, c := range converters {
		if !c.CanConvert(v.Type(), to) {
			continue
		}
		out, err := c.Convert(v, to)
		if err != nil {
			last = err
			continue
		}
		if out.IsValid() && out.Type().AssignableTo(to) {
			return out, true, nil
		}
	}
	return reflect.Value{}, false, last
}

func primitive(v reflect.Value, to reflect.Type, _ map[reflect.Type]bool) (reflect.Value, bool, error) {
	from := v.Kind()
	switch {
	case isNumber(from) && isNumber(to.Kind()):
		out, err := convertNumber(v, to)
		return out, err == nil, err
	case from == reflect.Bool && to.Kind() == reflect.Bool,
		from == reflect.String && to.Kind() == reflect.String:
		return v.Convert(to), true, nil
	}
	return reflect.Value{}, false, nil
}

func (r *Registry) viaText(v reflect.Value, to reflect.Type, _ map[reflect.Type]bool) (reflect.Value, bool, error) {
	text, ok := Render(v)
	if !ok {
		return reflect.Value{}, false, nil
	}
	return r.parseText(text, to)
}

func (r *Registry) viaConstructor(v reflect.Value, to reflect.Type, visiting map[reflect.Type]bool) (reflect.Value, bool, error) {
	r.mu.RLock()
	ctors := r.constructors[to]
	r.mu.RUnlock()
	if len(ctors) == 0 || visiting[to] {
		return reflect.Value{}, false, nil
	}

	visiting[to] = true
	defer delete(visiting, to)

	var last error
	for _, fn := range ctors {
		arg, err := r.convert(v, fn.Type().In(0), visiting)
		if err != nil {
			last = err
			continue
		}
		out, err := Invoke(fn, arg)
		if err != nil {
			last = err
			continue
		}
		return out, true, nil
	}
	return reflect.Value{}, false, last
}

func (r *Registry) viaFactory(v reflect.Value, to reflect.Type, _ map[reflect.Type]bool) (reflect.Value, bool, error) {
	r.mu.RLock()
	factories := r.factories[to]
	r.mu.RUnlock()
	if len(factories) == 0 {
		return reflect.Value{}, false, nil
	}

	var last error
	for _, fn := range factories {
		if v.Type().AssignableTo(fn.Type().In(0)) {
			out, err := Invoke(fn, v)
			if err == nil {
				return out, true, nil
			}
			last = err
		}
	}

	text, ok := Render(v)
	if !ok {
		return reflect.Value{}, false, last
	}
	for _, fn := range factories {
		if fn.Type().In(0) != stringType {
			continue
		}
		out, err := Invoke(fn, reflect.ValueOf(text))
		if err == nil {
			return out, true, nil
		}
		last = err
	}
	return reflect.Value{}, false, last
}

func (r *Registry) viaPointer(v reflect.Value, to reflect.Type, visiting map[reflect.Type]bool) (reflect.Value, bool, error) {
	if to.Kind() != reflect.Pointer {
		return reflect.Value{}, false, nil
	}
	elem, err := r.convert(v, to.Elem(), visiting)
	if err != nil {
		return reflect.Value{}, false, err
	}
	ptr := reflect.New(to.Elem())
	ptr.Elem().Set(elem)
	return ptr, true, nil
}
