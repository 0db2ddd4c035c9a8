package binder

import (
	"errors"
	"reflect"
	"strings"

	"github.com/aledsdavies/argbind/pkgs/ast"
	"github.com/aledsdavies/argbind/pkgs/convert"
)

var errAmbiguousPair = errors.New("more than one pair constructor registered")

func (b *Binder) bindSequence(target reflect.Type, seq *ast.Sequence, s *sink) (reflect.Value, bool) {
	switch target.Kind() {
	case reflect.Interface:
		t, ok := b.concrete(target, seq, s)
		if !ok {
			return reflect.Value{}, false
		}
		v, ok := b.bindSequence(t, seq, s)
		if !ok {
			return reflect.Value{}, false
		}
		return asInterface(v, target), true
	case reflect.Slice:
		out := reflect.MakeSlice(target, 0, len(seq.Elements))
		for _, e := range seq.Elements {
			if v, ok := b.bind(target.Elem(), e, s); ok {
				out = reflect.Append(out, v)
			}
		}
		return out, true
	case reflect.Array:
		if len(seq.Elements) > target.Len() {
			s.add(TypeError, seq, target, nil, "%d elements do not fit in %s", len(seq.Elements), target)
			return reflect.Value{}, false
		}
		out := reflect.New(target).Elem()
		for i, e := range seq.Elements {
			if v, ok := b.bind(target.Elem(), e, s); ok {
				out.Index(i).Set(v)
			}
		}
		return out, true
	}

	inst, ok := newAggregate(target)
	adders := addMethods(inst.recv, 1)
	if !ok || len(adders) == 0 {
		s.add(TypeError, seq, target, nil, "cannot bind a sequence to %s", target)
		return reflect.Value{}, false
	}

	for _, e := range seq.Elements {
		attempts := &sink{}
		added := false
		for _, add := range adders {
			if b.tryAdd(add, []ast.Node{e}, attempts) {
				added = true
				break
			}
		}
		if !added {
			s.merge(attempts)
		}
	}
	return inst.value, true
}

func (b *Binder) bindAssociative(target reflect.Type, arr *ast.AssociativeArray, s *sink) (reflect.Value, bool) {
	switch target.Kind() {
	case reflect.Interface:
		t, ok := b.concrete(target, arr, s)
		if !ok {
			return reflect.Value{}, false
		}
		v, ok := b.bindAssociative(t, arr, s)
		if !ok {
			return reflect.Value{}, false
		}
		return asInterface(v, target), true
	case reflect.Slice, reflect.Array:
		return b.bindPairs(target, arr, s)
	case reflect.Map:
		return b.bindMap(target, arr, s), true
	}

	inst, ok := newAggregate(target)
	binary := addMethods(inst.recv, 2)
	var unary []method
	for _, add := range addMethods(inst.recv, 1) {
		if _, err := b.pairConstructor(add.fn.Type().In(0)); err == nil {
			unary = append(unary, add)
		}
	}
	if !ok || len(binary)+len(unary) == 0 {
		s.add(TypeError, arr, target, nil, "cannot bind an associative array to %s", target)
		return reflect.Value{}, false
	}

	for _, entry := range arr.Entries {
		attempts := &sink{}
		if !b.addEntry(binary, unary, entry, arr, attempts) {
			s.merge(attempts)
		}
	}
	return inst.value, true
}

// addEntry tries every two-argument Add, then every one-argument Add whose
// parameter is a pair type. The first success wins.
func (b *Binder) addEntry(binary, unary []method, entry ast.Entry, arr *ast.AssociativeArray, attempts *sink) bool {
	for _, add := range binary {
		if b.tryAdd(add, []ast.Node{entry.Key, entry.Value}, attempts) {
			return true
		}
	}
	for _, add := range unary {
		pairType := add.fn.Type().In(0)
		ctor, _ := b.pairConstructor(pairType)
		pair, ok := b.bindPair(ctor, pairType, entry, arr, attempts)
		if !ok {
			continue
		}
		if _, err := convert.Invoke(add.fn, pair); err != nil {
			attempts.add(AddError, arr, pairType, err, "%s failed", add.name)
			continue
		}
		return true
	}
	return false
}

// tryAdd binds args to the method's parameters and calls it. Every
// failure lands in attempts.
func (b *Binder) tryAdd(add method, args []ast.Node, attempts *sink) bool {
	t := add.fn.Type()
	values := make([]reflect.Value, len(args))
	for i, arg := range args {
		child := &sink{}
		v, ok := b.bind(t.In(i), arg, child)
		attempts.merge(child)
		if !ok || !child.empty() {
			return false
		}
		values[i] = v
	}

	if _, err := convert.Invoke(add.fn, values...); err != nil {
		attempts.add(AddError, args[0], t.In(0), err, "%s failed", add.name)
		return false
	}
	return true
}

func (b *Binder) bindMap(target reflect.Type, arr *ast.AssociativeArray, s *sink) reflect.Value {
	out := reflect.MakeMapWithSize(target, len(arr.Entries))
	keyType, elemType := target.Key(), target.Elem()
	multi := elemType.Kind() == reflect.Slice

	for _, entry := range arr.Entries {
		key, keyOK := b.bind(keyType, entry.Key, s)
		value, valueOK := b.bind(elemType, entry.Value, s)
		if !keyOK || !valueOK {
			continue
		}
		if multi {
			if prev := out.MapIndex(key); prev.IsValid() {
				value = reflect.AppendSlice(prev, value)
			}
		}
		out.SetMapIndex(key, value)
	}
	return out
}

func (b *Binder) bindPairs(target reflect.Type, arr *ast.AssociativeArray, s *sink) (reflect.Value, bool) {
	pairType := target.Elem()
	ctor, err := b.pairConstructor(pairType)
	if err != nil {
		s.add(Unsupported, arr, pairType, err, "cannot build %s from a key and a value", pairType)
		return reflect.Value{}, false
	}

	var out reflect.Value
	if target.Kind() == reflect.Array {
		if len(arr.Entries) > target.Len() {
			s.add(TypeError, arr, target, nil, "%d entries do not fit in %s", len(arr.Entries), target)
			return reflect.Value{}, false
		}
		out = reflect.New(target).Elem()
	} else {
		out = reflect.MakeSlice(target, 0, len(arr.Entries))
	}

	for i, entry := range arr.Entries {
		pair, ok := b.bindPair(ctor, pairType, entry, arr, s)
		if !ok {
			continue
		}
		if target.Kind() == reflect.Array {
			out.Index(i).Set(pair)
		} else {
			out = reflect.Append(out, pair)
		}
	}
	return out, true
}

// bindPair binds key and value independently, then calls the constructor.
func (b *Binder) bindPair(ctor reflect.Value, pairType reflect.Type, entry ast.Entry, arr *ast.AssociativeArray, s *sink) (reflect.Value, bool) {
	t := ctor.Type()
	key, keyOK := b.bind(t.In(0), entry.Key, s)
	value, valueOK := b.bind(t.In(1), entry.Value, s)
	if !keyOK || !valueOK {
		return reflect.Value{}, false
	}

	pair, err := convert.Invoke(ctor, key, value)
	if err != nil {
		s.add(ActivationError, arr, pairType, err, "constructing %s failed", pairType)
		return reflect.Value{}, false
	}
	return pair, true
}

// pairConstructor finds the unique way to build t from a key and a value:
// a registered two-argument constructor, or, when none is registered, the
// field order of a struct with exactly two exported fields.
func (b *Binder) pairConstructor(t reflect.Type) (reflect.Value, error) {
	switch ctors := b.registry.PairConstructors(t); len(ctors) {
	case 0:
	case 1:
		return ctors[0], nil
	default:
		return reflect.Value{}, errAmbiguousPair
	}

	base := t
	if base.Kind() == reflect.Pointer {
		base = base.Elem()
	}
	if base.Kind() != reflect.Struct {
		return reflect.Value{}, errors.New("no pair constructor registered")
	}
	var fields []int
	for i := 0; i < base.NumField(); i++ {
		if base.Field(i).IsExported() {
			fields = append(fields, i)
		}
	}
	if len(fields) != 2 {
		return reflect.Value{}, errors.New("no pair constructor registered and not a two-field struct")
	}

	fnType := reflect.FuncOf([]reflect.Type{base.Field(fields[0]).Type, base.Field(fields[1]).Type}, []reflect.Type{t}, false)
	return reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		ptr := reflect.New(base)
		ptr.Elem().Field(fields[0]).Set(args[0])
		ptr.Elem().Field(fields[1]).Set(args[1])
		if t.Kind() == reflect.Pointer {
			return []reflect.Value{ptr}
		}
		return []reflect.Value{ptr.Elem()}
	}), nil
}

// aggregate is a freshly constructed target together with the receiver
// whose method set is searched for Add methods.
type aggregate struct {
	value reflect.Value
	recv  reflect.Value
}

func newAggregate(target reflect.Type) (aggregate, bool) {
	switch {
	case target.Kind() == reflect.Pointer && target.Elem().Kind() == reflect.Struct:
		ptr := reflect.New(target.Elem())
		return aggregate{value: ptr, recv: ptr}, true
	case target.Kind() == reflect.Struct:
		ptr := reflect.New(target)
		return aggregate{value: ptr.Elem(), recv: ptr}, true
	case target.Kind() == reflect.Map:
		ptr := reflect.New(target)
		ptr.Elem().Set(reflect.MakeMap(target))
		return aggregate{value: ptr.Elem(), recv: ptr}, true
	default:
		return aggregate{}, false
	}
}

// method is a bound Add method.
type method struct {
	name string
	fn   reflect.Value
}

// addMethods returns the bound methods named Add* taking arity arguments,
// in name order.
func addMethods(recv reflect.Value, arity int) []method {
	if !recv.IsValid() {
		return nil
	}
	var methods []method
	t := recv.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !strings.HasPrefix(m.Name, "Add") {
			continue
		}
		// m.Type includes the receiver
		if m.Type.NumIn() != arity+1 || m.Type.IsVariadic() {
			continue
		}
		methods = append(methods, method{name: m.Name, fn: recv.Method(i)})
	}
	return methods
}
