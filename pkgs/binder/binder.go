// Package binder builds typed Go values from AST nodes.
//
// Binding is directed by the target type. Literals go through their
// natural value and the convert ladder; sequences fill slices, arrays and
// Add-method aggregates; associative arrays fill maps, slices of pairs and
// Add-method aggregates. Failures are collected, never returned early, so
// a bad element does not hide errors in its siblings.
package binder

import (
	"log/slog"
	"reflect"
	"strings"
	"sync/atomic"

	"github.com/aledsdavies/argbind/core/invariant"
	"github.com/aledsdavies/argbind/pkgs/ast"
	"github.com/aledsdavies/argbind/pkgs/convert"
)

// Result is the outcome of one Bind call. Value may be partially filled
// when Errors is non-empty.
type Result struct {
	Value  reflect.Value
	OK     bool
	Errors []*ValueError
}

// Option configures a Binder.
type Option func(*Binder)

// WithRegistry sets the conversion registry. Defaults to convert.Default().
func WithRegistry(r *convert.Registry) Option {
	return func(b *Binder) {
		if r != nil {
			b.registry = r
		}
	}
}

// WithInterfaceResolver sets how interface targets are made concrete.
func WithInterfaceResolver(r InterfaceResolver) Option {
	return func(b *Binder) {
		if r != nil {
			b.interfaces = r
		}
	}
}

// WithLogger traces binding decisions at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// Binder binds AST nodes to Go types. One Bind call may be in flight per
// Binder; use a Binder per goroutine.
type Binder struct {
	registry   *convert.Registry
	interfaces InterfaceResolver
	logger     *slog.Logger
	busy       atomic.Bool
}

// New returns a Binder with the default registry and interface mappings.
func New(opts ...Option) *Binder {
	b := &Binder{
		registry:   convert.Default(),
		interfaces: NewTypeMap(),
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Registry returns the conversion registry in use.
func (b *Binder) Registry() *convert.Registry {
	return b.registry
}

// Bind binds node to a value of type target.
func (b *Binder) Bind(target reflect.Type, node ast.Node) Result {
	invariant.NotNil(target, "target")
	invariant.NotNil(node, "node")
	invariant.Precondition(b.busy.CompareAndSwap(false, true), "Bind called while another Bind is in progress on the same Binder")
	defer b.busy.Store(false)

	s := &sink{}
	v, ok := b.bind(target, node, s)
	if !ok {
		v = reflect.Value{}
	}
	return Result{Value: v, OK: ok && s.empty(), Errors: s.errors}
}

// bind returns ok=false when no value of type target could be produced.
// A produced value may still have collected errors for some elements.
func (b *Binder) bind(target reflect.Type, node ast.Node, s *sink) (reflect.Value, bool) {
	b.logger.Debug("bind", slog.String("target", target.String()), slog.String("node", ast.Kind(node)))

	switch n := node.(type) {
	case *ast.Literal:
		return b.bindLiteral(target, n, s)
	case *ast.Sequence:
		return b.bindSequence(target, n, s)
	case *ast.AssociativeArray:
		return b.bindAssociative(target, n, s)
	case *ast.SwitchParameter:
		return b.bind(target, n.Value, s)
	default:
		s.add(Unsupported, node, target, nil, "%s cannot be bound as a value", ast.Kind(node))
		return reflect.Value{}, false
	}
}

func (b *Binder) bindLiteral(target reflect.Type, lit *ast.Literal, s *sink) (reflect.Value, bool) {
	if lit.Type == ast.LiteralNull {
		if !nullable(target) {
			s.add(TypeError, lit, target, nil, "$null is not a valid %s", target)
			return reflect.Value{}, false
		}
		return reflect.Zero(target), true
	}

	natural, err := Natural(lit)
	if err != nil {
		s.add(TypeError, lit, target, err, "cannot interpret %s", lit)
		return reflect.Value{}, false
	}

	out, err := b.registry.Convert(natural, target)
	if err == nil {
		return out, true
	}

	if k := target.Kind(); k == reflect.Slice || k == reflect.Array {
		b.logger.Debug("bind literal as one-element sequence", slog.String("target", target.String()))
		return b.bindSequence(target, &ast.Sequence{Elements: []ast.Node{lit}, Pos: lit.Pos}, s)
	}

	s.errors = append(s.errors, &ValueError{
		Kind:    TypeError,
		Node:    lit,
		Target:  target,
		Value:   natural.Interface(),
		Message: "cannot bind " + lit.String() + " to " + target.String(),
		Cause:   err,
	})
	return reflect.Value{}, false
}

// Natural returns the natural value of a non-null literal: a string, a
// bool, or the first numeric type that holds it.
func Natural(lit *ast.Literal) (reflect.Value, error) {
	switch lit.Type {
	case ast.LiteralNumeric:
		return convert.ParseNumeric(lit.Text)
	case ast.LiteralBoolean:
		return reflect.ValueOf(strings.EqualFold(lit.Text, "$true")), nil
	case ast.LiteralNull:
		return reflect.Value{}, convert.ErrNilValue
	default:
		return reflect.ValueOf(lit.Text), nil
	}
}

func nullable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map, reflect.Func, reflect.Chan:
		return true
	default:
		return false
	}
}

// concrete resolves an interface target for node, reporting Unsupported
// when no mapping exists.
func (b *Binder) concrete(target reflect.Type, node ast.Node, s *sink) (reflect.Type, bool) {
	t, ok := b.interfaces.ResolveInterface(target, node)
	if !ok || !t.Implements(target) {
		s.add(Unsupported, node, target, nil, "no concrete type registered for interface %s", target)
		return nil, false
	}
	return t, true
}

// asInterface wraps a bound concrete value as the interface target.
func asInterface(v reflect.Value, target reflect.Type) reflect.Value {
	out := reflect.New(target).Elem()
	out.Set(v)
	return out
}
