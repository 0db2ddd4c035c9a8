package binder

import (
	"reflect"
	"sync"

	"github.com/aledsdavies/argbind/core/invariant"
	"github.com/aledsdavies/argbind/pkgs/ast"
)

// InterfaceResolver picks the concrete type to build when the target is an
// interface. node is a *ast.Sequence or an *ast.AssociativeArray.
type InterfaceResolver interface {
	ResolveInterface(iface reflect.Type, node ast.Node) (reflect.Type, bool)
}

// TypeMap is the default InterfaceResolver: a table of concrete types per
// interface, one for sequences and one for associative arrays.
type TypeMap struct {
	mu        sync.RWMutex
	sequences map[reflect.Type]reflect.Type
	maps      map[reflect.Type]reflect.Type
}

var anyType = reflect.TypeFor[any]()

// NewTypeMap returns a TypeMap that builds []any and map[string]any for an
// `any` target.
func NewTypeMap() *TypeMap {
	m := &TypeMap{
		sequences: make(map[reflect.Type]reflect.Type),
		maps:      make(map[reflect.Type]reflect.Type),
	}
	m.Register(anyType, reflect.TypeFor[[]any](), reflect.TypeFor[map[string]any]())
	return m
}

// Register sets the concrete types for iface. Either may be nil to leave
// that shape unresolved.
func (m *TypeMap) Register(iface, sequence, assoc reflect.Type) {
	invariant.Precondition(iface != nil && iface.Kind() == reflect.Interface, "%v is not an interface type", iface)
	invariant.Precondition(sequence == nil || sequence.Implements(iface), "%v does not implement %v", sequence, iface)
	invariant.Precondition(assoc == nil || assoc.Implements(iface), "%v does not implement %v", assoc, iface)

	m.mu.Lock()
	defer m.mu.Unlock()
	if sequence != nil {
		m.sequences[iface] = sequence
	}
	if assoc != nil {
		m.maps[iface] = assoc
	}
}

func (m *TypeMap) ResolveInterface(iface reflect.Type, node ast.Node) (reflect.Type, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var t reflect.Type
	switch node.(type) {
	case *ast.Sequence:
		t = m.sequences[iface]
	case *ast.AssociativeArray:
		t = m.maps[iface]
	}
	return t, t != nil
}
