package binder

import (
	"fmt"
	"reflect"

	"github.com/aledsdavies/argbind/pkgs/ast"
)

// ErrorKind classifies a value binding failure.
type ErrorKind int

const (
	TypeError       ErrorKind = iota // no conversion to the target type
	AddError                         // an Add method failed or panicked
	ActivationError                  // a pair constructor failed or panicked
	Unsupported                      // the target shape cannot be built from the node
)

func (k ErrorKind) String() string {
	switch k {
	case TypeError:
		return "type error"
	case AddError:
		return "add error"
	case ActivationError:
		return "activation error"
	case Unsupported:
		return "unsupported"
	default:
		return fmt.Sprintf("ErrorKind(%d)", int(k))
	}
}

// ValueError is one failure collected while binding a node. Failures never
// abort sibling elements; they are gathered in Result.Errors.
type ValueError struct {
	Kind    ErrorKind
	Node    ast.Node
	Target  reflect.Type
	Value   any // the natural value, when one was produced
	Message string
	Cause   error
}

func (e *ValueError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = fmt.Sprintf("cannot bind %s to %s", e.Node, e.Target)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *ValueError) Unwrap() error {
	return e.Cause
}

// sink collects errors for one scope of the recursion. A sub-bind that may
// be retried gets its own child sink, merged into the parent only when the
// errors should surface.
type sink struct {
	errors []*ValueError
}

func (s *sink) add(kind ErrorKind, node ast.Node, target reflect.Type, cause error, format string, args ...any) {
	s.errors = append(s.errors, &ValueError{
		Kind:    kind,
		Node:    node,
		Target:  target,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	})
}

func (s *sink) merge(child *sink) {
	s.errors = append(s.errors, child.errors...)
}

func (s *sink) empty() bool {
	return len(s.errors) == 0
}
