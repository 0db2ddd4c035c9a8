package resolver

import (
	"fmt"
	"strings"

	"github.com/aledsdavies/argbind/pkgs/ast"
	"github.com/aledsdavies/argbind/pkgs/params"
)

// ErrorKind classifies a binding failure for one candidate set.
type ErrorKind int

const (
	IncompatibleType ErrorKind = iota
	MissingRequiredParameter
	ArgumentNameMismatch
	ArgumentPositionMismatch
	Validation
	AmbiguousName
	MultipleBindings
	MissingValue
	MissingCommand
)

var kindNames = [...]string{
	IncompatibleType:         "incompatible type",
	MissingRequiredParameter: "missing required parameter",
	ArgumentNameMismatch:     "argument name mismatch",
	ArgumentPositionMismatch: "argument position mismatch",
	Validation:               "validation",
	AmbiguousName:            "ambiguous name",
	MultipleBindings:         "multiple bindings",
	MissingValue:             "missing value",
	MissingCommand:           "missing command",
}

func (k ErrorKind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// BindError is one problem found while resolving a command line against a
// parameter set. Resolution never stops at a BindError; all of them are
// collected on the ParameterSetResult.
type BindError struct {
	Kind       ErrorKind
	Parameters []*params.Parameter // related parameters, may be empty
	Nodes      []ast.Node          // related nodes, for excerpting
	Message    string
	Cause      error
}

func (e *BindError) Error() string {
	return e.Kind.String() + ": " + e.Message
}

func (e *BindError) Unwrap() error {
	return e.Cause
}

// ParameterNames returns the names of the related parameters.
func (e *BindError) ParameterNames() []string {
	names := make([]string, len(e.Parameters))
	for i, p := range e.Parameters {
		names[i] = p.Name
	}
	return names
}

// errorList accumulates the errors of one candidate.
type errorList []*BindError

func (l *errorList) add(kind ErrorKind, p *params.Parameter, node ast.Node, cause error, format string, args ...any) {
	e := &BindError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
	if p != nil {
		e.Parameters = []*params.Parameter{p}
	}
	if node != nil {
		e.Nodes = []ast.Node{node}
	}
	*l = append(*l, e)
}

// joinNames renders parameters as "-A, -B".
func joinNames(ps []*params.Parameter) string {
	parts := make([]string, len(ps))
	for i, p := range ps {
		parts[i] = p.String()
	}
	return strings.Join(parts, ", ")
}
