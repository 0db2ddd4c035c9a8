// Package ast defines the syntax tree produced by the command-line parser.
//
// The node set is closed: literals, sequences, associative arrays and
// parameter markers. Consumers dispatch with a type switch over Node.
package ast

import (
	"fmt"
	"strings"
)

// Span is a byte range [Start, End) into the original input. It is used for
// excerpting in diagnostics only, never for semantics.
type Span struct {
	Start int
	End   int
}

// Len returns the number of bytes covered by the span.
func (s Span) Len() int {
	return s.End - s.Start
}

// Join returns the smallest span covering both s and other.
func (s Span) Join(other Span) Span {
	out := s
	if other.Start < out.Start {
		out.Start = other.Start
	}
	if other.End > out.End {
		out.End = other.End
	}
	return out
}

// Node represents any node in the AST
type Node interface {
	String() string
	Span() Span
	node()
}

// Named is implemented by the parameter marker nodes.
type Named interface {
	Node
	ParameterName() string
}

// LiteralType is the lexical category of a literal. Interpretation into a
// Go type is deferred to the binder.
type LiteralType int

const (
	LiteralString LiteralType = iota
	LiteralNumeric
	LiteralBoolean
	LiteralNull
)

func (t LiteralType) String() string {
	switch t {
	case LiteralString:
		return "string"
	case LiteralNumeric:
		return "numeric"
	case LiteralBoolean:
		return "boolean"
	case LiteralNull:
		return "null"
	default:
		return fmt.Sprintf("LiteralType(%d)", int(t))
	}
}

// Literal is a scalar value with its raw text.
type Literal struct {
	Type LiteralType
	Text string
	Pos  Span
}

func (l *Literal) Span() Span { return l.Pos }
func (*Literal) node()        {}

func (l *Literal) String() string {
	switch l.Type {
	case LiteralString:
		return quote(l.Text)
	default:
		return l.Text
	}
}

// Sequence is an ordered list, from @(...) or an implicit comma run.
type Sequence struct {
	Elements []Node
	Implicit bool // built from a top-level comma run
	Pos      Span
}

func (s *Sequence) Span() Span { return s.Pos }
func (*Sequence) node()        {}

func (s *Sequence) String() string {
	parts := make([]string, len(s.Elements))
	for i, e := range s.Elements {
		parts[i] = e.String()
	}
	return "@(" + strings.Join(parts, ", ") + ")"
}

// Entry is one key/value pair of an associative array.
type Entry struct {
	Key   Node
	Value Node
}

// AssociativeArray is an @{...} map literal. Duplicate keys are kept as
// written; the binder decides what they mean.
type AssociativeArray struct {
	Entries []Entry
	Pos     Span
}

func (a *AssociativeArray) Span() Span { return a.Pos }
func (*AssociativeArray) node()        {}

func (a *AssociativeArray) String() string {
	parts := make([]string, len(a.Entries))
	for i, e := range a.Entries {
		parts[i] = e.Key.String() + "=" + e.Value.String()
	}
	return "@{" + strings.Join(parts, "; ") + "}"
}

// ParameterName marks a named argument (-Name).
type ParameterName struct {
	Name string
	Pos  Span
}

func (p *ParameterName) Span() Span            { return p.Pos }
func (*ParameterName) node()                   {}
func (p *ParameterName) ParameterName() string { return p.Name }
func (p *ParameterName) String() string        { return "-" + p.Name }

// SwitchParameter is a named flag with an explicit value (-Name:$false).
// Its span covers both the name and the value.
type SwitchParameter struct {
	Name  string
	Value Node
	Pos   Span
}

func (s *SwitchParameter) Span() Span            { return s.Pos }
func (*SwitchParameter) node()                   {}
func (s *SwitchParameter) ParameterName() string { return s.Name }
func (s *SwitchParameter) String() string        { return "-" + s.Name + ":" + s.Value.String() }

// IsNamed reports whether n is a parameter marker.
func IsNamed(n Node) bool {
	_, ok := n.(Named)
	return ok
}

// Kind returns a short, stable name for the node's variant.
func Kind(n Node) string {
	switch n.(type) {
	case *Literal:
		return "literal"
	case *Sequence:
		return "sequence"
	case *AssociativeArray:
		return "associative_array"
	case *ParameterName:
		return "parameter_name"
	case *SwitchParameter:
		return "switch_parameter"
	default:
		return fmt.Sprintf("%T", n)
	}
}

// Walk visits n and its descendants depth-first. Returning false from fn
// skips the children of the current node.
func Walk(n Node, fn func(Node) bool) {
	if n == nil || !fn(n) {
		return
	}
	switch v := n.(type) {
	case *Sequence:
		for _, e := range v.Elements {
			Walk(e, fn)
		}
	case *AssociativeArray:
		for _, e := range v.Entries {
			Walk(e.Key, fn)
			Walk(e.Value, fn)
		}
	case *SwitchParameter:
		Walk(v.Value, fn)
	}
}

// quote renders s as a single-quoted literal that the lexer reads back
// unchanged.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('\'')
	for i := 0; i < len(s); i++ {
		if s[i] == '\'' || s[i] == '`' {
			b.WriteByte('`')
		}
		b.WriteByte(s[i])
	}
	b.WriteByte('\'')
	return b.String()
}
