// Package astfmt converts parsed command lines to and from a canonical,
// serializable document that encodes as JSON, YAML or CBOR.
package astfmt

import (
	"fmt"

	"github.com/aledsdavies/argbind/pkgs/ast"
)

// Version is the document format version.
const Version = 1

// Document is the serializable form of an ast.NodeSequence.
type Document struct {
	Version int     `json:"version" yaml:"version"`
	Input   string  `json:"input" yaml:"input"`
	Nodes   []*Node `json:"nodes" yaml:"nodes"`
}

// Node is a union of the AST variants; Kind selects which fields apply.
type Node struct {
	Kind  string `json:"kind" yaml:"kind"` // see ast.Kind
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`

	// literal
	Type string `json:"type,omitempty" yaml:"type,omitempty"`
	Text string `json:"text,omitempty" yaml:"text,omitempty"`

	// sequence
	Elements []*Node `json:"elements,omitempty" yaml:"elements,omitempty"`
	Implicit bool    `json:"implicit,omitempty" yaml:"implicit,omitempty"`

	// associative_array
	Entries []*Entry `json:"entries,omitempty" yaml:"entries,omitempty"`

	// parameter_name, switch_parameter
	Name  string `json:"name,omitempty" yaml:"name,omitempty"`
	Value *Node  `json:"value,omitempty" yaml:"value,omitempty"`
}

// Entry is one key/value pair of an associative array.
type Entry struct {
	Key   *Node `json:"key" yaml:"key"`
	Value *Node `json:"value" yaml:"value"`
}

// FromSequence builds the document for seq.
func FromSequence(seq *ast.NodeSequence) *Document {
	doc := &Document{
		Version: Version,
		Input:   seq.Input,
		Nodes:   make([]*Node, len(seq.Nodes)),
	}
	for i, n := range seq.Nodes {
		doc.Nodes[i] = fromNode(n)
	}
	return doc
}

func fromNode(n ast.Node) *Node {
	span := n.Span()
	out := &Node{Kind: ast.Kind(n), Start: span.Start, End: span.End}

	switch v := n.(type) {
	case *ast.Literal:
		out.Type = v.Type.String()
		out.Text = v.Text
	case *ast.Sequence:
		out.Implicit = v.Implicit
		out.Elements = make([]*Node, len(v.Elements))
		for i, e := range v.Elements {
			out.Elements[i] = fromNode(e)
		}
	case *ast.AssociativeArray:
		out.Entries = make([]*Entry, len(v.Entries))
		for i, e := range v.Entries {
			out.Entries[i] = &Entry{Key: fromNode(e.Key), Value: fromNode(e.Value)}
		}
	case *ast.ParameterName:
		out.Name = v.Name
	case *ast.SwitchParameter:
		out.Name = v.Name
		out.Value = fromNode(v.Value)
	}
	return out
}

var literalTypes = map[string]ast.LiteralType{
	ast.LiteralString.String():  ast.LiteralString,
	ast.LiteralNumeric.String(): ast.LiteralNumeric,
	ast.LiteralBoolean.String(): ast.LiteralBoolean,
	ast.LiteralNull.String():    ast.LiteralNull,
}

// Sequence rebuilds the AST. It fails on unknown kinds, missing children
// and spans outside the input.
func (d *Document) Sequence() (*ast.NodeSequence, error) {
	if d.Version != Version {
		return nil, fmt.Errorf("unsupported document version %d (want %d)", d.Version, Version)
	}
	seq := &ast.NodeSequence{Input: d.Input, Nodes: make([]ast.Node, len(d.Nodes))}
	for i, n := range d.Nodes {
		node, err := d.toNode(n)
		if err != nil {
			return nil, fmt.Errorf("node %d: %w", i, err)
		}
		seq.Nodes[i] = node
	}
	return seq, nil
}

func (d *Document) toNode(n *Node) (ast.Node, error) {
	if n == nil {
		return nil, fmt.Errorf("missing node")
	}
	if n.Start < 0 || n.End < n.Start || n.End > len(d.Input) {
		return nil, fmt.Errorf("%s span [%d,%d) outside input of length %d", n.Kind, n.Start, n.End, len(d.Input))
	}
	span := ast.Span{Start: n.Start, End: n.End}

	switch n.Kind {
	case "literal":
		typ, ok := literalTypes[n.Type]
		if !ok {
			return nil, fmt.Errorf("unknown literal type %q", n.Type)
		}
		return &ast.Literal{Type: typ, Text: n.Text, Pos: span}, nil

	case "sequence":
		seq := &ast.Sequence{Implicit: n.Implicit, Pos: span, Elements: make([]ast.Node, len(n.Elements))}
		for i, e := range n.Elements {
			elem, err := d.toNode(e)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			seq.Elements[i] = elem
		}
		return seq, nil

	case "associative_array":
		arr := &ast.AssociativeArray{Pos: span, Entries: make([]ast.Entry, len(n.Entries))}
		for i, e := range n.Entries {
			if e == nil {
				return nil, fmt.Errorf("entry %d: missing", i)
			}
			key, err := d.toNode(e.Key)
			if err != nil {
				return nil, fmt.Errorf("entry %d key: %w", i, err)
			}
			value, err := d.toNode(e.Value)
			if err != nil {
				return nil, fmt.Errorf("entry %d value: %w", i, err)
			}
			arr.Entries[i] = ast.Entry{Key: key, Value: value}
		}
		return arr, nil

	case "parameter_name":
		if n.Name == "" {
			return nil, fmt.Errorf("parameter_name without a name")
		}
		return &ast.ParameterName{Name: n.Name, Pos: span}, nil

	case "switch_parameter":
		if n.Name == "" {
			return nil, fmt.Errorf("switch_parameter without a name")
		}
		value, err := d.toNode(n.Value)
		if err != nil {
			return nil, fmt.Errorf("switch value: %w", err)
		}
		return &ast.SwitchParameter{Name: n.Name, Value: value, Pos: span}, nil

	default:
		return nil, fmt.Errorf("unknown node kind %q", n.Kind)
	}
}
