package ast

import "strings"

// NodeSequence is the parse result for one command line: the top-level
// nodes in source order plus the input they were parsed from.
type NodeSequence struct {
	Input string
	Nodes []Node
}

// Len returns the number of top-level nodes.
func (s *NodeSequence) Len() int {
	return len(s.Nodes)
}

// Excerpt returns the source text covered by n, or "" if the span does not
// fit the input.
func (s *NodeSequence) Excerpt(n Node) string {
	span := n.Span()
	if span.Start < 0 || span.End > len(s.Input) || span.Start > span.End {
		return ""
	}
	return s.Input[span.Start:span.End]
}

func (s *NodeSequence) String() string {
	parts := make([]string, len(s.Nodes))
	for i, n := range s.Nodes {
		parts[i] = n.String()
	}
	return strings.Join(parts, " ")
}

// Argument pairs a named marker with the value node that follows it. Name
// is nil for positional arguments; Value is nil for a marker followed by
// another marker or by the end of input, and for switch markers, whose
// explicit value lives inside the marker.
type Argument struct {
	Name  Named
	Value Node
}

// Arguments groups the flat node list into logical arguments: every
// -Name marker together with the value node right after it.
func (s *NodeSequence) Arguments() []Argument {
	var args []Argument
	for i := 0; i < len(s.Nodes); i++ {
		n := s.Nodes[i]
		switch v := n.(type) {
		case *SwitchParameter:
			args = append(args, Argument{Name: v})
		case *ParameterName:
			arg := Argument{Name: v}
			if i+1 < len(s.Nodes) && !IsNamed(s.Nodes[i+1]) {
				arg.Value = s.Nodes[i+1]
				i++
			}
			args = append(args, arg)
		default:
			args = append(args, Argument{Value: n})
		}
	}
	return args
}
