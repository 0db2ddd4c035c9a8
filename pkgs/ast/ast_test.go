package ast

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func lit(typ LiteralType, text string, start, end int) *Literal {
	return &Literal{Type: typ, Text: text, Pos: Span{start, end}}
}

func TestNodeString(t *testing.T) {
	tests := []struct {
		name string
		node Node
		want string
	}{
		{"string_literal", lit(LiteralString, "it's", 0, 0), "'it`'s'"},
		{"backtick", lit(LiteralString, "a`b", 0, 0), "'a``b'"},
		{"numeric", lit(LiteralNumeric, "-1.5", 0, 0), "-1.5"},
		{"null", lit(LiteralNull, "$null", 0, 0), "$null"},
		{
			"sequence",
			&Sequence{Elements: []Node{lit(LiteralNumeric, "1", 0, 0), lit(LiteralString, "x", 0, 0)}},
			"@(1, 'x')",
		},
		{
			"dictionary",
			&AssociativeArray{Entries: []Entry{
				{Key: lit(LiteralString, "a", 0, 0), Value: &Sequence{}},
			}},
			"@{'a'=@()}",
		},
		{"parameter", &ParameterName{Name: "Name"}, "-Name"},
		{"switch", &SwitchParameter{Name: "Verbose", Value: lit(LiteralBoolean, "$false", 0, 0)}, "-Verbose:$false"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.node.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestArgumentsGrouping(t *testing.T) {
	input := "-a 1 -b -c:$true 2"
	a := &ParameterName{Name: "a", Pos: Span{0, 2}}
	one := lit(LiteralNumeric, "1", 3, 4)
	b := &ParameterName{Name: "b", Pos: Span{5, 7}}
	c := &SwitchParameter{Name: "c", Value: lit(LiteralBoolean, "$true", 11, 16), Pos: Span{8, 16}}
	two := lit(LiteralNumeric, "2", 17, 18)

	seq := &NodeSequence{Input: input, Nodes: []Node{a, one, b, c, two}}

	want := []Argument{
		{Name: a, Value: one},
		{Name: b},
		{Name: c},
		{Value: two},
	}
	if diff := cmp.Diff(want, seq.Arguments()); diff != "" {
		t.Errorf("Arguments() mismatch (-want +got):\n%s", diff)
	}

	if got := seq.Excerpt(c); got != "-c:$true" {
		t.Errorf("Excerpt() = %q, want %q", got, "-c:$true")
	}
}

func TestWalkOrder(t *testing.T) {
	inner := &Sequence{Elements: []Node{lit(LiteralString, "b", 0, 0)}}
	root := &AssociativeArray{Entries: []Entry{{Key: lit(LiteralString, "a", 0, 0), Value: inner}}}

	var kinds []string
	Walk(root, func(n Node) bool {
		kinds = append(kinds, Kind(n))
		return true
	})

	want := []string{"associative_array", "literal", "sequence", "literal"}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("walk order mismatch (-want +got):\n%s", diff)
	}
}

func TestSpanJoin(t *testing.T) {
	got := Span{4, 6}.Join(Span{1, 5})
	if got != (Span{1, 6}) {
		t.Errorf("Join() = %v", got)
	}
	if got.Len() != 5 {
		t.Errorf("Len() = %d", got.Len())
	}
}
