package params

import (
	"errors"
	"reflect"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/argbind/pkgs/ast"
	"github.com/aledsdavies/argbind/pkgs/parser"
)

type deployOptions struct {
	Action string
	Target string `arg:"Name"`
	Force  Switch
	Count  int
	hidden string
}

func TestBuilder_Basic(t *testing.T) {
	set, err := NewSet("Execute").
		Command("deploy").
		Target(reflect.TypeFor[deployOptions]()).
		ParamString("Action", "What to do").Position(0).Required().Done().
		ParamString("Name", "Target name").Position(1).Done().
		ParamSwitch("Force", "Skip checks").Done().
		ParamInt("Count", "Repetitions").Default(1).Done().
		Build()
	require.NoError(t, err)

	assert.Equal(t, "Execute", set.Name)
	assert.Equal(t, "deploy", set.Command)
	require.Len(t, set.Parameters, 4)

	p, ok := set.Lookup("action")
	require.True(t, ok)
	assert.True(t, p.Required)
	assert.Equal(t, "What to do", p.Description)

	positional := set.Positional()
	require.Len(t, positional, 2)
	assert.Equal(t, "Action", positional[0].Name)
	assert.Equal(t, "Name", positional[1].Name)

	force, _ := set.Lookup("Force")
	assert.True(t, force.IsSwitch())
	assert.False(t, force.IsPositional())

	_, ok = set.Lookup("Forc")
	assert.False(t, ok, "Lookup matches whole names only")
}

func TestBuilder_DefaultExpr(t *testing.T) {
	set := NewSet("s").
		Param("Map", reflect.TypeFor[map[string]int](), "").DefaultExpr("@{}").Done().
		MustBuild()

	p, _ := set.Lookup("Map")
	node := set.DefaultNode(p)
	require.NotNil(t, node)
	assert.IsType(t, &ast.AssociativeArray{}, node)
}

func TestDefinitionErrors(t *testing.T) {
	str := reflect.TypeFor[string]()
	pos := func(n int) *int { return &n }
	minVal, maxVal := 5.0, 1.0
	badPattern := "["
	unknown := Format("color")

	tests := []struct {
		name    string
		command string
		target  reflect.Type
		params  []*Parameter
		message string
	}{
		{"command_whitespace", "run it", nil, nil, "contains whitespace"},
		{"duplicate_name", "", nil, []*Parameter{{Name: "Name", Type: str}, {Name: "name", Type: str}}, "duplicate parameter name"},
		{"duplicate_position", "", nil, []*Parameter{{Name: "A", Type: str, Position: pos(0)}, {Name: "B", Type: str, Position: pos(0)}}, "duplicate position"},
		{"gap", "", nil, []*Parameter{{Name: "A", Type: str, Position: pos(0)}, {Name: "B", Type: str, Position: pos(2)}}, "position 1 is missing"},
		{"not_from_zero", "", nil, []*Parameter{{Name: "A", Type: str, Position: pos(1)}}, "position 0 is missing"},
		{"negative_position", "", nil, []*Parameter{{Name: "A", Type: str, Position: pos(-1)}}, "negative position"},
		{"invalid_name", "", nil, []*Parameter{{Name: "1abc", Type: str}}, "invalid parameter name"},
		{"missing_type", "", nil, []*Parameter{{Name: "A"}}, "type is not set"},
		{"bad_default_expr", "", nil, []*Parameter{{Name: "A", Type: str, DefaultExpr: "@("}}, "invalid default expression"},
		{"multi_value_default", "", nil, []*Parameter{{Name: "A", Type: str, DefaultExpr: "1 2"}}, "single value"},
		{"both_defaults", "", nil, []*Parameter{{Name: "A", Type: str, Default: "x", DefaultExpr: "'x'"}}, "mutually exclusive"},
		{"required_with_default", "", nil, []*Parameter{{Name: "A", Type: str, Required: true, Default: "x"}}, "both required"},
		{"positional_switch", "", nil, []*Parameter{{Name: "F", Type: SwitchType, Position: pos(0)}}, "cannot be positional"},
		{"bad_pattern", "", nil, []*Parameter{{Name: "A", Type: str, Constraints: Constraints{Pattern: &badPattern}}}, "invalid regex"},
		{"min_over_max", "", nil, []*Parameter{{Name: "A", Type: str, Constraints: Constraints{Minimum: &minVal, Maximum: &maxVal}}}, "cannot be greater"},
		{"unknown_format", "", nil, []*Parameter{{Name: "A", Type: str, Constraints: Constraints{Format: &unknown}}}, "unknown format"},
		{"target_not_struct", "", reflect.TypeFor[int](), nil, "not a struct"},
		{"missing_field", "", reflect.TypeFor[deployOptions](), []*Parameter{{Name: "Nope", Type: str}}, "has no field"},
		{"unexported_field", "", reflect.TypeFor[deployOptions](), []*Parameter{{Name: "hidden", Type: str}}, "has no field"},
		{"field_type", "", reflect.TypeFor[deployOptions](), []*Parameter{{Name: "Count", Type: str}}, "not assignable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParameterSet("Set", tt.command, tt.target, tt.params...)
			require.Error(t, err)

			var defErr *DefinitionError
			require.True(t, errors.As(err, &defErr), "error type %T", err)
			assert.Equal(t, "Set", defErr.Set)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestDefinitionError_KeepsParseCause(t *testing.T) {
	_, err := NewSet("s").ParamString("A", "").DefaultExpr("$nope").Done().Build()
	require.Error(t, err)

	var parseErr *parser.ParseError
	assert.True(t, errors.As(err, &parseErr))
}

func TestMustBuildPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewSet("s").Command("two words").MustBuild()
	})
}

func TestFieldByKey(t *testing.T) {
	target := reflect.TypeFor[*deployOptions]()

	f, ok := FieldByKey(target, "name")
	require.True(t, ok)
	assert.Equal(t, "Target", f.Name)

	// a tagged field is only reachable through its tag
	_, ok = FieldByKey(target, "Target")
	assert.False(t, ok)

	f, ok = FieldByKey(target, "ACTION")
	require.True(t, ok)
	assert.Equal(t, "Action", f.Name)
}

func TestSwitch(t *testing.T) {
	assert.True(t, Switch(true).IsPresent())
	assert.False(t, Switch(false).IsPresent())
}

func TestSchemaGeneration(t *testing.T) {
	minVal := 1.0
	maxLen := 3
	pattern := "^[a-z]+$"

	tests := []struct {
		name  string
		param Parameter
		want  JSONSchema
	}{
		{
			name:  "no_constraints",
			param: Parameter{Name: "A", Type: reflect.TypeFor[int]()},
			want:  nil,
		},
		{
			name:  "integer",
			param: Parameter{Name: "A", Type: reflect.TypeFor[int](), Constraints: Constraints{Minimum: &minVal}},
			want:  JSONSchema{"type": "integer", "minimum": 1.0},
		},
		{
			name:  "list",
			param: Parameter{Name: "A", Type: reflect.TypeFor[[]string](), Constraints: Constraints{Pattern: &pattern, MaxLength: &maxLen}},
			want: JSONSchema{
				"type":     "array",
				"items":    JSONSchema{"type": "string", "pattern": "^[a-z]+$"},
				"maxItems": 3,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if diff := cmp.Diff(tt.want, tt.param.Schema()); diff != "" {
				t.Errorf("schema mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
