package params

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/aledsdavies/argbind/pkgs/ast"
	"github.com/aledsdavies/argbind/pkgs/parser"
)

// DefinitionError reports an invalid parameter set definition.
type DefinitionError struct {
	Set       string
	Parameter string // empty for set-level problems
	Message   string
	Cause     error
}

func (e *DefinitionError) Error() string {
	var b strings.Builder
	b.WriteString("parameter set")
	if e.Set != "" {
		fmt.Fprintf(&b, " %q", e.Set)
	}
	if e.Parameter != "" {
		fmt.Fprintf(&b, ", parameter %q", e.Parameter)
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

func (e *DefinitionError) Unwrap() error {
	return e.Cause
}

// ParameterSet is one candidate shape for a command line. Do not modify a
// set or its parameters after construction.
type ParameterSet struct {
	Name       string
	Command    string       // optional leading command word
	Target     reflect.Type // struct, pointer to struct, or nil for a map[string]any
	Parameters []*Parameter

	defaults map[*Parameter]ast.Node
}

// NewParameterSet validates and builds a parameter set.
func NewParameterSet(name, command string, target reflect.Type, parameters ...*Parameter) (*ParameterSet, error) {
	set := &ParameterSet{
		Name:       name,
		Command:    command,
		Target:     target,
		Parameters: parameters,
		defaults:   make(map[*Parameter]ast.Node),
	}
	if err := set.validate(); err != nil {
		return nil, err
	}
	return set, nil
}

// Fold returns the case-insensitive matching form of a name.
func Fold(name string) string {
	return cases.Fold().String(name)
}

func (s *ParameterSet) validate() error {
	fail := func(param, format string, args ...any) error {
		return &DefinitionError{Set: s.Name, Parameter: param, Message: fmt.Sprintf(format, args...)}
	}

	if strings.IndexFunc(s.Command, unicode.IsSpace) >= 0 {
		return fail("", "command %q contains whitespace", s.Command)
	}
	if s.Target != nil && !isStructTarget(s.Target) {
		return fail("", "target %s is not a struct or pointer to struct", s.Target)
	}

	names := make(map[string]string)
	positions := make(map[int]string)
	for i, p := range s.Parameters {
		if p == nil {
			return fail("", "parameter %d is nil", i)
		}
		if !validName(p.Name) {
			return fail(p.Name, "invalid parameter name")
		}
		if p.Type == nil {
			return fail(p.Name, "type is not set")
		}
		folded := Fold(p.Name)
		if prev, ok := names[folded]; ok {
			return fail(p.Name, "duplicate parameter name (conflicts with %q)", prev)
		}
		names[folded] = p.Name

		if p.Position != nil {
			pos := *p.Position
			if pos < 0 {
				return fail(p.Name, "negative position %d", pos)
			}
			if prev, ok := positions[pos]; ok {
				return fail(p.Name, "duplicate position %d (already used by %q)", pos, prev)
			}
			if p.IsSwitch() {
				return fail(p.Name, "switch parameters cannot be positional")
			}
			positions[pos] = p.Name
		}

		if err := s.validateParameter(p); err != nil {
			return err
		}
	}

	for pos := 0; pos < len(positions); pos++ {
		if _, ok := positions[pos]; !ok {
			return fail("", "positions must be contiguous from 0; position %d is missing", pos)
		}
	}
	return nil
}

func (s *ParameterSet) validateParameter(p *Parameter) error {
	fail := func(cause error, format string, args ...any) error {
		return &DefinitionError{Set: s.Name, Parameter: p.Name, Message: fmt.Sprintf(format, args...), Cause: cause}
	}

	if p.Default != nil && p.DefaultExpr != "" {
		return fail(nil, "Default and DefaultExpr are mutually exclusive")
	}
	if p.Required && p.HasDefault() {
		return fail(nil, "parameter cannot be both required and have a default value")
	}

	if p.DefaultExpr != "" {
		seq, err := parser.ParseString(p.DefaultExpr)
		if err != nil {
			return fail(err, "invalid default expression %q", p.DefaultExpr)
		}
		if seq.Len() != 1 || ast.IsNamed(seq.Nodes[0]) {
			return fail(nil, "default expression %q must be a single value", p.DefaultExpr)
		}
		s.defaults[p] = seq.Nodes[0]
	}

	c := p.Constraints
	if c.Pattern != nil {
		if _, err := regexp.Compile(*c.Pattern); err != nil {
			return fail(err, "invalid regex pattern %q", *c.Pattern)
		}
	}
	if c.Minimum != nil && c.Maximum != nil && *c.Minimum > *c.Maximum {
		return fail(nil, "minimum (%v) cannot be greater than maximum (%v)", *c.Minimum, *c.Maximum)
	}
	if c.MinLength != nil && c.MaxLength != nil && *c.MinLength > *c.MaxLength {
		return fail(nil, "minLength (%d) cannot be greater than maxLength (%d)", *c.MinLength, *c.MaxLength)
	}
	if c.Format != nil && !IsValidFormat(*c.Format) {
		return fail(nil, "unknown format %q", *c.Format)
	}

	if s.Target != nil {
		field, ok := FieldByKey(s.Target, p.Key())
		if !ok {
			return fail(nil, "target %s has no field for %q", s.Target, p.Key())
		}
		if !p.Type.AssignableTo(field.Type) {
			return fail(nil, "type %s is not assignable to field %s (%s)", p.Type, field.Name, field.Type)
		}
	}
	return nil
}

// validName reports whether the lexer reads -name back as this parameter.
func validName(name string) bool {
	if name == "" {
		return false
	}
	c := name[0]
	if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z' || c == '_' || c == '?') {
		return false
	}
	return !strings.ContainsFunc(name, func(r rune) bool {
		return unicode.IsSpace(r) || strings.ContainsRune(":,;=)}", r)
	})
}

// Lookup returns the parameter with exactly this name, ignoring case.
func (s *ParameterSet) Lookup(name string) (*Parameter, bool) {
	folded := Fold(name)
	for _, p := range s.Parameters {
		if Fold(p.Name) == folded {
			return p, true
		}
	}
	return nil, false
}

// Positional returns the positional parameters ordered by position.
func (s *ParameterSet) Positional() []*Parameter {
	var out []*Parameter
	for _, p := range s.Parameters {
		if p.IsPositional() {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return *out[i].Position < *out[j].Position })
	return out
}

// DefaultNode returns the parsed DefaultExpr of p, or nil.
func (s *ParameterSet) DefaultNode(p *Parameter) ast.Node {
	return s.defaults[p]
}

func (s *ParameterSet) String() string {
	if s.Command != "" {
		return s.Name + " (" + s.Command + ")"
	}
	return s.Name
}

func isStructTarget(t reflect.Type) bool {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Kind() == reflect.Struct
}

// FieldByKey finds the exported field of a struct (or pointer to struct)
// target that stores key: a field tagged `arg:"key"`, else a field whose
// name equals key ignoring case.
func FieldByKey(target reflect.Type, key string) (reflect.StructField, bool) {
	if target.Kind() == reflect.Pointer {
		target = target.Elem()
	}
	if target.Kind() != reflect.Struct {
		return reflect.StructField{}, false
	}

	folded := Fold(key)
	var byName *reflect.StructField
	for i := 0; i < target.NumField(); i++ {
		f := target.Field(i)
		if !f.IsExported() {
			continue
		}
		if tag, ok := f.Tag.Lookup("arg"); ok {
			if tag == "-" {
				continue
			}
			if Fold(tag) == folded {
				return f, true
			}
			continue
		}
		if byName == nil && Fold(f.Name) == folded {
			byName = &f
		}
	}
	if byName != nil {
		return *byName, true
	}
	return reflect.StructField{}, false
}
