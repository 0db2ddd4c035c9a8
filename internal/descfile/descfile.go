// Package descfile loads parameter sets from YAML descriptor files so the
// CLI can resolve command lines without Go code.
//
// A descriptor lists sets in order of preference:
//
//	sets:
//	  - name: Copy
//	    command: copy
//	    parameters:
//	      - name: Source
//	        type: string
//	        position: 0
//	        required: true
//	      - name: Retries
//	        type: int
//	        default: 3
//	        minimum: 0
package descfile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"

	"github.com/samber/lo"
	"gopkg.in/yaml.v3"

	"github.com/aledsdavies/argbind/pkgs/params"
)

// MaxFileSize bounds the descriptor accepted by Parse.
const MaxFileSize = 1 << 20

// File is the on-disk descriptor.
type File struct {
	Sets []SetSpec `yaml:"sets"`
}

// SetSpec describes one parameter set.
type SetSpec struct {
	Name       string          `yaml:"name"`
	Command    string          `yaml:"command,omitempty"`
	Parameters []ParameterSpec `yaml:"parameters,omitempty"`
}

// ParameterSpec describes one parameter. Type names are those accepted by
// ParseType; an empty type is a string.
type ParameterSpec struct {
	Name        string   `yaml:"name"`
	Type        string   `yaml:"type,omitempty"`
	Position    *int     `yaml:"position,omitempty"`
	Required    bool     `yaml:"required,omitempty"`
	Default     any      `yaml:"default,omitempty"`
	DefaultExpr string   `yaml:"default_expr,omitempty"`
	Description string   `yaml:"description,omitempty"`
	Minimum     *float64 `yaml:"minimum,omitempty"`
	Maximum     *float64 `yaml:"maximum,omitempty"`
	MinLength   *int     `yaml:"min_length,omitempty"`
	MaxLength   *int     `yaml:"max_length,omitempty"`
	Pattern     *string  `yaml:"pattern,omitempty"`
	Enum        []any    `yaml:"enum,omitempty"`
	Format      string   `yaml:"format,omitempty"`
}

// Load reads and builds the sets described by the file at path.
func Load(path string) ([]*params.ParameterSet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sets, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sets, nil
}

// Parse decodes a descriptor and builds its sets. Unknown keys are
// rejected.
func Parse(r io.Reader) ([]*params.ParameterSet, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxFileSize+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxFileSize {
		return nil, fmt.Errorf("descriptor exceeds %d bytes", MaxFileSize)
	}

	var file File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("descriptor is empty")
		}
		return nil, fmt.Errorf("decode descriptor: %w", err)
	}
	return file.Build()
}

// Build turns the descriptor into validated parameter sets, keeping their
// order.
func (f *File) Build() ([]*params.ParameterSet, error) {
	if len(f.Sets) == 0 {
		return nil, errors.New("descriptor defines no parameter sets")
	}

	names := lo.Map(f.Sets, func(s SetSpec, _ int) string { return params.Fold(s.Name) })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return nil, fmt.Errorf("duplicate parameter set name %q", dups[0])
	}

	sets := make([]*params.ParameterSet, 0, len(f.Sets))
	for _, spec := range f.Sets {
		set, err := spec.build()
		if err != nil {
			return nil, err
		}
		sets = append(sets, set)
	}
	return sets, nil
}

func (s SetSpec) build() (*params.ParameterSet, error) {
	parameters := make([]*params.Parameter, 0, len(s.Parameters))
	for _, spec := range s.Parameters {
		p, err := spec.build()
		if err != nil {
			return nil, &params.DefinitionError{
				Set:       s.Name,
				Parameter: spec.Name,
				Message:   "invalid descriptor",
				Cause:     err,
			}
		}
		parameters = append(parameters, p)
	}
	// descriptor sets always bind into a map
	return params.NewParameterSet(s.Name, s.Command, nil, parameters...)
}

func (s ParameterSpec) build() (*params.Parameter, error) {
	typeName := lo.Ternary(s.Type == "", "string", s.Type)
	t, err := ParseType(typeName)
	if err != nil {
		return nil, err
	}

	switch s.Default.(type) {
	case map[string]any, []any:
		return nil, errors.New("default must be a scalar; use default_expr for collections")
	}

	p := &params.Parameter{
		Name:        s.Name,
		Description: s.Description,
		Position:    s.Position,
		Required:    s.Required,
		Default:     s.Default,
		DefaultExpr: s.DefaultExpr,
		Type:        t,
		Constraints: params.Constraints{
			Minimum:   s.Minimum,
			Maximum:   s.Maximum,
			MinLength: s.MinLength,
			MaxLength: s.MaxLength,
			Pattern:   s.Pattern,
			Enum:      s.Enum,
		},
	}
	if s.Format != "" {
		format := params.Format(s.Format)
		p.Constraints.Format = &format
	}
	return p, nil
}

// Describe converts sets back into a descriptor. Validators and struct
// targets have no descriptor form and are dropped.
func Describe(sets []*params.ParameterSet) *File {
	return &File{
		Sets: lo.Map(sets, func(set *params.ParameterSet, _ int) SetSpec {
			return SetSpec{
				Name:    set.Name,
				Command: set.Command,
				Parameters: lo.Map(set.Parameters, func(p *params.Parameter, _ int) ParameterSpec {
					return describeParameter(p)
				}),
			}
		}),
	}
}

func describeParameter(p *params.Parameter) ParameterSpec {
	spec := ParameterSpec{
		Name:        p.Name,
		Type:        TypeName(p.Type),
		Position:    p.Position,
		Required:    p.Required,
		DefaultExpr: p.DefaultExpr,
		Description: p.Description,
		Minimum:     p.Constraints.Minimum,
		Maximum:     p.Constraints.Maximum,
		MinLength:   p.Constraints.MinLength,
		MaxLength:   p.Constraints.MaxLength,
		Pattern:     p.Constraints.Pattern,
		Enum:        p.Constraints.Enum,
	}
	if p.Default != nil && isScalar(reflect.TypeOf(p.Default)) {
		spec.Default = p.Default
	}
	if p.Constraints.Format != nil {
		spec.Format = string(*p.Constraints.Format)
	}
	return spec
}

func isScalar(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}
