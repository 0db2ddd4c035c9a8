package params

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// JSONSchema represents a JSON Schema Draft 2020-12 document
type JSONSchema map[string]any

// Schema compiles the constraints of p into a JSON Schema. It returns nil
// when p has no constraints.
func (p *Parameter) Schema() JSONSchema {
	c := p.Constraints
	if c.IsZero() {
		return nil
	}

	elem := p.Type
	list := isList(elem)
	if list {
		elem = elem.Elem()
	}

	value := make(JSONSchema)
	if t := jsonSchemaType(elem); t != "" {
		value["type"] = t
	}
	if c.Minimum != nil {
		value["minimum"] = *c.Minimum
	}
	if c.Maximum != nil {
		value["maximum"] = *c.Maximum
	}
	if c.Pattern != nil {
		value["pattern"] = *c.Pattern
	}
	if c.Format != nil {
		value["format"] = string(*c.Format)
	}
	if len(c.Enum) > 0 {
		value["enum"] = c.Enum
	}

	if !list {
		if c.MinLength != nil {
			value["minLength"] = *c.MinLength
		}
		if c.MaxLength != nil {
			value["maxLength"] = *c.MaxLength
		}
		return value
	}

	schema := JSONSchema{"type": "array", "items": value}
	if c.MinLength != nil {
		schema["minItems"] = *c.MinLength
	}
	if c.MaxLength != nil {
		schema["maxItems"] = *c.MaxLength
	}
	return schema
}

func isList(t reflect.Type) bool {
	k := t.Kind()
	return (k == reflect.Slice || k == reflect.Array) && t.Elem().Kind() != reflect.Uint8
}

// jsonSchemaType maps a Go type to the JSON type its values validate as
func jsonSchemaType(t reflect.Type) string {
	switch t {
	case durationType:
		return "string"
	case decimalType, reflect.TypeFor[*big.Int]():
		return "number"
	}

	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Map, reflect.Struct:
		return "object"
	case reflect.Slice, reflect.Array:
		return "array"
	default:
		return ""
	}
}

// ValidationError reports a bound value rejected by a parameter's
// constraints or validators.
type ValidationError struct {
	Parameter string
	Value     any
	Cause     error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %v for -%s: %s", e.Value, e.Parameter, describe(e.Cause))
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// describe flattens a jsonschema error tree to its leaf messages.
func describe(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}
	var leaves []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			msg := e.Message
			if e.InstanceLocation != "" {
				msg = e.InstanceLocation + ": " + msg
			}
			leaves = append(leaves, msg)
			return
		}
		for _, c := range e.Causes {
			walk(c)
		}
	}
	walk(ve)
	return strings.Join(leaves, "; ")
}

// SchemaValidator validates bound values against parameter constraints
type SchemaValidator struct {
	config validatorConfig
	cache  *schemaCache
}

// NewSchemaValidator creates a validator. By default schemas are limited
// to 64KiB and 10 levels, the 256 most recent compiled schemas are kept,
// and format constraints are asserted.
func NewSchemaValidator(opts ...ValidatorOption) *SchemaValidator {
	config := defaultValidatorConfig()
	for _, opt := range opts {
		opt(&config)
	}

	v := &SchemaValidator{config: config}
	if config.cacheSize > 0 {
		v.cache = newSchemaCache(config.cacheSize)
	}
	return v
}

// Validate checks value against the constraints of p, then runs its
// validators in order. The first failure is returned as *ValidationError.
func (v *SchemaValidator) Validate(p *Parameter, value any) error {
	if schema := p.Schema(); schema != nil {
		if err := v.ValidateSchema(schema, value); err != nil {
			return &ValidationError{Parameter: p.Name, Value: value, Cause: err}
		}
	}
	for _, validator := range p.Validators {
		if err := validator.Validate(value); err != nil {
			return &ValidationError{Parameter: p.Name, Value: value, Cause: err}
		}
	}
	return nil
}

// ValidateSchema validates a Go value against a JSON Schema
func (v *SchemaValidator) ValidateSchema(schema JSONSchema, value any) error {
	depth := measureDepth(schema, 0)
	if depth > v.config.maxSchemaDepth {
		return fmt.Errorf("schema too deep: %d levels (max: %d)", depth, v.config.maxSchemaDepth)
	}

	validator, err := v.getValidator(schema)
	if err != nil {
		return fmt.Errorf("validator compilation failed: %w", err)
	}

	instance, err := toJSONValue(value)
	if err != nil {
		return fmt.Errorf("value is not representable as JSON: %w", err)
	}
	return validator.Validate(instance)
}

// getValidator gets cached validator or compiles new one
func (v *SchemaValidator) getValidator(schema JSONSchema) (*jsonschema.Schema, error) {
	key, schemaJSON, err := schemaDigest(schema)
	if err != nil {
		return nil, err
	}
	if len(schemaJSON) > v.config.maxSchemaSize {
		return nil, fmt.Errorf("schema too large: %d bytes (max: %d)", len(schemaJSON), v.config.maxSchemaSize)
	}

	if v.cache != nil {
		if validator, ok := v.cache.get(key); ok {
			return validator, nil
		}
	}

	validator, err := v.compileSchema(schemaJSON)
	if err != nil {
		return nil, err
	}

	if v.cache != nil {
		v.cache.put(key, validator)
	}
	return validator, nil
}

// compileSchema compiles a schema document. $ref to anything but the
// document itself is refused.
func (v *SchemaValidator) compileSchema(schemaJSON []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	compiler.AssertFormat = v.config.assertFormat

	// Extend the standard formats (email, uri, ipv4, ...) with ours
	if compiler.Formats == nil {
		compiler.Formats = make(map[string]func(interface{}) bool)
	}
	for name, check := range schemaFormats() {
		compiler.Formats[name] = check
	}

	compiler.LoadURL = func(url string) (io.ReadCloser, error) {
		return nil, fmt.Errorf("$ref not allowed: %s", url)
	}

	const url = "schema://parameter.json"
	if err := compiler.AddResource(url, bytes.NewReader(schemaJSON)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}

// toJSONValue converts a bound value into the raw JSON form the validator
// expects. Numbers keep full precision as json.Number.
func toJSONValue(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Duration:
		return v.String(), nil
	case Switch:
		return bool(v), nil
	case apd.Decimal:
		return json.Number(v.String()), nil
	case *apd.Decimal:
		return json.Number(v.String()), nil
	case *big.Int:
		return json.Number(v.String()), nil
	}

	rv := reflect.ValueOf(value)
	if isList(rv.Type()) {
		out := make([]any, rv.Len())
		for i := range out {
			elem, err := toJSONValue(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// measureDepth measures the nesting depth of a schema; each "items" or
// "properties" level counts once.
func measureDepth(obj any, currentDepth int) int {
	m, ok := obj.(JSONSchema)
	if !ok {
		if plain, isMap := obj.(map[string]any); isMap {
			m, ok = JSONSchema(plain), true
		}
	}
	if !ok {
		return currentDepth
	}

	maxDepth := currentDepth
	if items, ok := m["items"]; ok {
		if depth := measureDepth(items, currentDepth+1); depth > maxDepth {
			maxDepth = depth
		}
	}
	if props, ok := m["properties"].(map[string]any); ok {
		for _, field := range props {
			if depth := measureDepth(field, currentDepth+1); depth > maxDepth {
				maxDepth = depth
			}
		}
	}
	return maxDepth
}
