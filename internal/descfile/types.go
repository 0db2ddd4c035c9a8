package descfile

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/aledsdavies/argbind/pkgs/params"
)

var namedTypes = map[string]reflect.Type{
	"string":   reflect.TypeFor[string](),
	"bool":     reflect.TypeFor[bool](),
	"switch":   params.SwitchType,
	"int":      reflect.TypeFor[int](),
	"int8":     reflect.TypeFor[int8](),
	"int16":    reflect.TypeFor[int16](),
	"int32":    reflect.TypeFor[int32](),
	"int64":    reflect.TypeFor[int64](),
	"uint":     reflect.TypeFor[uint](),
	"uint8":    reflect.TypeFor[uint8](),
	"byte":     reflect.TypeFor[byte](),
	"uint16":   reflect.TypeFor[uint16](),
	"uint32":   reflect.TypeFor[uint32](),
	"uint64":   reflect.TypeFor[uint64](),
	"float32":  reflect.TypeFor[float32](),
	"float64":  reflect.TypeFor[float64](),
	"duration": reflect.TypeFor[time.Duration](),
	"decimal":  reflect.TypeFor[apd.Decimal](),
	"bigint":   reflect.TypeFor[*big.Int](),
	"any":      reflect.TypeFor[any](),
}

// ParseType resolves a descriptor type name: a named scalar, []T or
// map[K]V. Map keys must be comparable.
func ParseType(name string) (reflect.Type, error) {
	name = strings.TrimSpace(name)
	if t, ok := namedTypes[name]; ok {
		return t, nil
	}

	if elem, ok := strings.CutPrefix(name, "[]"); ok {
		t, err := ParseType(elem)
		if err != nil {
			return nil, err
		}
		if t == params.SwitchType {
			return nil, fmt.Errorf("type %q: switch cannot be a slice element", name)
		}
		return reflect.SliceOf(t), nil
	}

	if rest, ok := strings.CutPrefix(name, "map["); ok {
		end := closingBracket(rest)
		if end < 0 {
			return nil, fmt.Errorf("type %q: unbalanced brackets", name)
		}
		key, err := ParseType(rest[:end])
		if err != nil {
			return nil, err
		}
		if !key.Comparable() || key.Kind() == reflect.Interface {
			return nil, fmt.Errorf("type %q: %s is not a valid map key", name, key)
		}
		value, err := ParseType(rest[end+1:])
		if err != nil {
			return nil, err
		}
		return reflect.MapOf(key, value), nil
	}

	return nil, fmt.Errorf("unknown type %q", name)
}

// closingBracket returns the index of the ']' closing an already opened
// '[' in s, or -1.
func closingBracket(s string) int {
	depth := 1
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

// TypeName is the inverse of ParseType for the types it returns.
func TypeName(t reflect.Type) string {
	for name, nt := range namedTypes {
		if nt == t && name != "byte" {
			return name
		}
	}
	switch t.Kind() {
	case reflect.Slice:
		return "[]" + TypeName(t.Elem())
	case reflect.Map:
		return "map[" + TypeName(t.Key()) + "]" + TypeName(t.Elem())
	default:
		return t.String()
	}
}
