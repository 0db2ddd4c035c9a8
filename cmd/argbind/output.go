package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"reflect"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/aledsdavies/argbind/pkgs/params"
	"github.com/aledsdavies/argbind/pkgs/resolver"
)

// resolved is the JSON written for a matched command line.
type resolved struct {
	Set    string `json:"set"`
	Values any    `json:"values"`
}

func writeMatch(w io.Writer, r *resolver.ParameterSetResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(resolved{Set: r.Set.Name, Values: jsonValue(reflect.ValueOf(r.Instance))})
}

// jsonValue rewrites bound values into plain JSON types. Decimals and big
// integers become strings so no precision is lost; durations use their Go
// syntax.
func jsonValue(v reflect.Value) any {
	if !v.IsValid() {
		return nil
	}

	switch x := v.Interface().(type) {
	case params.Switch:
		return bool(x)
	case time.Duration:
		return x.String()
	case apd.Decimal:
		return x.String()
	case *apd.Decimal:
		if x == nil {
			return nil
		}
		return x.String()
	case *big.Int:
		if x == nil {
			return nil
		}
		return x.String()
	}

	switch v.Kind() {
	case reflect.Interface, reflect.Pointer:
		if v.IsNil() {
			return nil
		}
		return jsonValue(v.Elem())
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return []any{}
		}
		out := make([]any, v.Len())
		for i := range out {
			out[i] = jsonValue(v.Index(i))
		}
		return out
	case reflect.Map:
		out := make(map[string]any, v.Len())
		iter := v.MapRange()
		for iter.Next() {
			out[fmt.Sprint(iter.Key().Interface())] = jsonValue(iter.Value())
		}
		return out
	case reflect.Struct:
		out := make(map[string]any, v.NumField())
		t := v.Type()
		for i := 0; i < v.NumField(); i++ {
			if f := t.Field(i); f.IsExported() {
				out[f.Name] = jsonValue(v.Field(i))
			}
		}
		return out
	default:
		return v.Interface()
	}
}
