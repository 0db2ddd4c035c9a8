package convert

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

var (
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshalerType = reflect.TypeFor[encoding.TextUnmarshaler]()
	stringerType        = reflect.TypeFor[fmt.Stringer]()
)

// Render returns the textual form of v used for text round trips.
func Render(v reflect.Value) (string, bool) {
	if !v.IsValid() {
		return "", false
	}

	if m, ok := implementer(v, textMarshalerType); ok {
		text, err := m.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return "", false
		}
		return string(text), true
	}
	if v.Kind() == reflect.String {
		return v.String(), true
	}
	if s, ok := implementer(v, stringerType); ok {
		return s.Interface().(fmt.Stringer).String(), true
	}

	switch k := v.Kind(); {
	case k == reflect.Bool:
		return strconv.FormatBool(v.Bool()), true
	case isInt(k):
		return strconv.FormatInt(v.Int(), 10), true
	case isUint(k):
		return strconv.FormatUint(v.Uint(), 10), true
	case isFloat(k):
		return strconv.FormatFloat(v.Float(), 'g', -1, v.Type().Bits()), true
	}
	return "", false
}

// implementer returns v, or a pointer to a copy of v, implementing iface.
func implementer(v reflect.Value, iface reflect.Type) (reflect.Value, bool) {
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return reflect.Value{}, false
	}
	if v.Type().Implements(iface) {
		return v, true
	}
	if reflect.PointerTo(v.Type()).Implements(iface) {
		ptr := reflect.New(v.Type())
		ptr.Elem().Set(v)
		return ptr, true
	}
	return reflect.Value{}, false
}

// ParseText parses text into a value of type to using, in order, a
// registered text parser, encoding.TextUnmarshaler, or strconv for the
// primitive kinds.
func (r *Registry) ParseText(text string, to reflect.Type) (reflect.Value, error) {
	out, ok, err := r.parseText(text, to)
	if !ok && err == nil {
		return reflect.Value{}, fmt.Errorf("%s has no textual form: %w", to, ErrNoConversion)
	}
	return out, err
}

func (r *Registry) parseText(text string, to reflect.Type) (reflect.Value, bool, error) {
	r.mu.RLock()
	parse := r.text[to]
	r.mu.RUnlock()
	if parse != nil {
		out, err := parse(text)
		if err != nil {
			return reflect.Value{}, false, err
		}
		return out, true, nil
	}

	switch {
	case to.Kind() == reflect.Pointer && to.Implements(textUnmarshalerType):
		ptr := reflect.New(to.Elem())
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text)); err != nil {
			return reflect.Value{}, false, err
		}
		return ptr, true, nil
	case to.Kind() != reflect.Interface && reflect.PointerTo(to).Implements(textUnmarshalerType):
		ptr := reflect.New(to)
		if err := ptr.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(text)); err != nil {
			return reflect.Value{}, false, err
		}
		return ptr.Elem(), true, nil
	}

	out := reflect.New(to).Elem()
	switch k := to.Kind(); {
	case k == reflect.String:
		out.SetString(text)
	case k == reflect.Bool:
		switch {
		case strings.EqualFold(text, "true"):
			out.SetBool(true)
		case strings.EqualFold(text, "false"):
		default:
			return reflect.Value{}, false, fmt.Errorf("%q is not a boolean", text)
		}
	case isInt(k):
		i, err := strconv.ParseInt(text, 10, to.Bits())
		if err != nil {
			return reflect.Value{}, false, err
		}
		out.SetInt(i)
	case isUint(k):
		u, err := strconv.ParseUint(strings.TrimPrefix(text, "+"), 10, to.Bits())
		if err != nil {
			return reflect.Value{}, false, err
		}
		out.SetUint(u)
	case isFloat(k):
		f, err := strconv.ParseFloat(text, to.Bits())
		if err != nil {
			return reflect.Value{}, false, err
		}
		out.SetFloat(f)
	default:
		return reflect.Value{}, false, nil
	}
	return out, true, nil
}
