package convert

import (
	"errors"
	"fmt"
	"math/big"
	"net/netip"
	"net/url"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type flag bool

type color struct{ name string }

type celsius struct{ degrees float64 }

type version struct {
	raw     string
	natural bool
}

type loopA struct{}
type loopB struct{}

func convertTo[T any](t *testing.T, r *Registry, v any) (T, error) {
	t.Helper()
	out, err := r.Convert(reflect.ValueOf(v), reflect.TypeFor[T]())
	if err != nil {
		var zero T
		return zero, err
	}
	return out.Interface().(T), nil
}

func TestConvertPrimitives(t *testing.T) {
	r := Default()

	s, err := convertTo[string](t, r, uint8(255))
	require.NoError(t, err)
	assert.Equal(t, "255", s)

	i, err := convertTo[int64](t, r, uint8(255))
	require.NoError(t, err)
	assert.Equal(t, int64(255), i)

	f, err := convertTo[float64](t, r, float32(0.1))
	require.NoError(t, err)
	assert.Equal(t, 0.1, f)

	n, err := convertTo[int](t, r, float64(3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	fl, err := convertTo[flag](t, r, true)
	require.NoError(t, err)
	assert.Equal(t, flag(true), fl)

	parsed, err := convertTo[int](t, r, "42")
	require.NoError(t, err)
	assert.Equal(t, 42, parsed)

	b, err := convertTo[bool](t, r, "TRUE")
	require.NoError(t, err)
	assert.True(t, b)

	p, err := convertTo[*int](t, r, "5")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 5, *p)
}

func TestConvertFailures(t *testing.T) {
	r := Default()

	tests := []struct {
		name  string
		value any
		to    reflect.Type
		cause string
	}{
		{"overflow", int16(256), reflect.TypeFor[uint8](), "overflows"},
		{"negative_unsigned", int8(-1), reflect.TypeFor[uint](), "overflows"},
		{"fraction", float32(1.5), reflect.TypeFor[int](), "fractional"},
		{"not_a_bool", "yes", reflect.TypeFor[bool](), "not a boolean"},
		{"not_a_number", "abc", reflect.TypeFor[int](), "invalid syntax"},
		{"no_path", true, reflect.TypeFor[celsius](), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Convert(reflect.ValueOf(tt.value), tt.to)
			require.Error(t, err)

			var convErr *Error
			require.True(t, errors.As(err, &convErr))
			assert.Equal(t, tt.to, convErr.To)
			assert.Equal(t, tt.value, convErr.Value)
			if tt.cause == "" {
				assert.ErrorIs(t, err, ErrNoConversion)
			} else {
				assert.Contains(t, err.Error(), tt.cause)
			}
		})
	}
}

func TestConvertText(t *testing.T) {
	r := Default()

	d, err := convertTo[time.Duration](t, r, "1m30s")
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, d)

	addr, err := convertTo[netip.Addr](t, r, "10.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), addr)

	u, err := convertTo[*url.URL](t, r, "https://example.com/x")
	require.NoError(t, err)
	assert.Equal(t, "/x", u.Path)

	natural, err := ParseNumeric("18446744073709551616")
	require.NoError(t, err)
	out, err := r.Convert(natural, reflect.TypeFor[*big.Int]())
	require.NoError(t, err)
	assert.Equal(t, "18446744073709551616", out.Interface().(*big.Int).String())
}

func TestRegisteredConverters(t *testing.T) {
	r := NewRegistry()
	r.RegisterTo(reflect.TypeFor[color](), Func(func(s string) (color, error) {
		return color{name: strings.ToLower(s)}, nil
	}))
	r.RegisterFrom(reflect.TypeFor[color](), Func(func(c color) (string, error) {
		return "#" + c.name, nil
	}))

	c, err := convertTo[color](t, r, "RED")
	require.NoError(t, err)
	assert.Equal(t, color{name: "red"}, c)

	s, err := convertTo[string](t, r, color{name: "blue"})
	require.NoError(t, err)
	assert.Equal(t, "#blue", s)
}

func TestConstructors(t *testing.T) {
	r := NewRegistry()
	r.RegisterConstructor(func(d float64) celsius { return celsius{degrees: d} })

	c, err := convertTo[celsius](t, r, uint8(20))
	require.NoError(t, err)
	assert.Equal(t, celsius{degrees: 20}, c)

	r.RegisterConstructor(func(b loopB) loopA { return loopA{} })
	r.RegisterConstructor(func(a loopA) loopB { return loopB{} })
	_, err = convertTo[loopA](t, r, "x")
	assert.Error(t, err)
}

func TestConstructorPanic(t *testing.T) {
	r := NewRegistry()
	r.RegisterConstructor(func(s string) (celsius, error) {
		if s == "" {
			return celsius{}, fmt.Errorf("empty")
		}
		panic("boom")
	})

	_, err := convertTo[celsius](t, r, "hot")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPanic)

	_, err = convertTo[celsius](t, r, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty")
}

func TestFactoryPreference(t *testing.T) {
	r := NewRegistry()
	r.RegisterFactory(func(s string) (version, error) { return version{raw: s}, nil })
	r.RegisterFactory(func(n uint8) version { return version{raw: fmt.Sprint(n), natural: true} })

	v, err := convertTo[version](t, r, uint8(3))
	require.NoError(t, err)
	assert.Equal(t, version{raw: "3", natural: true}, v)

	v, err = convertTo[version](t, r, true)
	require.NoError(t, err)
	assert.Equal(t, version{raw: "true"}, v)
}

func TestRegisterShapeChecks(t *testing.T) {
	r := NewRegistry()
	assert.Panics(t, func() { r.RegisterConstructor("not a func") })
	assert.Panics(t, func() { r.RegisterConstructor(func(a, b int) int { return a + b }) })
	assert.Panics(t, func() { r.RegisterPairConstructor(func(a int) int { return a }) })
	assert.Panics(t, func() { r.RegisterFactory(func(s string) (int, int) { return 0, 0 }) })
}

func TestInvoke(t *testing.T) {
	out, err := Invoke(reflect.ValueOf(func(a, b int) (int, error) { return a + b, nil }),
		reflect.ValueOf(1), reflect.ValueOf(2))
	require.NoError(t, err)
	assert.Equal(t, 3, out.Interface())

	_, err = Invoke(reflect.ValueOf(func() { panic("nope") }))
	assert.ErrorIs(t, err, ErrPanic)

	out, err = Invoke(reflect.ValueOf(func() {}))
	require.NoError(t, err)
	assert.False(t, out.IsValid())
}
