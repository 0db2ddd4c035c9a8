package convert

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"
)

// MaxDecimalDigits bounds the significant digits of the decimal natural type.
const MaxDecimalDigits = 28

var (
	decimalType = reflect.TypeFor[apd.Decimal]()
	bigIntType  = reflect.TypeFor[*big.Int]()
	stringType  = reflect.TypeFor[string]()
	errorType   = reflect.TypeFor[error]()
)

// NumericTypes lists the natural types of a numeric literal in the order
// they are tried. The first type that holds the literal wins.
var NumericTypes = []reflect.Type{
	reflect.TypeFor[uint8](),
	reflect.TypeFor[int8](),
	reflect.TypeFor[int16](),
	reflect.TypeFor[uint16](),
	reflect.TypeFor[int32](),
	reflect.TypeFor[uint32](),
	reflect.TypeFor[int64](),
	reflect.TypeFor[uint64](),
	reflect.TypeFor[float32](),
	reflect.TypeFor[float64](),
	decimalType,
	bigIntType,
}

// ParseNumeric returns the natural value of a numeric literal.
//
// Binary floats only win when their shortest representation denotes the
// same decimal number as text, so 0.1 is a float32 but a 20-digit fraction
// falls through to apd.Decimal.
func ParseNumeric(text string) (reflect.Value, error) {
	for _, t := range NumericTypes {
		if v, ok := parseNatural(text, t); ok {
			return v, nil
		}
	}
	return reflect.Value{}, fmt.Errorf("%w: %q", ErrNumericRange, text)
}

func parseNatural(text string, t reflect.Type) (reflect.Value, bool) {
	switch t.Kind() {
	case reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u, err := strconv.ParseUint(strings.TrimPrefix(text, "+"), 10, t.Bits())
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(u).Convert(t), true
	case reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		i, err := strconv.ParseInt(text, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(i).Convert(t), true
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(text, t.Bits())
		if err != nil || math.IsInf(f, 0) {
			return reflect.Value{}, false
		}
		if !sameDecimal(strconv.FormatFloat(f, 'g', -1, t.Bits()), text) {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(f).Convert(t), true
	}

	switch t {
	case decimalType:
		d, _, err := apd.NewFromString(text)
		if err != nil || d.NumDigits() > MaxDecimalDigits {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(*d), true
	case bigIntType:
		n, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return reflect.Value{}, false
		}
		return reflect.ValueOf(n), true
	}
	return reflect.Value{}, false
}

func sameDecimal(a, b string) bool {
	x, _, err := apd.NewFromString(a)
	if err != nil {
		return false
	}
	y, _, err := apd.NewFromString(b)
	if err != nil {
		return false
	}
	return x.Cmp(y) == 0
}

func isInt(k reflect.Kind) bool {
	return k >= reflect.Int && k <= reflect.Int64
}

func isUint(k reflect.Kind) bool {
	return k >= reflect.Uint && k <= reflect.Uintptr
}

func isFloat(k reflect.Kind) bool {
	return k == reflect.Float32 || k == reflect.Float64
}

func isNumber(k reflect.Kind) bool {
	return isInt(k) || isUint(k) || isFloat(k)
}

// widen32 turns a float32 into the float64 with the same shortest decimal
// form, so float32(0.1) becomes 0.1 rather than 0.10000000149011612.
func widen32(f float64) float64 {
	w, err := strconv.ParseFloat(strconv.FormatFloat(f, 'g', -1, 32), 64)
	if err != nil {
		return f
	}
	return w
}

// convertNumber converts between numeric kinds with range checks. Floats
// only convert to integers when they have no fractional part.
func convertNumber(v reflect.Value, to reflect.Type) (reflect.Value, error) {
	out := reflect.New(to).Elem()
	from := v.Kind()
	target := to.Kind()

	switch {
	case isInt(from):
		i := v.Int()
		switch {
		case isInt(target):
			if out.OverflowInt(i) {
				return reflect.Value{}, rangeError(i, to)
			}
			out.SetInt(i)
		case isUint(target):
			if i < 0 || out.OverflowUint(uint64(i)) {
				return reflect.Value{}, rangeError(i, to)
			}
			out.SetUint(uint64(i))
		default:
			out.SetFloat(float64(i))
		}
	case isUint(from):
		u := v.Uint()
		switch {
		case isInt(target):
			if u > math.MaxInt64 || out.OverflowInt(int64(u)) {
				return reflect.Value{}, rangeError(u, to)
			}
			out.SetInt(int64(u))
		case isUint(target):
			if out.OverflowUint(u) {
				return reflect.Value{}, rangeError(u, to)
			}
			out.SetUint(u)
		default:
			out.SetFloat(float64(u))
		}
	default:
		f := v.Float()
		if from == reflect.Float32 {
			f = widen32(f)
		}
		switch {
		case isFloat(target):
			if out.OverflowFloat(f) {
				return reflect.Value{}, rangeError(f, to)
			}
			out.SetFloat(f)
		case f != math.Trunc(f) || math.IsNaN(f):
			return reflect.Value{}, fmt.Errorf("%v has a fractional part", f)
		case isInt(target):
			if f < math.MinInt64 || f >= math.MaxInt64 || out.OverflowInt(int64(f)) {
				return reflect.Value{}, rangeError(f, to)
			}
			out.SetInt(int64(f))
		default:
			if f < 0 || f >= math.MaxUint64 || out.OverflowUint(uint64(f)) {
				return reflect.Value{}, rangeError(f, to)
			}
			out.SetUint(uint64(f))
		}
	}
	return out, nil
}

func rangeError(v any, to reflect.Type) error {
	return fmt.Errorf("%v overflows %s", v, to)
}
